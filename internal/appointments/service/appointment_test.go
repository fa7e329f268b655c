package service

import (
	"context"
	"testing"
	"time"

	appterrors "medicita/internal/appointments/errors"
	"medicita/internal/appointments/validator"
	"medicita/pkg/config"
	mongodb "medicita/pkg/db/mongo"
	apperrors "medicita/pkg/errors"
	"medicita/pkg/logger"
	"medicita/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockAppointmentRepository struct {
	createFunc    func(ctx context.Context, appt *model.Appointment) error
	findByIDFunc  func(ctx context.Context, id string) (*model.Appointment, error)
	updateFunc    func(ctx context.Context, id string, appt *model.Appointment) error
	occupyingFunc func(ctx context.Context, doctorID string, date string) ([]*model.Appointment, error)
}

func (m *mockAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, appt)
	}
	appt.ID = "665f1f77bcf86cd799439099"
	return nil
}

func (m *mockAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, appterrors.ErrNotFound
}

func (m *mockAppointmentRepository) Update(ctx context.Context, id string, appt *model.Appointment) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, appt)
	}
	return nil
}

func (m *mockAppointmentRepository) FindOccupyingByDoctorAndDate(ctx context.Context, doctorID string, date string) ([]*model.Appointment, error) {
	if m.occupyingFunc != nil {
		return m.occupyingFunc(ctx, doctorID, date)
	}
	return []*model.Appointment{}, nil
}

func (m *mockAppointmentRepository) FindByDateRange(ctx context.Context, branchID string, fromDate string, toDate string, limit int, offset int64) ([]*model.Appointment, error) {
	return []*model.Appointment{}, nil
}

func (m *mockAppointmentRepository) CountByDateRange(ctx context.Context, branchID string, fromDate string, toDate string) (int64, error) {
	return 0, nil
}

func (m *mockAppointmentRepository) FindSweepCandidates(ctx context.Context, date string) ([]*model.Appointment, error) {
	return []*model.Appointment{}, nil
}

func (m *mockAppointmentRepository) MarkAtRisk(ctx context.Context, ids []string) (int64, error) {
	return 0, nil
}

func (m *mockAppointmentRepository) MarkNoShow(ctx context.Context, id string, noShowAt time.Time, recoveryUntil time.Time) (bool, error) {
	return false, nil
}

func (m *mockAppointmentRepository) SlotOccupied(ctx context.Context, key model.SlotKey) (bool, error) {
	return false, nil
}

func (m *mockAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongodb.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

type reservationCall struct {
	op  string
	key string
}

// mockReservations records the protocol calls so tests can assert ordering.
type mockReservations struct {
	calls      []reservationCall
	holdErr    error
	commitErr  error
	releaseErr error
}

func (m *mockReservations) Hold(ctx context.Context, key model.SlotKey, sessionID string, ttl time.Duration) (*model.SlotHold, error) {
	m.calls = append(m.calls, reservationCall{"hold", key.String()})
	if m.holdErr != nil {
		return nil, m.holdErr
	}
	return &model.SlotHold{ID: key.String(), SessionID: sessionID, State: model.HoldStateHeld}, nil
}

func (m *mockReservations) Commit(ctx context.Context, key model.SlotKey, sessionID string) (*model.SlotHold, error) {
	m.calls = append(m.calls, reservationCall{"commit", key.String()})
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	return &model.SlotHold{ID: key.String(), SessionID: sessionID, State: model.HoldStateCommitted}, nil
}

func (m *mockReservations) Release(ctx context.Context, key model.SlotKey, sessionID string) error {
	m.calls = append(m.calls, reservationCall{"release", key.String()})
	return m.releaseErr
}

func (m *mockReservations) FinalizeCommitted(ctx context.Context, key model.SlotKey) error {
	m.calls = append(m.calls, reservationCall{"finalize", key.String()})
	return nil
}

func (m *mockReservations) ActiveHolds(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error) {
	return []*model.SlotHold{}, nil
}

func (m *mockReservations) ExpireStale(ctx context.Context) (int64, error) {
	return 0, nil
}

// recordingPublisher captures event types for assertions.
type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) AppointmentEvent(ctx context.Context, eventType string, appt *model.Appointment) {
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) RecoveryEvent(ctx context.Context, appt *model.Appointment) {
	p.events = append(p.events, "recovery")
}

func (p *recordingPublisher) Close() error { return nil }

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockAppointmentRepository, res *mockReservations, pub *recordingPublisher) *appointmentService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:     "error",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
		DefaultSlotDurationMin: 30,
	}
	return &appointmentService{
		repo:         repo,
		reservations: res,
		validator:    validator.NewAppointmentValidator(cfg.Log),
		publisher:    pub,
		cfg:          cfg,
		now:          func() time.Time { return testNow },
	}
}

func validCreateRequest() *CreateAppointmentRequest {
	return &CreateAppointmentRequest{
		PatientID:   "507f1f77bcf86cd799439001",
		BranchID:    "507f1f77bcf86cd799439012",
		DoctorID:    "507f1f77bcf86cd799439011",
		Date:        "2026-03-02",
		Time:        "10:30",
		ServiceType: "limpieza dental",
		Cost:        800,
		SessionID:   "session-a",
	}
}

func storedAppointment(status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{
		ID:          "665f1f77bcf86cd799439099",
		PatientID:   "507f1f77bcf86cd799439001",
		BranchID:    "507f1f77bcf86cd799439012",
		DoctorID:    "507f1f77bcf86cd799439011",
		Date:        "2026-03-02",
		Time:        "10:30",
		DurationMin: 30,
		ServiceType: "limpieza dental",
		Status:      status,
		Cost:        800,
		AmountPaid:  200,
		BalanceDue:  600,
	}
}

func TestCreateFromHold_ProtocolOrdering(t *testing.T) {
	repo := &mockAppointmentRepository{}
	res := &mockReservations{}
	pub := &recordingPublisher{}
	svc := newTestService(repo, res, pub)

	appt, err := svc.CreateFromHold(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.calls) != 2 {
		t.Fatalf("expected commit then finalize, got %v", res.calls)
	}
	if res.calls[0].op != "commit" || res.calls[1].op != "finalize" {
		t.Errorf("expected [commit finalize], got %v", res.calls)
	}
	if res.calls[0].key != appt.SlotKey().String() {
		t.Errorf("commit targeted %s, appointment occupies %s", res.calls[0].key, appt.SlotKey().String())
	}

	if appt.Status != model.StatusScheduled {
		t.Errorf("expected status %s, got %s", model.StatusScheduled, appt.Status)
	}
	if appt.DurationMin != 30 {
		t.Errorf("expected default duration 30, got %d", appt.DurationMin)
	}
	if appt.BalanceDue != 800 {
		t.Errorf("expected balance 800, got %v", appt.BalanceDue)
	}
	if len(pub.events) != 1 || pub.events[0] != "appointment_created" {
		t.Errorf("expected appointment_created event, got %v", pub.events)
	}
}

func TestCreateFromHold_PendingConfirmationChannel(t *testing.T) {
	svc := newTestService(&mockAppointmentRepository{}, &mockReservations{}, &recordingPublisher{})

	req := validCreateRequest()
	req.RequiresConfirmation = true

	appt, err := svc.CreateFromHold(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != model.StatusPendingConfirmation {
		t.Errorf("expected %s, got %s", model.StatusPendingConfirmation, appt.Status)
	}
}

func TestCreateFromHold_ExpiredHoldAbortsBeforeInsert(t *testing.T) {
	repo := &mockAppointmentRepository{
		createFunc: func(ctx context.Context, appt *model.Appointment) error {
			t.Fatal("appointment must not be created without a committed hold")
			return nil
		},
	}
	res := &mockReservations{commitErr: apperrors.HoldExpired("key")}
	svc := newTestService(repo, res, &recordingPublisher{})

	_, err := svc.CreateFromHold(context.Background(), validCreateRequest())
	if !apperrors.IsCode(err, apperrors.CodeHoldExpired) {
		t.Errorf("expected HOLD_EXPIRED, got %v", err)
	}
}

func TestCreateFromHold_InsertFailureDropsCommittedHold(t *testing.T) {
	repo := &mockAppointmentRepository{
		createFunc: func(ctx context.Context, appt *model.Appointment) error {
			return context.DeadlineExceeded
		},
	}
	res := &mockReservations{}
	svc := newTestService(repo, res, &recordingPublisher{})

	_, err := svc.CreateFromHold(context.Background(), validCreateRequest())
	if !apperrors.IsCode(err, apperrors.CodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}
	if len(res.calls) != 2 || res.calls[1].op != "finalize" {
		t.Errorf("committed hold must be dropped after insert failure, calls: %v", res.calls)
	}
}

func TestMarkArrival_LandsInWaitingRoom(t *testing.T) {
	var updated *model.Appointment
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			appt := storedAppointment(model.StatusConfirmed)
			appt.AtRisk = true
			return appt, nil
		},
		updateFunc: func(ctx context.Context, id string, appt *model.Appointment) error {
			updated = appt
			return nil
		},
	}
	pub := &recordingPublisher{}
	svc := newTestService(repo, &mockReservations{}, pub)

	appt, err := svc.MarkArrival(context.Background(), "665f1f77bcf86cd799439099")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != model.StatusWaiting {
		t.Errorf("expected %s, got %s", model.StatusWaiting, appt.Status)
	}
	if appt.ArrivalTime == nil || !appt.ArrivalTime.Equal(testNow) {
		t.Errorf("expected arrival time %v, got %v", testNow, appt.ArrivalTime)
	}
	if appt.AtRisk {
		t.Error("arrival must clear the at-risk flag")
	}
	if updated == nil {
		t.Fatal("expected appointment to be persisted")
	}
	if len(pub.events) != 1 || pub.events[0] != "appointment_arrived" {
		t.Errorf("expected appointment_arrived event, got %v", pub.events)
	}
}

func TestMarkArrival_RequiresConfirmedStatus(t *testing.T) {
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			return storedAppointment(model.StatusScheduled), nil
		},
	}
	svc := newTestService(repo, &mockReservations{}, &recordingPublisher{})

	_, err := svc.MarkArrival(context.Background(), "665f1f77bcf86cd799439099")
	if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
		t.Errorf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestLifecycleChain_WaitingToFinished(t *testing.T) {
	current := storedAppointment(model.StatusWaiting)
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *current
			return &copied, nil
		},
		updateFunc: func(ctx context.Context, id string, appt *model.Appointment) error {
			current = appt
			return nil
		},
	}
	svc := newTestService(repo, &mockReservations{}, &recordingPublisher{})

	appt, err := svc.StartAttention(context.Background(), current.ID)
	if err != nil {
		t.Fatalf("StartAttention: %v", err)
	}
	if appt.Status != model.StatusInAttention {
		t.Fatalf("expected %s, got %s", model.StatusInAttention, appt.Status)
	}
	if appt.AttentionStartTime == nil {
		t.Error("expected attention start time to be set")
	}

	appt, err = svc.Finish(context.Background(), current.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if appt.Status != model.StatusFinished {
		t.Errorf("expected %s, got %s", model.StatusFinished, appt.Status)
	}
	if appt.AttentionEndTime == nil {
		t.Error("expected attention end time to be set")
	}
}

func TestCancel_RequiresReason(t *testing.T) {
	svc := newTestService(&mockAppointmentRepository{}, &mockReservations{}, &recordingPublisher{})

	_, err := svc.Cancel(context.Background(), "665f1f77bcf86cd799439099", "   ")
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestCancel_RefusedFromFinished(t *testing.T) {
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			return storedAppointment(model.StatusFinished), nil
		},
	}
	svc := newTestService(repo, &mockReservations{}, &recordingPublisher{})

	_, err := svc.Cancel(context.Background(), "665f1f77bcf86cd799439099", "patient request")
	if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
		t.Errorf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestReschedule_ForfeitsPromotion(t *testing.T) {
	stored := storedAppointment(model.StatusConfirmed)
	stored.IsPromotion = true

	var updated *model.Appointment
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *stored
			return &copied, nil
		},
		updateFunc: func(ctx context.Context, id string, appt *model.Appointment) error {
			updated = appt
			return nil
		},
	}
	res := &mockReservations{}
	svc := newTestService(repo, res, &recordingPublisher{})

	appt, err := svc.Reschedule(context.Background(), stored.ID, "2026-03-09", "11:00", "session-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if appt.RescheduleCount != 1 {
		t.Errorf("expected reschedule_count 1, got %d", appt.RescheduleCount)
	}
	if appt.IsPromotion {
		t.Error("reschedule must forfeit the promotion")
	}
	if appt.Status != model.StatusRescheduled {
		t.Errorf("expected %s, got %s", model.StatusRescheduled, appt.Status)
	}
	if appt.Date != "2026-03-09" || appt.Time != "11:00" {
		t.Errorf("expected new slot 2026-03-09 11:00, got %s %s", appt.Date, appt.Time)
	}
	if updated == nil {
		t.Fatal("expected appointment to be persisted")
	}

	// New slot is claimed before anything is mutated and finalized after.
	wantOps := []string{"hold", "commit", "finalize"}
	if len(res.calls) != len(wantOps) {
		t.Fatalf("expected %v, got %v", wantOps, res.calls)
	}
	for i, op := range wantOps {
		if res.calls[i].op != op {
			t.Errorf("call %d: expected %s, got %s", i, op, res.calls[i].op)
		}
	}
	newKey := model.SlotKey{BranchID: stored.BranchID, DoctorID: stored.DoctorID, Date: "2026-03-09", Time: "11:00"}
	if res.calls[0].key != newKey.String() {
		t.Errorf("hold targeted %s, expected %s", res.calls[0].key, newKey.String())
	}
}

func TestReschedule_LostRaceLeavesAppointmentUntouched(t *testing.T) {
	stored := storedAppointment(model.StatusConfirmed)
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *stored
			return &copied, nil
		},
		updateFunc: func(ctx context.Context, id string, appt *model.Appointment) error {
			t.Fatal("appointment must not be mutated when the new slot cannot be claimed")
			return nil
		},
	}
	res := &mockReservations{holdErr: apperrors.SlotUnavailable("key")}
	svc := newTestService(repo, res, &recordingPublisher{})

	_, err := svc.Reschedule(context.Background(), stored.ID, "2026-03-09", "11:00", "session-a")
	if !apperrors.IsCode(err, apperrors.CodeSlotUnavailable) {
		t.Errorf("expected SLOT_UNAVAILABLE, got %v", err)
	}
}

func TestReschedule_SameSlotRejected(t *testing.T) {
	stored := storedAppointment(model.StatusConfirmed)
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *stored
			return &copied, nil
		},
	}
	svc := newTestService(repo, &mockReservations{}, &recordingPublisher{})

	_, err := svc.Reschedule(context.Background(), stored.ID, stored.Date, stored.Time, "session-a")
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestRegisterPayment_MaintainsBalanceInvariant(t *testing.T) {
	stored := storedAppointment(model.StatusConfirmed)
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *stored
			return &copied, nil
		},
	}
	svc := newTestService(repo, &mockReservations{}, &recordingPublisher{})

	appt, err := svc.RegisterPayment(context.Background(), stored.ID, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.AmountPaid != 500 {
		t.Errorf("expected amount_paid 500, got %v", appt.AmountPaid)
	}
	if appt.BalanceDue != appt.Cost-appt.AmountPaid {
		t.Errorf("balance invariant broken: %v != %v - %v", appt.BalanceDue, appt.Cost, appt.AmountPaid)
	}
}

func TestRegisterPayment_OverpayRejected(t *testing.T) {
	stored := storedAppointment(model.StatusConfirmed)
	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *stored
			return &copied, nil
		},
	}
	svc := newTestService(repo, &mockReservations{}, &recordingPublisher{})

	_, err := svc.RegisterPayment(context.Background(), stored.ID, 700)
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestCloseRecovery_WindowStillOpen(t *testing.T) {
	stored := storedAppointment(model.StatusNoShow)
	until := testNow.Add(48 * time.Hour)
	stored.RecoveryUntil = &until

	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *stored
			return &copied, nil
		},
	}
	svc := newTestService(repo, &mockReservations{}, &recordingPublisher{})

	_, err := svc.CloseRecovery(context.Background(), stored.ID)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Errorf("expected CONFLICT while window open, got %v", err)
	}
}

func TestCloseRecovery_LapsedWindowMarksLost(t *testing.T) {
	stored := storedAppointment(model.StatusNoShow)
	until := testNow.Add(-time.Hour)
	stored.RecoveryUntil = &until

	repo := &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			copied := *stored
			return &copied, nil
		},
	}
	svc := newTestService(repo, &mockReservations{}, &recordingPublisher{})

	appt, err := svc.CloseRecovery(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != model.StatusLost {
		t.Errorf("expected %s, got %s", model.StatusLost, appt.Status)
	}
}
