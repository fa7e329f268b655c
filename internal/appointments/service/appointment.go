package service

import (
	"context"
	"errors"
	"time"

	appterrors "medicita/internal/appointments/errors"
	"medicita/internal/appointments/repository"
	"medicita/internal/appointments/validator"
	"medicita/internal/notifier"
	reservations "medicita/internal/reservations/service"
	"medicita/pkg/config"
	apperrors "medicita/pkg/errors"
	"medicita/pkg/model"
	"medicita/pkg/sanitizer"
	"medicita/pkg/timecal"

	"go.mongodb.org/mongo-driver/mongo"
)

// CreateAppointmentRequest carries the booking data collected while the
// caller's slot hold was alive. SessionID must match the hold owner.
type CreateAppointmentRequest struct {
	PatientID            string  `json:"patient_id"`
	BranchID             string  `json:"branch_id"`
	DoctorID             string  `json:"doctor_id,omitempty"`
	Date                 string  `json:"date"`
	Time                 string  `json:"time"`
	DurationMin          int     `json:"duration_min,omitempty"`
	ServiceType          string  `json:"service_type"`
	Cost                 float64 `json:"cost"`
	AmountPaid           float64 `json:"amount_paid,omitempty"`
	IsPromotion          bool    `json:"is_promotion,omitempty"`
	SessionID            string  `json:"session_id,omitempty"`
	RequiresConfirmation bool    `json:"requires_confirmation,omitempty"`
}

// AppointmentService owns the appointment lifecycle. Appointments come into
// existence only through a committed slot hold and leave their slot only by
// moving to a non-occupying status.
type AppointmentService interface {
	CreateFromHold(ctx context.Context, req *CreateAppointmentRequest) (*model.Appointment, error)
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	ListByDateRange(ctx context.Context, branchID string, fromDate string, toDate string, limit int, offset int64) ([]*model.Appointment, int64, error)
	Confirm(ctx context.Context, id string) (*model.Appointment, error)
	MarkArrival(ctx context.Context, id string) (*model.Appointment, error)
	StartAttention(ctx context.Context, id string) (*model.Appointment, error)
	Finish(ctx context.Context, id string) (*model.Appointment, error)
	Cancel(ctx context.Context, id string, reason string) (*model.Appointment, error)
	Reschedule(ctx context.Context, id string, newDate string, newTime string, sessionID string) (*model.Appointment, error)
	CloseRecovery(ctx context.Context, id string) (*model.Appointment, error)
	RegisterPayment(ctx context.Context, id string, amount float64) (*model.Appointment, error)
}

type appointmentService struct {
	repo         repository.AppointmentRepository
	reservations reservations.ReservationService
	validator    *validator.AppointmentValidator
	publisher    notifier.Publisher
	cfg          *config.Config
	now          func() time.Time
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	reservations reservations.ReservationService,
	validator *validator.AppointmentValidator,
	publisher notifier.Publisher,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:         repo,
		reservations: reservations,
		validator:    validator,
		publisher:    publisher,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateFromHold turns the caller's live hold into a durable appointment.
// Ordering is the crux: the hold is committed first, the appointment inserted
// while the committed hold still blocks the slot, and only then is the hold
// finalized away. At no instant is the slot claimable by anyone else.
func (s *appointmentService) CreateFromHold(ctx context.Context, req *CreateAppointmentRequest) (*model.Appointment, error) {
	if req.SessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	status := model.StatusScheduled
	if req.RequiresConfirmation {
		status = model.StatusPendingConfirmation
	}

	appt := &model.Appointment{
		PatientID:   req.PatientID,
		BranchID:    req.BranchID,
		DoctorID:    req.DoctorID,
		Date:        req.Date,
		Time:        req.Time,
		DurationMin: req.DurationMin,
		ServiceType: sanitizer.TrimAndNormalize(req.ServiceType),
		Status:      status,
		IsPromotion: req.IsPromotion,
		Cost:        req.Cost,
		AmountPaid:  req.AmountPaid,
	}
	if appt.DurationMin == 0 {
		appt.DurationMin = s.cfg.DefaultSlotDurationMin
	}
	appt.RecalcBalance()

	if err := s.validator.Validate(appt); err != nil {
		s.cfg.Log.Warn("Appointment validation failed",
			"patient_id", appt.PatientID,
			"slot_key", appt.SlotKey().String(),
			"error", err,
		)
		return nil, apperrors.Validation("Appointment validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	key := appt.SlotKey()
	if _, err := s.reservations.Commit(ctx, key, req.SessionID); err != nil {
		return nil, err
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return s.repo.Create(sessCtx, appt)
	})
	if err != nil {
		// The hold is committed but the booking never landed. Dropping the
		// hold returns the slot to the pool.
		if finalizeErr := s.reservations.FinalizeCommitted(ctx, key); finalizeErr != nil {
			s.cfg.Log.Error("Failed to drop committed hold after booking failure",
				"slot_key", key.String(),
				"error", finalizeErr,
			)
		}
		s.cfg.Log.Error("Failed to create appointment",
			"patient_id", appt.PatientID,
			"slot_key", key.String(),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create appointment", err)
	}

	// The appointment is now the occupancy record; the hold is redundant.
	if err := s.reservations.FinalizeCommitted(ctx, key); err != nil {
		s.cfg.Log.Warn("Failed to finalize committed hold, slot stays doubly guarded",
			"slot_key", key.String(),
			"error", err,
		)
	}

	s.cfg.Log.Info("Appointment created",
		"id", appt.ID,
		"patient_id", appt.PatientID,
		"slot_key", key.String(),
		"status", appt.Status,
	)
	s.publisher.AppointmentEvent(ctx, notifier.EventAppointmentCreated, appt)
	return appt, nil
}

func (s *appointmentService) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, appterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", id)
		}
		if errors.Is(err, appterrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid appointment ID format")
		}
		s.cfg.Log.Error("Failed to get appointment", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve appointment", err)
	}

	return appt, nil
}

func (s *appointmentService) ListByDateRange(ctx context.Context, branchID string, fromDate string, toDate string, limit int, offset int64) ([]*model.Appointment, int64, error) {
	if _, err := timecal.ParseDate(fromDate); err != nil {
		return nil, 0, apperrors.InvalidInput("from date must be in YYYY-MM-DD format")
	}
	if _, err := timecal.ParseDate(toDate); err != nil {
		return nil, 0, apperrors.InvalidInput("to date must be in YYYY-MM-DD format")
	}
	if toDate < fromDate {
		return nil, 0, apperrors.InvalidInput("to date must not be before from date")
	}

	count, err := s.repo.CountByDateRange(ctx, branchID, fromDate, toDate)
	if err != nil {
		s.cfg.Log.Error("Failed to count appointments", "branch_id", branchID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count appointments", err)
	}

	appts, err := s.repo.FindByDateRange(ctx, branchID, fromDate, toDate, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list appointments", "branch_id", branchID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve appointments", err)
	}

	return appts, count, nil
}

func (s *appointmentService) Confirm(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.StatusConfirmed, notifier.EventAppointmentConfirmed, func(*model.Appointment) {})
}

// MarkArrival records the patient at reception. The arrived state is
// transient; the appointment lands directly in the waiting room queue.
func (s *appointmentService) MarkArrival(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(appt.Status, model.StatusArrived); err != nil {
		return nil, err
	}

	now := s.now()
	appt.Status = model.StatusWaiting
	appt.ArrivalTime = &now
	appt.AtRisk = false
	appt.RecalcBalance()

	if err := s.update(ctx, appt); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Appointment arrival registered", "id", appt.ID, "arrival_time", now)
	s.publisher.AppointmentEvent(ctx, notifier.EventAppointmentArrived, appt)
	return appt, nil
}

func (s *appointmentService) StartAttention(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.StatusInAttention, notifier.EventAppointmentInAttention, func(appt *model.Appointment) {
		now := s.now()
		appt.AttentionStartTime = &now
	})
}

func (s *appointmentService) Finish(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.StatusFinished, notifier.EventAppointmentFinished, func(appt *model.Appointment) {
		now := s.now()
		appt.AttentionEndTime = &now
	})
}

func (s *appointmentService) Cancel(ctx context.Context, id string, reason string) (*model.Appointment, error) {
	reason = sanitizer.SanitizeReason(reason)
	if reason == "" {
		return nil, apperrors.InvalidInput("Cancellation reason cannot be empty")
	}

	return s.transition(ctx, id, model.StatusCancelled, notifier.EventAppointmentCancelled, func(appt *model.Appointment) {
		appt.CancellationReason = reason
	})
}

// Reschedule moves the appointment to a new slot. The new slot must be won
// through the reservation protocol before the existing record is touched; a
// lost race leaves the appointment exactly as it was. A successful move
// forfeits any promotional pricing.
func (s *appointmentService) Reschedule(ctx context.Context, id string, newDate string, newTime string, sessionID string) (*model.Appointment, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}
	if _, err := timecal.ParseDate(newDate); err != nil {
		return nil, apperrors.InvalidInput("New date must be in YYYY-MM-DD format")
	}
	if _, err := timecal.ParseTimeOfDay(newTime); err != nil {
		return nil, apperrors.InvalidInput("New time must be in HH:MM 24-hour format")
	}

	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(appt.Status, model.StatusRescheduled); err != nil {
		return nil, err
	}
	if appt.Date == newDate && appt.Time == newTime {
		return nil, apperrors.InvalidInput("New slot is the same as the current one")
	}

	newKey := model.SlotKey{
		BranchID: appt.BranchID,
		DoctorID: appt.DoctorID,
		Date:     newDate,
		Time:     newTime,
	}

	if _, err := s.reservations.Hold(ctx, newKey, sessionID, 0); err != nil {
		return nil, err
	}
	if _, err := s.reservations.Commit(ctx, newKey, sessionID); err != nil {
		return nil, err
	}

	oldKey := appt.SlotKey()
	appt.Date = newDate
	appt.Time = newTime
	appt.Status = model.StatusRescheduled
	appt.RescheduleCount++
	if appt.RescheduleCount >= 1 {
		appt.IsPromotion = false
	}
	appt.AtRisk = false
	appt.RecalcBalance()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return s.repo.Update(sessCtx, id, appt)
	})
	if err != nil {
		// Undo the claim on the target slot; the appointment still occupies
		// its old one.
		if finalizeErr := s.reservations.FinalizeCommitted(ctx, newKey); finalizeErr != nil {
			s.cfg.Log.Error("Failed to drop committed hold after reschedule failure",
				"slot_key", newKey.String(),
				"error", finalizeErr,
			)
		}
		s.cfg.Log.Error("Failed to reschedule appointment", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to reschedule appointment", err)
	}

	if err := s.reservations.FinalizeCommitted(ctx, newKey); err != nil {
		s.cfg.Log.Warn("Failed to finalize committed hold after reschedule",
			"slot_key", newKey.String(),
			"error", err,
		)
	}

	s.cfg.Log.Info("Appointment rescheduled",
		"id", appt.ID,
		"old_slot_key", oldKey.String(),
		"new_slot_key", newKey.String(),
		"reschedule_count", appt.RescheduleCount,
	)
	s.publisher.AppointmentEvent(ctx, notifier.EventAppointmentRescheduled, appt)
	return appt, nil
}

// CloseRecovery marks a no-show whose follow-up window lapsed without a new
// booking as lost. The outreach workflow calls this, not the sweep.
func (s *appointmentService) CloseRecovery(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(appt.Status, model.StatusLost); err != nil {
		return nil, err
	}
	if appt.RecoveryUntil != nil && s.now().Before(*appt.RecoveryUntil) {
		return nil, apperrors.Conflict("Recovery window is still open")
	}

	appt.Status = model.StatusLost
	appt.RecalcBalance()

	if err := s.update(ctx, appt); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Appointment marked as lost", "id", appt.ID)
	return appt, nil
}

func (s *appointmentService) RegisterPayment(ctx context.Context, id string, amount float64) (*model.Appointment, error) {
	if amount <= 0 {
		return nil, apperrors.InvalidInput("Payment amount must be positive")
	}

	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.AmountPaid+amount > appt.Cost {
		return nil, apperrors.InvalidInput("Payment exceeds the outstanding balance")
	}

	appt.AmountPaid += amount
	appt.RecalcBalance()

	if err := s.update(ctx, appt); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Payment registered",
		"id", appt.ID,
		"amount", amount,
		"amount_paid", appt.AmountPaid,
		"balance_due", appt.BalanceDue,
	)
	return appt, nil
}

// transition runs the common load, check, mutate, persist, publish cycle.
func (s *appointmentService) transition(ctx context.Context, id string, to model.AppointmentStatus, eventType string, mutate func(*model.Appointment)) (*model.Appointment, error) {
	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(appt.Status, to); err != nil {
		return nil, err
	}

	from := appt.Status
	appt.Status = to
	mutate(appt)
	appt.RecalcBalance()

	if err := s.update(ctx, appt); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Appointment transition applied",
		"id", appt.ID,
		"from", from,
		"to", to,
	)
	s.publisher.AppointmentEvent(ctx, eventType, appt)
	return appt, nil
}

func (s *appointmentService) update(ctx context.Context, appt *model.Appointment) error {
	if err := s.repo.Update(ctx, appt.ID, appt); err != nil {
		if errors.Is(err, appterrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Appointment", appt.ID)
		}
		s.cfg.Log.Error("Failed to update appointment", "id", appt.ID, "error", err)
		return apperrors.Internal("Failed to update appointment", err)
	}
	return nil
}
