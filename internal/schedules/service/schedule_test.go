package service

import (
	"context"
	"testing"

	schederrors "medicita/internal/schedules/errors"
	"medicita/internal/schedules/validator"
	"medicita/pkg/config"
	mongodb "medicita/pkg/db/mongo"
	apperrors "medicita/pkg/errors"
	"medicita/pkg/logger"
	"medicita/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockRuleRepository struct {
	createFunc                   func(ctx context.Context, schedule *model.DoctorSchedule) error
	findByIDFunc                 func(ctx context.Context, id string) (*model.DoctorSchedule, error)
	findByDoctorFunc             func(ctx context.Context, doctorID string) ([]*model.DoctorSchedule, error)
	findActiveByDoctorAndDayFunc func(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.DoctorSchedule, error)
	updateFunc                   func(ctx context.Context, id string, schedule *model.DoctorSchedule) error
	deleteFunc                   func(ctx context.Context, id string) error
}

func (m *mockRuleRepository) Create(ctx context.Context, schedule *model.DoctorSchedule) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, schedule)
	}
	return nil
}

func (m *mockRuleRepository) FindByID(ctx context.Context, id string) (*model.DoctorSchedule, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, schederrors.ErrNotFound
}

func (m *mockRuleRepository) FindByDoctor(ctx context.Context, doctorID string) ([]*model.DoctorSchedule, error) {
	if m.findByDoctorFunc != nil {
		return m.findByDoctorFunc(ctx, doctorID)
	}
	return []*model.DoctorSchedule{}, nil
}

func (m *mockRuleRepository) FindActiveByDoctorAndDay(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.DoctorSchedule, error) {
	if m.findActiveByDoctorAndDayFunc != nil {
		return m.findActiveByDoctorAndDayFunc(ctx, doctorID, dayOfWeek)
	}
	return []*model.DoctorSchedule{}, nil
}

func (m *mockRuleRepository) Update(ctx context.Context, id string, schedule *model.DoctorSchedule) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, schedule)
	}
	return nil
}

func (m *mockRuleRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockAbsenceRepository struct {
	createFunc             func(ctx context.Context, absence *model.Absence) error
	findApprovedOnDateFunc func(ctx context.Context, doctorID string, date string) (*model.Absence, error)
}

func (m *mockAbsenceRepository) Create(ctx context.Context, absence *model.Absence) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, absence)
	}
	return nil
}

func (m *mockAbsenceRepository) FindByID(ctx context.Context, id string) (*model.Absence, error) {
	return nil, schederrors.ErrAbsenceNotFound
}

func (m *mockAbsenceRepository) FindByDoctor(ctx context.Context, doctorID string) ([]*model.Absence, error) {
	return []*model.Absence{}, nil
}

func (m *mockAbsenceRepository) FindApprovedOnDate(ctx context.Context, doctorID string, date string) (*model.Absence, error) {
	if m.findApprovedOnDateFunc != nil {
		return m.findApprovedOnDateFunc(ctx, doctorID, date)
	}
	return nil, nil
}

func (m *mockAbsenceRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	return nil
}

func (m *mockAbsenceRepository) Delete(ctx context.Context, id string) error {
	return nil
}

type mockHolidayRepository struct {
	findOnDateFunc func(ctx context.Context, date string) ([]*model.Holiday, error)
}

func (m *mockHolidayRepository) Create(ctx context.Context, holiday *model.Holiday) error {
	return nil
}

func (m *mockHolidayRepository) FindByID(ctx context.Context, id string) (*model.Holiday, error) {
	return nil, schederrors.ErrHolidayNotFound
}

func (m *mockHolidayRepository) FindAll(ctx context.Context, limit int, offset int) ([]*model.Holiday, error) {
	return []*model.Holiday{}, nil
}

func (m *mockHolidayRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockHolidayRepository) FindOnDate(ctx context.Context, date string) ([]*model.Holiday, error) {
	if m.findOnDateFunc != nil {
		return m.findOnDateFunc(ctx, date)
	}
	return []*model.Holiday{}, nil
}

func (m *mockHolidayRepository) Delete(ctx context.Context, id string) error {
	return nil
}

// mockTxManager runs the transaction body directly, no session semantics.
type mockTxManager struct{}

func (m *mockTxManager) ExecuteTransaction(ctx context.Context, fn mongodb.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:     "error",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
		DefaultSlotDurationMin: 30,
	}
}

func newTestService(rules *mockRuleRepository, absences *mockAbsenceRepository, holidays *mockHolidayRepository) *scheduleService {
	cfg := testConfig()
	return &scheduleService{
		rules:     rules,
		absences:  absences,
		holidays:  holidays,
		txManager: &mockTxManager{},
		validator: validator.NewScheduleValidator(cfg.Log),
		cfg:       cfg,
	}
}

func TestCreateRule_AppliesDefaultSlotDuration(t *testing.T) {
	var created *model.DoctorSchedule
	rules := &mockRuleRepository{
		createFunc: func(ctx context.Context, schedule *model.DoctorSchedule) error {
			created = schedule
			return nil
		},
	}
	svc := newTestService(rules, &mockAbsenceRepository{}, &mockHolidayRepository{})

	rule := &model.DoctorSchedule{
		DoctorID:  "507f1f77bcf86cd799439011",
		BranchID:  "507f1f77bcf86cd799439012",
		DayOfWeek: 2,
		StartTime: "09:00",
		EndTime:   "13:00",
		Active:    true,
	}

	if err := svc.CreateRule(context.Background(), rule); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected rule to be persisted")
	}
	if created.SlotDurationMin != 30 {
		t.Errorf("expected default slot duration 30, got %d", created.SlotDurationMin)
	}
}

func TestCreateRule_RejectsOverlappingRule(t *testing.T) {
	rules := &mockRuleRepository{
		findActiveByDoctorAndDayFunc: func(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.DoctorSchedule, error) {
			return []*model.DoctorSchedule{
				{ID: "existing", StartTime: "08:00", EndTime: "12:00"},
			}, nil
		},
		createFunc: func(ctx context.Context, schedule *model.DoctorSchedule) error {
			t.Fatal("overlapping rule must not be persisted")
			return nil
		},
	}
	svc := newTestService(rules, &mockAbsenceRepository{}, &mockHolidayRepository{})

	rule := &model.DoctorSchedule{
		DoctorID:        "507f1f77bcf86cd799439011",
		BranchID:        "507f1f77bcf86cd799439012",
		DayOfWeek:       2,
		StartTime:       "11:00",
		EndTime:         "15:00",
		SlotDurationMin: 30,
		Active:          true,
	}

	err := svc.CreateRule(context.Background(), rule)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Errorf("expected CONFLICT, got %v", err)
	}
}

func TestCreateRule_AllowsAdjacentWindows(t *testing.T) {
	rules := &mockRuleRepository{
		findActiveByDoctorAndDayFunc: func(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.DoctorSchedule, error) {
			return []*model.DoctorSchedule{
				{ID: "morning", StartTime: "08:00", EndTime: "12:00"},
			}, nil
		},
	}
	svc := newTestService(rules, &mockAbsenceRepository{}, &mockHolidayRepository{})

	// Afternoon rule starting exactly where the morning one ends.
	rule := &model.DoctorSchedule{
		DoctorID:        "507f1f77bcf86cd799439011",
		BranchID:        "507f1f77bcf86cd799439012",
		DayOfWeek:       2,
		StartTime:       "12:00",
		EndTime:         "16:00",
		SlotDurationMin: 30,
		Active:          true,
	}

	if err := svc.CreateRule(context.Background(), rule); err != nil {
		t.Errorf("adjacent windows should not conflict: %v", err)
	}
}

func TestCreateRule_ValidationFailure(t *testing.T) {
	svc := newTestService(&mockRuleRepository{}, &mockAbsenceRepository{}, &mockHolidayRepository{})

	rule := &model.DoctorSchedule{
		DoctorID:        "507f1f77bcf86cd799439011",
		BranchID:        "507f1f77bcf86cd799439012",
		DayOfWeek:       2,
		StartTime:       "14:00",
		EndTime:         "09:00",
		SlotDurationMin: 30,
		Active:          true,
	}

	err := svc.CreateRule(context.Background(), rule)
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestEffectiveSchedules_ReportsOverlapAsConflict(t *testing.T) {
	rules := &mockRuleRepository{
		findActiveByDoctorAndDayFunc: func(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.DoctorSchedule, error) {
			return []*model.DoctorSchedule{
				{ID: "a", StartTime: "09:00", EndTime: "13:00"},
				{ID: "b", StartTime: "12:00", EndTime: "17:00"},
			}, nil
		},
	}
	svc := newTestService(rules, &mockAbsenceRepository{}, &mockHolidayRepository{})

	// 2026-03-02 is a Monday.
	_, err := svc.EffectiveSchedules(context.Background(), "507f1f77bcf86cd799439011", "2026-03-02")
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Errorf("expected CONFLICT for overlapping rules, got %v", err)
	}
}

func TestEffectiveSchedules_SplitShiftIsFine(t *testing.T) {
	rules := &mockRuleRepository{
		findActiveByDoctorAndDayFunc: func(ctx context.Context, doctorID string, dayOfWeek int) ([]*model.DoctorSchedule, error) {
			if dayOfWeek != 1 {
				t.Errorf("expected day_of_week 1 for a Monday, got %d", dayOfWeek)
			}
			return []*model.DoctorSchedule{
				{ID: "morning", StartTime: "09:00", EndTime: "13:00"},
				{ID: "evening", StartTime: "16:00", EndTime: "20:00"},
			}, nil
		},
	}
	svc := newTestService(rules, &mockAbsenceRepository{}, &mockHolidayRepository{})

	got, err := svc.EffectiveSchedules(context.Background(), "507f1f77bcf86cd799439011", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 rules, got %d", len(got))
	}
}

func TestEffectiveSchedules_BadDate(t *testing.T) {
	svc := newTestService(&mockRuleRepository{}, &mockAbsenceRepository{}, &mockHolidayRepository{})

	_, err := svc.EffectiveSchedules(context.Background(), "507f1f77bcf86cd799439011", "03/02/2026")
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestBlockingHolidayOn(t *testing.T) {
	tests := []struct {
		name      string
		holidays  []*model.Holiday
		wantBlock bool
	}{
		{
			name:      "no holidays",
			holidays:  nil,
			wantBlock: false,
		},
		{
			name: "optional holiday does not block",
			holidays: []*model.Holiday{
				{Name: "Christmas Eve", Type: model.HolidayOptional},
			},
			wantBlock: false,
		},
		{
			name: "mandatory holiday blocks",
			holidays: []*model.Holiday{
				{Name: "Labour Day", Type: model.HolidayMandatory},
			},
			wantBlock: true,
		},
		{
			name: "mixed types still block",
			holidays: []*model.Holiday{
				{Name: "Saint's Day", Type: model.HolidayReligious},
				{Name: "Independence Day", Type: model.HolidayMandatory},
			},
			wantBlock: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holidays := &mockHolidayRepository{
				findOnDateFunc: func(ctx context.Context, date string) ([]*model.Holiday, error) {
					return tt.holidays, nil
				},
			}
			svc := newTestService(&mockRuleRepository{}, &mockAbsenceRepository{}, holidays)

			got, err := svc.BlockingHolidayOn(context.Background(), "2026-05-01")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got != nil) != tt.wantBlock {
				t.Errorf("BlockingHolidayOn() = %v, wantBlock %v", got, tt.wantBlock)
			}
		})
	}
}

func TestCreateAbsence_SanitizesReason(t *testing.T) {
	var created *model.Absence
	absences := &mockAbsenceRepository{
		createFunc: func(ctx context.Context, absence *model.Absence) error {
			created = absence
			return nil
		},
	}
	svc := newTestService(&mockRuleRepository{}, absences, &mockHolidayRepository{})

	absence := &model.Absence{
		DoctorID:  "507f1f77bcf86cd799439011",
		StartDate: "2026-03-02",
		EndDate:   "2026-03-06",
		Type:      model.AbsenceVacation,
		Reason:    "  family \t trip  ",
	}

	if err := svc.CreateAbsence(context.Background(), absence); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Reason != "family trip" {
		t.Errorf("expected sanitized reason %q, got %q", "family trip", created.Reason)
	}
}
