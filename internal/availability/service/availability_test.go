package service

import (
	"context"
	"reflect"
	"testing"

	"medicita/pkg/config"
	apperrors "medicita/pkg/errors"
	"medicita/pkg/logger"
	"medicita/pkg/model"
)

type mockScheduleSource struct {
	effectiveFunc func(ctx context.Context, doctorID string, date string) ([]*model.DoctorSchedule, error)
	absenceFunc   func(ctx context.Context, doctorID string, date string) (*model.Absence, error)
	holidayFunc   func(ctx context.Context, date string) (*model.Holiday, error)
}

func (m *mockScheduleSource) EffectiveSchedules(ctx context.Context, doctorID string, date string) ([]*model.DoctorSchedule, error) {
	if m.effectiveFunc != nil {
		return m.effectiveFunc(ctx, doctorID, date)
	}
	return []*model.DoctorSchedule{}, nil
}

func (m *mockScheduleSource) ApprovedAbsence(ctx context.Context, doctorID string, date string) (*model.Absence, error) {
	if m.absenceFunc != nil {
		return m.absenceFunc(ctx, doctorID, date)
	}
	return nil, nil
}

func (m *mockScheduleSource) BlockingHolidayOn(ctx context.Context, date string) (*model.Holiday, error) {
	if m.holidayFunc != nil {
		return m.holidayFunc(ctx, date)
	}
	return nil, nil
}

type mockHoldSource struct {
	activeFunc func(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error)
}

func (m *mockHoldSource) ActiveHolds(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error) {
	if m.activeFunc != nil {
		return m.activeFunc(ctx, doctorID, date)
	}
	return []*model.SlotHold{}, nil
}

type mockAppointmentSource struct {
	occupyingFunc func(ctx context.Context, doctorID string, date string) ([]*model.Appointment, error)
}

func (m *mockAppointmentSource) FindOccupyingByDoctorAndDate(ctx context.Context, doctorID string, date string) ([]*model.Appointment, error) {
	if m.occupyingFunc != nil {
		return m.occupyingFunc(ctx, doctorID, date)
	}
	return []*model.Appointment{}, nil
}

func newTestService(schedules *mockScheduleSource, holds *mockHoldSource, appts *mockAppointmentSource) AvailabilityService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
	return NewAvailabilityService(schedules, holds, appts, cfg)
}

func morningRule() *model.DoctorSchedule {
	return &model.DoctorSchedule{
		ID:              "665f1f77bcf86cd799439021",
		DoctorID:        "507f1f77bcf86cd799439011",
		BranchID:        "507f1f77bcf86cd799439012",
		DayOfWeek:       1,
		StartTime:       "09:00",
		EndTime:         "12:00",
		SlotDurationMin: 30,
		BreakStart:      "10:00",
		BreakEnd:        "10:30",
		Active:          true,
	}
}

func singleRuleSource(rule *model.DoctorSchedule) *mockScheduleSource {
	return &mockScheduleSource{
		effectiveFunc: func(ctx context.Context, doctorID string, date string) ([]*model.DoctorSchedule, error) {
			return []*model.DoctorSchedule{rule}, nil
		},
	}
}

func TestListAvailableSlots_GridWithBreak(t *testing.T) {
	svc := newTestService(singleRuleSource(morningRule()), &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"09:00", "09:30", "10:30", "11:00", "11:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("expected %v, got %v", want, slots)
	}
}

func TestListAvailableSlots_MandatoryHolidayBlocksEverything(t *testing.T) {
	schedules := singleRuleSource(morningRule())
	schedules.holidayFunc = func(ctx context.Context, date string) (*model.Holiday, error) {
		return &model.Holiday{Date: date, Name: "Independence Day", Type: model.HolidayMandatory}, nil
	}
	svc := newTestService(schedules, &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots on a mandatory holiday, got %v", slots)
	}
}

func TestListAvailableSlots_ApprovedAbsenceBlocksDay(t *testing.T) {
	schedules := singleRuleSource(morningRule())
	schedules.absenceFunc = func(ctx context.Context, doctorID string, date string) (*model.Absence, error) {
		return &model.Absence{
			DoctorID:  doctorID,
			StartDate: "2026-03-02",
			EndDate:   "2026-03-06",
			Type:      model.AbsenceVacation,
			Approved:  true,
		}, nil
	}
	svc := newTestService(schedules, &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots during an approved absence, got %v", slots)
	}
}

func TestListAvailableSlots_NoScheduleYieldsEmpty(t *testing.T) {
	svc := newTestService(&mockScheduleSource{}, &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots without a schedule rule, got %v", slots)
	}
}

func TestListAvailableSlots_HoldsAndAppointmentsBlockSlots(t *testing.T) {
	holds := &mockHoldSource{
		activeFunc: func(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error) {
			return []*model.SlotHold{
				{Time: "09:30", State: model.HoldStateHeld},
			}, nil
		},
	}
	appts := &mockAppointmentSource{
		occupyingFunc: func(ctx context.Context, doctorID string, date string) ([]*model.Appointment, error) {
			return []*model.Appointment{
				{Time: "11:00", Status: model.StatusConfirmed},
			}, nil
		},
	}
	svc := newTestService(singleRuleSource(morningRule()), holds, appts)

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"09:00", "10:30", "11:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("expected %v, got %v", want, slots)
	}
}

func TestListAvailableSlots_PartialTrailingSlotDropped(t *testing.T) {
	rule := morningRule()
	rule.EndTime = "10:15"
	rule.BreakStart = ""
	rule.BreakEnd = ""
	svc := newTestService(singleRuleSource(rule), &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"09:00", "09:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("expected trailing partial slot dropped, want %v got %v", want, slots)
	}
}

func TestListAvailableSlots_InvertedWindowYieldsEmpty(t *testing.T) {
	rule := morningRule()
	rule.StartTime = "12:00"
	rule.EndTime = "09:00"
	svc := newTestService(singleRuleSource(rule), &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots for an inverted window, got %v", slots)
	}
}

func TestListAvailableSlots_OtherBranchYieldsEmpty(t *testing.T) {
	// The doctor's only rule belongs to another branch; the requested branch
	// has no slots, so a follow-up hold there cannot mint a phantom booking.
	svc := newTestService(singleRuleSource(morningRule()), &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "aaaaaaaaaaaaaaaaaaaaaaaa", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots at a branch the doctor does not attend, got %v", slots)
	}
}

func TestListAvailableSlots_OnlyRequestedBranchContributes(t *testing.T) {
	home := morningRule()
	home.EndTime = "10:00"
	home.BreakStart = ""
	home.BreakEnd = ""

	elsewhere := morningRule()
	elsewhere.ID = "665f1f77bcf86cd799439023"
	elsewhere.BranchID = "aaaaaaaaaaaaaaaaaaaaaaaa"
	elsewhere.StartTime = "16:00"
	elsewhere.EndTime = "17:00"
	elsewhere.BreakStart = ""
	elsewhere.BreakEnd = ""

	schedules := &mockScheduleSource{
		effectiveFunc: func(ctx context.Context, doctorID string, date string) ([]*model.DoctorSchedule, error) {
			return []*model.DoctorSchedule{home, elsewhere}, nil
		},
	}
	svc := newTestService(schedules, &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"09:00", "09:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("expected only the requested branch's slots %v, got %v", want, slots)
	}
}

func TestListAvailableSlots_SplitShiftMergedAscending(t *testing.T) {
	morning := morningRule()
	morning.EndTime = "10:00"
	morning.BreakStart = ""
	morning.BreakEnd = ""

	evening := morningRule()
	evening.ID = "665f1f77bcf86cd799439022"
	evening.StartTime = "16:00"
	evening.EndTime = "17:00"
	evening.BreakStart = ""
	evening.BreakEnd = ""

	schedules := &mockScheduleSource{
		effectiveFunc: func(ctx context.Context, doctorID string, date string) ([]*model.DoctorSchedule, error) {
			// Deliberately out of order; the result must still be ascending.
			return []*model.DoctorSchedule{evening, morning}, nil
		},
	}
	svc := newTestService(schedules, &mockHoldSource{}, &mockAppointmentSource{})

	slots, err := svc.ListAvailableSlots(context.Background(), "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"09:00", "09:30", "16:00", "16:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("expected %v, got %v", want, slots)
	}
}

func TestListAvailableSlots_InputValidation(t *testing.T) {
	svc := newTestService(&mockScheduleSource{}, &mockHoldSource{}, &mockAppointmentSource{})

	tests := []struct {
		name     string
		doctorID string
		branchID string
		date     string
	}{
		{"empty doctor", "", "507f1f77bcf86cd799439012", "2026-03-02"},
		{"empty branch", "507f1f77bcf86cd799439011", "", "2026-03-02"},
		{"bad date", "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012", "02/03/2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListAvailableSlots(context.Background(), tt.doctorID, tt.branchID, tt.date)
			if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}
