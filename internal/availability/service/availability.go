package service

import (
	"context"
	"sort"

	"medicita/pkg/config"
	apperrors "medicita/pkg/errors"
	"medicita/pkg/model"
	"medicita/pkg/timecal"
)

// ScheduleSource supplies the calendar inputs of the slot computation. The
// schedules service implements it.
type ScheduleSource interface {
	EffectiveSchedules(ctx context.Context, doctorID string, date string) ([]*model.DoctorSchedule, error)
	ApprovedAbsence(ctx context.Context, doctorID string, date string) (*model.Absence, error)
	BlockingHolidayOn(ctx context.Context, date string) (*model.Holiday, error)
}

// HoldSource exposes the live reservation claims for a doctor's day.
type HoldSource interface {
	ActiveHolds(ctx context.Context, doctorID string, date string) ([]*model.SlotHold, error)
}

// AppointmentSource exposes the booked occupancy for a doctor's day.
type AppointmentSource interface {
	FindOccupyingByDoctorAndDate(ctx context.Context, doctorID string, date string) ([]*model.Appointment, error)
}

// AvailabilityService computes the bookable slots for a doctor on a date. The
// result is a pure function of the schedule inputs plus the hold and
// appointment state at the moment of the call.
type AvailabilityService interface {
	ListAvailableSlots(ctx context.Context, doctorID string, branchID string, date string) ([]string, error)
}

type availabilityService struct {
	schedules    ScheduleSource
	holds        HoldSource
	appointments AppointmentSource
	cfg          *config.Config
}

func NewAvailabilityService(
	schedules ScheduleSource,
	holds HoldSource,
	appointments AppointmentSource,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		schedules:    schedules,
		holds:        holds,
		appointments: appointments,
		cfg:          cfg,
	}
}

// ListAvailableSlots walks the doctor's working windows at the branch for the
// date and drops every slot that a break, a live hold or an occupying
// appointment claims. Rules for other branches never contribute candidates.
// Mandatory holidays, approved absences and days without an active rule yield
// an empty list, never an error.
func (s *availabilityService) ListAvailableSlots(ctx context.Context, doctorID string, branchID string, date string) ([]string, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	if branchID == "" {
		return nil, apperrors.InvalidInput("Branch ID cannot be empty")
	}
	if _, err := timecal.ParseDate(date); err != nil {
		return nil, apperrors.InvalidInput("Date must be in YYYY-MM-DD format")
	}

	holiday, err := s.schedules.BlockingHolidayOn(ctx, date)
	if err != nil {
		return nil, err
	}
	if holiday != nil {
		s.cfg.Log.Debug("Date blocked by mandatory holiday", "date", date, "holiday", holiday.Name)
		return []string{}, nil
	}

	rules, err := s.schedules.EffectiveSchedules(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return []string{}, nil
	}

	absence, err := s.schedules.ApprovedAbsence(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if absence != nil {
		s.cfg.Log.Debug("Doctor absent on date",
			"doctor_id", doctorID,
			"date", date,
			"absence_type", absence.Type,
		)
		return []string{}, nil
	}

	taken, err := s.takenTimes(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	slots := make([]string, 0)
	for _, rule := range rules {
		if rule.BranchID != branchID {
			continue
		}
		for _, candidate := range candidateTimes(rule) {
			if _, ok := taken[candidate]; ok {
				continue
			}
			slots = append(slots, candidate)
		}
	}
	sort.Strings(slots)

	return slots, nil
}

// takenTimes collects every time of day already claimed for the doctor on the
// date, by a live hold or by an occupying appointment. A doctor cannot serve
// two branches at once, so claims block regardless of branch.
func (s *availabilityService) takenTimes(ctx context.Context, doctorID string, date string) (map[string]struct{}, error) {
	taken := make(map[string]struct{})

	holds, err := s.holds.ActiveHolds(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	for _, h := range holds {
		taken[h.Time] = struct{}{}
	}

	appts, err := s.appointments.FindOccupyingByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to load occupying appointments",
			"doctor_id", doctorID,
			"date", date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load booked appointments", err)
	}
	for _, a := range appts {
		taken[a.Time] = struct{}{}
	}

	return taken, nil
}

// candidateTimes steps through one working window in slot-duration increments.
// A trailing slot that does not fit whole is dropped, and a slot intersecting
// the break window is skipped. An inverted or zero-length window produces
// nothing.
func candidateTimes(rule *model.DoctorSchedule) []string {
	start, err := timecal.ParseTimeOfDay(rule.StartTime)
	if err != nil {
		return nil
	}
	end, err := timecal.ParseTimeOfDay(rule.EndTime)
	if err != nil {
		return nil
	}
	if rule.SlotDurationMin <= 0 || start >= end {
		return nil
	}

	breakStart, breakEnd := -1, -1
	if rule.BreakStart != "" && rule.BreakEnd != "" {
		breakStart, _ = timecal.ParseTimeOfDay(rule.BreakStart)
		breakEnd, _ = timecal.ParseTimeOfDay(rule.BreakEnd)
	}

	var times []string
	for t := start; t+rule.SlotDurationMin <= end; t += rule.SlotDurationMin {
		if breakStart >= 0 && timecal.Overlaps(t, t+rule.SlotDurationMin, breakStart, breakEnd) {
			continue
		}
		times = append(times, timecal.FormatMinutes(t))
	}
	return times
}
