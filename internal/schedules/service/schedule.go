package service

import (
	"context"
	"errors"

	schederrors "medicita/internal/schedules/errors"
	"medicita/internal/schedules/repository"
	"medicita/internal/schedules/validator"
	"medicita/pkg/config"
	mongodb "medicita/pkg/db/mongo"
	apperrors "medicita/pkg/errors"
	"medicita/pkg/model"
	"medicita/pkg/sanitizer"
	"medicita/pkg/timecal"

	"go.mongodb.org/mongo-driver/mongo"
)

// ScheduleService manages the three calendar inputs the availability engine
// reads: recurring weekly rules, doctor absences and branch holidays.
type ScheduleService interface {
	CreateRule(ctx context.Context, schedule *model.DoctorSchedule) error
	GetRule(ctx context.Context, id string) (*model.DoctorSchedule, error)
	ListRulesByDoctor(ctx context.Context, doctorID string) ([]*model.DoctorSchedule, error)
	UpdateRule(ctx context.Context, id string, updates *model.DoctorScheduleUpdate) error
	DeleteRule(ctx context.Context, id string) error

	CreateAbsence(ctx context.Context, absence *model.Absence) error
	ListAbsencesByDoctor(ctx context.Context, doctorID string) ([]*model.Absence, error)
	ApproveAbsence(ctx context.Context, id string) error
	DeleteAbsence(ctx context.Context, id string) error

	CreateHoliday(ctx context.Context, holiday *model.Holiday) error
	ListHolidays(ctx context.Context, limit int, offset int) ([]*model.Holiday, int64, error)
	DeleteHoliday(ctx context.Context, id string) error

	// Availability inputs.
	EffectiveSchedules(ctx context.Context, doctorID string, date string) ([]*model.DoctorSchedule, error)
	ApprovedAbsence(ctx context.Context, doctorID string, date string) (*model.Absence, error)
	BlockingHolidayOn(ctx context.Context, date string) (*model.Holiday, error)
}

type scheduleService struct {
	rules     repository.DoctorScheduleRepository
	absences  repository.AbsenceRepository
	holidays  repository.HolidayRepository
	txManager mongodb.TransactionManager
	validator *validator.ScheduleValidator
	cfg       *config.Config
}

func NewScheduleService(
	rules repository.DoctorScheduleRepository,
	absences repository.AbsenceRepository,
	holidays repository.HolidayRepository,
	txManager mongodb.TransactionManager,
	validator *validator.ScheduleValidator,
	cfg *config.Config,
) ScheduleService {
	return &scheduleService{
		rules:     rules,
		absences:  absences,
		holidays:  holidays,
		txManager: txManager,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *scheduleService) CreateRule(ctx context.Context, schedule *model.DoctorSchedule) error {
	if schedule.SlotDurationMin == 0 {
		schedule.SlotDurationMin = s.cfg.DefaultSlotDurationMin
	}

	if err := s.validator.ValidateSchedule(schedule); err != nil {
		s.cfg.Log.Warn("Schedule rule validation failed",
			"doctor_id", schedule.DoctorID,
			"day_of_week", schedule.DayOfWeek,
			"error", err,
		)
		return apperrors.Validation("Schedule rule validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err := s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if schedule.Active {
			if err := s.checkRuleOverlap(sessCtx, schedule, ""); err != nil {
				return err
			}
		}
		return s.rules.Create(sessCtx, schedule)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		s.cfg.Log.Error("Failed to create schedule rule",
			"doctor_id", schedule.DoctorID,
			"day_of_week", schedule.DayOfWeek,
			"error", err,
		)
		return apperrors.Internal("Failed to create schedule rule", err)
	}

	s.cfg.Log.Info("Schedule rule created successfully",
		"id", schedule.ID,
		"doctor_id", schedule.DoctorID,
		"branch_id", schedule.BranchID,
		"day_of_week", schedule.DayOfWeek,
	)
	return nil
}

func (s *scheduleService) GetRule(ctx context.Context, id string) (*model.DoctorSchedule, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule rule ID cannot be empty")
	}

	rule, err := s.rules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Schedule rule", id)
		}
		if errors.Is(err, schederrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid schedule rule ID format")
		}
		s.cfg.Log.Error("Failed to get schedule rule", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve schedule rule", err)
	}

	return rule, nil
}

func (s *scheduleService) ListRulesByDoctor(ctx context.Context, doctorID string) ([]*model.DoctorSchedule, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	rules, err := s.rules.FindByDoctor(ctx, doctorID)
	if err != nil {
		s.cfg.Log.Error("Failed to list schedule rules", "doctor_id", doctorID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve schedule rules", err)
	}
	return rules, nil
}

func (s *scheduleService) UpdateRule(ctx context.Context, id string, updates *model.DoctorScheduleUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Schedule rule ID cannot be empty")
	}

	existing, err := s.rules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Schedule rule", id)
		}
		if errors.Is(err, schederrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid schedule rule ID format")
		}
		return apperrors.Internal("Failed to check schedule rule existence", err)
	}

	merged := s.mergeRuleUpdates(existing, updates)
	if err := s.validator.ValidateSchedule(merged); err != nil {
		s.cfg.Log.Warn("Schedule rule validation failed",
			"id", id,
			"doctor_id", merged.DoctorID,
			"error", err,
		)
		return apperrors.Validation("Schedule rule validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err = s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if merged.Active {
			if err := s.checkRuleOverlap(sessCtx, merged, id); err != nil {
				return err
			}
		}
		return s.rules.Update(sessCtx, id, merged)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		s.cfg.Log.Error("Failed to update schedule rule", "id", id, "error", err)
		return apperrors.Internal("Failed to update schedule rule", err)
	}

	s.cfg.Log.Info("Schedule rule updated successfully", "id", id, "doctor_id", merged.DoctorID)
	return nil
}

func (s *scheduleService) DeleteRule(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Schedule rule ID cannot be empty")
	}

	if err := s.rules.Delete(ctx, id); err != nil {
		if errors.Is(err, schederrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Schedule rule", id)
		}
		if errors.Is(err, schederrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid schedule rule ID format")
		}
		s.cfg.Log.Error("Failed to delete schedule rule", "id", id, "error", err)
		return apperrors.Internal("Failed to delete schedule rule", err)
	}

	s.cfg.Log.Info("Schedule rule deleted successfully", "id", id)
	return nil
}

func (s *scheduleService) CreateAbsence(ctx context.Context, absence *model.Absence) error {
	absence.Reason = sanitizer.SanitizeReason(absence.Reason)

	if err := s.validator.ValidateAbsence(absence); err != nil {
		s.cfg.Log.Warn("Absence validation failed",
			"doctor_id", absence.DoctorID,
			"error", err,
		)
		return apperrors.Validation("Absence validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.absences.Create(ctx, absence); err != nil {
		s.cfg.Log.Error("Failed to create absence", "doctor_id", absence.DoctorID, "error", err)
		return apperrors.Internal("Failed to create absence", err)
	}

	s.cfg.Log.Info("Absence created successfully",
		"id", absence.ID,
		"doctor_id", absence.DoctorID,
		"start_date", absence.StartDate,
		"end_date", absence.EndDate,
		"approved", absence.Approved,
	)
	return nil
}

func (s *scheduleService) ListAbsencesByDoctor(ctx context.Context, doctorID string) ([]*model.Absence, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	absences, err := s.absences.FindByDoctor(ctx, doctorID)
	if err != nil {
		s.cfg.Log.Error("Failed to list absences", "doctor_id", doctorID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve absences", err)
	}
	return absences, nil
}

func (s *scheduleService) ApproveAbsence(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Absence ID cannot be empty")
	}

	if err := s.absences.SetApproved(ctx, id, true); err != nil {
		if errors.Is(err, schederrors.ErrAbsenceNotFound) {
			return apperrors.NotFoundWithID("Absence", id)
		}
		if errors.Is(err, schederrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid absence ID format")
		}
		s.cfg.Log.Error("Failed to approve absence", "id", id, "error", err)
		return apperrors.Internal("Failed to approve absence", err)
	}

	s.cfg.Log.Info("Absence approved", "id", id)
	return nil
}

func (s *scheduleService) DeleteAbsence(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Absence ID cannot be empty")
	}

	if err := s.absences.Delete(ctx, id); err != nil {
		if errors.Is(err, schederrors.ErrAbsenceNotFound) {
			return apperrors.NotFoundWithID("Absence", id)
		}
		if errors.Is(err, schederrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid absence ID format")
		}
		s.cfg.Log.Error("Failed to delete absence", "id", id, "error", err)
		return apperrors.Internal("Failed to delete absence", err)
	}

	s.cfg.Log.Info("Absence deleted", "id", id)
	return nil
}

func (s *scheduleService) CreateHoliday(ctx context.Context, holiday *model.Holiday) error {
	holiday.Name = sanitizer.TrimAndNormalize(holiday.Name)

	if err := s.validator.ValidateHoliday(holiday); err != nil {
		s.cfg.Log.Warn("Holiday validation failed", "name", holiday.Name, "error", err)
		return apperrors.Validation("Holiday validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.holidays.Create(ctx, holiday); err != nil {
		s.cfg.Log.Error("Failed to create holiday", "name", holiday.Name, "error", err)
		return apperrors.Internal("Failed to create holiday", err)
	}

	s.cfg.Log.Info("Holiday created successfully",
		"id", holiday.ID,
		"date", holiday.Date,
		"name", holiday.Name,
		"type", holiday.Type,
		"recurring", holiday.Recurring,
	)
	return nil
}

func (s *scheduleService) ListHolidays(ctx context.Context, limit int, offset int) ([]*model.Holiday, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	if offset < 0 {
		offset = 0
	}

	count, err := s.holidays.Count(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count holidays", "error", err)
		return nil, 0, apperrors.Internal("Failed to count holidays", err)
	}

	holidays, err := s.holidays.FindAll(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list holidays", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve holidays", err)
	}

	return holidays, count, nil
}

func (s *scheduleService) DeleteHoliday(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Holiday ID cannot be empty")
	}

	if err := s.holidays.Delete(ctx, id); err != nil {
		if errors.Is(err, schederrors.ErrHolidayNotFound) {
			return apperrors.NotFoundWithID("Holiday", id)
		}
		if errors.Is(err, schederrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid holiday ID format")
		}
		s.cfg.Log.Error("Failed to delete holiday", "id", id, "error", err)
		return apperrors.Internal("Failed to delete holiday", err)
	}

	s.cfg.Log.Info("Holiday deleted", "id", id)
	return nil
}

// EffectiveSchedules returns the active rules governing the doctor on the
// given calendar date. More than one active rule per weekday is a data
// integrity problem: the overlap check on writes should have prevented it,
// so it is reported as a conflict rather than silently merged.
func (s *scheduleService) EffectiveSchedules(ctx context.Context, doctorID string, date string) ([]*model.DoctorSchedule, error) {
	dayOfWeek, err := timecal.DayOfWeek(date)
	if err != nil {
		return nil, apperrors.InvalidInput("Date must be in YYYY-MM-DD format")
	}

	rules, err := s.rules.FindActiveByDoctorAndDay(ctx, doctorID, dayOfWeek)
	if err != nil {
		s.cfg.Log.Error("Failed to load effective schedules",
			"doctor_id", doctorID,
			"date", date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load doctor schedule", err)
	}

	if overlap := findOverlappingPair(rules); overlap != nil {
		s.cfg.Log.Warn("Overlapping active schedule rules for doctor",
			"doctor_id", doctorID,
			"day_of_week", dayOfWeek,
			"rule_ids", []string{overlap[0].ID, overlap[1].ID},
		)
		return nil, apperrors.Conflict("Doctor has overlapping active schedule rules for this day")
	}

	return rules, nil
}

func (s *scheduleService) ApprovedAbsence(ctx context.Context, doctorID string, date string) (*model.Absence, error) {
	absence, err := s.absences.FindApprovedOnDate(ctx, doctorID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to check approved absence",
			"doctor_id", doctorID,
			"date", date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to check doctor absence", err)
	}
	return absence, nil
}

// BlockingHolidayOn returns the first mandatory holiday on the date, if any.
func (s *scheduleService) BlockingHolidayOn(ctx context.Context, date string) (*model.Holiday, error) {
	holidays, err := s.holidays.FindOnDate(ctx, date)
	if err != nil {
		s.cfg.Log.Error("Failed to check holidays", "date", date, "error", err)
		return nil, apperrors.Internal("Failed to check holidays", err)
	}

	for _, h := range holidays {
		if h.Blocking() {
			return h, nil
		}
	}
	return nil, nil
}

// checkRuleOverlap rejects a rule whose working window intersects another
// active rule for the same doctor and weekday. excludeID skips the rule being
// updated.
func (s *scheduleService) checkRuleOverlap(ctx context.Context, schedule *model.DoctorSchedule, excludeID string) error {
	existing, err := s.rules.FindActiveByDoctorAndDay(ctx, schedule.DoctorID, schedule.DayOfWeek)
	if err != nil {
		return apperrors.Internal("Failed to check for conflicting schedule rules", err)
	}

	start, _ := timecal.ParseTimeOfDay(schedule.StartTime)
	end, _ := timecal.ParseTimeOfDay(schedule.EndTime)

	for _, e := range existing {
		if e.ID == excludeID {
			continue
		}
		eStart, _ := timecal.ParseTimeOfDay(e.StartTime)
		eEnd, _ := timecal.ParseTimeOfDay(e.EndTime)
		if timecal.Overlaps(start, end, eStart, eEnd) {
			return apperrors.Conflict("An active schedule rule already covers this time on this day")
		}
	}
	return nil
}

func findOverlappingPair(rules []*model.DoctorSchedule) []*model.DoctorSchedule {
	for i := 0; i < len(rules); i++ {
		for j := i + 1; j < len(rules); j++ {
			iStart, _ := timecal.ParseTimeOfDay(rules[i].StartTime)
			iEnd, _ := timecal.ParseTimeOfDay(rules[i].EndTime)
			jStart, _ := timecal.ParseTimeOfDay(rules[j].StartTime)
			jEnd, _ := timecal.ParseTimeOfDay(rules[j].EndTime)
			if timecal.Overlaps(iStart, iEnd, jStart, jEnd) {
				return []*model.DoctorSchedule{rules[i], rules[j]}
			}
		}
	}
	return nil
}

func (s *scheduleService) mergeRuleUpdates(existing *model.DoctorSchedule, updates *model.DoctorScheduleUpdate) *model.DoctorSchedule {
	merged := *existing

	if updates.StartTime != "" {
		merged.StartTime = updates.StartTime
	}
	if updates.EndTime != "" {
		merged.EndTime = updates.EndTime
	}
	if updates.SlotDurationMin != nil {
		merged.SlotDurationMin = *updates.SlotDurationMin
	}
	if updates.BreakStart != "" {
		merged.BreakStart = updates.BreakStart
	}
	if updates.BreakEnd != "" {
		merged.BreakEnd = updates.BreakEnd
	}
	if updates.Active != nil {
		merged.Active = *updates.Active
	}

	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	return &merged
}
