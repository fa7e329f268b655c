package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"medicita/pkg/logger"
	"medicita/pkg/model"
	"medicita/pkg/timecal"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ScheduleValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewScheduleValidator(log *logger.Logger) *ScheduleValidator {
	v := validator.New()

	if err := v.RegisterValidation("valid_time_of_day", validateTimeOfDay); err != nil {
		log.Fatal("Failed to register 'valid_time_of_day' validator", "error", err)
	}
	if err := v.RegisterValidation("valid_date", validateDate); err != nil {
		log.Fatal("Failed to register 'valid_date' validator", "error", err)
	}

	log.Info("Schedule validator initialized successfully")

	return &ScheduleValidator{
		validate: v,
		logger:   log,
	}
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	if _, err := time.Parse(timecal.TimeLayout, value); err != nil {
		return false
	}
	return len(value) == 5
}

func validateDate(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	if _, err := time.Parse(timecal.DateLayout, value); err != nil {
		return false
	}
	return len(value) == 10
}

func (v *ScheduleValidator) ValidateSchedule(sc *model.DoctorSchedule) error {
	if err := v.validate.Struct(sc); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return v.checkScheduleWindows(sc)
}

func (v *ScheduleValidator) ValidateAbsence(a *model.Absence) error {
	if err := v.validate.Struct(a); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	if a.EndDate < a.StartDate {
		return ValidationErrors{{
			Field:   "EndDate",
			Message: "end_date must not be before start_date",
		}}
	}
	return nil
}

func (v *ScheduleValidator) ValidateHoliday(h *model.Holiday) error {
	if err := v.validate.Struct(h); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// checkScheduleWindows enforces the cross-field rules the struct tags cannot
// express: start before end, and a break either absent or fully inside the
// working window.
func (v *ScheduleValidator) checkScheduleWindows(sc *model.DoctorSchedule) error {
	var errs ValidationErrors

	start, _ := timecal.ParseTimeOfDay(sc.StartTime)
	end, _ := timecal.ParseTimeOfDay(sc.EndTime)
	if end <= start {
		errs = append(errs, ValidationError{
			Field:   "EndTime",
			Message: "end_time must be after start_time",
		})
	}

	hasBreakStart := sc.BreakStart != ""
	hasBreakEnd := sc.BreakEnd != ""
	if hasBreakStart != hasBreakEnd {
		errs = append(errs, ValidationError{
			Field:   "BreakStart",
			Message: "break_start and break_end must be set together",
		})
	} else if hasBreakStart {
		breakStart, _ := timecal.ParseTimeOfDay(sc.BreakStart)
		breakEnd, _ := timecal.ParseTimeOfDay(sc.BreakEnd)
		if breakEnd <= breakStart {
			errs = append(errs, ValidationError{
				Field:   "BreakEnd",
				Message: "break_end must be after break_start",
			})
		} else if breakStart < start || breakEnd > end {
			errs = append(errs, ValidationError{
				Field:   "BreakStart",
				Message: "break must fall inside the working window",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *ScheduleValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid ObjectID", err.Field())
		case "valid_time_of_day":
			message = fmt.Sprintf("%s must be in HH:MM 24-hour format", err.Field())
		case "valid_date":
			message = fmt.Sprintf("%s must be in YYYY-MM-DD format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
