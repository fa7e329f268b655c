package errors

import "errors"

var (
	ErrNotFound = errors.New("schedule rule not found")

	ErrInvalidID = errors.New("invalid schedule ID format")

	ErrAbsenceNotFound = errors.New("absence not found")

	ErrHolidayNotFound = errors.New("holiday not found")
)
