package errors

import "errors"

var (
	// ErrHoldNotFound means no hold document exists for the slot key.
	ErrHoldNotFound = errors.New("slot hold not found")

	// ErrDuplicateHold means another hold document already owns the slot key.
	ErrDuplicateHold = errors.New("slot hold already exists")
)
