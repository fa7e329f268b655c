package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if !errors.Is(wrapped, originalErr) {
		t.Errorf("expected Unwrap to expose original error")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDomainConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"slot unavailable", SlotUnavailable("b1_d1_2026-03-02_09:00"), CodeSlotUnavailable, http.StatusConflict},
		{"hold expired", HoldExpired("b1_d1_2026-03-02_09:00"), CodeHoldExpired, http.StatusGone},
		{"not owner", NotOwner("b1_d1_2026-03-02_09:00"), CodeNotOwner, http.StatusForbidden},
		{"invalid transition", InvalidTransition("finalizada", "confirmada"), CodeInvalidTransition, http.StatusConflict},
		{"schedule not found", ScheduleNotFound("d1", "2026-03-02"), CodeScheduleNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.err.Code)
			}
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.err.HTTPStatus)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := SlotUnavailable("key")

	if !IsCode(err, CodeSlotUnavailable) {
		t.Error("expected IsCode to match SLOT_UNAVAILABLE")
	}
	if IsCode(err, CodeHoldExpired) {
		t.Error("expected IsCode to reject mismatched code")
	}
	if IsCode(errors.New("plain"), CodeSlotUnavailable) {
		t.Error("expected IsCode to reject non-AppError")
	}
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)

	if appErr.Code != CodeInternal {
		t.Errorf("expected plain errors to map to %s, got %s", CodeInternal, appErr.Code)
	}
	if appErr.Err != plain {
		t.Error("expected original error to be preserved")
	}
}
