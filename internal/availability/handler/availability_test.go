package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"medicita/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type mockAvailabilityService struct {
	listFunc func(ctx context.Context, doctorID string, branchID string, date string) ([]string, error)
}

func (m *mockAvailabilityService) ListAvailableSlots(ctx context.Context, doctorID string, branchID string, date string) ([]string, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, doctorID, branchID, date)
	}
	return []string{}, nil
}

func newTestHandler(service *mockAvailabilityService) *AvailabilityHandler {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	return NewAvailabilityHandler(service, log)
}

func TestListAvailableSlots_MissingQueryParameters(t *testing.T) {
	handler := newTestHandler(&mockAvailabilityService{
		listFunc: func(ctx context.Context, doctorID string, branchID string, date string) ([]string, error) {
			t.Fatal("service must not be called with missing parameters")
			return nil, nil
		},
	})

	tests := []struct {
		name        string
		queryString string
	}{
		{"no parameters", ""},
		{"missing date", "?doctor_id=507f1f77bcf86cd799439011&branch_id=507f1f77bcf86cd799439012"},
		{"missing doctor", "?branch_id=507f1f77bcf86cd799439012&date=2026-03-02"},
		{"missing branch", "?doctor_id=507f1f77bcf86cd799439011&date=2026-03-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/availability"+tt.queryString, nil)
			rec := httptest.NewRecorder()

			handler.ListAvailableSlots(rec, req, httprouter.Params{})

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestListAvailableSlots_ReturnsSlots(t *testing.T) {
	handler := newTestHandler(&mockAvailabilityService{
		listFunc: func(ctx context.Context, doctorID string, branchID string, date string) ([]string, error) {
			if doctorID != "507f1f77bcf86cd799439011" || date != "2026-03-02" {
				t.Errorf("unexpected arguments: %s %s %s", doctorID, branchID, date)
			}
			return []string{"09:00", "09:30", "10:30"}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability?doctor_id=507f1f77bcf86cd799439011&branch_id=507f1f77bcf86cd799439012&date=2026-03-02", nil)
	rec := httptest.NewRecorder()

	handler.ListAvailableSlots(rec, req, httprouter.Params{})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data availabilityResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(envelope.Data.Slots) != 3 || envelope.Data.Slots[0] != "09:00" {
		t.Errorf("unexpected slots: %v", envelope.Data.Slots)
	}
	if envelope.Data.Date != "2026-03-02" {
		t.Errorf("expected date echoed back, got %s", envelope.Data.Date)
	}
}
