package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"medicita/internal/reservations/service"
	httputil "medicita/pkg/http"
	"medicita/pkg/logger"
	"medicita/pkg/model"
)

// SessionHeader carries the booking session identity. The body session_id
// field wins when both are present so non-browser clients can skip the header.
const SessionHeader = "X-Booking-Session"

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

type holdRequest struct {
	BranchID   string `json:"branch_id"`
	DoctorID   string `json:"doctor_id,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	SessionID  string `json:"session_id,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

func (req *holdRequest) slotKey() model.SlotKey {
	return model.SlotKey{
		BranchID: req.BranchID,
		DoctorID: req.DoctorID,
		Date:     req.Date,
		Time:     req.Time,
	}
}

func (h *ReservationHandler) sessionID(r *http.Request, body string) string {
	if body != "" {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

func (h *ReservationHandler) Hold(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Hold", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	hold, err := h.service.Hold(r.Context(), req.slotKey(), h.sessionID(r, req.SessionID), ttl)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Hold", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, hold); err != nil {
		h.log.Error("failed to write created response", "handler", "Hold", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Release", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Release(r.Context(), req.slotKey(), h.sessionID(r, req.SessionID)); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Release", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/holds", h.Hold)
	router.POST("/api/v1/holds/release", h.Release)
	// Commit is not exposed on its own. A committed hold carries no expiry,
	// so it only happens inside the booking write, which finalizes it.
}
