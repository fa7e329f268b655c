package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"medicita/internal/appointments/service"
	httputil "medicita/pkg/http"
	"medicita/pkg/logger"
)

// SessionHeader mirrors the reservation endpoints: the booking session that
// owns the hold must be presented to consume it.
const SessionHeader = "X-Booking-Session"

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	SessionID string `json:"session_id,omitempty"`
}

type paymentRequest struct {
	Amount float64 `json:"amount"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}
	if req.SessionID == "" {
		req.SessionID = strings.TrimSpace(r.Header.Get(SessionHeader))
	}

	appt, err := h.service.CreateFromHold(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, appt); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "GetByID", "operation", "WriteJSON", "error", err)
		}
		return
	}

	appt, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) ListByDateRange(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	branchID := strings.TrimSpace(query.Get("branch_id"))
	fromDate := strings.TrimSpace(query.Get("from"))
	toDate := strings.TrimSpace(query.Get("to"))

	if fromDate == "" || toDate == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "'from' and 'to' query parameters are required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "ListByDateRange", "operation", "WriteJSON", "error", err)
		}
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListByDateRange", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	appts, totalCount, err := h.service.ListByDateRange(r.Context(), branchID, fromDate, toDate, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListByDateRange", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, appts, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByDateRange", "operation", "WritePaginated", "error", err)
	}
}

// lifecycle wraps the single-ID transition endpoints that share a shape.
func (h *AppointmentHandler) lifecycle(name string, op func(r *http.Request, id string) (any, error)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		if id == "" {
			if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
				Error: "ID parameter is required",
			}); err != nil {
				h.log.Error("failed to write bad request response", "handler", name, "operation", "WriteJSON", "error", err)
			}
			return
		}

		result, err := op(r, id)
		if err != nil {
			if writeErr := httputil.WriteError(w, err); writeErr != nil {
				h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
			}
			return
		}

		if err := httputil.WriteSuccess(w, result); err != nil {
			h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
		}
	}
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "Cancel", "operation", "WriteJSON", "error", err)
		}
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Cancel", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	appt, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "Reschedule", "operation", "WriteJSON", "error", err)
		}
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Reschedule", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}
	if req.SessionID == "" {
		req.SessionID = strings.TrimSpace(r.Header.Get(SessionHeader))
	}

	appt, err := h.service.Reschedule(r.Context(), id, req.Date, req.Time, req.SessionID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reschedule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "Reschedule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) RegisterPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "RegisterPayment", "operation", "WriteJSON", "error", err)
		}
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "RegisterPayment", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	appt, err := h.service.RegisterPayment(r.Context(), id, req.Amount)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "RegisterPayment", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "RegisterPayment", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Create)
	router.GET("/api/v1/appointments", h.ListByDateRange)
	router.GET("/api/v1/appointments/id/:id", h.GetByID)

	router.POST("/api/v1/appointments/id/:id/confirm", h.lifecycle("Confirm", func(r *http.Request, id string) (any, error) {
		return h.service.Confirm(r.Context(), id)
	}))
	router.POST("/api/v1/appointments/id/:id/arrival", h.lifecycle("MarkArrival", func(r *http.Request, id string) (any, error) {
		return h.service.MarkArrival(r.Context(), id)
	}))
	router.POST("/api/v1/appointments/id/:id/attention", h.lifecycle("StartAttention", func(r *http.Request, id string) (any, error) {
		return h.service.StartAttention(r.Context(), id)
	}))
	router.POST("/api/v1/appointments/id/:id/finish", h.lifecycle("Finish", func(r *http.Request, id string) (any, error) {
		return h.service.Finish(r.Context(), id)
	}))
	router.POST("/api/v1/appointments/id/:id/lost", h.lifecycle("CloseRecovery", func(r *http.Request, id string) (any, error) {
		return h.service.CloseRecovery(r.Context(), id)
	}))
	router.POST("/api/v1/appointments/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/appointments/id/:id/reschedule", h.Reschedule)
	router.POST("/api/v1/appointments/id/:id/payments", h.RegisterPayment)
}
