package handler

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"medicita/internal/availability/service"
	httputil "medicita/pkg/http"
	"medicita/pkg/logger"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

type availabilityResponse struct {
	DoctorID string   `json:"doctor_id"`
	BranchID string   `json:"branch_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

func (h *AvailabilityHandler) ListAvailableSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	doctorID := strings.TrimSpace(query.Get("doctor_id"))
	branchID := strings.TrimSpace(query.Get("branch_id"))
	date := strings.TrimSpace(query.Get("date"))

	if doctorID == "" || branchID == "" || date == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "'doctor_id', 'branch_id' and 'date' query parameters are required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "ListAvailableSlots", "operation", "WriteJSON", "error", err)
		}
		return
	}

	slots, err := h.service.ListAvailableSlots(r.Context(), doctorID, branchID, date)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListAvailableSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	response := availabilityResponse{
		DoctorID: doctorID,
		BranchID: branchID,
		Date:     date,
		Slots:    slots,
	}
	if err := httputil.WriteSuccess(w, response); err != nil {
		h.log.Error("failed to write success response", "handler", "ListAvailableSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.ListAvailableSlots)
}
