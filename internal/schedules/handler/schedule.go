package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"medicita/internal/schedules/service"
	httputil "medicita/pkg/http"
	"medicita/pkg/logger"
	"medicita/pkg/model"
)

type ScheduleHandler struct {
	service service.ScheduleService
	log     *logger.Logger
}

func NewScheduleHandler(service service.ScheduleService, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		log:     log,
	}
}

func (h *ScheduleHandler) CreateRule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var rule model.DoctorSchedule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateRule", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.CreateRule(r.Context(), &rule); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateRule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, rule); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateRule", "operation", "WriteCreated", "error", err)
	}
}

func (h *ScheduleHandler) GetRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "GetRule", "operation", "WriteJSON", "error", err)
		}
		return
	}

	rule, err := h.service.GetRule(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetRule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rule); err != nil {
		h.log.Error("failed to write success response", "handler", "GetRule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ScheduleHandler) ListRulesByDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorId"))
	if doctorID == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Doctor ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "ListRulesByDoctor", "operation", "WriteJSON", "error", err)
		}
		return
	}

	rules, err := h.service.ListRulesByDoctor(r.Context(), doctorID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListRulesByDoctor", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rules); err != nil {
		h.log.Error("failed to write success response", "handler", "ListRulesByDoctor", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ScheduleHandler) UpdateRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "UpdateRule", "operation", "WriteJSON", "error", err)
		}
		return
	}

	var updates model.DoctorScheduleUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateRule", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateRule(r.Context(), id, &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateRule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ScheduleHandler) DeleteRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "DeleteRule", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := h.service.DeleteRule(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteRule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ScheduleHandler) CreateAbsence(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var absence model.Absence
	if err := json.NewDecoder(r.Body).Decode(&absence); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateAbsence", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.CreateAbsence(r.Context(), &absence); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateAbsence", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, absence); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateAbsence", "operation", "WriteCreated", "error", err)
	}
}

func (h *ScheduleHandler) ListAbsencesByDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorId"))
	if doctorID == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Doctor ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "ListAbsencesByDoctor", "operation", "WriteJSON", "error", err)
		}
		return
	}

	absences, err := h.service.ListAbsencesByDoctor(r.Context(), doctorID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListAbsencesByDoctor", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, absences); err != nil {
		h.log.Error("failed to write success response", "handler", "ListAbsencesByDoctor", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ScheduleHandler) ApproveAbsence(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "ApproveAbsence", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := h.service.ApproveAbsence(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ApproveAbsence", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ScheduleHandler) DeleteAbsence(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "DeleteAbsence", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := h.service.DeleteAbsence(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteAbsence", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ScheduleHandler) CreateHoliday(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var holiday model.Holiday
	if err := json.NewDecoder(r.Body).Decode(&holiday); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateHoliday", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.CreateHoliday(r.Context(), &holiday); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateHoliday", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, holiday); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateHoliday", "operation", "WriteCreated", "error", err)
	}
}

func (h *ScheduleHandler) ListHolidays(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListHolidays", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	holidays, totalCount, err := h.service.ListHolidays(r.Context(), limit, int(offset))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListHolidays", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, holidays, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListHolidays", "operation", "WritePaginated", "error", err)
	}
}

func (h *ScheduleHandler) DeleteHoliday(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "DeleteHoliday", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := h.service.DeleteHoliday(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteHoliday", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ScheduleHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/schedules", h.CreateRule)
	router.GET("/api/v1/schedules/doctor/:doctorId", h.ListRulesByDoctor)
	router.GET("/api/v1/schedules/id/:id", h.GetRule)
	router.PATCH("/api/v1/schedules/id/:id", h.UpdateRule)
	router.DELETE("/api/v1/schedules/id/:id", h.DeleteRule)

	router.POST("/api/v1/absences", h.CreateAbsence)
	router.GET("/api/v1/absences/doctor/:doctorId", h.ListAbsencesByDoctor)
	router.POST("/api/v1/absences/id/:id/approve", h.ApproveAbsence)
	router.DELETE("/api/v1/absences/id/:id", h.DeleteAbsence)

	router.POST("/api/v1/holidays", h.CreateHoliday)
	router.GET("/api/v1/holidays", h.ListHolidays)
	router.DELETE("/api/v1/holidays/id/:id", h.DeleteHoliday)
}
