package service

import (
	apperrors "medicita/pkg/errors"
	"medicita/pkg/model"
)

// allowedTransitions is the closed lifecycle graph. Anything not listed is
// refused with INVALID_TRANSITION; the engine never coerces state. The
// no_asistio to perdido edge belongs to the recovery workflow that closes an
// unanswered follow-up window.
var allowedTransitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.StatusScheduled: {
		model.StatusPendingConfirmation,
		model.StatusConfirmed,
		model.StatusRescheduled,
		model.StatusCancelled,
		model.StatusNoShow,
	},
	model.StatusPendingConfirmation: {
		model.StatusConfirmed,
		model.StatusRescheduled,
		model.StatusCancelled,
	},
	model.StatusConfirmed: {
		model.StatusArrived,
		model.StatusRescheduled,
		model.StatusCancelled,
		model.StatusNoShow,
	},
	model.StatusArrived: {
		model.StatusWaiting,
	},
	model.StatusWaiting: {
		model.StatusInAttention,
		model.StatusCancelled,
	},
	model.StatusInAttention: {
		model.StatusFinished,
		model.StatusCancelled,
	},
	model.StatusRescheduled: {
		model.StatusConfirmed,
		model.StatusRescheduled,
		model.StatusCancelled,
	},
	model.StatusFinished:  {},
	model.StatusCancelled: {},
	model.StatusNoShow: {
		model.StatusLost,
	},
	model.StatusLost: {},
}

// CanTransition reports whether the lifecycle graph contains the edge.
func CanTransition(from, to model.AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// checkTransition returns the INVALID_TRANSITION error for a refused edge.
func checkTransition(from, to model.AppointmentStatus) error {
	if !CanTransition(from, to) {
		return apperrors.InvalidTransition(string(from), string(to))
	}
	return nil
}
