package model

import "time"

// AppointmentStatus is the closed set of lifecycle states. Wire values keep
// the Spanish names the clinic staff works with.
type AppointmentStatus string

const (
	StatusScheduled           AppointmentStatus = "agendada"
	StatusPendingConfirmation AppointmentStatus = "pendiente_confirmacion"
	StatusConfirmed           AppointmentStatus = "confirmada"
	StatusArrived             AppointmentStatus = "llego"
	StatusWaiting             AppointmentStatus = "en_espera"
	StatusInAttention         AppointmentStatus = "en_atencion"
	StatusFinished            AppointmentStatus = "finalizada"
	StatusRescheduled         AppointmentStatus = "reagendada"
	StatusCancelled           AppointmentStatus = "cancelada"
	StatusNoShow              AppointmentStatus = "no_asistio"
	StatusLost                AppointmentStatus = "perdido"
)

// Occupying reports whether an appointment in this status still claims its
// slot. Cancelled, no-show and lost appointments free the slot; everything
// else, finished included, remains the record of occupancy for its SlotKey.
func (s AppointmentStatus) Occupying() bool {
	switch s {
	case StatusCancelled, StatusNoShow, StatusLost:
		return false
	}
	return true
}

// Terminal reports whether no further lifecycle transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusFinished, StatusCancelled, StatusNoShow, StatusLost:
		return true
	}
	return false
}

// Appointment is the durable booking record. It is created only from a
// committed slot hold and from then on is itself the occupancy record for
// its slot. BalanceDue is derived, never written independently.
type Appointment struct {
	ID                 string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PatientID          string            `json:"patient_id" bson:"patient_id" validate:"required,mongodb"`
	BranchID           string            `json:"branch_id" bson:"branch_id" validate:"required,mongodb"`
	DoctorID           string            `json:"doctor_id,omitempty" bson:"doctor_id,omitempty" validate:"omitempty,mongodb"`
	Date               string            `json:"date" bson:"date" validate:"required,valid_date"`
	Time               string            `json:"time" bson:"time" validate:"required,valid_time_of_day"`
	DurationMin        int               `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=480"`
	ServiceType        string            `json:"service_type" bson:"service_type" validate:"required,min=2,max=100"`
	Status             AppointmentStatus `json:"status" bson:"status"`
	RescheduleCount    int               `json:"reschedule_count" bson:"reschedule_count" validate:"min=0"`
	IsPromotion        bool              `json:"is_promotion" bson:"is_promotion"`
	CancellationReason string            `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty" validate:"omitempty,max=500"`
	ArrivalTime        *time.Time        `json:"arrival_time,omitempty" bson:"arrival_time,omitempty"`
	AttentionStartTime *time.Time        `json:"attention_start_time,omitempty" bson:"attention_start_time,omitempty"`
	AttentionEndTime   *time.Time        `json:"attention_end_time,omitempty" bson:"attention_end_time,omitempty"`
	Cost               float64           `json:"cost" bson:"cost" validate:"min=0"`
	AmountPaid         float64           `json:"amount_paid" bson:"amount_paid" validate:"min=0"`
	BalanceDue         float64           `json:"balance_due" bson:"balance_due"`
	AtRisk             bool              `json:"at_risk" bson:"at_risk"`
	NoShowAt           *time.Time        `json:"no_show_at,omitempty" bson:"no_show_at,omitempty"`
	RecoveryUntil      *time.Time        `json:"recovery_until,omitempty" bson:"recovery_until,omitempty"`
	CreatedAt          time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt          time.Time         `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// SlotKey returns the slot this appointment occupies.
func (a *Appointment) SlotKey() SlotKey {
	return SlotKey{
		BranchID: a.BranchID,
		DoctorID: a.DoctorID,
		Date:     a.Date,
		Time:     a.Time,
	}
}

// RecalcBalance restores the balance_due = cost - amount_paid invariant.
func (a *Appointment) RecalcBalance() {
	a.BalanceDue = a.Cost - a.AmountPaid
}
