package model

import "time"

const (
	AbsenceVacation     = "vacation"
	AbsenceLeave        = "leave"
	AbsenceMedicalLeave = "medical_leave"
	AbsenceTraining     = "training"
	AbsenceOther        = "other"
)

// Absence blocks a doctor's availability over an inclusive date range.
// Unapproved absences are kept for the approval workflow but never affect
// slot listing.
type Absence struct {
	ID                 string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DoctorID           string    `json:"doctor_id" bson:"doctor_id" validate:"required,mongodb"`
	StartDate          string    `json:"start_date" bson:"start_date" validate:"required,valid_date"`
	EndDate            string    `json:"end_date" bson:"end_date" validate:"required,valid_date"`
	Type               string    `json:"type" bson:"type" validate:"required,oneof=vacation leave medical_leave training other"`
	Reason             string    `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=500"`
	SubstituteDoctorID string    `json:"substitute_doctor_id,omitempty" bson:"substitute_doctor_id,omitempty" validate:"omitempty,mongodb"`
	Approved           bool      `json:"approved" bson:"approved"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
