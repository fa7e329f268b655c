package model

import "time"

// DoctorSchedule is one recurring weekly working window for a doctor at a
// branch. Times are "HH:MM" minute-of-day strings; DayOfWeek follows
// time.Weekday numbering (0=Sunday..6=Saturday).
type DoctorSchedule struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DoctorID        string    `json:"doctor_id" bson:"doctor_id" validate:"required,mongodb"`
	BranchID        string    `json:"branch_id" bson:"branch_id" validate:"required,mongodb"`
	DayOfWeek       int       `json:"day_of_week" bson:"day_of_week" validate:"min=0,max=6"`
	StartTime       string    `json:"start_time" bson:"start_time" validate:"required,valid_time_of_day"`
	EndTime         string    `json:"end_time" bson:"end_time" validate:"required,valid_time_of_day"`
	SlotDurationMin int       `json:"slot_duration_min" bson:"slot_duration_min" validate:"required,min=5,max=480"`
	BreakStart      string    `json:"break_start,omitempty" bson:"break_start,omitempty" validate:"omitempty,valid_time_of_day"`
	BreakEnd        string    `json:"break_end,omitempty" bson:"break_end,omitempty" validate:"omitempty,valid_time_of_day"`
	Active          bool      `json:"active" bson:"active"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type DoctorScheduleUpdate struct {
	StartTime       string `json:"start_time,omitempty" validate:"omitempty,valid_time_of_day"`
	EndTime         string `json:"end_time,omitempty" validate:"omitempty,valid_time_of_day"`
	SlotDurationMin *int   `json:"slot_duration_min,omitempty" validate:"omitempty,min=5,max=480"`
	BreakStart      string `json:"break_start,omitempty" validate:"omitempty,valid_time_of_day"`
	BreakEnd        string `json:"break_end,omitempty" validate:"omitempty,valid_time_of_day"`
	Active          *bool  `json:"active,omitempty"`
}
