package model

import "time"

const (
	HolidayMandatory = "mandatory"
	HolidayOptional  = "optional"
	HolidayReligious = "religious"
)

// Holiday is a branch-wide calendar entry. Only mandatory holidays block
// availability; optional and religious ones are informational. MonthDay is
// denormalized from Date so recurring holidays can be matched by index.
type Holiday struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Date      string    `json:"date" bson:"date" validate:"required,valid_date"`
	MonthDay  string    `json:"-" bson:"month_day"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Type      string    `json:"type" bson:"type" validate:"required,oneof=mandatory optional religious"`
	Recurring bool      `json:"recurring" bson:"recurring"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Blocking reports whether this holiday removes the day from availability.
func (h *Holiday) Blocking() bool {
	return h.Type == HolidayMandatory
}
