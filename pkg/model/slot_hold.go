package model

import (
	"fmt"
	"time"
)

const (
	HoldStateHeld      = "held"
	HoldStateCommitted = "committed"
	HoldStateReleased  = "released"
	HoldStateExpired   = "expired"
)

// SlotKey identifies one bookable unit. DoctorID may be empty for
// branch-level services without an assigned doctor.
type SlotKey struct {
	BranchID string `json:"branch_id" validate:"required,mongodb"`
	DoctorID string `json:"doctor_id,omitempty" validate:"omitempty,mongodb"`
	Date     string `json:"date" validate:"required,valid_date"`
	Time     string `json:"time" validate:"required,valid_time_of_day"`
}

// String renders the canonical lock identifier for the slot. It doubles as
// the slot-hold document _id, so two holds on the same slot collide on the
// primary key.
func (k SlotKey) String() string {
	return fmt.Sprintf("%s_%s_%s_%s", k.BranchID, k.DoctorID, k.Date, k.Time)
}

// SlotHold is an ephemeral exclusive claim on a SlotKey. Only held and
// committed holds are persisted; released and expired holds are deleted and
// the state is reported back to the caller on the way out. Committed holds
// have no expiry (ExpiresAt is unset) so the TTL cleanup cannot reap them.
type SlotHold struct {
	ID        string     `json:"slot_key" bson:"_id"`
	BranchID  string     `json:"branch_id" bson:"branch_id"`
	DoctorID  string     `json:"doctor_id,omitempty" bson:"doctor_id,omitempty"`
	Date      string     `json:"date" bson:"date"`
	Time      string     `json:"time" bson:"time"`
	SessionID string     `json:"session_id" bson:"session_id"`
	State     string     `json:"state" bson:"state"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// Key reconstructs the SlotKey from the hold's decomposed fields.
func (h *SlotHold) Key() SlotKey {
	return SlotKey{
		BranchID: h.BranchID,
		DoctorID: h.DoctorID,
		Date:     h.Date,
		Time:     h.Time,
	}
}

// Expired reports whether a held hold is past its TTL at the given instant.
func (h *SlotHold) Expired(now time.Time) bool {
	return h.State == HoldStateHeld && h.ExpiresAt != nil && !h.ExpiresAt.After(now)
}
