package domain

import (
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"
)

// VehicleSession is one stay of a vehicle in the lot. ExitTime and AmountDue stay
// null while the session is active and are both set when it is closed.
type VehicleSession struct {
	ID        int64      `json:"id"`
	Plate     string     `json:"plate"`
	EntryTime time.Time  `json:"entry_time"`
	ExitTime  null.Time  `json:"exit_time"`
	AmountDue null.Float `json:"amount_due"`
	Active    bool       `json:"active"`
}

// Duration returns how long the vehicle stayed, measured up to now for active sessions.
func (s VehicleSession) Duration(now time.Time) time.Duration {
	if s.ExitTime.Valid {
		return s.ExitTime.Time.Sub(s.EntryTime)
	}
	return now.Sub(s.EntryTime)
}

// EntryReceipt confirms a registered entry.
type EntryReceipt struct {
	SessionID int64     `json:"session_id"`
	Plate     string    `json:"plate"`
	EntryTime time.Time `json:"entry_time"`
}

// ExitReceipt confirms a closed session and the amount charged.
type ExitReceipt struct {
	SessionID int64         `json:"session_id"`
	Plate     string        `json:"plate"`
	EntryTime time.Time     `json:"entry_time"`
	ExitTime  time.Time     `json:"exit_time"`
	Duration  time.Duration `json:"duration_ns"`
	AmountDue float64       `json:"amount_due"`
}

// DurationLabel renders the stay as "1h 5min".
func (r ExitReceipt) DurationLabel() string {
	return FormatStay(r.Duration)
}

// FormatStay renders a duration in whole hours and minutes, e.g. "2h 0min".
func FormatStay(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	return fmt.Sprintf("%dh %dmin", total/60, total%60)
}

// OccupancySnapshot is the list of vehicles currently in the lot.
type OccupancySnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Sessions    []VehicleSession `json:"sessions"`
}

// DTO for the entry API
type VehicleEntryDTO struct {
	Plate string `json:"plate" binding:"required"`
}

// DTO for the exit API
type VehicleExitDTO struct {
	Plate string `json:"plate" binding:"required"`
}

// ExitReceiptResponse is the JSON shape returned by the exit API.
type ExitReceiptResponse struct {
	ExitReceipt
	DurationLabel string `json:"duration"`
}
