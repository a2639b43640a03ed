// File: internal/domain/gate_notifications.go
package domain

import "time"

type GateDirection string

const (
	GateDirectionEntry GateDirection = "entry"
	GateDirectionExit  GateDirection = "exit"
)

type OccupancyEventType string

const (
	OccupancyEventEntry OccupancyEventType = "vehicle_entered"
	OccupancyEventExit  OccupancyEventType = "vehicle_exited"
)

// OccupancyNotification is pushed to dashboards over WebSocket after every entry or exit.
type OccupancyNotification struct {
	EventType OccupancyEventType `json:"event_type"`
	SessionID int64              `json:"session_id"`
	Plate     string             `json:"plate"`
	Timestamp time.Time          `json:"timestamp"`
	AmountDue *float64           `json:"amount_due,omitempty"`
	Duration  string             `json:"duration,omitempty"`
}

// GateEvent is what a gate controller sends through the queue when a vehicle is at
// the barrier. Either Plate or ImageBase64 must be present.
type GateEvent struct {
	EventID     string        `json:"event_id"`
	DeviceID    string        `json:"device_id"`
	Direction   GateDirection `json:"direction"`
	Plate       string        `json:"plate,omitempty"`
	ImageBase64 string        `json:"image_base64,omitempty"`
	Timestamp   string        `json:"timestamp,omitempty"` // ISO 8601 from the device, informational
}

// BarrierControlCommandPayload is published to the barrier topic.
type BarrierControlCommandPayload struct {
	Command   string `json:"command"`
	RequestID string `json:"request_id"`
	Plate     string `json:"plate,omitempty"`
}

// GateOutcome records what happened to a gate event.
type GateOutcome struct {
	EventID       string        `json:"event_id"`
	Direction     GateDirection `json:"direction"`
	Plate         string        `json:"plate,omitempty"`
	BarrierOpened bool          `json:"barrier_opened"`
	RequestID     string        `json:"request_id,omitempty"`
	Reason        string        `json:"reason,omitempty"`
}
