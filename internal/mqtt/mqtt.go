// Package mqtt publishes the live door feed (transitions, alerts and
// system lifecycle events) with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/garage-sensor/internal/logic"
)

// Topic suffixes appended to the configured prefix.
const (
	TopicState  = "state"
	TopicAlerts = "alerts"
	TopicSystem = "system"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTransition sends a confirmed door transition (retained).
	// Returns error if publishing fails (should not crash the process).
	PublishTransition(t logic.Transition) error

	// PublishAlert sends a fired alarm.
	PublishAlert(a Alert) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Alert is a fired alarm with a unique ID so subscribers can de-duplicate.
type Alert struct {
	ID    string
	Event logic.AlertEvent
}

// SystemEvent represents a system lifecycle event (e.g. startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "STORAGE_FAILURE"
	Reason     string // e.g., "SIGTERM", error text
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// DoorPayload is the MQTT payload for a door transition.
type DoorPayload struct {
	Door DoorInner `json:"door"`
}

// DoorInner contains the transition details.
type DoorInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"` // OPEN or CLOSE
	State     string `json:"state"` // OPEN or CLOSED
}

// FormatTransition creates the JSON payload for a door transition.
func FormatTransition(t logic.Transition) ([]byte, error) {
	state := "CLOSED"
	if t.To {
		state = "OPEN"
	}
	return json.Marshal(DoorPayload{
		Door: DoorInner{
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
			Event:     t.Description(),
			State:     state,
		},
	})
}

// AlertPayload is the MQTT payload for a fired alarm.
type AlertPayload struct {
	Alert AlertInner `json:"alert"`
}

// AlertInner contains the alert details.
type AlertInner struct {
	ID             string `json:"id"`
	Rule           string `json:"rule"`
	State          string `json:"state"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	TotalSeconds   int64  `json:"total_seconds"`
	Timestamp      string `json:"timestamp"`
	Message        string `json:"message"`
}

// FormatAlert creates the JSON payload for an alert.
func FormatAlert(a Alert) ([]byte, error) {
	return json.Marshal(AlertPayload{
		Alert: AlertInner{
			ID:             a.ID,
			Rule:           a.Event.Rule,
			State:          logic.StateName(a.Event.Target),
			ElapsedSeconds: int64(a.Event.Elapsed / time.Second),
			TotalSeconds:   int64(a.Event.TotalElapsed / time.Second),
			Timestamp:      a.Event.Timestamp.UTC().Format(time.RFC3339),
			Message:        a.Event.Message(),
		},
	})
}

// SystemPayload is the payload for simple system events that don't carry
// a full status snapshot (e.g. the broker's last-will OFFLINE message).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
