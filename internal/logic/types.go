// Package logic contains the pure business logic for garage door monitoring:
// debounced transition detection and time-windowed alarms.
// This package has NO external dependencies (no GPIO, SQLite, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Reading is a single timestamped sample of the door switch.
// true = door open.
type Reading struct {
	Time time.Time
	Open bool
}

// Transition is a debounced change of door state.
type Transition struct {
	Timestamp time.Time
	From      bool
	To        bool
}

// Description returns the event description recorded for the transition.
func (t Transition) Description() string {
	if t.To {
		return "OPEN"
	}
	return "CLOSE"
}

// StateName returns the human readable name of a door state.
func StateName(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

// ParseState converts "open"/"closed" into a door state.
func ParseState(s string) (bool, error) {
	switch s {
	case "open", "OPEN":
		return true, nil
	case "closed", "CLOSED":
		return false, nil
	}
	return false, fmt.Errorf("unknown door state %q", s)
}

// AlertEvent is produced when an alarm rule fires.
// It is a value type and safe to hand to another goroutine.
type AlertEvent struct {
	Rule         string
	Target       bool
	Elapsed      time.Duration // time since the current counter started
	TotalElapsed time.Duration // time since the alarm episode started
	Timestamp    time.Time
}

// Message formats the alert for delivery over SMS or logs.
func (e AlertEvent) Message() string {
	return fmt.Sprintf("ALARM - %s - %s for %d minutes (total %d minutes as of %s)",
		e.Rule,
		StateName(e.Target),
		int(e.Elapsed/time.Minute),
		int(e.TotalElapsed/time.Minute),
		e.Timestamp.Truncate(time.Second).Format(time.DateTime),
	)
}
