// Package store records door transitions and system events in an
// append-only log.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrStorage wraps every storage failure. Failures are not fatal to the
// polling loop.
var ErrStorage = errors.New("storage failure")

// Kind names an event in the log.
type Kind string

const (
	KindDoorOpen         Kind = "door open"
	KindDoorClose        Kind = "door close"
	KindStartupRequested Kind = "startup requested"
	KindAlarmSet         Kind = "alarm set"
	KindStartup          Kind = "startup"
	KindAlarmTriggered   Kind = "alarm triggered"
	KindStorageFailure   Kind = "storage failure"
	KindSMSSent          Kind = "sms sent"
	KindShutdown         Kind = "shutdown"
)

// Store is the event sink. An empty value is stored as NULL.
type Store interface {
	Record(ctx context.Context, kind Kind, at time.Time, value string) error
	Summary(ctx context.Context, now time.Time, period time.Duration) (Summary, error)
	Close() error
}

// Summary is the content of the daily status report.
type Summary struct {
	Since       time.Time
	Opens       int
	Closes      int
	Alarms      int
	LastStartup time.Time // zero if no startup was ever recorded
}

// Uptime returns the time since the latest startup, or zero if unknown.
func (s Summary) Uptime(now time.Time) time.Duration {
	if s.LastStartup.IsZero() {
		return 0
	}
	return now.Sub(s.LastStartup)
}
