// Package status provides a thread-safe status tracker for the garage-sensor daemon.
// It is read by the HTTP handlers and by the MQTT lifecycle payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/garage-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	DebounceDepth int
	Pin           int
	Broker        string
	HTTPAddr      string
	DryRun        bool
}

// Counts are running totals since the daemon started.
type Counts struct {
	Opens      int
	Closes     int
	Alerts     int
	ReadErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type: safe to use after the lock is released.
type Snapshot struct {
	Open          bool
	Ready         bool // false until the first successful sensor read
	LastChange    time.Time
	Counts        Counts
	Alarms        []logic.RuleStatus
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// DoorState returns "OPEN", "CLOSED" or "UNKNOWN" before the first read.
func (s Snapshot) DoorState() string {
	if !s.Ready {
		return "UNKNOWN"
	}
	if s.Open {
		return "OPEN"
	}
	return "CLOSED"
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the confirmed door state, counts and alarm states.
// Called from runLoop on every tick.
func (t *Tracker) Update(confirmed logic.Reading, ready bool, counts Counts, alarms []logic.RuleStatus) {
	own := make([]logic.RuleStatus, len(alarms))
	copy(own, alarms)

	t.mu.Lock()
	t.snap.Open = confirmed.Open
	t.snap.LastChange = confirmed.Time
	t.snap.Ready = ready
	t.snap.Counts = counts
	t.snap.Alarms = own
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Alarms = append([]logic.RuleStatus(nil), t.snap.Alarms...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
