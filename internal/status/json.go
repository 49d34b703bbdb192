package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/garage-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Door          string      `json:"door"`
	Ready         bool        `json:"ready"`
	LastChange    string      `json:"last_change,omitempty"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"event_counts"`
	Alarms        []AlarmJSON `json:"alarms"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Opens      int `json:"opens"`
	Closes     int `json:"closes"`
	Alerts     int `json:"alerts"`
	ReadErrors int `json:"read_errors"`
}

// AlarmJSON is the JSON representation of one alarm rule.
type AlarmJSON struct {
	Name            string `json:"name"`
	State           string `json:"state"`
	Window          string `json:"window"`
	AfterSeconds    int64  `json:"after_seconds"`
	CooldownSeconds int64  `json:"cooldown_seconds"`
	Phase           string `json:"phase"`
	EpisodeStart    string `json:"episode_start,omitempty"`
	LastNotified    string `json:"last_notified,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	DebounceDepth int    `json:"debounce_depth"`
	Pin           int    `json:"pin"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	DryRun        bool   `json:"dry_run"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildAlarm(r logic.RuleStatus) AlarmJSON {
	return AlarmJSON{
		Name:            r.Name,
		State:           logic.StateName(r.Target),
		Window:          r.Window.String(),
		AfterSeconds:    int64(r.TriggerAfter / time.Second),
		CooldownSeconds: int64(r.Cooldown / time.Second),
		Phase:           string(r.Phase),
		EpisodeStart:    formatTime(r.EpisodeStart),
		LastNotified:    formatTime(r.LastNotified),
	}
}

func buildInner(snap Snapshot) StatusInner {
	alarms := make([]AlarmJSON, len(snap.Alarms))
	for i, r := range snap.Alarms {
		alarms[i] = buildAlarm(r)
	}

	return StatusInner{
		Door:          snap.DoorState(),
		Ready:         snap.Ready,
		LastChange:    formatTime(snap.LastChange),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Opens:      snap.Counts.Opens,
			Closes:     snap.Counts.Closes,
			Alerts:     snap.Counts.Alerts,
			ReadErrors: snap.Counts.ReadErrors,
		},
		Alarms: alarms,
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			DebounceDepth: snap.Config.DebounceDepth,
			Pin:           snap.Config.Pin,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			DryRun:        snap.Config.DryRun,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
