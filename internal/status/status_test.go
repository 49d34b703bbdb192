package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/garage-sensor/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func nightAlarm() logic.RuleStatus {
	return logic.RuleStatus{
		Name:         "night alarm",
		Target:       true,
		Window:       logic.Window{Start: 20, End: 10},
		TriggerAfter: 2 * time.Minute,
		Cooldown:     30 * time.Minute,
		Phase:        logic.PhaseArmed,
		EpisodeStart: start.Add(21 * time.Hour),
		LastNotified: start.Add(21*time.Hour + 2*time.Minute),
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{PollMs: 3000, DebounceDepth: 3, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config != cfg {
		t.Errorf("Config: got %+v, want %+v", snap.Config, cfg)
	}
	if snap.Ready {
		t.Error("expected Ready=false initially")
	}
	if snap.DoorState() != "UNKNOWN" {
		t.Errorf("DoorState: got %q, want UNKNOWN", snap.DoorState())
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	changed := start.Add(time.Hour)

	tr.Update(logic.Reading{Time: changed, Open: true}, true, Counts{Opens: 3, Closes: 2, Alerts: 1}, []logic.RuleStatus{nightAlarm()})

	snap := tr.Snapshot()
	if snap.DoorState() != "OPEN" {
		t.Errorf("DoorState: got %q, want OPEN", snap.DoorState())
	}
	if !snap.LastChange.Equal(changed) {
		t.Errorf("LastChange: got %v", snap.LastChange)
	}
	if snap.Counts.Opens != 3 || snap.Counts.Closes != 2 || snap.Counts.Alerts != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if len(snap.Alarms) != 1 || snap.Alarms[0].Phase != logic.PhaseArmed {
		t.Errorf("Alarms: got %+v", snap.Alarms)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Minute)}
	if snap.Uptime() != 90*time.Minute {
		t.Errorf("Uptime: got %v", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	alarms := []logic.RuleStatus{nightAlarm()}
	tr.Update(logic.Reading{}, true, Counts{}, alarms)

	alarms[0].Name = "mutated by caller"
	snap := tr.Snapshot()
	snap.Alarms[0].Phase = logic.PhaseIdle

	again := tr.Snapshot()
	if again.Alarms[0].Name != "night alarm" {
		t.Errorf("tracker shares the caller's slice: %q", again.Alarms[0].Name)
	}
	if again.Alarms[0].Phase != logic.PhaseArmed {
		t.Errorf("snapshot shares the tracker's slice: %q", again.Alarms[0].Phase)
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Open:          false,
		Ready:         true,
		LastChange:    start.Add(time.Hour),
		Counts:        Counts{Opens: 5, Closes: 5, ReadErrors: 2},
		Alarms:        []logic.RuleStatus{nightAlarm()},
		StartTime:     start,
		Now:           start.Add(2 * time.Hour),
		MQTTConnected: true,
		Config:        Config{PollMs: 3000, DebounceDepth: 3, Pin: 20, Broker: "tcp://broker:1883", HTTPAddr: ":8080"},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Door != "CLOSED" || !s.Ready {
		t.Errorf("door/ready: got %s/%v", s.Door, s.Ready)
	}
	if s.UptimeSeconds != 7200 {
		t.Errorf("uptime: got %d", s.UptimeSeconds)
	}
	if s.LastChange != "2026-01-01T01:00:00Z" {
		t.Errorf("last_change: got %s", s.LastChange)
	}
	if s.Counts.Opens != 5 || s.Counts.ReadErrors != 2 {
		t.Errorf("counts: got %+v", s.Counts)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("mqtt: got %+v", s.MQTT)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("web status should not carry event/reason")
	}

	if len(s.Alarms) != 1 {
		t.Fatalf("alarms: got %d", len(s.Alarms))
	}
	a := s.Alarms[0]
	if a.Name != "night alarm" || a.State != "open" || a.Window != "20:00-10:00" {
		t.Errorf("alarm: got %+v", a)
	}
	if a.AfterSeconds != 120 || a.CooldownSeconds != 1800 || a.Phase != "ARMED" {
		t.Errorf("alarm timing: got %+v", a)
	}
	if a.LastNotified != "2026-01-01T21:02:00Z" {
		t.Errorf("last_notified: got %s", a.LastNotified)
	}
}

func TestFormatJSONIdleAlarmOmitsTimes(t *testing.T) {
	snap := Snapshot{
		Alarms:    []logic.RuleStatus{{Name: "day alarm", Phase: logic.PhaseIdle}},
		StartTime: start,
		Now:       start,
	}

	data := string(FormatJSON(snap))
	if strings.Contains(data, "episode_start") || strings.Contains(data, "last_notified") {
		t.Errorf("idle alarm should omit timestamps: %s", data)
	}
	if !strings.Contains(data, `"door": "UNKNOWN"`) {
		t.Errorf("expected UNKNOWN door before first read: %s", data)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{Ready: true, Open: true, StartTime: start, Now: start}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %s/%s", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.Door != "OPEN" {
		t.Errorf("door: got %s", parsed.Status.Door)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := string(FormatStatusEvent(Snapshot{StartTime: start, Now: start}, "STARTUP", ""))
	if strings.Contains(data, `"reason"`) {
		t.Errorf("expected no reason field: %s", data)
	}
	if strings.Contains(data, "\n") {
		t.Error("MQTT payload should be compact")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.Reading{Open: i%2 == 0}, true, Counts{Opens: i}, []logic.RuleStatus{nightAlarm()})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
