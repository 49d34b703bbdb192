package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/garage-sensor/internal/logic"
	"github.com/sweeney/garage-sensor/internal/metrics"
	"github.com/sweeney/garage-sensor/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	cfg := status.Config{
		PollMs:        3000,
		DebounceDepth: 3,
		Pin:           20,
		Broker:        "tcp://192.168.1.200:1883",
		HTTPAddr:      ":8080",
	}
	tr := status.NewTracker(start, cfg)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := New(":0", tr, reg)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func nightAlarm(phase logic.Phase) logic.RuleStatus {
	return logic.RuleStatus{
		Name:         "night alarm",
		Target:       true,
		Window:       logic.Window{Start: 20, End: 10},
		TriggerAfter: 2 * time.Minute,
		Cooldown:     30 * time.Minute,
		Phase:        phase,
	}
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.Reading{Time: start, Open: true}, true, status.Counts{Opens: 5, Closes: 4}, []logic.RuleStatus{nightAlarm(logic.PhaseCounting)})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Door != "OPEN" {
		t.Errorf("Door: got %q, want OPEN", sj.Status.Door)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Opens != 5 || sj.Status.Counts.Closes != 4 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if len(sj.Status.Alarms) != 1 || sj.Status.Alarms[0].Phase != "COUNTING" {
		t.Errorf("Alarms: got %+v", sj.Status.Alarms)
	}
	if sj.Status.Config.PollMs != 3000 || sj.Status.Config.Pin != 20 {
		t.Errorf("Config: got %+v", sj.Status.Config)
	}
}

func TestJSONUnknownStateBeforeFirstRead(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Door != "UNKNOWN" {
		t.Errorf("Door before first read: got %q, want UNKNOWN", sj.Status.Door)
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false")
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.Reading{Time: start, Open: false}, true, status.Counts{Opens: 2}, []logic.RuleStatus{nightAlarm(logic.PhaseIdle)})

	code, ct, body := getBody(t, ts.URL+"/")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{"Garage Sensor", "CLOSED", "night alarm", "20:00-10:00", "IDLE"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, _, body := getBody(t, ts.URL+"/index.html")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if !strings.Contains(body, "none configured") {
		t.Error("expected empty alarm table")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, _, _ := getBody(t, ts.URL+"/nonexistent")
	if code != 404 {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.ObserveTransition(true)
	m.ObserveAlert("night alarm")

	code, _, body := getBody(t, ts.URL+"/metrics")
	if code != 200 {
		t.Fatalf("status: got %d, want 200", code)
	}
	for _, want := range []string{
		`garage_door_transitions_total{state="open"} 1`,
		`garage_alarm_alerts_total{rule="night alarm"} 1`,
		"garage_door_open 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	srv := New(":0", status.NewTracker(start, status.Config{}), nil)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	// Falls through to the index handler, which rejects unknown paths.
	code, _, _ := getBody(t, ts.URL+"/metrics")
	if code != 404 {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	if getJSON(t, ts.URL+"/index.json").Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Update(logic.Reading{Time: start.Add(time.Minute), Open: false}, true, status.Counts{Closes: 1}, nil)
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Door != "CLOSED" {
		t.Errorf("Door: got %q, want CLOSED", sj.Status.Door)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
