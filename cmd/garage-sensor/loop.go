package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/garage-sensor/internal/gpio"
	"github.com/sweeney/garage-sensor/internal/logic"
	"github.com/sweeney/garage-sensor/internal/metrics"
	"github.com/sweeney/garage-sensor/internal/mqtt"
	"github.com/sweeney/garage-sensor/internal/notify"
	"github.com/sweeney/garage-sensor/internal/status"
	"github.com/sweeney/garage-sensor/internal/store"
)

// daemon owns the polling loop state and its collaborators. Only the loop
// goroutine touches the monitor and engine.
type daemon struct {
	reader     gpio.Reader
	store      store.Store
	notifier   notify.Notifier // alarm and startup messages
	escalation notify.Notifier // storage failures, throttled
	recipient  string
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	engine     *logic.Engine
	depth      int
	log        *zap.SugaredLogger
	now        func() time.Time
	newID      func() string

	monitor *logic.Monitor // built on the first successful read
	counts  status.Counts
}

// startup records the lifecycle events of a fresh start, sends the online
// message and announces the daemon on MQTT.
func (d *daemon) startup(ctx context.Context, ruleNames []string, sendMessage bool) {
	t := d.now()
	d.record(ctx, store.KindStartupRequested, t, "")
	for _, name := range ruleNames {
		d.record(ctx, store.KindAlarmSet, t, name)
	}
	d.record(ctx, store.KindStartup, t, "success")

	if sendMessage {
		msg := fmt.Sprintf("GarageSensor is online: %s", t.Truncate(time.Second).Format(time.DateTime))
		err := d.notifier.Notify(ctx, msg, d.recipient)
		d.metrics.ObserveNotification("startup", err)
		if err != nil {
			d.log.Warnw("startup notification failed", "error", err)
		}
	}

	d.syncTracker()
	snap := d.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		d.log.Warnw("failed to publish startup event", "error", err)
	}
}

// runLoop samples the sensor on every tick until a signal arrives.
func (d *daemon) runLoop(ctx context.Context, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			d.shutdown(ctx, signalName(s))
			return nil
		case <-tick:
			if err := d.step(ctx); err != nil {
				return err
			}
		}
	}
}

// step runs one tick: read, debounce, record transitions, run the alarms.
func (d *daemon) step(ctx context.Context) error {
	t := d.now()
	open, err := d.reader.Read()
	if err != nil {
		d.log.Warnw("sensor read failed", "error", err)
		d.metrics.ObserveReadError()
		d.counts.ReadErrors++
		d.syncTracker()
		return nil
	}
	d.metrics.ObserveSample()
	reading := logic.Reading{Time: t, Open: open}

	if d.monitor == nil {
		m, err := logic.NewMonitor(d.depth, reading)
		if err != nil {
			return fmt.Errorf("init monitor: %w", err)
		}
		d.monitor = m
		d.metrics.SetDoorOpen(open)
		d.log.Infow("initial door state", "state", gpio.StateString(open))
	} else if tr := d.monitor.Sample(reading); tr != nil {
		d.handleTransition(ctx, *tr)
	}

	confirmed := d.monitor.Confirmed().Open
	for _, ev := range d.engine.Tick(t, confirmed) {
		d.handleAlert(ctx, ev)
	}

	d.log.Debugw("tick", "raw", gpio.StateString(open), "confirmed", gpio.StateString(confirmed))
	d.syncTracker()
	return nil
}

func (d *daemon) handleTransition(ctx context.Context, tr logic.Transition) {
	kind := store.KindDoorClose
	if tr.To {
		kind = store.KindDoorOpen
		d.counts.Opens++
	} else {
		d.counts.Closes++
	}
	d.metrics.ObserveTransition(tr.To)
	d.log.Infow("door transition", "event", tr.Description(), "at", tr.Timestamp)

	d.record(ctx, kind, tr.Timestamp, tr.Description())

	if err := d.publisher.PublishTransition(tr); err != nil {
		d.log.Warnw("failed to publish transition", "error", err)
	}
}

func (d *daemon) handleAlert(ctx context.Context, ev logic.AlertEvent) {
	msg := ev.Message()
	d.counts.Alerts++
	d.metrics.ObserveAlert(ev.Rule)
	d.log.Infow("alarm fired", "rule", ev.Rule, "elapsed", ev.Elapsed, "total", ev.TotalElapsed)

	d.record(ctx, store.KindAlarmTriggered, ev.Timestamp, msg)

	err := d.notifier.Notify(ctx, msg, d.recipient)
	d.metrics.ObserveNotification("alert", err)
	if err != nil {
		d.log.Errorw("alarm notification failed", "rule", ev.Rule, "error", err)
	}

	if err := d.publisher.PublishAlert(mqtt.Alert{ID: d.newID(), Event: ev}); err != nil {
		d.log.Warnw("failed to publish alert", "rule", ev.Rule, "error", err)
	}
}

// record writes an event to the store. A failure is logged, recorded as a
// storage failure if possible and escalated through the throttled notifier.
func (d *daemon) record(ctx context.Context, kind store.Kind, at time.Time, value string) {
	err := d.store.Record(ctx, kind, at, value)
	if err == nil {
		return
	}

	d.metrics.ObserveStorageFailure()
	d.log.Errorw("failed to record event", "kind", kind, "error", err)

	if kind != store.KindStorageFailure {
		if ferr := d.store.Record(ctx, store.KindStorageFailure, at, err.Error()); ferr != nil {
			d.log.Debugw("failed to record storage failure", "error", ferr)
		}
	}

	nerr := d.escalation.Notify(ctx, err.Error(), d.recipient)
	switch {
	case errors.Is(nerr, notify.ErrThrottled):
		d.log.Debugw("storage failure notification throttled")
	case nerr != nil:
		d.metrics.ObserveNotification("storage", nerr)
		d.log.Warnw("storage failure notification failed", "error", nerr)
	default:
		d.metrics.ObserveNotification("storage", nil)
	}
}

func (d *daemon) shutdown(ctx context.Context, reason string) {
	t := d.now()
	d.log.Infow("shutting down", "signal", reason)
	d.record(ctx, store.KindShutdown, t, reason)

	d.syncTracker()
	snap := d.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		d.log.Warnw("failed to publish shutdown event", "error", err)
	}
}

// syncTracker copies loop state into the tracker for HTTP and MQTT readers.
func (d *daemon) syncTracker() {
	var confirmed logic.Reading
	if d.monitor != nil {
		confirmed = d.monitor.Confirmed()
	}
	d.tracker.Update(confirmed, d.monitor != nil, d.counts, d.engine.Status())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
