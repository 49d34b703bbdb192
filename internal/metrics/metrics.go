// Package metrics exposes Prometheus counters for the polling loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "garage_"

// Metrics holds the daemon's collectors. A nil *Metrics is valid and records
// nothing, so components can be built without a registry.
type Metrics struct {
	samples          prometheus.Counter
	readErrors       prometheus.Counter
	transitions      *prometheus.CounterVec
	alerts           *prometheus.CounterVec
	storageFailures  prometheus.Counter
	notifyFailures   *prometheus.CounterVec
	notificationSent *prometheus.CounterVec
	doorOpen         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "sensor_samples_total",
			Help: "Total successful sensor reads",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "sensor_read_errors_total",
			Help: "Total failed sensor reads",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "door_transitions_total",
			Help: "Total confirmed door transitions by resulting state",
		}, []string{"state"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "alarm_alerts_total",
			Help: "Total alarm notifications fired by rule",
		}, []string{"rule"}),
		storageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "storage_failures_total",
			Help: "Total failed event log writes",
		}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "notification_failures_total",
			Help: "Total failed notifications by kind",
		}, []string{"kind"}),
		notificationSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "notifications_sent_total",
			Help: "Total delivered notifications by kind",
		}, []string{"kind"}),
		doorOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "door_open",
			Help: "Confirmed door state (1 = open)",
		}),
	}

	reg.MustRegister(
		m.samples,
		m.readErrors,
		m.transitions,
		m.alerts,
		m.storageFailures,
		m.notifyFailures,
		m.notificationSent,
		m.doorOpen,
	)
	return m
}

// ObserveSample counts a successful sensor read.
func (m *Metrics) ObserveSample() {
	if m == nil {
		return
	}
	m.samples.Inc()
}

// ObserveReadError counts a failed sensor read.
func (m *Metrics) ObserveReadError() {
	if m == nil {
		return
	}
	m.readErrors.Inc()
}

// SetDoorOpen sets the confirmed door state gauge.
func (m *Metrics) SetDoorOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.doorOpen.Set(1)
	} else {
		m.doorOpen.Set(0)
	}
}

// ObserveTransition counts a confirmed transition and updates the door gauge.
func (m *Metrics) ObserveTransition(open bool) {
	if m == nil {
		return
	}
	state := "closed"
	if open {
		state = "open"
	}
	m.transitions.WithLabelValues(state).Inc()
	m.SetDoorOpen(open)
}

// ObserveAlert counts a fired alarm.
func (m *Metrics) ObserveAlert(rule string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(rule).Inc()
}

// ObserveStorageFailure counts a failed event log write.
func (m *Metrics) ObserveStorageFailure() {
	if m == nil {
		return
	}
	m.storageFailures.Inc()
}

// ObserveNotification counts a notification outcome. kind is one of
// "alert", "startup", "storage", "report".
func (m *Metrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.notifyFailures.WithLabelValues(kind).Inc()
		return
	}
	m.notificationSent.WithLabelValues(kind).Inc()
}
