// Package report builds and schedules the daily status text message.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sweeney/garage-sensor/internal/metrics"
	"github.com/sweeney/garage-sensor/internal/notify"
	"github.com/sweeney/garage-sensor/internal/store"
)

// Period is the look-back of the daily report.
const Period = 24 * time.Hour

// Build formats the report text for summary as of now.
func Build(summary store.Summary, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Log - generated at: %s\n", now.Truncate(time.Second).Format(time.DateTime))
	fmt.Fprintf(&b, "%s: %d\n", store.KindDoorOpen, summary.Opens)
	fmt.Fprintf(&b, "%s: %d\n", store.KindDoorClose, summary.Closes)
	if summary.Alarms > 0 {
		fmt.Fprintf(&b, "%s: %d\n", store.KindAlarmTriggered, summary.Alarms)
	}
	if summary.LastStartup.IsZero() {
		b.WriteString("uptime: unknown\n")
	} else {
		fmt.Fprintf(&b, "uptime: %s\n", summary.Uptime(now).Truncate(time.Second))
	}
	return b.String()
}

// Options configures a Scheduler.
type Options struct {
	Spec      string // cron spec, e.g. "@midnight"
	Store     store.Store
	Notifier  notify.Notifier
	Recipient string
	Metrics   *metrics.Metrics // optional
	Log       *zap.SugaredLogger
	Now       func() time.Time // optional, defaults to time.Now
	Location  *time.Location   // optional, defaults to time.Local
}

// Scheduler sends the daily report on a cron schedule.
type Scheduler struct {
	opts Options
	cron *cron.Cron
}

// NewScheduler parses the schedule and registers the report job.
// The scheduler does nothing until Start.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	s := &Scheduler{opts: opts}
	logger := cronLogger{opts.Log}
	s.cron = cron.New(
		cron.WithLocation(opts.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := s.cron.AddFunc(opts.Spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule daily report %q: %w", opts.Spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		s.opts.Log.Errorw("daily report failed", "error", err)
	}
}

// RunOnce builds and sends one report immediately.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.opts.Now()
	summary, err := s.opts.Store.Summary(ctx, now, Period)
	if err != nil {
		return fmt.Errorf("summarize event log: %w", err)
	}

	text := Build(summary, now)
	err = s.opts.Notifier.Notify(ctx, text, s.opts.Recipient)
	s.opts.Metrics.ObserveNotification("report", err)
	if err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}

	s.opts.Log.Infow("daily report sent", "opens", summary.Opens, "closes", summary.Closes)
	return nil
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.opts.Log.Infow("daily report scheduled", "spec", s.opts.Spec)
}

// Stop halts the schedule and waits for a running report to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
