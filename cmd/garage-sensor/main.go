// Command garage-sensor watches the garage door switch, records every
// confirmed open and close, and texts an alarm when the door is left open.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeney/garage-sensor/internal/config"
	"github.com/sweeney/garage-sensor/internal/gpio"
	"github.com/sweeney/garage-sensor/internal/logger"
	"github.com/sweeney/garage-sensor/internal/logic"
	"github.com/sweeney/garage-sensor/internal/metrics"
	"github.com/sweeney/garage-sensor/internal/mqtt"
	"github.com/sweeney/garage-sensor/internal/notify"
	"github.com/sweeney/garage-sensor/internal/report"
	"github.com/sweeney/garage-sensor/internal/status"
	"github.com/sweeney/garage-sensor/internal/store"
	"github.com/sweeney/garage-sensor/internal/web"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	dryRun     bool
	logLevel   string
	printState bool

	rootCmd = &cobra.Command{
		Use:   "garage-sensor",
		Short: "Monitor the garage door and send alarms when it is left open.",
		Long: `Polls the door switch on a GPIO line, debounces the readings and records
every confirmed open and close in a local SQLite log.

Configured alarms fire a text message when the door stays in a given state
for too long inside a daily time window, and repeat after a cooldown while
the condition persists. A daily report summarizes the last 24 hours.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log messages instead of sending SMS")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&printState, "print-state", false, "print the current door state and exit")
}

func run(cmd *cobra.Command) error {
	flags := cmd.Flags()
	cfg, err := config.Load(configPath, func(c *config.Config) {
		if flags.Changed("dry-run") {
			c.DryRun = dryRun
		}
		if flags.Changed("log-level") {
			c.LogLevel = logLevel
		}
		if printState {
			// Reading the line needs no credentials.
			c.DryRun = true
		}
	})
	if err != nil {
		return err
	}

	level, ok := logger.ParseLevel(cfg.LogLevel)
	log := logger.New(level)
	defer log.Sync() //nolint:errcheck
	if !ok {
		log.Warnw("unknown log level, using info", "log_level", cfg.LogLevel)
	}

	reader, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.GPIO.Pin, cfg.GPIO.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if printState {
		open, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Println(gpio.StateString(open))
		return nil
	}

	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	notifier := buildNotifier(cfg, st, log)

	var (
		publisher  mqtt.Publisher = mqtt.NopPublisher{}
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.MQTT.Broker != "" {
		rp := mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			BufferSize:  cfg.MQTT.BufferSize,
		}, log)
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:        cfg.PollInterval.Milliseconds(),
		DebounceDepth: cfg.DebounceDepth,
		Pin:           cfg.GPIO.Pin,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTPAddr,
		DryRun:        cfg.DryRun,
	})

	rules := cfg.Rules()
	d := &daemon{
		reader:     reader,
		store:      st,
		notifier:   notifier,
		escalation: notify.NewThrottle(notifier, cfg.StorageAlertCooldown, nil),
		recipient:  cfg.Recipient,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    m,
		engine:     logic.NewEngine(rules...),
		depth:      cfg.DebounceDepth,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	d.startup(ctx, ruleNames(rules), cfg.StartupMessage)

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", cfg.HTTPAddr)
	}

	if cfg.DailyReport != "" {
		scheduler, err := report.NewScheduler(report.Options{
			Spec:      cfg.DailyReport,
			Store:     st,
			Notifier:  notifier,
			Recipient: cfg.Recipient,
			Metrics:   m,
			Log:       log,
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Infow("started",
		"poll", cfg.PollInterval,
		"debounce_depth", cfg.DebounceDepth,
		"alarms", len(rules),
		"dry_run", cfg.DryRun,
		"broker", cfg.MQTT.Broker,
	)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(ctx, ticker.C, sigCh)
}

// buildNotifier returns the SMS client, or a logging notifier in dry-run
// mode. Every delivered SMS is recorded in the event log.
func buildNotifier(cfg *config.Config, st store.Store, log *zap.SugaredLogger) notify.Notifier {
	if cfg.DryRun {
		return notify.NewDryRun(log)
	}

	sms := notify.NewSMS(notify.SMSConfig{
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		From:       cfg.SMS.From,
		BaseURL:    cfg.SMS.BaseURL,
		MaxLength:  cfg.SMS.MaxLength,
		Preamble:   cfg.SMS.Preamble,
	})
	sms.OnSent(func(message string) {
		if err := st.Record(context.Background(), store.KindSMSSent, time.Now(), message); err != nil {
			log.Warnw("failed to record sent sms", "error", err)
		}
	})
	return sms
}

func ruleNames(rules []*logic.Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name()
	}
	return names
}
