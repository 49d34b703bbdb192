// Package config loads and validates the garage-sensor YAML configuration.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/garage-sensor/internal/gpio"
	"github.com/sweeney/garage-sensor/internal/logic"
)

// DefaultConfigFilename is the default path of the configuration file.
const DefaultConfigFilename = "garage-sensor.yaml"

// ErrInvalid wraps every validation failure. It is fatal at startup.
var ErrInvalid = errors.New("invalid configuration")

// Config is the daemon configuration.
type Config struct {
	GPIO                 GPIO          `yaml:"gpio"`
	PollInterval         time.Duration `yaml:"poll_interval"`
	DebounceDepth        int           `yaml:"debounce_depth"`
	Database             string        `yaml:"database"`
	HTTPAddr             string        `yaml:"http_addr"`
	LogLevel             string        `yaml:"log_level"`
	Recipient            string        `yaml:"recipient"`
	DryRun               bool          `yaml:"dry_run"`
	StartupMessage       bool          `yaml:"startup_message"`
	StorageAlertCooldown time.Duration `yaml:"storage_alert_cooldown"`
	DailyReport          string        `yaml:"daily_report"`
	MQTT                 MQTT          `yaml:"mqtt"`
	SMS                  SMS           `yaml:"sms"`
	Alarms               []Alarm       `yaml:"alarms"`
}

// GPIO selects the door switch line.
type GPIO struct {
	Chip      string `yaml:"chip"`
	Pin       int    `yaml:"pin"`
	ActiveLow bool   `yaml:"active_low"`
}

// MQTT configures the live event feed. An empty broker disables it.
type MQTT struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"`
}

// SMS configures the Twilio-compatible SMS notifier.
type SMS struct {
	AccountSID      string `yaml:"account_sid"`
	AuthToken       string `yaml:"auth_token"`
	From            string `yaml:"from"`
	CredentialsFile string `yaml:"credentials_file"`
	MaxLength       int    `yaml:"max_length"`
	Preamble        string `yaml:"preamble"`
	BaseURL         string `yaml:"base_url"`
}

// Alarm is one configured alarm rule. Window bounds are pointers so a
// missing bound can be told apart from hour 0.
type Alarm struct {
	Name     string        `yaml:"name"`
	State    string        `yaml:"state"`
	After    time.Duration `yaml:"after"`
	Cooldown time.Duration `yaml:"cooldown"`
	Window   AlarmWindow   `yaml:"window"`
}

// AlarmWindow is the time-of-day window of an alarm, in hours.
type AlarmWindow struct {
	Start *int `yaml:"start"`
	End   *int `yaml:"end"`
}

func intPtr(v int) *int { return &v }

// Default returns the stock garage configuration: a night
// alarm and a day alarm on the door being open.
func Default() *Config {
	return &Config{
		GPIO: GPIO{
			Chip: gpio.DefaultChip,
			Pin:  gpio.DefaultPin,
		},
		PollInterval:         3 * time.Second,
		DebounceDepth:        3,
		Database:             "pigarage.db",
		HTTPAddr:             ":8080",
		LogLevel:             "info",
		StartupMessage:       true,
		StorageAlertCooldown: time.Minute,
		DailyReport:          "@midnight",
		MQTT: MQTT{
			ClientID:    "garage-sensor",
			TopicPrefix: "garage/door",
			BufferSize:  100,
		},
		SMS: SMS{
			MaxLength: 160,
		},
		Alarms: []Alarm{
			{
				Name:     "night alarm",
				State:    "open",
				After:    2 * time.Minute,
				Cooldown: 30 * time.Minute,
				Window:   AlarmWindow{Start: intPtr(20), End: intPtr(10)},
			},
			{
				Name:     "day alarm",
				State:    "open",
				After:    30 * time.Minute,
				Cooldown: 2 * time.Hour,
				Window:   AlarmWindow{Start: intPtr(10), End: intPtr(20)},
			},
		},
	}
}

// Load reads the YAML file at path over the defaults, resolves the SMS
// credentials file, applies overrides (command-line flags) and validates
// the result.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.SMS.CredentialsFile != "" {
		if err := cfg.SMS.loadCredentials(); err != nil {
			return nil, err
		}
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadCredentials reads account SID, auth token and sender number from
// three lines of the credentials file. Values already set in YAML win.
func (s *SMS) loadCredentials() error {
	f, err := os.Open(filepath.Clean(s.CredentialsFile))
	if err != nil {
		return fmt.Errorf("open sms credentials: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < 3 {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read sms credentials: %w", err)
	}
	if len(lines) < 3 {
		return fmt.Errorf("%w: sms credentials file needs 3 lines, got %d", ErrInvalid, len(lines))
	}

	if s.AccountSID == "" {
		s.AccountSID = lines[0]
	}
	if s.AuthToken == "" {
		s.AuthToken = lines[1]
	}
	if s.From == "" {
		s.From = lines[2]
	}
	return nil
}

// Validate checks required fields and ranges.
func Validate(cfg *Config) error {
	if cfg.DebounceDepth < 1 {
		return fmt.Errorf("%w: debounce_depth must be >= 1, got %d", ErrInvalid, cfg.DebounceDepth)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalid)
	}
	if cfg.GPIO.Pin < 0 {
		return fmt.Errorf("%w: gpio.pin must be >= 0", ErrInvalid)
	}
	if cfg.Database == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalid)
	}
	if cfg.StorageAlertCooldown < 0 {
		return fmt.Errorf("%w: storage_alert_cooldown must be >= 0", ErrInvalid)
	}
	if cfg.DailyReport != "" {
		if _, err := cron.ParseStandard(cfg.DailyReport); err != nil {
			return fmt.Errorf("%w: daily_report: %v", ErrInvalid, err)
		}
	}

	if !cfg.DryRun {
		if cfg.Recipient == "" {
			return fmt.Errorf("%w: recipient is required unless dry_run is set", ErrInvalid)
		}
		if cfg.SMS.AccountSID == "" || cfg.SMS.AuthToken == "" || cfg.SMS.From == "" {
			return fmt.Errorf("%w: sms account_sid, auth_token and from are required unless dry_run is set", ErrInvalid)
		}
	}
	if cfg.SMS.MaxLength > 0 && len(cfg.SMS.Preamble) >= cfg.SMS.MaxLength {
		return fmt.Errorf("%w: sms preamble leaves no room for the message", ErrInvalid)
	}

	seen := make(map[string]bool, len(cfg.Alarms))
	for i, a := range cfg.Alarms {
		if a.Name == "" {
			return fmt.Errorf("%w: alarms[%d]: name is required", ErrInvalid, i)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: alarms[%d]: duplicate name %q", ErrInvalid, i, a.Name)
		}
		seen[a.Name] = true

		if _, err := logic.ParseState(a.State); err != nil {
			return fmt.Errorf("%w: alarm %q: %v", ErrInvalid, a.Name, err)
		}
		if a.After < 0 || a.Cooldown < 0 {
			return fmt.Errorf("%w: alarm %q: after and cooldown must be >= 0", ErrInvalid, a.Name)
		}
		if a.Window.Start == nil || a.Window.End == nil {
			return fmt.Errorf("%w: alarm %q: window start and end are required", ErrInvalid, a.Name)
		}
		w := logic.Window{Start: *a.Window.Start, End: *a.Window.End}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("%w: alarm %q: %v", ErrInvalid, a.Name, err)
		}
	}

	return nil
}

// Rules builds the alarm rules in configuration order. The config must
// already be validated.
func (c *Config) Rules() []*logic.Rule {
	rules := make([]*logic.Rule, 0, len(c.Alarms))
	for _, a := range c.Alarms {
		target, _ := logic.ParseState(a.State)
		rules = append(rules, logic.NewRule(logic.RuleConfig{
			Name:         a.Name,
			Target:       target,
			TriggerAfter: a.After,
			Cooldown:     a.Cooldown,
			Window:       logic.Window{Start: *a.Window.Start, End: *a.Window.End},
		}))
	}
	return rules
}
