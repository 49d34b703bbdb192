package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

// TestLoadAppliesDefaults checks a minimal file keeps the default alarms.
func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cfg.yaml", "dry_run: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.PollInterval)
	require.Equal(t, 3, cfg.DebounceDepth)
	require.Equal(t, "gpiochip0", cfg.GPIO.Chip)
	require.Equal(t, 20, cfg.GPIO.Pin)
	require.Len(t, cfg.Alarms, 2)
	require.Equal(t, "night alarm", cfg.Alarms[0].Name)
	require.Equal(t, 20, *cfg.Alarms[0].Window.Start)
	require.Equal(t, 10, *cfg.Alarms[0].Window.End)
}

// TestLoadOverridesBeforeValidate checks flag overrides can satisfy validation.
func TestLoadOverridesBeforeValidate(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cfg.yaml", "log_level: warn\n")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)

	cfg, err := Load(path, func(c *Config) { c.DryRun = true }, func(c *Config) { c.LogLevel = "debug" })
	require.NoError(t, err)
	require.True(t, cfg.DryRun)
	require.Equal(t, "debug", cfg.LogLevel)
}

// TestLoadAlarms checks alarms from the file replace the defaults.
func TestLoadAlarms(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cfg.yaml", `
dry_run: true
poll_interval: 500ms
debounce_depth: 4
alarms:
  - name: left open overnight
    state: open
    after: 5m
    cooldown: 1h
    window: {start: 22, end: 6}
  - name: closed at noon
    state: closed
    after: 0s
    cooldown: 24h
    window: {start: 0, end: 0}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	require.Equal(t, 4, cfg.DebounceDepth)
	require.Len(t, cfg.Alarms, 2)
	require.Equal(t, 5*time.Minute, cfg.Alarms[0].After)
	require.Equal(t, time.Hour, cfg.Alarms[0].Cooldown)
	require.Equal(t, 0, *cfg.Alarms[1].Window.Start)

	rules := cfg.Rules()
	require.Len(t, rules, 2)
	require.Equal(t, "left open overnight", rules[0].Name())

	s := rules[0].Status()
	require.True(t, s.Target)
	require.Equal(t, 22, s.Window.Start)
	require.Equal(t, 6, s.Window.End)
	require.False(t, rules[1].Status().Target)
}

// TestLoadMissingWindowBound is the fatal startup error case.
func TestLoadMissingWindowBound(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cfg.yaml", `
dry_run: true
alarms:
  - name: broken
    state: open
    after: 1m
    window: {start: 20}
`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
	require.Contains(t, err.Error(), "window start and end are required")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadCredentialsFile(t *testing.T) {
	t.Parallel()

	creds := writeFile(t, "twilio.txt", "AC123\nsecret\n+15550000000\n")
	path := writeFile(t, "cfg.yaml", "recipient: \"+15551234567\"\nsms:\n  credentials_file: "+creds+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "AC123", cfg.SMS.AccountSID)
	require.Equal(t, "secret", cfg.SMS.AuthToken)
	require.Equal(t, "+15550000000", cfg.SMS.From)
}

func TestLoadShortCredentialsFile(t *testing.T) {
	t.Parallel()

	creds := writeFile(t, "twilio.txt", "AC123\n")
	path := writeFile(t, "cfg.yaml", "sms:\n  credentials_file: "+creds+"\n")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
}

// TestValidate checks required fields and ranges.
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero depth", func(c *Config) { c.DebounceDepth = 0 }},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }},
		{"no database", func(c *Config) { c.Database = "" }},
		{"no recipient", func(c *Config) { c.DryRun = false; c.SMS = SMS{AccountSID: "a", AuthToken: "b", From: "c"} }},
		{"no sms credentials", func(c *Config) { c.DryRun = false; c.Recipient = "+1" }},
		{"empty alarm name", func(c *Config) { c.Alarms[0].Name = "" }},
		{"duplicate alarm name", func(c *Config) { c.Alarms[1].Name = c.Alarms[0].Name }},
		{"bad state", func(c *Config) { c.Alarms[0].State = "ajar" }},
		{"negative after", func(c *Config) { c.Alarms[0].After = -time.Second }},
		{"hour out of range", func(c *Config) { c.Alarms[0].Window.End = intPtr(25) }},
		{"missing end", func(c *Config) { c.Alarms[1].Window.End = nil }},
		{"preamble too long", func(c *Config) { c.SMS.MaxLength = 10; c.SMS.Preamble = "0123456789" }},
		{"bad daily report", func(c *Config) { c.DailyReport = "every tuesday" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.DryRun = true
			tt.mutate(cfg)
			require.ErrorIs(t, Validate(cfg), ErrInvalid)
		})
	}

	cfg := Default()
	cfg.DryRun = true
	require.NoError(t, Validate(cfg))
}
