// Package config handles TOML configuration loading with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the config file read when no -config flag is given.
const DefaultPath = "/etc/nas-notifier.toml"

// Config is the top-level configuration for nas-notifier.
type Config struct {
	PollDurationSeconds int                 `toml:"poll-duration-seconds"`
	AuthLog             string              `toml:"auth-log"`
	Telegram            TelegramConfig      `toml:"telegram"`
	Ntfy                NtfyConfig          `toml:"ntfy"`
	Notifications       NotificationsConfig `toml:"notifications"`
	Zpool               ZpoolConfig         `toml:"zpool"`
	History             HistoryConfig       `toml:"history"`
	Log                 LogConfig           `toml:"log"`
}

// TelegramConfig controls the Telegram notification target.
type TelegramConfig struct {
	UserID   int64  `toml:"user-id"`
	Hostname string `toml:"hostname"`
	APIKey   string `toml:"api-key"`
	// Timeout bounds a single send. Zero means no timeout.
	Timeout Duration `toml:"timeout"`
}

// NtfyConfig controls the optional ntfy notification target.
type NtfyConfig struct {
	URL      string   `toml:"url"`
	Priority string   `toml:"priority"`
	Timeout  Duration `toml:"timeout"`
}

// NotificationsConfig holds the feature toggles. Unset toggles are disabled.
type NotificationsConfig struct {
	NewLoginIP  bool     `toml:"new-login-ip"`
	KnownIPs    []string `toml:"known-ips"`
	FailedLogin bool     `toml:"failed-login"`
	PoolHealth  bool     `toml:"pool-health"`
}

// ZpoolConfig controls how pool health is queried.
type ZpoolConfig struct {
	Command string `toml:"command"`
}

// HistoryConfig controls the notification history database.
// History is opt-in: without a path the daemon writes no files.
type HistoryConfig struct {
	// Path of the SQLite database. Empty disables history.
	Path      string   `toml:"path"`
	Retention Duration `toml:"retention"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "5m", "1h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return &Config{
		PollDurationSeconds: 30,
		AuthLog:             "/var/log/auth.log",
		Telegram: TelegramConfig{
			Hostname: hostname,
		},
		Ntfy: NtfyConfig{
			Priority: "high",
		},
		Zpool: ZpoolConfig{
			Command: "zpool",
		},
		History: HistoryConfig{
			Retention: Duration{90 * 24 * time.Hour},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given path on top of the defaults.
// A missing or unreadable file is an error: the daemon must not start
// with credentials it was never given.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the values Load cannot express through TOML types.
func (c *Config) Validate() error {
	if c.PollDurationSeconds <= 0 {
		return errors.New("poll-duration-seconds must be positive")
	}
	if c.AnyEnabled() && c.Telegram.APIKey == "" && c.Ntfy.URL == "" {
		return errors.New("notifications are enabled but neither telegram.api-key nor ntfy.url is set")
	}
	if (c.Notifications.NewLoginIP || c.Notifications.FailedLogin) && c.AuthLog == "" {
		return errors.New("login notifications are enabled but auth-log is empty")
	}
	return nil
}

// PollInterval returns the configured sleep between polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollDurationSeconds) * time.Second
}

// LoginEnabled reports whether the auth log needs to be read at all.
func (c *Config) LoginEnabled() bool {
	return c.Notifications.NewLoginIP || c.Notifications.FailedLogin
}

// AnyEnabled reports whether any notification toggle is on.
func (c *Config) AnyEnabled() bool {
	return c.LoginEnabled() || c.Notifications.PoolHealth
}
