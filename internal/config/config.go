// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/cashdesk/internal/logging"
	"github.com/jeranaias/cashdesk/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete cashdesk configuration.
type Config struct {
	App     AppConfig     `toml:"app"`
	API     APIConfig     `toml:"api"`
	Session SessionConfig `toml:"session"`
	Network NetworkConfig `toml:"network"`
	Store   StoreConfig   `toml:"store"`
	Log     LogConfig     `toml:"log"`
}

// AppConfig identifies the client build to the version check.
type AppConfig struct {
	Version string `toml:"version"`
}

// APIConfig contains the remote API endpoint and per-call timeouts.
type APIConfig struct {
	// BaseURL is the API root; /auth/login etc. are joined onto it.
	BaseURL        string   `toml:"base_url"`
	LogoutTimeout  Duration `toml:"logout_timeout"`
	LoginTimeout   Duration `toml:"login_timeout"`
	VersionTimeout Duration `toml:"version_timeout"`
}

// SessionConfig contains the guard durations.
type SessionConfig struct {
	// InactivityTimeout is how long the app may sit in background before a
	// forced logout.
	InactivityTimeout Duration `toml:"inactivity_timeout"`
	// OfflineGrace is how long connectivity may stay lost before a
	// local-only logout.
	OfflineGrace Duration `toml:"offline_grace"`
}

// NetworkConfig contains the probe and monitor cadences.
type NetworkConfig struct {
	ProbeInterval   Duration `toml:"probe_interval"`
	MonitorInterval Duration `toml:"monitor_interval"`
}

// StoreConfig contains the session store location and optional sealing key.
type StoreConfig struct {
	// Path is the SQLite file (empty = ~/.cashdesk/session.db).
	Path string `toml:"path"`
	// EncryptionKey seals stored values when non-empty.
	EncryptionKey string `toml:"encryption_key"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	// Path is the log file (empty = ~/.cashdesk/cashdesk.log).
	Path string `toml:"path"`
}

// Duration is a time.Duration that reads and writes Go duration strings
// ("30s", "1m30s") in TOML.
type Duration struct {
	time.Duration
}

// Dur wraps d.
func Dur(d time.Duration) Duration { return Duration{d} }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default values.
const (
	DefaultBaseURL           = "https://api.cashdesk.local"
	DefaultLogoutTimeout     = 5 * time.Second
	DefaultLoginTimeout      = 15 * time.Second
	DefaultVersionTimeout    = 10 * time.Second
	DefaultInactivityTimeout = 30 * time.Second
	DefaultOfflineGrace      = 3 * time.Second
	DefaultProbeInterval     = 10 * time.Second
	DefaultMonitorInterval   = 2 * time.Second
	DefaultLogLevel          = "info"
	DefaultAppVersion        = "1.0.0"
)

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		App: AppConfig{Version: DefaultAppVersion},
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			LogoutTimeout:  Dur(DefaultLogoutTimeout),
			LoginTimeout:   Dur(DefaultLoginTimeout),
			VersionTimeout: Dur(DefaultVersionTimeout),
		},
		Session: SessionConfig{
			InactivityTimeout: Dur(DefaultInactivityTimeout),
			OfflineGrace:      Dur(DefaultOfflineGrace),
		},
		Network: NetworkConfig{
			ProbeInterval:   Dur(DefaultProbeInterval),
			MonitorInterval: Dur(DefaultMonitorInterval),
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the cashdesk state directory (~/.cashdesk).
func ConfigDir() (string, error) {
	return util.HomeDir()
}

// ConfigPath returns the path of the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StorePath returns the effective session store path.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.db"), nil
}

// LogPath returns the effective log file path.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cashdesk.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.cashdesk/config.toml. A missing file is not
// an error: defaults plus environment overrides are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil || !fileExists(path) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func decodeFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		l := logging.Component("config")
		l.Warn().Str("path", path).Strs("keys", keys).Msg("CONFIG_UNKNOWN_KEYS")
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration atomically with 0600 permissions.
// The file may carry the store encryption key.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# cashdesk configuration file\n")
	buf.WriteString("# Durations are Go duration strings (\"30s\", \"1m\").\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors if any
// field is out of range.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: "must not be empty"})
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[/path]", c.API.BaseURL),
		})
	}

	positive := []struct {
		field string
		d     time.Duration
	}{
		{"api.logout_timeout", c.API.LogoutTimeout.Duration},
		{"api.login_timeout", c.API.LoginTimeout.Duration},
		{"api.version_timeout", c.API.VersionTimeout.Duration},
		{"session.inactivity_timeout", c.Session.InactivityTimeout.Duration},
		{"network.probe_interval", c.Network.ProbeInterval.Duration},
		{"network.monitor_interval", c.Network.MonitorInterval.Duration},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, ValidationError{
				Field:   p.field,
				Message: fmt.Sprintf("must be positive, got %s", p.d),
			})
		}
	}

	// Zero grace is allowed: logout on the next tick after going offline.
	if c.Session.OfflineGrace.Duration < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.offline_grace",
			Message: fmt.Sprintf("must not be negative, got %s", c.Session.OfflineGrace.Duration),
		})
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values with defaults. Explicit negative values are
// left alone so Validate can report them.
func (c *Config) SetDefaults() {
	d := Default()

	if c.App.Version == "" {
		c.App.Version = d.App.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.LogoutTimeout.Duration == 0 {
		c.API.LogoutTimeout = d.API.LogoutTimeout
	}
	if c.API.LoginTimeout.Duration == 0 {
		c.API.LoginTimeout = d.API.LoginTimeout
	}
	if c.API.VersionTimeout.Duration == 0 {
		c.API.VersionTimeout = d.API.VersionTimeout
	}
	if c.Session.InactivityTimeout.Duration == 0 {
		c.Session.InactivityTimeout = d.Session.InactivityTimeout
	}
	if c.Network.ProbeInterval.Duration == 0 {
		c.Network.ProbeInterval = d.Network.ProbeInterval
	}
	if c.Network.MonitorInterval.Duration == 0 {
		c.Network.MonitorInterval = d.Network.MonitorInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CASHDESK_API_BASE_URL: overrides api.base_url
//   - CASHDESK_INACTIVITY_TIMEOUT: overrides session.inactivity_timeout
//   - CASHDESK_OFFLINE_GRACE: overrides session.offline_grace
//   - CASHDESK_STORE_PATH: overrides store.path
//   - CASHDESK_STORE_KEY: overrides store.encryption_key
//   - CASHDESK_LOG_LEVEL: overrides log.level
//
// Unparseable durations are ignored with a warning.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CASHDESK_API_BASE_URL"); v != "" {
		c.API.BaseURL = strings.TrimRight(v, "/")
	}
	envDuration("CASHDESK_INACTIVITY_TIMEOUT", &c.Session.InactivityTimeout)
	envDuration("CASHDESK_OFFLINE_GRACE", &c.Session.OfflineGrace)
	if v := os.Getenv("CASHDESK_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CASHDESK_STORE_KEY"); v != "" {
		c.Store.EncryptionKey = v
	}
	if v := os.Getenv("CASHDESK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func envDuration(name string, dst *Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var d Duration
	if err := d.UnmarshalText([]byte(v)); err != nil {
		l := logging.Component("config")
		l.Warn().Str("var", name).Str("value", v).Msg("CONFIG_ENV_IGNORED")
		return
	}
	*dst = d
}

// =============================================================================
// DISPLAY
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy safe to print: the store key is masked.
func (c *Config) Redacted() *Config {
	r := c.Clone()
	if r.Store.EncryptionKey != "" {
		r.Store.EncryptionKey = "********"
	}
	return r
}

// String returns the redacted configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
