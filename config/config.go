// Package config loads drip's TOML configuration.
//
// Values are layered: [Default], then an optional TOML file ([Load]), then
// DRIP_* environment variables ([Config.ApplyEnv]). Flags are applied by the
// caller last. The environment is passed in as a lookup function so only
// main touches the process environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/drip"
)

// Backend names.
const (
	BackendAgent  = "agent"
	BackendGemini = "gemini"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the complete client configuration.
type Config struct {
	Backend     string       `toml:"backend"`
	AgentURL    string       `toml:"agent_url"`
	GeminiKey   string       `toml:"gemini_key"`
	Model       string       `toml:"model"`
	Thinking    bool         `toml:"thinking"`
	Mode        string       `toml:"mode"`
	TitleLength int          `toml:"title_length"`
	Store       StoreConfig  `toml:"store"`
	Stream      StreamConfig `toml:"stream"`
	Log         LogConfig    `toml:"log"`
}

// StoreConfig selects the durable store.
type StoreConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// StreamConfig tunes stream sessions.
type StreamConfig struct {
	Throttle Duration `toml:"throttle"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration encoded as a Go duration string ("16ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration. The store path is left empty
// and resolved by [Config.StorePath].
func Default() Config {
	return Config{
		Backend:     BackendAgent,
		AgentURL:    "http://localhost:8000",
		TitleLength: 40,
		Store:       StoreConfig{Driver: DriverSQLite},
		Stream:      StreamConfig{Throttle: Duration{16 * time.Millisecond}},
		Log:         LogConfig{Level: "warn", Format: FormatText},
	}
}

// Dir returns the per-user configuration directory for drip.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return filepath.Join(base, "drip"), nil
}

// Load decodes the TOML file at path over cfg. A missing file is not an
// error. Unknown keys are rejected so typos do not pass silently.
func Load(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides fields from DRIP_* variables returned by getenv.
// Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	set("DRIP_BACKEND", &c.Backend)
	set("DRIP_AGENT_URL", &c.AgentURL)
	set("DRIP_MODEL", &c.Model)
	set("DRIP_MODE", &c.Mode)
	set("DRIP_STORE", &c.Store.Driver)
	set("DRIP_STORE_PATH", &c.Store.Path)
	set("DRIP_LOG_LEVEL", &c.Log.Level)
	set("DRIP_LOG_FORMAT", &c.Log.Format)
	set("GEMINI_API_KEY", &c.GeminiKey)
	set("DRIP_GEMINI_KEY", &c.GeminiKey)

	if v := getenv("DRIP_THINKING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DRIP_THINKING: %w", err)
		}
		c.Thinking = b
	}
	if v := getenv("DRIP_THROTTLE"); v != "" {
		if err := c.Stream.Throttle.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("config: DRIP_THROTTLE: %w", err)
		}
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAgent:
		if c.AgentURL == "" {
			return fmt.Errorf("config: agent_url is required: %w", drip.ErrValidation)
		}
	case BackendGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("config: gemini_key is required for the gemini backend: %w", drip.ErrValidation)
		}
	default:
		return fmt.Errorf("config: unknown backend %q: %w", c.Backend, drip.ErrValidation)
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverFile, DriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q: %w", c.Store.Driver, drip.ErrValidation)
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("config: unknown log format %q: %w", c.Log.Format, drip.ErrValidation)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Stream.Throttle.Duration < 0 {
		return fmt.Errorf("config: negative throttle: %w", drip.ErrValidation)
	}
	if c.TitleLength <= 0 {
		return fmt.Errorf("config: title_length must be positive: %w", drip.ErrValidation)
	}
	return nil
}

// LogLevel parses the configured level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", c.Log.Level, drip.ErrValidation)
	}
	return l, nil
}

// Options returns the per-request chat options.
func (c Config) Options() drip.Options {
	return drip.Options{Model: c.Model, Thinking: c.Thinking, Mode: c.Mode}
}

// StorePath returns the configured store path, or a default under dir:
// threads.db for sqlite and a threads directory for the file store.
func (c Config) StorePath(dir string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Driver {
	case DriverFile:
		return filepath.Join(dir, "threads")
	case DriverSQLite:
		return filepath.Join(dir, "threads.db")
	}
	return ""
}

// Encode writes cfg as TOML with the API key masked.
func (c Config) Encode(w io.Writer) error {
	if c.GeminiKey != "" {
		c.GeminiKey = "********"
	}
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
