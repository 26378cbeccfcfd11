package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestDefault_Valid(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.BackendAgent, cfg.Backend)
	assert.Equal(t, 16*time.Millisecond, cfg.Stream.Throttle.Duration)
	assert.Equal(t, 40, cfg.TitleLength)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := writeFile(t, `
backend = "gemini"
gemini_key = "k"
model = "gemini-2.5-pro"
thinking = true
mode = "plan"

[store]
driver = "file"
path = "/tmp/drip"

[stream]
throttle = "40ms"

[log]
level = "debug"
format = "json"
`)
	cfg := config.Default()
	require.NoError(t, config.Load(&cfg, path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, config.BackendGemini, cfg.Backend)
	assert.Equal(t, "http://localhost:8000", cfg.AgentURL)
	assert.Equal(t, drip.Options{Model: "gemini-2.5-pro", Thinking: true, Mode: "plan"}, cfg.Options())
	assert.Equal(t, config.StoreConfig{Driver: config.DriverFile, Path: "/tmp/drip"}, cfg.Store)
	assert.Equal(t, 40*time.Millisecond, cfg.Stream.Throttle.Duration)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	require.NoError(t, config.Load(&cfg, filepath.Join(t.TempDir(), "absent.toml")))
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	err := config.Load(&cfg, writeFile(t, "bakend = \"agent\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bakend")
}

func TestLoad_BadThrottle(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	err := config.Load(&cfg, writeFile(t, "[stream]\nthrottle = \"soon\"\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"DRIP_AGENT_URL": "http://agent:9000",
		"DRIP_MODEL":     "gpt-4.1-mini",
		"DRIP_THINKING":  "true",
		"DRIP_STORE":     "memory",
		"DRIP_THROTTLE":  "5ms",
		"GEMINI_API_KEY": "g",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://agent:9000", cfg.AgentURL)
	assert.Equal(t, "gpt-4.1-mini", cfg.Model)
	assert.True(t, cfg.Thinking)
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 5*time.Millisecond, cfg.Stream.Throttle.Duration)
	assert.Equal(t, "g", cfg.GeminiKey)
	assert.Equal(t, config.BackendAgent, cfg.Backend)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	assert.Error(t, cfg.ApplyEnv(env(map[string]string{"DRIP_THINKING": "maybe"})))
	assert.Error(t, cfg.ApplyEnv(env(map[string]string{"DRIP_THROTTLE": "x"})))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"unknown backend", func(c *config.Config) { c.Backend = "openai" }},
		{"gemini without key", func(c *config.Config) { c.Backend = config.BackendGemini }},
		{"agent without url", func(c *config.Config) { c.AgentURL = "" }},
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "redis" }},
		{"unknown format", func(c *config.Config) { c.Log.Format = "xml" }},
		{"bad level", func(c *config.Config) { c.Log.Level = "loud" }},
		{"negative throttle", func(c *config.Config) { c.Stream.Throttle.Duration = -time.Second }},
		{"zero title length", func(c *config.Config) { c.TitleLength = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), drip.ErrValidation)
		})
	}
}

func TestStorePath(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	assert.Equal(t, filepath.Join("d", "threads.db"), cfg.StorePath("d"))

	cfg.Store.Driver = config.DriverFile
	assert.Equal(t, filepath.Join("d", "threads"), cfg.StorePath("d"))

	cfg.Store.Driver = config.DriverMemory
	assert.Empty(t, cfg.StorePath("d"))

	cfg.Store.Path = "/explicit"
	assert.Equal(t, "/explicit", cfg.StorePath("d"))
}

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.GeminiKey = "secret"

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), `throttle = "16ms"`)

	path := writeFile(t, buf.String())
	var got config.Config
	require.NoError(t, config.Load(&got, path))
	assert.Equal(t, cfg.Stream, got.Stream)
	assert.Equal(t, cfg.Store, got.Store)
	assert.Equal(t, "********", got.GeminiKey)
}
