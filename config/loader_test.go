package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tutormesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, 30*time.Minute, cfg.Handoff.StallTimeout)
	assert.Equal(t, "REPORT DONE", cfg.Engine.CompletionSentinel)
}

func TestLoadFrom_YAMLThenEnv(t *testing.T) {
	path := writeYAML(t, `
server:
  addr: ":9000"
model:
  provider: openai
  name: gpt-4o-mini
  rate_per_second: 2
handoff:
  stall_timeout: 5m
progress:
  backend: redis
`)
	t.Setenv("TUTOR_ADDR", ":9100")
	t.Setenv("TUTOR_STALL_TIMEOUT", "90s")
	t.Setenv("TUTOR_MAX_STEPS", "not-a-number")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, 2.0, cfg.Model.RatePerSecond)
	assert.Equal(t, 90*time.Second, cfg.Handoff.StallTimeout)
	assert.Equal(t, "redis", cfg.Progress.Backend)
	// unparsable values keep the previous layer
	assert.Equal(t, 0, cfg.Engine.MaxSteps)
	// untouched sections keep defaults
	assert.Equal(t, int64(1<<20), cfg.Server.BodyLimit)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	_, err := LoadFrom(writeYAML(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "config yaml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"bad log backend", func(c *Config) { c.Logging.Backend = "logrus" }, "logging.backend"},
		{"provider without name", func(c *Config) { c.Model.Provider = "anthropic" }, "model.name"},
		{"unknown provider", func(c *Config) { c.Model.Provider = "gemini" }, "model.provider"},
		{"negative stall", func(c *Config) { c.Handoff.StallTimeout = -time.Second }, "handoff.stall_timeout"},
		{"zero partition attempts", func(c *Config) { c.Engine.MaxPartitionAttempts = 0 }, "max_partition_attempts"},
		{"empty sentinel", func(c *Config) { c.Engine.CompletionSentinel = "" }, "completion_sentinel"},
		{"unknown progress", func(c *Config) { c.Progress.Backend = "mongo" }, "progress.backend"},
		{"sqlite without dsn", func(c *Config) { c.Progress.Backend = "sqlite"; c.Progress.SQLiteDSN = "" }, "sqlite_dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
