package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tutormesh.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from yamlPath using the hierarchy
// defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

// loadYAML unmarshals path over cfg. A missing file is not an error.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays non-empty environment variables onto cfg.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "TUTOR_ADDR")
	setInt64(&cfg.Server.BodyLimit, "TUTOR_BODY_LIMIT")
	setDuration(&cfg.Server.ShutdownTimeout, "TUTOR_SHUTDOWN_TIMEOUT")

	setString(&cfg.Logging.Backend, "TUTOR_LOG_BACKEND")
	setString(&cfg.Logging.Level, "TUTOR_LOG_LEVEL")
	setString(&cfg.Logging.Format, "TUTOR_LOG_FORMAT")

	setString(&cfg.Model.Provider, "TUTOR_MODEL_PROVIDER")
	setString(&cfg.Model.Name, "TUTOR_MODEL_NAME")
	setString(&cfg.Model.APIKey, "TUTOR_MODEL_API_KEY")
	setString(&cfg.Model.BaseURL, "TUTOR_MODEL_BASE_URL")
	setFloat64(&cfg.Model.Temperature, "TUTOR_MODEL_TEMPERATURE")
	setInt64(&cfg.Model.MaxTokens, "TUTOR_MODEL_MAX_TOKENS")
	setFloat64(&cfg.Model.RatePerSecond, "TUTOR_MODEL_RATE_PER_SECOND")
	setInt(&cfg.Model.Burst, "TUTOR_MODEL_BURST")
	setInt(&cfg.Model.MaxCalls, "TUTOR_MODEL_MAX_CALLS")

	setInt(&cfg.Engine.MaxSteps, "TUTOR_MAX_STEPS")
	setInt(&cfg.Engine.MaxProtocolRetries, "TUTOR_MAX_PROTOCOL_RETRIES")
	setInt(&cfg.Engine.MaxPartitionAttempts, "TUTOR_MAX_PARTITION_ATTEMPTS")
	setString(&cfg.Engine.CompletionSentinel, "TUTOR_COMPLETION_SENTINEL")
	setInt(&cfg.Engine.MaxHistoryMessages, "TUTOR_MAX_HISTORY_MESSAGES")

	setDuration(&cfg.Handoff.StallTimeout, "TUTOR_STALL_TIMEOUT")

	setString(&cfg.Content.Dir, "TUTOR_CONTENT_DIR")
	setInt64(&cfg.Content.CacheMaxBytes, "TUTOR_CONTENT_CACHE_MAX_BYTES")
	setDuration(&cfg.Content.CacheTTL, "TUTOR_CONTENT_CACHE_TTL")

	setString(&cfg.Progress.Backend, "TUTOR_PROGRESS_BACKEND")
	setString(&cfg.Progress.RedisAddr, "TUTOR_REDIS_ADDR")
	setString(&cfg.Progress.RedisPassword, "TUTOR_REDIS_PASSWORD")
	setInt(&cfg.Progress.RedisDB, "TUTOR_REDIS_DB")
	setString(&cfg.Progress.RedisPrefix, "TUTOR_REDIS_PREFIX")
	setDuration(&cfg.Progress.RedisTTL, "TUTOR_REDIS_TTL")
	setString(&cfg.Progress.SQLiteDSN, "TUTOR_SQLITE_DSN")
	setString(&cfg.Progress.NATSURL, "NATS_URL")
	setString(&cfg.Progress.NATSSubject, "TUTOR_NATS_SUBJECT")

	setBool(&cfg.Metrics.Enabled, "TUTOR_METRICS_ENABLED")
	setString(&cfg.Metrics.Namespace, "TUTOR_METRICS_NAMESPACE")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.BodyLimit < 1 {
		return errors.New("server.body_limit must be >= 1")
	}
	switch c.Logging.Backend {
	case "slog", "zap":
	default:
		return fmt.Errorf("logging.backend %q is not one of slog, zap", c.Logging.Backend)
	}
	switch c.Model.Provider {
	case "mock":
	case "openai", "anthropic":
		if c.Model.Name == "" {
			return fmt.Errorf("model.name is required for provider %s", c.Model.Provider)
		}
	default:
		return fmt.Errorf("model.provider %q is not one of mock, openai, anthropic", c.Model.Provider)
	}
	if c.Model.RatePerSecond < 0 {
		return errors.New("model.rate_per_second must be >= 0")
	}
	if c.Model.MaxCalls < 0 {
		return errors.New("model.max_calls must be >= 0")
	}
	if c.Engine.MaxSteps < 0 {
		return errors.New("engine.max_steps must be >= 0")
	}
	if c.Engine.MaxProtocolRetries < 0 {
		return errors.New("engine.max_protocol_retries must be >= 0")
	}
	if c.Engine.MaxPartitionAttempts < 1 {
		return errors.New("engine.max_partition_attempts must be >= 1")
	}
	if c.Engine.CompletionSentinel == "" {
		return errors.New("engine.completion_sentinel is required")
	}
	if c.Handoff.StallTimeout < 0 {
		return errors.New("handoff.stall_timeout must be >= 0")
	}
	if c.Content.Dir == "" {
		return errors.New("content.dir is required")
	}
	switch c.Progress.Backend {
	case "memory":
	case "redis":
		if c.Progress.RedisAddr == "" {
			return errors.New("progress.redis_addr is required for the redis backend")
		}
	case "sqlite":
		if c.Progress.SQLiteDSN == "" {
			return errors.New("progress.sqlite_dsn is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("progress.backend %q is not one of memory, redis, sqlite", c.Progress.Backend)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
