// Package config loads the tutormesh configuration with the hierarchy
// defaults < YAML < environment (TUTOR_*).
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
	Model    Model    `yaml:"model"`
	Engine   Engine   `yaml:"engine"`
	Handoff  Handoff  `yaml:"handoff"`
	Content  Content  `yaml:"content"`
	Progress Progress `yaml:"progress"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr            string        `yaml:"addr"`
	BodyLimit       int64         `yaml:"body_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Logging selects the logging backend.
type Logging struct {
	Backend string `yaml:"backend"` // slog | zap
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // json | text
}

// Model configures the LLM behind the supervisor, the workers and the
// partition classifier.
type Model struct {
	Provider      string  `yaml:"provider"` // mock | openai | anthropic
	Name          string  `yaml:"name"`
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int64   `yaml:"max_tokens"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	MaxCalls      int     `yaml:"max_calls"`
}

// Engine tunes the lesson graph.
type Engine struct {
	MaxSteps             int    `yaml:"max_steps"`
	MaxProtocolRetries   int    `yaml:"max_protocol_retries"`
	MaxPartitionAttempts int    `yaml:"max_partition_attempts"`
	CompletionSentinel   string `yaml:"completion_sentinel"`
	MaxHistoryMessages   int    `yaml:"max_history_messages"`
}

// Handoff bounds learner waits.
type Handoff struct {
	StallTimeout time.Duration `yaml:"stall_timeout"`
}

// Content locates lesson documents.
type Content struct {
	Dir           string        `yaml:"dir"`
	CacheMaxBytes int64         `yaml:"cache_max_bytes"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// Progress selects where progress records go.
type Progress struct {
	Backend       string        `yaml:"backend"` // memory | redis | sqlite
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
	SQLiteDSN     string        `yaml:"sqlite_dsn"`
	NATSURL       string        `yaml:"nats_url"`
	NATSSubject   string        `yaml:"nats_subject"`
}

// Metrics toggles the Prometheus collector.
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Defaults returns a configuration that runs fully in memory with the
// scripted mock model.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			BodyLimit:       1 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: Logging{Backend: "slog", Level: "info", Format: "json"},
		Model: Model{
			Provider:    "mock",
			Temperature: 0.7,
			MaxTokens:   1024,
			Burst:       1,
			MaxCalls:    200,
		},
		Engine: Engine{
			MaxProtocolRetries:   2,
			MaxPartitionAttempts: 3,
			CompletionSentinel:   "REPORT DONE",
		},
		Handoff: Handoff{StallTimeout: 30 * time.Minute},
		Content: Content{
			Dir:           "content",
			CacheMaxBytes: 32 << 20,
			CacheTTL:      10 * time.Minute,
		},
		Progress: Progress{
			Backend:     "memory",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "tutormesh:",
			SQLiteDSN:   "tutormesh.db",
			NATSSubject: "tutormesh.progress.",
		},
		Metrics: Metrics{Enabled: true, Namespace: "tutormesh"},
	}
}
