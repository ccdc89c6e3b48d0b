// Package config provides unified configuration for the rinnsal server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (RINNSAL_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the rinnsal server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Generation    GenerationConfig    `yaml:"generation"`
	Transport     TransportConfig     `yaml:"transport"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 0 (streams may run long)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// GenerationConfig controls the text source and session behavior.
type GenerationConfig struct {
	Source     string        `yaml:"source"`      // "fixed" or "echo", default: "fixed"
	Content    string        `yaml:"content"`     // fixed source text; built-in demo text when empty
	Tokenizer  string        `yaml:"tokenizer"`   // "characters" or "words", default: "characters"
	Delay      time.Duration `yaml:"delay"`       // pacing delay, default: 200ms
	Timeout    time.Duration `yaml:"timeout"`     // per-generation deadline, 0 disables
	OnConflict string        `yaml:"on_conflict"` // "replace" or "reject", default: "replace"
	SendDone   bool          `yaml:"send_done"`   // push a done notice after completion
}

// TransportConfig holds settings for the client-facing transports.
type TransportConfig struct {
	WS  WSConfig  `yaml:"ws"`
	SSE SSEConfig `yaml:"sse"`
}

// WSConfig holds push-channel (WebSocket) settings.
type WSConfig struct {
	Enabled        bool          `yaml:"enabled"`         // default: true
	Path           string        `yaml:"path"`            // default: "/v1/ws"
	GenerateRate   float64       `yaml:"generate_rate"`   // generate calls per second per connection, 0 = unlimited
	GenerateBurst  int           `yaml:"generate_burst"`  // default: 10
	ReadLimit      int64         `yaml:"read_limit"`      // max inbound frame size in bytes, default: 128KiB
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // bound on one outbound frame write, default: 10s
	OriginPatterns []string      `yaml:"origin_patterns"` // extra allowed Origin host patterns
}

// SSEConfig holds one-shot stream settings.
type SSEConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// StorageConfig holds generation history settings.
type StorageConfig struct {
	Type           string         `yaml:"type"`            // "none", "memory" or "postgres", default: "memory"
	MaxSize        int            `yaml:"max_size"`        // for memory store, default: 10000
	HealthInterval time.Duration  `yaml:"health_interval"` // background store health check period, 0 disables; default: 30s
	Postgres       PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings. RINNSAL_LOG_LEVEL and
// RINNSAL_DEBUG take precedence at runtime.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Generation: GenerationConfig{
			Source:     "fixed",
			Tokenizer:  "characters",
			Delay:      200 * time.Millisecond,
			OnConflict: "replace",
		},
		Transport: TransportConfig{
			WS: WSConfig{
				Enabled:       true,
				Path:          "/v1/ws",
				GenerateRate:  5,
				GenerateBurst: 10,
				ReadLimit:     128 << 10,
				WriteTimeout:  10 * time.Second,
			},
			SSE: SSEConfig{
				Enabled: true,
			},
		},
		Storage: StorageConfig{
			Type:           "memory",
			MaxSize:        10000,
			HealthInterval: 30 * time.Second,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
