package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported at once, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server timeouts must not be negative"))
	}

	switch c.Generation.Source {
	case "fixed", "echo":
	default:
		errs = append(errs, fmt.Errorf("generation.source must be \"fixed\" or \"echo\", got %q", c.Generation.Source))
	}
	switch c.Generation.Tokenizer {
	case "characters", "words":
	default:
		errs = append(errs, fmt.Errorf("generation.tokenizer must be \"characters\" or \"words\", got %q", c.Generation.Tokenizer))
	}
	if c.Generation.Delay < 0 {
		errs = append(errs, fmt.Errorf("generation.delay must not be negative, got %s", c.Generation.Delay))
	}
	if c.Generation.Timeout < 0 {
		errs = append(errs, fmt.Errorf("generation.timeout must not be negative, got %s", c.Generation.Timeout))
	}
	switch c.Generation.OnConflict {
	case "replace", "reject":
	default:
		errs = append(errs, fmt.Errorf("generation.on_conflict must be \"replace\" or \"reject\", got %q", c.Generation.OnConflict))
	}

	if c.Transport.WS.Enabled {
		if !strings.HasPrefix(c.Transport.WS.Path, "/") {
			errs = append(errs, fmt.Errorf("transport.ws.path must start with \"/\", got %q", c.Transport.WS.Path))
		}
		if c.Transport.WS.GenerateRate < 0 {
			errs = append(errs, fmt.Errorf("transport.ws.generate_rate must not be negative, got %g", c.Transport.WS.GenerateRate))
		}
		if c.Transport.WS.GenerateRate > 0 && c.Transport.WS.GenerateBurst < 1 {
			errs = append(errs, fmt.Errorf("transport.ws.generate_burst must be >= 1 when generate_rate is set, got %d", c.Transport.WS.GenerateBurst))
		}
		if c.Transport.WS.ReadLimit <= 0 {
			errs = append(errs, fmt.Errorf("transport.ws.read_limit must be > 0, got %d", c.Transport.WS.ReadLimit))
		}
		if c.Transport.WS.WriteTimeout <= 0 {
			errs = append(errs, fmt.Errorf("transport.ws.write_timeout must be > 0, got %v", c.Transport.WS.WriteTimeout))
		}
	}

	switch c.Storage.Type {
	case "none", "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"none\", \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}
	if c.Storage.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("storage.max_size must not be negative, got %d", c.Storage.MaxSize))
	}
	if c.Storage.HealthInterval < 0 {
		errs = append(errs, fmt.Errorf("storage.health_interval must not be negative, got %v", c.Storage.HealthInterval))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "", "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of TRACE, DEBUG, INFO, WARN, ERROR, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
