package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/rinnsal/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, RINNSAL_CONFIG env, ./config.yaml, /etc/rinnsal/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		debug.Log("config", "loading config file", "path", filePath)
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. RINNSAL_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/rinnsal/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("RINNSAL_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/rinnsal/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown keys are rejected so typos do not pass silently.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// envApplier applies RINNSAL_* variables that are set and collects
// parse failures.
type envApplier struct {
	errs []error
}

func (a *envApplier) str(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func (a *envApplier) integer(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			a.errs = append(a.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = n
	}
}

func (a *envApplier) float(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			a.errs = append(a.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = f
	}
}

func (a *envApplier) boolean(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			a.errs = append(a.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = b
	}
}

func (a *envApplier) duration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			a.errs = append(a.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = d
	}
}

// applyEnvOverrides maps RINNSAL_* environment variables to config fields.
// Malformed values are reported together.
func applyEnvOverrides(cfg *Config) error {
	var a envApplier

	a.integer("RINNSAL_PORT", &cfg.Server.Port)

	a.str("RINNSAL_SOURCE", &cfg.Generation.Source)
	a.str("RINNSAL_CONTENT", &cfg.Generation.Content)
	a.str("RINNSAL_TOKENIZER", &cfg.Generation.Tokenizer)
	a.duration("RINNSAL_DELAY", &cfg.Generation.Delay)
	a.duration("RINNSAL_TIMEOUT", &cfg.Generation.Timeout)
	a.str("RINNSAL_ON_CONFLICT", &cfg.Generation.OnConflict)
	a.boolean("RINNSAL_SEND_DONE", &cfg.Generation.SendDone)

	a.float("RINNSAL_WS_GENERATE_RATE", &cfg.Transport.WS.GenerateRate)
	a.integer("RINNSAL_WS_GENERATE_BURST", &cfg.Transport.WS.GenerateBurst)
	a.duration("RINNSAL_WS_WRITE_TIMEOUT", &cfg.Transport.WS.WriteTimeout)

	a.str("RINNSAL_STORAGE", &cfg.Storage.Type)
	a.integer("RINNSAL_STORAGE_SIZE", &cfg.Storage.MaxSize)
	a.str("RINNSAL_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)

	a.boolean("RINNSAL_METRICS_ENABLED", &cfg.Observability.Metrics.Enabled)
	a.str("RINNSAL_LOG_FORMAT", &cfg.Logging.Format)

	return errors.Join(a.errs...)
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// The value field wins when both are set.
func resolveFileReferences(cfg *Config) error {
	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
