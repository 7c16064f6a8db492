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
const DefaultConfigFile = "planwright.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
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

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PLANWRIGHT_PORT")
	setString(&cfg.Server.CORSOrigin, "PLANWRIGHT_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "PLANWRIGHT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "PLANWRIGHT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "PLANWRIGHT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "PLANWRIGHT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "PLANWRIGHT_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Ollama.URL, "OLLAMA_URL")
	setString(&cfg.Ollama.Model, "OLLAMA_MODEL")
	setDuration(&cfg.Ollama.Timeout, "PLANWRIGHT_OLLAMA_TIMEOUT")
	setString(&cfg.Logging.Level, "PLANWRIGHT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PLANWRIGHT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PLANWRIGHT_LOG_ASYNC")
	setInt(&cfg.Logging.AsyncBuffer, "PLANWRIGHT_LOG_ASYNC_BUFFER")
	setInt(&cfg.Logging.AsyncWorkers, "PLANWRIGHT_LOG_ASYNC_WORKERS")
	setInt(&cfg.Breaker.MaxFailures, "PLANWRIGHT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "PLANWRIGHT_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.L1MaxSizeMB, "PLANWRIGHT_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.InsightTTL, "PLANWRIGHT_INSIGHT_TTL")
	setFloat64(&cfg.Scheduler.SlackTolerance, "PLANWRIGHT_SLACK_TOLERANCE")
	setInt(&cfg.Scheduler.MaxTasks, "PLANWRIGHT_MAX_TASKS")
	setInt64(&cfg.Scheduler.MaxConcurrentGenerations, "PLANWRIGHT_GEN_MAX_CONCURRENT")
	setDuration(&cfg.Scheduler.GenerateTimeout, "PLANWRIGHT_GEN_TIMEOUT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Ollama.URL == "" {
		return errors.New("ollama.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Scheduler.SlackTolerance <= 0 {
		return errors.New("scheduler.slack_tolerance must be > 0")
	}
	if cfg.Scheduler.MaxTasks < 1 {
		return errors.New("scheduler.max_tasks must be >= 1")
	}
	if cfg.Scheduler.MaxConcurrentGenerations < 1 {
		return errors.New("scheduler.max_concurrent_generations must be >= 1")
	}
	if cfg.Logging.Async && (cfg.Logging.AsyncBuffer < 1 || cfg.Logging.AsyncWorkers < 1) {
		return errors.New("logging.async_buffer and logging.async_workers must be >= 1 when async logging is on")
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

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
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
