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
const DefaultConfigFile = "voyago.yaml"

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
	setString(&cfg.Server.Port, "VOYAGO_PORT")
	setString(&cfg.Server.CORSOrigin, "VOYAGO_CORS_ORIGIN")
	setString(&cfg.Store.Driver, "VOYAGO_STORE_DRIVER")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "VOYAGO_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "VOYAGO_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "VOYAGO_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "VOYAGO_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "VOYAGO_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Classifier.URL, "VOYAGO_CLASSIFIER_URL")
	setString(&cfg.Classifier.APIKey, "VOYAGO_CLASSIFIER_API_KEY")
	setString(&cfg.Classifier.Model, "VOYAGO_CLASSIFIER_MODEL")
	setString(&cfg.Travel.FlightsURL, "VOYAGO_FLIGHTS_URL")
	setString(&cfg.Travel.HotelsURL, "VOYAGO_HOTELS_URL")
	setString(&cfg.Travel.AttractionsURL, "VOYAGO_ATTRACTIONS_URL")
	setString(&cfg.Travel.WebSearchURL, "VOYAGO_WEB_SEARCH_URL")
	setString(&cfg.Travel.APIKey, "VOYAGO_TRAVEL_API_KEY")
	setDuration(&cfg.Travel.CallTimeout, "VOYAGO_TRAVEL_CALL_TIMEOUT")
	setInt(&cfg.Travel.MaxConcurrent, "VOYAGO_TRAVEL_MAX_CONCURRENT")
	setDuration(&cfg.Travel.CacheTTL, "VOYAGO_TRAVEL_CACHE_TTL")
	setString(&cfg.Logging.Level, "VOYAGO_LOG_LEVEL")
	setString(&cfg.Logging.Service, "VOYAGO_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "VOYAGO_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "VOYAGO_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "VOYAGO_RATE_RPS")
	setInt(&cfg.Rate.Burst, "VOYAGO_RATE_BURST")
	setInt64(&cfg.Cache.MaxSizeMB, "VOYAGO_CACHE_SIZE_MB")
	setString(&cfg.Telemetry.OTLPEndpoint, "VOYAGO_OTLP_ENDPOINT")
	setInt(&cfg.Orchestrator.MaxActiveQueries, "VOYAGO_ORCH_MAX_ACTIVE")
	setInt(&cfg.Orchestrator.StreamBuffer, "VOYAGO_ORCH_STREAM_BUFFER")
	setDuration(&cfg.Orchestrator.DrainTimeout, "VOYAGO_ORCH_DRAIN_TIMEOUT")
	setDuration(&cfg.Orchestrator.RegistryTTL, "VOYAGO_ORCH_REGISTRY_TTL")
	setDuration(&cfg.Orchestrator.JanitorInterval, "VOYAGO_ORCH_JANITOR_INTERVAL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required when store.driver is postgres")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be postgres or memory, got %q", cfg.Store.Driver)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Travel.CallTimeout <= 0 {
		return errors.New("travel.call_timeout must be > 0")
	}
	if cfg.Orchestrator.MaxActiveQueries < 1 {
		return errors.New("orchestrator.max_active_queries must be >= 1")
	}
	if cfg.Orchestrator.StreamBuffer < 1 {
		return errors.New("orchestrator.stream_buffer must be >= 1")
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

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
