// Package config loads mallstore configuration.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults
//  2. an optional YAML file (unknown fields are rejected)
//  3. an optional .env file (never overrides variables already set)
//  4. MALLSTORE_* environment variables
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
)

// Config is the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	PostgREST PostgRESTConfig `yaml:"postgrest"`
	Auth      AuthConfig      `yaml:"auth"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig selects and locates the remote store.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"MALLSTORE_STORE_DRIVER"`
	Path   string `yaml:"path" env:"MALLSTORE_STORE_PATH"`
	DSN    string `yaml:"dsn" env:"MALLSTORE_DATABASE_URL"`
}

// PostgRESTConfig configures the HTTP gateway.
type PostgRESTConfig struct {
	URL     string        `yaml:"url" env:"MALLSTORE_POSTGREST_URL"`
	APIKey  string        `yaml:"api_key" env:"MALLSTORE_POSTGREST_KEY"`
	Rate    float64       `yaml:"rate" env:"MALLSTORE_POSTGREST_RATE"`
	Burst   int           `yaml:"burst" env:"MALLSTORE_POSTGREST_BURST"`
	Timeout time.Duration `yaml:"timeout" env:"MALLSTORE_POSTGREST_TIMEOUT"`
}

// AuthConfig configures token verification. An empty secret disables
// token auth; the CLI then relies on --as.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"MALLSTORE_JWT_SECRET"`
}

// CacheConfig selects the view registry. An empty RedisAddr keeps views
// in process memory.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr" env:"MALLSTORE_REDIS_ADDR"`
	RedisDB   int           `yaml:"redis_db" env:"MALLSTORE_REDIS_DB"`
	TTL       time.Duration `yaml:"ttl" env:"MALLSTORE_CACHE_TTL"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"MALLSTORE_LOG_LEVEL"`
	Format string `yaml:"format" env:"MALLSTORE_LOG_FORMAT"`
}

// MetricsConfig configures the metrics listener used by "serve".
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"MALLSTORE_METRICS_ADDR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   "mallstore.db",
		},
		PostgREST: PostgRESTConfig{
			Rate:    10,
			Burst:   5,
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load builds a Config. path and envFile are optional; a named file that
// does not exist is an error, except for the default ".env".
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func loadEnvFile(envFile string) error {
	if envFile == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

// Validate checks driver-specific requirements.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for postgres")
		}
	case DriverPostgREST:
		if c.PostgREST.URL == "" {
			return errors.New("postgrest.url is required for postgrest")
		}
	default:
		return fmt.Errorf("unknown store driver %q (want sqlite, postgres or postgrest)", c.Store.Driver)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if c.PostgREST.Rate < 0 {
		return errors.New("postgrest.rate must not be negative")
	}
	return nil
}
