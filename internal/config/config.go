// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"StoreFront/internal/kv"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	// CatalogPostgres reads the catalog from the catalog_items table.
	CatalogPostgres = "postgres"

	minSecretLen = 32
	devJWTSecret = "storefront-dev-secret-do-not-use-in-prod"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Env      string        `yaml:"env"`
	Port     string        `yaml:"port"`
	LogLevel string        `yaml:"log_level"`
	Auth     AuthConfig    `yaml:"auth"`
	Storage  StorageConfig `yaml:"storage"`
	Catalog  CatalogConfig `yaml:"catalog"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	LoginLimit    int           `yaml:"login_limit"`
	RegisterLimit int           `yaml:"register_limit"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
	DatabaseURL string `yaml:"database_url"`
}

// Options maps the storage section onto kv.Open.
func (s StorageConfig) Options() kv.Options {
	return kv.Options{
		Backend:     s.Backend,
		SQLitePath:  s.SQLitePath,
		RedisAddr:   s.RedisAddr,
		DatabaseURL: s.DatabaseURL,
	}
}

type CatalogConfig struct {
	// Source is a file path, an http(s) URL or "postgres".
	Source string `yaml:"source"`
	// Watch reloads a file source when it changes on disk.
	Watch bool `yaml:"watch"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

func DefaultConfig() *Config {
	return &Config{
		Env:      EnvDev,
		Port:     "8080",
		LogLevel: "info",
		Auth: AuthConfig{
			TokenTTL:      15 * time.Minute,
			LoginLimit:    5,
			RegisterLimit: 3,
		},
		Storage: StorageConfig{
			Backend:    kv.BackendMemory,
			SQLitePath: "storefront.db",
			RedisAddr:  "localhost:6379",
		},
		Catalog: CatalogConfig{Source: "data/catalog.json"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Env == EnvDev && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Env, "APP_ENV")
	set(&c.Port, "PORT")
	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.Auth.JWTSecret, "JWT_SECRET")
	set(&c.Storage.Backend, "KV_BACKEND")
	set(&c.Storage.SQLitePath, "SQLITE_PATH")
	set(&c.Storage.RedisAddr, "REDIS_ADDR")
	set(&c.Storage.DatabaseURL, "DATABASE_URL")
	set(&c.Catalog.Source, "CATALOG_SOURCE")
	set(&c.Metrics.Token, "METRICS_TOKEN")
}

var backends = []string{kv.BackendMemory, kv.BackendSQLite, kv.BackendRedis, kv.BackendPostgres}

// Validate reports every problem at once, joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Env != EnvDev && c.Env != EnvProd {
		bad("env must be %q or %q, got %q", EnvDev, EnvProd, c.Env)
	}
	if c.Port == "" {
		bad("port is required")
	}
	if c.Env != EnvDev && len(c.Auth.JWTSecret) < minSecretLen {
		bad("JWT_SECRET must be at least %d chars", minSecretLen)
	}
	if c.Auth.TokenTTL <= 0 {
		bad("auth.token_ttl must be positive")
	}

	if !slices.Contains(backends, c.Storage.Backend) {
		bad("storage.backend must be one of %v, got %q", backends, c.Storage.Backend)
	}
	if c.Storage.Backend == kv.BackendSQLite && c.Storage.SQLitePath == "" {
		bad("storage.sqlite_path is required for sqlite")
	}
	if c.Storage.Backend == kv.BackendRedis && c.Storage.RedisAddr == "" {
		bad("storage.redis_addr is required for redis")
	}
	if (c.Storage.Backend == kv.BackendPostgres || c.Catalog.Source == CatalogPostgres) && c.Storage.DatabaseURL == "" {
		bad("DATABASE_URL is required for postgres")
	}

	if c.Catalog.Source == "" {
		bad("catalog.source is required")
	}
	if c.Catalog.Watch && c.Catalog.Source == CatalogPostgres {
		bad("catalog.watch only applies to file sources")
	}

	return errors.Join(errs...)
}

// WatchFile reports whether the catalog source is a local file to watch.
func (c *Config) WatchFile() bool {
	if !c.Catalog.Watch || c.Catalog.Source == CatalogPostgres {
		return false
	}
	return !strings.HasPrefix(c.Catalog.Source, "http://") && !strings.HasPrefix(c.Catalog.Source, "https://")
}
