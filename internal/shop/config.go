package shop

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/psantana5/appworld/pkg/store"
)

// Config is the daemon configuration
type Config struct {
	Listen   string `yaml:"listen"`
	WorldID  string `yaml:"world_id"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	Store     StoreConfig     `yaml:"store"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	TLS       TLSConfig       `yaml:"tls"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// StoreConfig selects and configures the snapshot store
type StoreConfig struct {
	Type string `yaml:"type"` // "sqlite", "postgres" or "memory"
	Path string `yaml:"path"` // sqlite database file
	DSN  string `yaml:"dsn"`  // postgres connection string
}

// SnapshotsConfig controls the periodic snapshot loop
type SnapshotsConfig struct {
	Interval string `yaml:"interval"` // e.g., "1m"
	Keep     int    `yaml:"keep"`
}

// CatalogConfig points at the upstream catalog service. An empty URL
// disables syncing.
type CatalogConfig struct {
	URL      string `yaml:"url"`
	Interval string `yaml:"interval"` // e.g., "30s"
	Timeout  string `yaml:"timeout"`
}

// AuthConfig configures API authentication
type AuthConfig struct {
	AdminToken string   `yaml:"admin_token"`
	Clients    []string `yaml:"clients"`   // client tokens issued and logged at startup
	TokenTTL   string   `yaml:"token_ttl"` // e.g., "24h"
}

// RateLimitConfig bounds per-client request rates
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// TLSConfig enables HTTPS serving
type TLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	CAFile            string `yaml:"ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

// TracingConfig enables OpenTelemetry export
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Environment string `yaml:"environment"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":8085",
		WorldID:  "shop",
		LogLevel: "info",
		Store: StoreConfig{
			Type: "sqlite",
			Path: "appworld.db",
		},
		Snapshots: SnapshotsConfig{
			Interval: "1m",
			Keep:     10,
		},
		Catalog: CatalogConfig{
			Interval: "30s",
			Timeout:  "10s",
		},
		Auth: AuthConfig{
			TokenTTL: "24h",
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
	}
}

// LoadConfig loads configuration from a YAML file and fills in defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the fields that would otherwise fail at runtime
func (c *Config) Validate() error {
	durations := map[string]string{
		"snapshots.interval": c.Snapshots.Interval,
		"catalog.interval":   c.Catalog.Interval,
		"catalog.timeout":    c.Catalog.Timeout,
		"auth.token_ttl":     c.Auth.TokenTTL,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field, value, err)
		}
	}

	if c.TLS.Enabled && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return fmt.Errorf("tls.enabled requires tls.cert_file and tls.key_file")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.enabled requires tracing.endpoint")
	}
	return nil
}

// The duration accessors assume Validate has run; unset fields fall
// back to the defaults.

func (c *Config) SnapshotInterval() time.Duration {
	return parseDurationOr(c.Snapshots.Interval, time.Minute)
}

func (c *Config) CatalogInterval() time.Duration {
	return parseDurationOr(c.Catalog.Interval, 30*time.Second)
}

func (c *Config) CatalogTimeout() time.Duration {
	return parseDurationOr(c.Catalog.Timeout, 10*time.Second)
}

func (c *Config) TokenTTL() time.Duration {
	return parseDurationOr(c.Auth.TokenTTL, 24*time.Hour)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// SnapshotStore converts to the store package's configuration
func (c *Config) SnapshotStore() store.Config {
	return store.Config{
		Type: c.Store.Type,
		Path: c.Store.Path,
		DSN:  c.Store.DSN,
	}
}
