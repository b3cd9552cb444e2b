// Package config resolves storefront settings: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	Port       string `yaml:"port"`
	LogLevel   string `yaml:"log_level"`
	CatalogURL string `yaml:"catalog_url"`

	SearchQuiet    time.Duration `yaml:"search_quiet"`
	MinQueryLength int           `yaml:"min_query_length"`

	Cart CartConfig `yaml:"cart"`

	MetricsToken string `yaml:"metrics_token"`

	// Mutating cart calls allowed per client IP per minute; 0 disables.
	CartRateLimit int `yaml:"cart_rate_limit"`
}

type CartConfig struct {
	Key         string        `yaml:"key"`
	Quiet       time.Duration `yaml:"quiet"`
	Backend     string        `yaml:"backend"`
	FilePath    string        `yaml:"file_path"`
	DatabaseURL string        `yaml:"database_url"`
}

func Default() Config {
	return Config{
		Port:           "8080",
		LogLevel:       "info",
		CatalogURL:     "http://localhost:8082",
		SearchQuiet:    300 * time.Millisecond,
		MinQueryLength: 3,
		Cart: CartConfig{
			Key:      "cartProducts",
			Quiet:    300 * time.Millisecond,
			Backend:  BackendFile,
			FilePath: "data/storefront.json",
		},
		CartRateLimit: 120,
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Cart.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Cart.FilePath == "" {
			return fmt.Errorf("invalid configuration: cart.file_path is required for the file backend")
		}
	case BackendPostgres:
		if c.Cart.DatabaseURL == "" {
			return fmt.Errorf("invalid configuration: cart.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid configuration: unknown cart backend %q", c.Cart.Backend)
	}

	if c.CatalogURL == "" {
		return fmt.Errorf("invalid configuration: catalog_url is required")
	}
	if c.SearchQuiet <= 0 || c.Cart.Quiet <= 0 {
		return fmt.Errorf("invalid configuration: quiet periods must be positive")
	}
	if c.MinQueryLength < 1 {
		return fmt.Errorf("invalid configuration: min_query_length must be at least 1")
	}
	return nil
}

func applyEnv(c *Config) error {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.CatalogURL, "CATALOG_URL")
	setString(&c.MetricsToken, "METRICS_TOKEN")
	setString(&c.Cart.Key, "CART_KEY")
	setString(&c.Cart.Backend, "CART_BACKEND")
	setString(&c.Cart.FilePath, "CART_FILE")
	setString(&c.Cart.DatabaseURL, "DATABASE_URL")

	if err := setDuration(&c.SearchQuiet, "SEARCH_QUIET"); err != nil {
		return err
	}
	if err := setDuration(&c.Cart.Quiet, "CART_QUIET"); err != nil {
		return err
	}
	if err := setInt(&c.MinQueryLength, "MIN_QUERY_LENGTH"); err != nil {
		return err
	}
	return setInt(&c.CartRateLimit, "CART_RATE_LIMIT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = n
	return nil
}
