// Package config loads the server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/frogworks/storefront/internal/email"
	"github.com/frogworks/storefront/pkg/logger"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the backing store. An empty DSN runs the server on
// the in-memory store.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// FilesConfig locates the on-disk file store for photos and uploads.
type FilesConfig struct {
	Root string `yaml:"root"`
}

// SessionConfig controls idle-session expiry.
type SessionConfig struct {
	MaxIdleMinutes int `yaml:"max_idle_minutes"`
}

// RateLimitConfig caps request throughput per client.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	SMTP      email.SMTPConfig     `yaml:"smtp"`
	Files     FilesConfig          `yaml:"files"`
	Sessions  SessionConfig        `yaml:"sessions"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
}

// Load reads the config file named by STOREFRONT_CONFIG (default
// config.yaml), applies environment overrides, then fills defaults. A missing
// file is not an error; overrides and defaults still apply.
func Load() (*Config, error) {
	path := os.Getenv("STOREFRONT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config file at the given path, applies environment
// overrides, then fills defaults.
func LoadFromPath(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env and defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// SessionMaxIdle returns the configured idle expiry as a duration.
func (c *Config) SessionMaxIdle() time.Duration {
	return time.Duration(c.Sessions.MaxIdleMinutes) * time.Minute
}

func (c *Config) applyEnv() {
	setString(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.SMTP.Host, "SMTP_HOST")
	setInt(&c.SMTP.Port, "SMTP_PORT")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.SMTP.From, "SMTP_FROM")
	setString(&c.Files.Root, "FILES_ROOT")
	setInt(&c.Sessions.MaxIdleMinutes, "SESSION_MAX_IDLE_MINUTES")
	setInt(&c.RateLimit.RequestsPerSecond, "RATE_LIMIT_RPS")
	setInt(&c.RateLimit.Burst, "RATE_LIMIT_BURST")
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Files.Root == "" {
		c.Files.Root = "data/files"
	}
	if c.Sessions.MaxIdleMinutes == 0 {
		c.Sessions.MaxIdleMinutes = 60
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
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
