// Package config loads huddle settings from huddle.yaml and HUDDLE_* variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given. Its absence is not an error.
const DefaultFile = "huddle.yaml"

// Overlay drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the resolved process configuration.
type Config struct {
	LogLevel    string        `yaml:"log_level" env:"HUDDLE_LOG_LEVEL"`
	ReactionTTL time.Duration `yaml:"reaction_ttl" env:"HUDDLE_REACTION_TTL"`
	CatalogDir  string        `yaml:"catalog_dir" env:"HUDDLE_CATALOG_DIR"`
	HTTPAddr    string        `yaml:"http_addr" env:"HUDDLE_HTTP_ADDR"`

	Overlay OverlayConfig `yaml:"overlay"`
	Redis   RedisConfig   `yaml:"redis"`
}

// OverlayConfig selects where user registered activities persist.
type OverlayConfig struct {
	Driver string `yaml:"driver" env:"HUDDLE_OVERLAY_DRIVER"`
	// Path is the JSON file for the file driver and the database for sqlite.
	Path string `yaml:"path" env:"HUDDLE_OVERLAY_PATH"`
}

// RedisConfig is shared by the redis overlay driver, transport and locker.
type RedisConfig struct {
	Addr        string        `yaml:"addr" env:"HUDDLE_REDIS_ADDR"`
	Password    string        `yaml:"password" env:"HUDDLE_REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"HUDDLE_REDIS_DB"`
	Prefix      string        `yaml:"prefix" env:"HUDDLE_REDIS_PREFIX"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" env:"HUDDLE_REDIS_SNAPSHOT_TTL"`
}

// Enabled reports whether a redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Load reads path (or DefaultFile when path is empty), applies environment
// overrides, then fills defaults. An explicit path that does not exist is an error.
func Load(path string) (Config, error) {
	var cfg Config

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", file, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == "":
	default:
		return Config{}, fmt.Errorf("failed to read %s: %w", file, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ReactionTTL == 0 {
		c.ReactionTTL = 2500 * time.Millisecond
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.Overlay.Driver == "" {
		c.Overlay.Driver = DriverFile
	}
	if c.Overlay.Path == "" {
		switch c.Overlay.Driver {
		case DriverFile:
			c.Overlay.Path = ".huddle/overlay.json"
		case DriverSQLite:
			c.Overlay.Path = ".huddle/overlay.db"
		}
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "huddle:"
	}
}

// Validate checks settings that defaults cannot repair.
func (c Config) Validate() error {
	switch c.Overlay.Driver {
	case DriverMemory, DriverFile, DriverSQLite:
	case DriverRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("overlay driver %q requires redis.addr", DriverRedis)
		}
	default:
		return fmt.Errorf("unknown overlay driver %q", c.Overlay.Driver)
	}
	if c.ReactionTTL < 0 {
		return fmt.Errorf("reaction_ttl must be positive, got %s", c.ReactionTTL)
	}
	if c.Redis.SnapshotTTL < 0 {
		return fmt.Errorf("redis.snapshot_ttl must not be negative, got %s", c.Redis.SnapshotTTL)
	}
	return nil
}
