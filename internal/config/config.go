// Package config loads the supervisor's TOML configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/gamesup/gamesup/internal/audit/factory"
	"github.com/gamesup/gamesup/internal/logger"
)

// Config is the top-level file structure.
type Config struct {
	LogLevel string               `mapstructure:"log_level"`
	LogJSON  bool                 `mapstructure:"log_json"`
	Server   ServerConfig         `mapstructure:"server"`
	Engine   EngineConfig         `mapstructure:"engine"`
	Capture  logger.CaptureConfig `mapstructure:"capture"`
	Audit    []factory.SinkConfig `mapstructure:"audit"`
}

type ServerConfig struct {
	Listen      string `mapstructure:"listen"`
	BasePath    string `mapstructure:"base_path"`
	MetricsAddr string `mapstructure:"metrics_listen"`
}

// EngineConfig carries the supervision tunables. Zero values select the
// engine defaults.
type EngineConfig struct {
	MonitorInterval  time.Duration `mapstructure:"monitor_interval"`
	DetachedInterval time.Duration `mapstructure:"detached_interval"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	StabilityWindow  time.Duration `mapstructure:"stability_window"`
	GraceWindow      time.Duration `mapstructure:"grace_window"`
	SpawnTimeout     time.Duration `mapstructure:"spawn_timeout"`
	KillWait         time.Duration `mapstructure:"kill_wait"`
	MaxRetries       int           `mapstructure:"max_retries"`
	MaxConcurrent    int           `mapstructure:"max_concurrent"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects nonsensical tunables early.
func (c *Config) Validate() error {
	e := c.Engine
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"engine.monitor_interval", e.MonitorInterval},
		{"engine.detached_interval", e.DetachedInterval},
		{"engine.sweep_interval", e.SweepInterval},
		{"engine.stability_window", e.StabilityWindow},
		{"engine.grace_window", e.GraceWindow},
		{"engine.spawn_timeout", e.SpawnTimeout},
		{"engine.kill_wait", e.KillWait},
	} {
		if d.v < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must not be negative")
	}
	if e.MaxConcurrent < 0 {
		return fmt.Errorf("engine.max_concurrent must not be negative")
	}
	for i, s := range c.Audit {
		if s.Type == "" {
			return fmt.Errorf("audit[%d]: type is required", i)
		}
		if s.DSN == "" {
			return fmt.Errorf("audit[%d]: dsn is required", i)
		}
	}
	return nil
}
