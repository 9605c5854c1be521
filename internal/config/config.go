package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Service is one external endpoint the health checker probes.
type Service struct {
	Name           string `mapstructure:"name" validate:"required"`
	URL            string `mapstructure:"url" validate:"required,url"`
	HealthEndpoint string `mapstructure:"health_endpoint"`
	Enabled        bool   `mapstructure:"enabled"`
}

// Config holds every configurable value for the dashboard backend.
type Config struct {
	// Server
	Port        int      `mapstructure:"port" validate:"gte=1,lte=65535"`
	LogLevel    string   `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Sampling and retention
	SampleInterval  time.Duration `mapstructure:"sample_interval" validate:"gt=0"`
	RetentionWindow time.Duration `mapstructure:"retention_window" validate:"gt=0"`
	FlushInterval   time.Duration `mapstructure:"flush_interval" validate:"gt=0"`
	DiskPath        string        `mapstructure:"disk_path" validate:"required"`

	// Persistence
	DBPath        string `mapstructure:"db_path" validate:"required"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gte=1"`

	// Health checks
	ProbeInterval time.Duration `mapstructure:"probe_interval" validate:"gt=0"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
	Services      []Service     `mapstructure:"services" validate:"dive"`

	// Containers
	DockerEnabled bool `mapstructure:"docker_enabled"`
}

// BufferCapacity derives the per-metric-type in-memory bound from the
// retention window and sample cadence.
func (c *Config) BufferCapacity() int {
	n := int(c.RetentionWindow / c.SampleInterval)
	if n < 1 {
		n = 1
	}
	return n
}

// Load reads configuration from (in decreasing priority):
//  1. environment variables (PIDASH_PORT, PIDASH_DB_PATH, ...)
//  2. a yaml file (./configs/config.yaml) if it exists
//  3. built-in defaults
//
// It returns a fully populated, validated *Config or an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:5174", "http://localhost:5175"})
	v.SetDefault("sample_interval", "2s")
	v.SetDefault("retention_window", "15m")
	v.SetDefault("flush_interval", "60s")
	v.SetDefault("disk_path", "/")
	v.SetDefault("db_path", "./data/metrics.db")
	v.SetDefault("retention_days", 7)
	v.SetDefault("probe_interval", "10s")
	v.SetDefault("probe_timeout", "5s")
	v.SetDefault("docker_enabled", false)

	v.SetEnvPrefix("pidash")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Optional yaml file for local dev or a mounted configmap.
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// The probe must finish before the next cycle can want to start it again.
	if cfg.ProbeTimeout > cfg.ProbeInterval {
		return nil, fmt.Errorf("probe_timeout %s exceeds probe_interval %s", cfg.ProbeTimeout, cfg.ProbeInterval)
	}

	// Snapshot timestamps have whole-second resolution; sampling faster than
	// that would let distinct samples share a timestamp and confuse the
	// flushed-through bookkeeping.
	if cfg.SampleInterval < time.Second {
		return nil, fmt.Errorf("sample_interval %s is below the 1s timestamp resolution", cfg.SampleInterval)
	}

	return &cfg, nil
}
