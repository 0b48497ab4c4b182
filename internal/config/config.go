// Package config loads application settings from DUET_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Backend names accepted by KV_BACKEND.
const (
	BackendBolt   = "bbolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// Storage
	DataDir   string `envconfig:"DATA_DIR" default:""`
	KVBackend string `envconfig:"KV_BACKEND" default:"bbolt"`

	// Backend API; empty disables the session manager.
	APIBaseURL  string        `envconfig:"API_BASE_URL" default:""`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
	HTTPRetries int           `envconfig:"HTTP_RETRIES" default:"2"`

	// Stores
	MaxRecordingPoints int           `envconfig:"MAX_RECORDING_POINTS" default:"5000"`
	ToastDuration      time.Duration `envconfig:"TOAST_DURATION" default:"3s"`
	PersistStories     bool          `envconfig:"PERSIST_STORIES" default:"false"`

	Debug bool `envconfig:"DEBUG" default:"false"`
}

// ResolveDefaults validates the backend and numeric bounds.
func (c *Config) ResolveDefaults() error {
	switch c.KVBackend {
	case "", "auto":
		c.KVBackend = BackendBolt
	case BackendBolt, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unsupported KV_BACKEND: %s", c.KVBackend)
	}
	if c.MaxRecordingPoints < 2 {
		return fmt.Errorf("MAX_RECORDING_POINTS must be at least 2, got %d", c.MaxRecordingPoints)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.ToastDuration <= 0 {
		return fmt.Errorf("TOAST_DURATION must be positive")
	}
	return nil
}

// New parses DUET_* environment variables, e.g. DUET_KV_BACKEND=sqlite.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("DUET", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Log writes the effective settings at info level.
func (c *Config) Log(log zerolog.Logger) {
	log.Info().
		Str("kv_backend", c.KVBackend).
		Str("data_dir", c.DataDir).
		Bool("api_configured", c.APIBaseURL != "").
		Int("max_recording_points", c.MaxRecordingPoints).
		Dur("toast_duration", c.ToastDuration).
		Bool("persist_stories", c.PersistStories).
		Msg("configuration loaded")
}
