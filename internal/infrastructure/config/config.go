package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Runtime   RuntimeConfig
	Scene     SceneConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string `envconfig:"PORT" default:"8000"`
	Host     string `envconfig:"HOST" default:"0.0.0.0"`
	Compress bool   `envconfig:"COMPRESS" default:"true"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// RuntimeConfig holds loop, animation and script settings.
type RuntimeConfig struct {
	FrameInterval    time.Duration `envconfig:"FRAME_INTERVAL" default:"16ms"`
	ScriptTimeout    time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"5s"`
	MaxCallStackSize int           `envconfig:"MAX_CALL_STACK" default:"1024"`
	SanitizePages    bool          `envconfig:"SANITIZE_PAGES" default:"true"`
}

// SceneConfig holds scene loading configuration. Path may be a glob.
type SceneConfig struct {
	Path string `envconfig:"SCENE_PATH"`
	URL  string `envconfig:"SCENE_URL"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the runtime cannot run with.
func (c *Config) Validate() error {
	if c.Runtime.FrameInterval <= 0 {
		return fmt.Errorf("invalid config: FRAME_INTERVAL must be positive, got %s", c.Runtime.FrameInterval)
	}
	if c.Runtime.ScriptTimeout < 0 {
		return fmt.Errorf("invalid config: SCRIPT_TIMEOUT must not be negative, got %s", c.Runtime.ScriptTimeout)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid config: RATE_LIMIT_RPS must be positive when rate limiting is enabled")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			Compress:    true,
			CORSOrigins: []string{"*"},
		},
		Runtime: RuntimeConfig{
			FrameInterval:    16 * time.Millisecond,
			ScriptTimeout:    5 * time.Second,
			MaxCallStackSize: 1024,
			SanitizePages:    true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
