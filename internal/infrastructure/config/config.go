// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Sandbox   SandboxConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
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

// SandboxConfig holds the startup sandbox policy. PolicyFile, when set and
// present, takes precedence over the individual values and is rewritten on
// policy updates.
type SandboxConfig struct {
	AllowedPaths    []string `envconfig:"ALLOWED_PATHS"`
	PolicyFile      string   `envconfig:"POLICY_FILE"`
	ReadOnly        bool     `envconfig:"READ_ONLY" default:"false"`
	MaxFileSizeMB   int64    `envconfig:"MAX_FILE_SIZE_MB" default:"10"`
	ExcludePatterns []string `envconfig:"EXCLUDE_PATTERNS" default:"*.pyc,__pycache__,.git"`
}

// Load loads configuration from environment variables with the WARDEN prefix.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("warden", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
