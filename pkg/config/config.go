package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig contains server-specific configuration
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	ReposDir      string `mapstructure:"repos_dir"`
	SessionAPIKey string `mapstructure:"session_api_key"`
}

// SearchConfig bounds find and search queries
type SearchConfig struct {
	// DefaultLimit applies when a request carries no limit parameter.
	DefaultLimit int `mapstructure:"default_limit"`
	// MaxLimit is the ceiling a client-supplied limit is clamped to.
	MaxLimit int `mapstructure:"max_limit"`
	// MaxFileSize is the largest blob (in bytes) content search will scan.
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// TelemetryConfig contains telemetry configuration
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load loads the configuration from viper
func Load() (*Config, error) {
	cfg := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal configuration
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Post-process configuration
	if err := postProcess(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)

	// Search defaults
	viper.SetDefault("search.default_limit", 100)
	viper.SetDefault("search.max_limit", 1000)
	viper.SetDefault("search.max_file_size", 512*1024)

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", true)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)

	// Environment variable mappings
	viper.BindEnv("server.repos_dir", "GITSCOUT_REPOS_DIR")
	viper.BindEnv("server.session_api_key", "SESSION_API_KEY")
	viper.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func postProcess(cfg *Config) error {
	if cfg.Server.ReposDir == "" {
		return fmt.Errorf("server.repos_dir is not specified (set --repos-dir or GITSCOUT_REPOS_DIR)")
	}

	// Ensure the repositories directory is absolute and exists
	if !filepath.IsAbs(cfg.Server.ReposDir) {
		abs, err := filepath.Abs(cfg.Server.ReposDir)
		if err != nil {
			return err
		}
		cfg.Server.ReposDir = abs
	}
	info, err := os.Stat(cfg.Server.ReposDir)
	if err != nil {
		return fmt.Errorf("repositories directory %s: %w", cfg.Server.ReposDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("repositories directory %s is not a directory", cfg.Server.ReposDir)
	}

	if cfg.Search.DefaultLimit <= 0 {
		cfg.Search.DefaultLimit = 100
	}
	if cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		cfg.Search.MaxLimit = cfg.Search.DefaultLimit
	}

	// Get session API key from environment if not set
	if cfg.Server.SessionAPIKey == "" {
		cfg.Server.SessionAPIKey = os.Getenv("SESSION_API_KEY")
	}

	return nil
}
