// Package config provides configuration loading and management for mriviewer.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// HTTP server parameters
	Server struct {
		// Addr is the listen address of the viewer page and API
		Addr string `yaml:"addr"`

		// ExportDir is where server-side exports are written
		ExportDir string `yaml:"exportDir"`
	} `yaml:"server"`

	// Display canvas parameters
	Canvas struct {
		// Width and Height are the canvas size in pixels
		Width  int `yaml:"width"`
		Height int `yaml:"height"`

		// Background is the hex fill colour around the image
		Background string `yaml:"background"`
	} `yaml:"canvas"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many files are parsed in parallel when a folder is opened
		NumCores int `yaml:"numCores"`

		// Extension selects the files picked up from a folder
		Extension string `yaml:"extension"`
	} `yaml:"processing"`

	// View control parameters
	View struct {
		// ZoomStep is the scale change of the zoom buttons
		ZoomStep float64 `yaml:"zoomStep"`

		// WheelStep is the scale change per mouse wheel notch
		WheelStep float64 `yaml:"wheelStep"`

		// MinScale and MaxScale bound the zoom factor
		MinScale float64 `yaml:"minScale"`
		MaxScale float64 `yaml:"maxScale"`
	} `yaml:"view"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default server parameters
	cfg.Server.Addr = "localhost:8080"
	cfg.Server.ExportDir = "exports"

	// Set default canvas parameters
	cfg.Canvas.Width = 512
	cfg.Canvas.Height = 512
	cfg.Canvas.Background = "#000000"

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.Extension = ".dcm"

	// Set default view parameters
	cfg.View.ZoomStep = 0.2
	cfg.View.WheelStep = 0.1
	cfg.View.MinScale = 0.1
	cfg.View.MaxScale = 10

	cfg.Logging.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Processing.NumCores < 0 {
		return fmt.Errorf("invalid numCores %d", c.Processing.NumCores)
	}
	if c.View.MinScale <= 0 || c.View.MaxScale < c.View.MinScale {
		return fmt.Errorf("invalid scale range [%g, %g]", c.View.MinScale, c.View.MaxScale)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name to a slog level
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
