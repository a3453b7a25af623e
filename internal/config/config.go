// Package config provides configuration management for rendermux using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultFPS              = 30.0
	defaultWidth            = 1920
	defaultHeight           = 1080
	defaultTrackConcurrency = 4
	defaultProbeTimeout     = 30 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	FFmpeg  FFmpegConfig  `mapstructure:"ffmpeg"`
	Export  ExportConfig  `mapstructure:"export"`
}

// StorageConfig holds output and scratch directory configuration.
type StorageConfig struct {
	// OutputDir receives final muxed files.
	OutputDir string `mapstructure:"output_dir"`
	// ScratchDir is the base for per-job scratch directories. Each job
	// creates its own uniquely named subdirectory underneath it.
	ScratchDir string `mapstructure:"scratch_dir"`
	// PublicDir resolves relative asset sources. Empty means the sibling
	// "public" directory of OutputDir.
	PublicDir string `mapstructure:"public_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath   string        `mapstructure:"binary_path"`   // Path to ffmpeg binary (empty = auto-detect)
	ProbePath    string        `mapstructure:"probe_path"`    // Path to ffprobe binary (empty = auto-detect)
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"` // Timeout for a single ffprobe invocation
}

// ExportConfig holds defaults for export jobs.
type ExportConfig struct {
	FPS       float64 `mapstructure:"fps"`
	Width     int     `mapstructure:"width"`
	Height    int     `mapstructure:"height"`
	FastStart bool    `mapstructure:"fast_start"`
	// TrackConcurrency bounds the number of parallel audio preparation
	// processes per job.
	TrackConcurrency int `mapstructure:"track_concurrency"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with RENDERMUX_ and use underscores
// for nesting. Example: RENDERMUX_EXPORT_FPS=60.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rendermux")
		v.AddConfigPath("$HOME/.rendermux")
	}

	v.SetEnvPrefix("RENDERMUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.output_dir", "./output")
	v.SetDefault("storage.scratch_dir", "./scratch")
	v.SetDefault("storage.public_dir", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")
	v.SetDefault("ffmpeg.probe_timeout", defaultProbeTimeout)

	// Export defaults
	v.SetDefault("export.fps", defaultFPS)
	v.SetDefault("export.width", defaultWidth)
	v.SetDefault("export.height", defaultHeight)
	v.SetDefault("export.fast_start", true)
	v.SetDefault("export.track_concurrency", defaultTrackConcurrency)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}
	if c.Storage.ScratchDir == "" {
		return fmt.Errorf("storage.scratch_dir is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Export.FPS <= 0 {
		return fmt.Errorf("export.fps must be positive")
	}
	if c.Export.Width < 1 || c.Export.Height < 1 {
		return fmt.Errorf("export.width and export.height must be at least 1")
	}
	if c.Export.TrackConcurrency < 1 {
		return fmt.Errorf("export.track_concurrency must be at least 1")
	}

	return nil
}

// PublicPath returns the directory against which relative asset sources are
// resolved. When no public dir is configured this is the sibling "public"
// directory of the output dir.
func (c *StorageConfig) PublicPath() string {
	if c.PublicDir != "" {
		return c.PublicDir
	}
	return filepath.Join(filepath.Dir(c.OutputDir), "public")
}
