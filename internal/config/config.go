// Package config provides configuration management for kscript with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (KSCRIPT_* prefix)
//  3. Project config (.kscript/config.yaml)
//  4. Global config (~/.kscript/config.yaml)
//  5. Built-in defaults
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for kscript.
type Config struct {
	// DataDir is the directory holding the catalog and one subdirectory per process.
	// Default: "data" (relative to the working directory)
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// Jobs contains settings for the background job registry.
	Jobs JobsConfig `yaml:"jobs" mapstructure:"jobs"`

	// Images contains settings for derivative image generation.
	Images ImagesConfig `yaml:"images" mapstructure:"images"`

	// Search contains settings for the metadata index.
	Search SearchConfig `yaml:"search" mapstructure:"search"`

	// Log contains settings for the rotated CLI log file.
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// JobsConfig contains settings for background jobs.
type JobsConfig struct {
	// MaxWorkers is the number of jobs that may run at the same time.
	// Default: 2, Valid range: 1-64
	MaxWorkers int `yaml:"max_workers" mapstructure:"max_workers"`

	// StopTimeout bounds how long shutdown waits for stopped jobs to return.
	// Default: 10 seconds
	StopTimeout time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout"`
}

// ImagesConfig contains settings for derivative image generation.
type ImagesConfig struct {
	// JPEGQuality is the encoder quality of generated JPEG files.
	// Default: 90, Valid range: 1-100
	JPEGQuality int `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`

	// DefaultWidth is the width in pixels used for a folder that sets
	// neither a scale nor a width.
	// Default: 150
	DefaultWidth int `yaml:"default_width" mapstructure:"default_width"`
}

// SearchConfig contains settings for the metadata index.
type SearchConfig struct {
	// RefreshInterval is how often pending metadata updates become searchable.
	// Zero makes updates visible immediately.
	// Default: 1 second, Valid range: 0-1 minute
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// LogConfig contains settings for the CLI log file.
type LogConfig struct {
	// MaxSizeMB is the size at which the log file is rotated.
	// Default: 10
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`
}
