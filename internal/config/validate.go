package config

import (
	"time"

	"github.com/kitodo/kscript/internal/errors"
)

// Validation limits.
const (
	maxWorkersLimit    = 64
	maxRefreshInterval = time.Minute
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - data_dir must not be empty
//   - jobs.max_workers must be between 1 and 64
//   - jobs.stop_timeout must be positive
//   - images.jpeg_quality must be between 1 and 100
//   - images.default_width must be positive
//   - search.refresh_interval must be between 0 and 1 minute
//   - log.max_size_mb must be positive
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if cfg.DataDir == "" {
		return errors.Wrap(errors.ErrEmptyValue, "data_dir must not be empty")
	}

	if err := validateJobsConfig(&cfg.Jobs); err != nil {
		return err
	}

	if err := validateImagesConfig(&cfg.Images); err != nil {
		return err
	}

	if cfg.Search.RefreshInterval < 0 || cfg.Search.RefreshInterval > maxRefreshInterval {
		return errors.Wrapf(errors.ErrConfigInvalidSearch,
			"search.refresh_interval must be between 0 and %s, got %s",
			maxRefreshInterval, cfg.Search.RefreshInterval)
	}

	if cfg.Log.MaxSizeMB <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidLog,
			"log.max_size_mb must be positive, got %d", cfg.Log.MaxSizeMB)
	}

	return nil
}

func validateJobsConfig(cfg *JobsConfig) error {
	if cfg.MaxWorkers < 1 || cfg.MaxWorkers > maxWorkersLimit {
		return errors.Wrapf(errors.ErrConfigInvalidJobs,
			"jobs.max_workers must be between 1 and %d, got %d", maxWorkersLimit, cfg.MaxWorkers)
	}
	if cfg.StopTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidJobs,
			"jobs.stop_timeout must be positive, got %s", cfg.StopTimeout)
	}
	return nil
}

func validateImagesConfig(cfg *ImagesConfig) error {
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return errors.Wrapf(errors.ErrConfigInvalidImages,
			"images.jpeg_quality must be between 1 and 100, got %d", cfg.JPEGQuality)
	}
	if cfg.DefaultWidth <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidImages,
			"images.default_width must be positive, got %d", cfg.DefaultWidth)
	}
	return nil
}
