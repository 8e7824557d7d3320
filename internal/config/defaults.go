package config

import (
	"github.com/kitodo/kscript/internal/constants"
)

// DefaultConfig returns a new Config with the built-in default values.
// These defaults are the base layer that config files, environment
// variables, and CLI flags override.
func DefaultConfig() *Config {
	return &Config{
		DataDir: constants.DefaultDataDir,
		Jobs: JobsConfig{
			MaxWorkers:  constants.DefaultMaxWorkers,
			StopTimeout: constants.DefaultStopTimeout,
		},
		Images: ImagesConfig{
			JPEGQuality:  constants.DefaultJPEGQuality,
			DefaultWidth: constants.DefaultImageWidth,
		},
		Search: SearchConfig{
			RefreshInterval: constants.DefaultRefreshInterval,
		},
		Log: LogConfig{
			MaxSizeMB: constants.LogMaxSizeMB,
		},
	}
}
