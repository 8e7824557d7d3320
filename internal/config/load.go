package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/errors"
)

// newViperInstance creates a Viper instance with defaults and KSCRIPT_ environment binding.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(ctx context.Context, v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("data_dir", cfg.DataDir).
		Int("jobs.max_workers", cfg.Jobs.MaxWorkers).
		Dur("search.refresh_interval", cfg.Search.RefreshInterval).
		Msg("configuration loaded")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence:
// environment variables, then the project config, then the global config,
// then built-in defaults.
//
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, ProjectConfigPath(), "project"); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(ctx, v)
}

// LoadFile reads configuration from one explicit file (the --config flag)
// on top of the defaults. Environment variables still take precedence.
// Unlike Load, a missing file is an error.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	v := newViperInstance()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}
	return unmarshalAndValidate(ctx, v)
}

// loadGlobalConfig loads ~/.kscript/config.yaml if it exists.
func loadGlobalConfig(v *viper.Viper) error {
	path, err := GlobalConfigPath()
	if err != nil {
		// Home dir unavailable, skip silently
		return nil //nolint:nilerr // a missing home directory only disables the global layer
	}
	return mergeConfigFile(v, path, "global")
}

// mergeConfigFile merges the file at path into v if it exists.
func mergeConfigFile(v *viper.Viper, path, layer string) error {
	if !fileExists(path) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrapf(err, "failed to read %s config file", layer)
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero values in overrides are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyOverrides(cfg, overrides)
}

// ApplyOverrides merges the non-zero values of overrides into cfg and
// re-validates the result.
func ApplyOverrides(cfg, overrides *Config) (*Config, error) {
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths for testing.
// projectConfigPath has higher priority than globalConfigPath.
// Either path can be empty to skip that level.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(ctx, v)
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("jobs.max_workers", d.Jobs.MaxWorkers)
	v.SetDefault("jobs.stop_timeout", d.Jobs.StopTimeout.String())
	v.SetDefault("images.jpeg_quality", d.Images.JPEGQuality)
	v.SetDefault("images.default_width", d.Images.DefaultWidth)
	v.SetDefault("search.refresh_interval", d.Search.RefreshInterval.String())
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
}

// applyOverrides merges non-zero override values into the config.
// A zero refresh interval cannot be set this way; use the config file or
// KSCRIPT_SEARCH_REFRESH_INTERVAL=0s.
func applyOverrides(cfg, overrides *Config) {
	if overrides.DataDir != "" {
		cfg.DataDir = overrides.DataDir
	}
	if overrides.Jobs.MaxWorkers != 0 {
		cfg.Jobs.MaxWorkers = overrides.Jobs.MaxWorkers
	}
	if overrides.Jobs.StopTimeout != 0 {
		cfg.Jobs.StopTimeout = overrides.Jobs.StopTimeout
	}
	if overrides.Images.JPEGQuality != 0 {
		cfg.Images.JPEGQuality = overrides.Images.JPEGQuality
	}
	if overrides.Images.DefaultWidth != 0 {
		cfg.Images.DefaultWidth = overrides.Images.DefaultWidth
	}
	if overrides.Search.RefreshInterval != 0 {
		cfg.Search.RefreshInterval = overrides.Search.RefreshInterval
	}
	if overrides.Log.MaxSizeMB != 0 {
		cfg.Log.MaxSizeMB = overrides.Log.MaxSizeMB
	}
}

// viperDecoderOption configures mapstructure to decode durations from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
