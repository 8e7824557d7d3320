package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kitodo/kscript/internal/config"
	"github.com/kitodo/kscript/internal/folder"
	"github.com/kitodo/kscript/internal/imaging"
	"github.com/kitodo/kscript/internal/jobs"
	"github.com/kitodo/kscript/internal/script"
	"github.com/kitodo/kscript/internal/search"
	"github.com/kitodo/kscript/internal/store"
)

// app holds the services one command invocation works with.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   *store.FileStore
	index   *search.Index
	jobs    *jobs.Registry
	service *script.Service
}

// loadConfig resolves configuration from --config or the layered files,
// then applies --data-dir.
func loadConfig(ctx context.Context, flags *GlobalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigFile != "" {
		cfg, err = config.LoadFile(ctx, flags.ConfigFile)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, err
	}
	return config.ApplyOverrides(cfg, &config.Config{DataDir: flags.DataDir})
}

// newApp loads configuration and wires the store, index, job registry and
// script service. The index is rebuilt from the store before returning.
// Call close when done.
func newApp(ctx context.Context, flags *GlobalFlags) (*app, error) {
	logger := GetLogger()

	cfg, err := loadConfig(logger.WithContext(ctx), flags)
	if err != nil {
		return nil, err
	}
	configureLogRotation(cfg.Log.MaxSizeMB)

	st, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	index := search.NewIndex(cfg.Search.RefreshInterval, logger)
	if err := index.Rebuild(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to build metadata index: %w", err)
	}
	index.Start(ctx)

	registry := jobs.NewRegistry(logger,
		jobs.WithMaxWorkers(cfg.Jobs.MaxWorkers),
		jobs.WithStopTimeout(cfg.Jobs.StopTimeout),
	)

	generator := imaging.NewGenerator(logger,
		imaging.WithJPEGQuality(cfg.Images.JPEGQuality),
		imaging.WithDefaultWidth(cfg.Images.DefaultWidth),
	)

	svc := script.NewService(st, registry, index, folder.NewManager(st, logger), generator, logger)

	logger.Debug().
		Str("data_dir", cfg.DataDir).
		Int("max_workers", cfg.Jobs.MaxWorkers).
		Msg("services initialized")

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		index:   index,
		jobs:    registry,
		service: svc,
	}, nil
}

// close stops background jobs and the index refresh loop.
func (a *app) close() {
	if err := a.jobs.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("background jobs did not stop in time")
	}
	a.index.Close()
}
