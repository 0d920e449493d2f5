package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/osteon/internal/config"
	"github.com/nvandessel/osteon/internal/export"
	"github.com/nvandessel/osteon/internal/logging"
	"github.com/nvandessel/osteon/internal/metrics"
	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/store"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	events   *logging.EventLogger
	runs     store.RunStore
	exporter *export.Exporter
	metrics  *metrics.Metrics
}

// loadConfig reads --config if given, else the default locations, then
// applies --log-level and validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if cfg.Export.Driver == "fs" && cfg.Export.Dir == "" {
		cfg.Export.Dir = filepath.Join(config.DataDir(), "reports")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp loads configuration and opens the store and exporter. Callers must
// close the app.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	runs, err := store.Open(ctx, store.Options{
		Driver: cfg.Store.Driver,
		Dir:    cfg.Store.Dir,
		DSN:    cfg.Store.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	sink, err := export.Open(ctx, export.Options{
		Driver:    cfg.Export.Driver,
		Dir:       cfg.Export.Dir,
		Bucket:    cfg.Export.Bucket,
		Region:    cfg.Export.Region,
		Endpoint:  cfg.Export.Endpoint,
		PathStyle: cfg.Export.PathStyle,
	})
	if err != nil {
		runs.Close()
		return nil, fmt.Errorf("failed to open export sink: %w", err)
	}

	logger.Debug("app ready", "store", cfg.Store, "export", cfg.Export.Driver)
	return &app{
		cfg:      cfg,
		logger:   logger,
		events:   logging.NewEventLogger(config.DataDir(), cfg.Logging.Level),
		runs:     runs,
		exporter: export.NewExporter(sink, cfg.Export.Prefix),
		metrics:  metrics.New(),
	}, nil
}

// runner builds a simulation runner wired to the app's sinks.
func (a *app) runner(opts ...simulation.Option) *simulation.Runner {
	base := []simulation.Option{
		simulation.WithBaseConfig(a.cfg.Simulation.Tissue()),
		simulation.WithConditions(a.cfg.Environment.Conditions()),
		simulation.WithStepDays(a.cfg.Simulation.StepDays),
		simulation.WithStore(a.runs),
		simulation.WithExporter(a.exporter),
		simulation.WithMetrics(a.metrics),
		simulation.WithEventLogger(a.events),
		simulation.WithLogger(a.logger),
	}
	return simulation.NewRunner(append(base, opts...)...)
}

func (a *app) Close() {
	if err := a.runs.Close(); err != nil {
		a.logger.Warn("failed to close run store", "error", err)
	}
	a.events.Close()
}

// signalContext is canceled on the first shutdown signal.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
