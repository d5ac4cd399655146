package cmd

import (
	"context"
	"fmt"

	"license-agent/core/backend"
	"license-agent/core/booking"
	"license-agent/core/config"
	"license-agent/core/logger"
	"license-agent/core/metrics"
	"license-agent/core/reconcile"
	"license-agent/core/runner"
	"license-agent/core/storage"
	"license-agent/feature/licenseserver"
	"license-agent/feature/slurm"

	"go.uber.org/zap"
)

// agent bundles the long-lived components shared by run and reconcile.
type agent struct {
	cfg     *config.Config
	log     *zap.Logger
	backend backend.Client
	ledger  *booking.Ledger
	engine  *reconcile.Engine
	metrics *metrics.Metrics
}

// loadConfig loads the configuration and builds the logger.
func loadConfig(validate bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

func newAgent(ctx context.Context, cfg *config.Config, log *zap.Logger) (*agent, error) {
	be, err := backend.NewClient(cfg.Backend, cfg.Agent.ClusterClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	adapters, err := licenseserver.NewAdapters(cfg.Tools.Templates())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	ledger := booking.New(be, log)
	m := metrics.New(ledger)
	r := runner.New(log)

	opts := []reconcile.Option{reconcile.WithObserver(m)}
	if cfg.Tools.Squeue != "" {
		opts = append(opts, reconcile.WithJobLister(slurm.NewJobLister(r, cfg.Tools.Squeue, cfg.Agent.ToolTimeout(), log)))
	}
	if cfg.Archive.Enabled {
		client, err := storage.NewClient(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		archiver := storage.NewArchiver(client, cfg.Archive, log, nil)
		if err := archiver.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare report archive: %w", err)
		}
		opts = append(opts, reconcile.WithArchiver(archiver))
		log.Info("Report archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	}

	engine := reconcile.NewEngine(cfg.Agent.ReconcileSpec(), be, ledger, r, adapters, log, opts...)

	return &agent{
		cfg:     cfg,
		log:     log,
		backend: be,
		ledger:  ledger,
		engine:  engine,
		metrics: m,
	}, nil
}
