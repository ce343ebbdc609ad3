// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/nomination-archive-crawler/internal/config"
	collyfetcher "github.com/JakeFAU/nomination-archive-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/nomination-archive-crawler/internal/id/uuid"
	"github.com/JakeFAU/nomination-archive-crawler/internal/logging"
	"github.com/JakeFAU/nomination-archive-crawler/internal/metrics"
	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
	"github.com/JakeFAU/nomination-archive-crawler/internal/pipeline"
	"github.com/JakeFAU/nomination-archive-crawler/internal/storage/postgres"
	"github.com/JakeFAU/nomination-archive-crawler/internal/storage/sqlite"
)

// App holds the services shared by every command: the logger, the
// initialized store, the crawl pipeline, and the optional metrics listener.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    nomination.Store
	pipeline *pipeline.Pipeline
	metrics  *metrics.Server
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	fetcher nomination.Fetcher
}

// WithLogger uses logger instead of building one from the configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFetcher replaces the Colly fetcher.
func WithFetcher(fetcher nomination.Fetcher) Option {
	return func(o *options) {
		o.fetcher = fetcher
	}
}

// NewApp builds every service from cfg. It fails fast: the store must be
// reachable and its schema created before any command runs.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Development: cfg.Logging.Development,
			Level:       cfg.Logging.Level,
		})
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.HTTP.UserAgent,
			RespectRobots: cfg.HTTP.RespectRobots,
			Timeout:       cfg.Timeout(),
		})
	}

	p, err := pipeline.New(cfg.PipelineConfig(), fetcher, store, logger.Named("pipeline"),
		pipeline.WithIDGenerator(uuid.New()))
	if err != nil {
		closeStore(store, logger)
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, store: store, pipeline: p}
	if cfg.Metrics.ListenAddr != "" {
		srv, err := metrics.Start(cfg.Metrics.ListenAddr, logger.Named("metrics"))
		if err != nil {
			closeStore(store, logger)
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		a.metrics = srv
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (nomination.Store, error) {
	var store nomination.Store
	if postgres.IsDSN(cfg.Database.Location) {
		logger.Info("Connecting to PostgreSQL...")
		pg, err := postgres.NewStore(ctx, postgres.Config{
			DSN:             cfg.Database.Location,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime(),
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		store = pg
	} else {
		lite, err := sqlite.Open(cfg.Database.Location)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		logger.Info("Using SQLite database", zap.String("location", lite.Location()))
		store = lite
	}

	if err := store.Initialize(ctx); err != nil {
		closeStore(store, logger)
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return store, nil
}

func closeStore(store nomination.Store, logger *zap.Logger) {
	if err := store.Close(); err != nil {
		logger.Warn("Error closing database", zap.Error(err))
	}
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store exposes the initialized nomination store.
func (a *App) Store() nomination.Store {
	return a.store
}

// Pipeline returns the crawl orchestrator.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// MetricsAddr is the bound metrics listener address, or empty when disabled.
func (a *App) MetricsAddr() string {
	if a.metrics == nil {
		return ""
	}
	return a.metrics.Addr()
}

// Close shuts down the metrics listener and the store, then flushes the logger.
func (a *App) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("Error stopping metrics server", zap.Error(err))
		}
		cancel()
	}
	closeStore(a.store, a.logger)
	// stderr sync fails on some terminals; nothing useful to do about it.
	_ = a.logger.Sync()
}
