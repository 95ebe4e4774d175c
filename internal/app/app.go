package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mev-engine/ton-mev-lab/internal/config"
	"github.com/mev-engine/ton-mev-lab/pkg/ingest"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/metrics"
	"github.com/mev-engine/ton-mev-lab/pkg/pipeline"
	"github.com/mev-engine/ton-mev-lab/pkg/storage/postgres"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags
var Version = "dev"

// Application runs analyses and fetches with the configured collaborators
type Application struct {
	config    *config.Config
	logger    *zap.Logger
	pipeline  *pipeline.Pipeline
	client    *ingest.Client
	collector *metrics.Collector
	store     interfaces.SwapStore
}

// Params are the application's injected dependencies
type Params struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Pipeline  *pipeline.Pipeline
	Client    *ingest.Client
	Collector *metrics.Collector
	Store     interfaces.SwapStore `optional:"true"`
}

// NewApplication creates a new application instance
func NewApplication(p Params) *Application {
	return &Application{
		config:    p.Config,
		logger:    p.Logger,
		pipeline:  p.Pipeline,
		client:    p.Client,
		collector: p.Collector,
		store:     p.Store,
	}
}

// Config returns the loaded configuration
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the root logger
func (a *Application) Logger() *zap.Logger { return a.logger }

// Collector returns the metrics collector
func (a *Application) Collector() *metrics.Collector { return a.collector }

// Analyze runs the pipeline over the configured input and feeds the optional
// sinks: records NDJSON, postgres and the metrics textfile.
func (a *Application) Analyze(ctx context.Context) (*pipeline.Result, error) {
	if err := a.config.ValidateInput(); err != nil {
		return nil, err
	}

	res, err := a.pipeline.RunFile(ctx, a.config.Analysis.Input)
	if errors.Is(err, pipeline.ErrNoBlockMetadata) {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if err != nil {
		return nil, err
	}

	if path := a.config.Analysis.RecordsOut; path != "" {
		if err := writeFile(path, func(f *os.File) error {
			return ingest.WriteRecords(f, res.Analysis.Records)
		}); err != nil {
			return nil, fmt.Errorf("write records: %w", err)
		}
		a.logger.Info("wrote records", zap.String("path", path), zap.Int("count", len(res.Analysis.Records)))
	}

	if a.store != nil {
		start := time.Now()
		if err := a.store.UpsertAnalysis(ctx, res.Analysis.Records); err != nil {
			return nil, fmt.Errorf("persist analysis: %w", err)
		}
		a.collector.RecordStage("persist", time.Since(start))
		a.logger.Info("persisted records", zap.Int("count", len(res.Analysis.Records)))
	}

	if path := a.config.Metrics.Textfile; path != "" {
		if err := a.collector.WriteTextfile(path); err != nil {
			return nil, fmt.Errorf("write metrics textfile: %w", err)
		}
	}

	return res, nil
}

// Fetch pages through the router history and writes it as NDJSON
func (a *Application) Fetch(ctx context.Context) (*ingest.FetchStats, error) {
	if err := a.config.ValidateFetch(); err != nil {
		return nil, err
	}

	f := a.config.Fetch
	opts := ingest.FetchOptions{
		Account:  f.Account,
		Limit:    f.Limit,
		Pages:    f.Pages,
		BeforeLT: f.BeforeLT,
	}
	if f.MaxAge > 0 {
		opts.Cutoff = time.Now().Add(-f.MaxAge)
	}

	txs, stats, err := ingest.NewFetcher(a.client, a.logger.Named("fetch")).Fetch(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := writeFile(f.Output, func(out *os.File) error {
		return ingest.WriteTransactions(out, txs)
	}); err != nil {
		return nil, fmt.Errorf("write %s: %w", f.Output, err)
	}

	a.logger.Info("fetch complete",
		zap.String("output", f.Output),
		zap.Int("transactions", stats.Transactions),
		zap.Int("pages", stats.Pages),
		zap.Uint64("oldest_lt", stats.OldestLT),
		zap.String("stop_reason", stats.StopReason),
	)
	return stats, nil
}

func writeFile(path string, write func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// newStore opens the postgres sink when a DSN is configured
func newStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (interfaces.SwapStore, error) {
	dsn := cfg.Storage.PostgresDSN
	if dsn == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("postgres sink enabled")

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return postgres.NewSwapStore(pool), nil
}

// Module provides the fx module for dependency injection
var Module = fx.Options(
	fx.Provide(
		NewMessageParser,
		NewReconstructor,
		NewEngine,
		NewTonapiClient,
		NewBlockResolver,
		NewCollector,
		NewPipeline,
		newStore,
		NewApplication,
		NewAPIServer,
	),
)

// New builds the fx application for cfg. The logger is created up front so
// fx's own events go through it.
func New(cfg *config.Config, opts ...fx.Option) (*fx.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if cfg.WideGap() {
		logger.Warn("cross-block scan with a wide block gap; triples spanning two or more blocks are graded low",
			zap.Int("block_gap", cfg.Analysis.BlockGap))
	}

	all := append([]fx.Option{
		fx.Supply(cfg, logger),
		fx.WithLogger(func() fxevent.Logger { return fxLogger(logger) }),
		Module,
	}, opts...)

	fxApp := fx.New(all...)
	if err := fxApp.Err(); err != nil {
		return nil, err
	}
	return fxApp, nil
}
