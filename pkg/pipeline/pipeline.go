// Package pipeline runs the analysis stages over a transaction log:
// parse, reconstruct, resolve blocks, compute indicators.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/ingest"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"go.uber.org/zap"
)

// Stage names reported to the metrics collector
const (
	StageParse       = "parse"
	StageReconstruct = "reconstruct"
	StageResolve     = "resolve"
	StageIndicators  = "indicators"
)

// ErrNoBlockMetadata is returned when a cross-block scan is requested but no
// swap carries a block after resolution
var ErrNoBlockMetadata = errors.New("cross-block scan without block metadata")

// Result is the outcome of one run
type Result struct {
	Analysis     *interfaces.Analysis
	Transactions int
	Events       int
	Resolution   *interfaces.BlockResolution
	Stages       map[string]time.Duration
	Duration     time.Duration
}

// Pipeline wires the stages together. Metrics may be nil.
type Pipeline struct {
	parser        interfaces.MessageParser
	reconstructor interfaces.Reconstructor
	resolver      interfaces.BlockResolver
	engine        interfaces.IndicatorEngine
	metrics       interfaces.MetricsCollector
	logger        *zap.Logger

	crossBlock bool
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithCrossBlock makes a run fail when no swap could be placed in a block
func WithCrossBlock(enabled bool) Option {
	return func(p *Pipeline) { p.crossBlock = enabled }
}

// New creates a pipeline
func New(
	parser interfaces.MessageParser,
	reconstructor interfaces.Reconstructor,
	resolver interfaces.BlockResolver,
	engine interfaces.IndicatorEngine,
	metrics interfaces.MetricsCollector,
	logger *zap.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		parser:        parser,
		reconstructor: reconstructor,
		resolver:      resolver,
		engine:        engine,
		metrics:       metrics,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunFile reads an NDJSON transaction log and runs the pipeline over it
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Result, error) {
	txs, err := ingest.ReadTransactionsFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	p.logger.Info("loaded transactions", zap.String("path", path), zap.Int("count", len(txs)))
	return p.Run(ctx, txs)
}

// Run analyses txs. Only block resolution may block on I/O.
func (p *Pipeline) Run(ctx context.Context, txs []*types.Transaction) (*Result, error) {
	start := time.Now()
	res := &Result{
		Transactions: len(txs),
		Stages:       make(map[string]time.Duration, 4),
	}

	var events []types.RawMessageEvent
	p.stage(res, StageParse, func() {
		events = p.parser.ParseAll(txs)
	})
	res.Events = len(events)

	var reconstruction *interfaces.ReconstructionResult
	p.stage(res, StageReconstruct, func() {
		reconstruction = p.reconstructor.Reconstruct(events)
	})
	tally := reconstruction.Tally
	p.logger.Debug("reconstructed swaps",
		zap.Int("events", tally.Events),
		zap.Int("groups", tally.Groups),
		zap.Int("emitted", tally.Emitted),
		zap.Int("incomplete", tally.Incomplete),
		zap.Int("unknown_direction", tally.UnknownDirection),
		zap.Int("failed", tally.Failed),
		zap.Int("pool_mismatch", tally.PoolMismatch),
		zap.Int("duplicate_roles", tally.DuplicateRoles),
	)

	var err error
	p.stage(res, StageResolve, func() {
		res.Resolution, err = p.resolver.Resolve(ctx, reconstruction.Swaps)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve blocks (%s): %w", p.resolver.Name(), err)
	}
	if n := len(res.Resolution.Swaps); p.crossBlock && n > 0 && res.Resolution.Missing == n {
		return nil, fmt.Errorf("%w: none of %d swaps has a block (block source %s)",
			ErrNoBlockMetadata, n, p.resolver.Name())
	}
	if res.Resolution.Missing > 0 {
		p.logger.Info("swaps without block metadata",
			zap.String("block_source", p.resolver.Name()),
			zap.Int("missing", res.Resolution.Missing),
			zap.Int("resolved", res.Resolution.Resolved),
		)
	}

	p.stage(res, StageIndicators, func() {
		res.Analysis = p.engine.Compute(res.Resolution.Swaps)
	})
	res.Analysis.Summary.Reconstruction = tally

	res.Duration = time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordRun(&interfaces.RunReport{
			Transactions: res.Transactions,
			Events:       res.Events,
			Records:      res.Analysis.Records,
			Summary:      res.Analysis.Summary,
			Duration:     res.Duration,
		})
	}

	s := res.Analysis.Summary
	p.logger.Info("analysis complete",
		zap.Int("transactions", res.Transactions),
		zap.Int("swaps", s.TotalSwaps),
		zap.Int("victims", s.Victims),
		zap.Int("triples", s.TotalTriples()),
		zap.Duration("duration", res.Duration),
	)

	return res, nil
}

func (p *Pipeline) stage(res *Result, name string, fn func()) {
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	res.Stages[name] = elapsed
	if p.metrics != nil {
		p.metrics.RecordStage(name, elapsed)
	}
}
