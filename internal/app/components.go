package app

import (
	"fmt"

	"github.com/mev-engine/ton-mev-lab/internal/api"
	"github.com/mev-engine/ton-mev-lab/internal/config"
	"github.com/mev-engine/ton-mev-lab/pkg/events"
	"github.com/mev-engine/ton-mev-lab/pkg/indicators"
	"github.com/mev-engine/ton-mev-lab/pkg/ingest"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/metrics"
	"github.com/mev-engine/ton-mev-lab/pkg/pipeline"
	"github.com/mev-engine/ton-mev-lab/pkg/reconstruct"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NewMessageParser builds the parser for the configured opcodes
func NewMessageParser(cfg *config.Config) (interfaces.MessageParser, error) {
	set, err := events.NewOpcodeSet(cfg.Opcodes.Notify, cfg.Opcodes.Swap, cfg.Opcodes.Pay, cfg.Opcodes.Transfer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return events.NewMessageParser(set), nil
}

// NewReconstructor builds the reconstructor for the configured pool
func NewReconstructor(cfg *config.Config) interfaces.Reconstructor {
	return reconstruct.NewReconstructor(&interfaces.ReconstructConfig{
		USDTWallet:       cfg.Pool.USDTWallet,
		PTONWallet:       cfg.Pool.PTONWallet,
		SuccessExitCode:  cfg.Pool.SuccessExitCode,
		RequirePoolMatch: cfg.Pool.RequireMatch,
	})
}

// EngineConfig converts the analysis section into indicator engine settings
func EngineConfig(cfg *config.Config) indicators.Config {
	a := cfg.Analysis
	return indicators.Config{
		Rate: &interfaces.RateConfig{
			TONDecimals:  cfg.Pool.TONDecimals,
			USDTDecimals: cfg.Pool.USDTDecimals,
			Scale:        decimal.NewFromFloat(a.RateScale),
			Sanity: map[types.Direction]interfaces.RateBounds{
				types.DirectionTONToUSDT: bounds(a.Sanity.TONToUSDT),
				types.DirectionUSDTToTON: bounds(a.Sanity.USDTToTON),
			},
		},
		Sandwich: &interfaces.SandwichConfig{
			CrossBlock:     a.CrossBlock,
			BlockGap:       uint64(a.BlockGap),
			MinRateImpact:  decimal.NewFromFloat(a.MinRateImpact),
			BaselineWindow: uint64(a.BaselineWindow),
		},
		TopHits: a.TopHits,
	}
}

func bounds(b config.BoundsConfig) interfaces.RateBounds {
	return interfaces.RateBounds{Min: decimal.NewFromFloat(b.Min), Max: decimal.NewFromFloat(b.Max)}
}

// NewEngine builds the indicator engine
func NewEngine(cfg *config.Config) interfaces.IndicatorEngine {
	return indicators.NewEngine(EngineConfig(cfg))
}

// NewTonapiClient builds the tonapi client
func NewTonapiClient(cfg *config.Config) *ingest.Client {
	t := cfg.Tonapi
	return ingest.NewClient(t.BaseURL,
		ingest.WithAPIKey(t.APIKey),
		ingest.WithTimeout(t.Timeout),
		ingest.WithMaxRetries(t.MaxRetries),
		ingest.WithRetryDelay(t.RetryDelay),
		ingest.WithMaxDelay(t.MaxDelay),
		ingest.WithRequestInterval(t.RequestInterval),
	)
}

// NewBlockResolver builds the configured block resolver
func NewBlockResolver(cfg *config.Config, client *ingest.Client, logger *zap.Logger) (interfaces.BlockResolver, error) {
	resolver, err := ingest.NewBlockResolver(cfg.Analysis.BlockSource, client, logger.Named("blocks"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return resolver, nil
}

// NewCollector builds a metrics collector on its own registry
func NewCollector() *metrics.Collector {
	return metrics.NewCollectorWithRegistry(nil, prometheus.NewRegistry())
}

// NewPipeline wires the analysis stages
func NewPipeline(
	cfg *config.Config,
	parser interfaces.MessageParser,
	reconstructor interfaces.Reconstructor,
	resolver interfaces.BlockResolver,
	engine interfaces.IndicatorEngine,
	collector *metrics.Collector,
	logger *zap.Logger,
) *pipeline.Pipeline {
	return pipeline.New(parser, reconstructor, resolver, engine, collector, logger.Named("pipeline"),
		pipeline.WithCrossBlock(cfg.Analysis.CrossBlock))
}

// NewAPIServer serves the application's analyses over HTTP
func NewAPIServer(cfg *config.Config, a *Application, collector *metrics.Collector, logger *zap.Logger) *api.Server {
	handlers := api.NewHandlers(a, cfg.Analysis.Input, Version, logger.Named("api"))
	return api.NewServer(cfg, handlers, collector.Handler(), logger.Named("api"))
}
