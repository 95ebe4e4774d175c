package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"go.uber.org/zap"
)

// Block source names
const (
	BlockSourceInline = "inline"
	BlockSourceTonapi = "tonapi"
	BlockSourceNone   = "none"
)

// NewBlockResolver returns the resolver registered under name
func NewBlockResolver(name string, source interfaces.TransactionSource, logger *zap.Logger) (interfaces.BlockResolver, error) {
	switch name {
	case BlockSourceInline, "":
		return &inlineResolver{}, nil
	case BlockSourceNone:
		return &noneResolver{}, nil
	case BlockSourceTonapi:
		if source == nil {
			return nil, errors.New("tonapi block source needs a transaction source")
		}
		if logger == nil {
			logger = zap.NewNop()
		}
		return &tonapiResolver{source: source, logger: logger, cache: make(map[string]*types.BlockRef)}, nil
	default:
		return nil, fmt.Errorf("unknown block source %q", name)
	}
}

func copySwaps(swaps []types.SwapEvent) []types.SwapEvent {
	out := make([]types.SwapEvent, len(swaps))
	copy(out, swaps)
	return out
}

// inlineResolver keeps whatever block the input records carried
type inlineResolver struct{}

func (r *inlineResolver) Name() string { return BlockSourceInline }

func (r *inlineResolver) Resolve(_ context.Context, swaps []types.SwapEvent) (*interfaces.BlockResolution, error) {
	res := &interfaces.BlockResolution{Swaps: copySwaps(swaps)}
	for i := range res.Swaps {
		if !res.Swaps[i].HasBlock() {
			res.Missing++
		}
	}
	return res, nil
}

// noneResolver strips block metadata so only order-based scans apply
type noneResolver struct{}

func (r *noneResolver) Name() string { return BlockSourceNone }

func (r *noneResolver) Resolve(_ context.Context, swaps []types.SwapEvent) (*interfaces.BlockResolution, error) {
	res := &interfaces.BlockResolution{Swaps: copySwaps(swaps)}
	for i := range res.Swaps {
		res.Swaps[i].Block = nil
	}
	res.Missing = len(res.Swaps)
	return res, nil
}

// tonapiResolver looks up the notify transaction of every swap missing a block
type tonapiResolver struct {
	source interfaces.TransactionSource
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*types.BlockRef
}

func (r *tonapiResolver) Name() string { return BlockSourceTonapi }

func (r *tonapiResolver) Resolve(ctx context.Context, swaps []types.SwapEvent) (*interfaces.BlockResolution, error) {
	res := &interfaces.BlockResolution{Swaps: copySwaps(swaps)}

	for i := range res.Swaps {
		swap := &res.Swaps[i]
		if swap.HasBlock() {
			continue
		}
		if swap.NotifyTxHash == "" {
			res.Missing++
			continue
		}

		block, err := r.lookup(ctx, swap.NotifyTxHash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("Block lookup failed",
				zap.String("query_id", swap.QueryID),
				zap.String("tx_hash", swap.NotifyTxHash),
				zap.Error(err))
		}
		if block == nil {
			res.Missing++
			continue
		}
		swap.Block = block
		res.Resolved++
	}

	return res, nil
}

func (r *tonapiResolver) lookup(ctx context.Context, hash string) (*types.BlockRef, error) {
	if block, ok := r.cached(hash); ok {
		return block, nil
	}

	tx, err := r.source.Transaction(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.store(hash, nil)
		}
		return nil, err
	}

	r.store(hash, tx.Block)
	return tx.Block, nil
}

// cached and store guard the cache shared by concurrent reloads
func (r *tonapiResolver) cached(hash string) (*types.BlockRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	block, ok := r.cache[hash]
	return block, ok
}

func (r *tonapiResolver) store(hash string, block *types.BlockRef) {
	r.mu.Lock()
	r.cache[hash] = block
	r.mu.Unlock()
}
