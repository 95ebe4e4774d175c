package interfaces

import (
	"context"

	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// TransactionSource reads router transactions from an indexer
type TransactionSource interface {
	AccountTransactions(ctx context.Context, account string, limit int, beforeLT uint64) ([]*types.Transaction, error)
	Transaction(ctx context.Context, hash string) (*types.Transaction, error)
}

// BlockResolver attaches block metadata to swaps that arrived without it
type BlockResolver interface {
	Resolve(ctx context.Context, swaps []types.SwapEvent) (*BlockResolution, error)
	Name() string
}

// BlockResolution is the resolved swap sequence; Missing counts swaps still without a block
type BlockResolution struct {
	Swaps    []types.SwapEvent
	Resolved int
	Missing  int
}

// SwapStore persists analysed swaps
type SwapStore interface {
	UpsertAnalysis(ctx context.Context, records []types.IndicatorRecord) error
	ListByLTRange(ctx context.Context, fromLT, toLT uint64) ([]types.IndicatorRecord, error)
}
