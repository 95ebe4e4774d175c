package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"go.uber.org/zap"
)

// DefaultRouter is the STON.fi v2 router account
const DefaultRouter = "EQCS4UEa5UaJLzOyyKieqQOQ2P9M-7kXpkO5HnP3Bv250cN3"

// FetchOptions controls one backwards paging run
type FetchOptions struct {
	Account  string
	Limit    int
	Pages    int
	BeforeLT uint64
	// Cutoff stops paging once a page reaches transactions older than it
	Cutoff time.Time
}

// FetchStats describes how a fetch ended
type FetchStats struct {
	Pages        int
	Transactions int
	OldestLT     uint64
	StopReason   string
}

// Fetcher pages an account's transactions backwards by logical time
type Fetcher struct {
	source interfaces.TransactionSource
	logger *zap.Logger
}

// NewFetcher creates a fetcher over source
func NewFetcher(source interfaces.TransactionSource, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{source: source, logger: logger}
}

// Fetch pages backwards from opts.BeforeLT using before_lt = min(lt) - 1.
// Paging stops on an empty page, a short page, the page limit, or once a
// page contains a transaction older than the cutoff. That page is kept.
func (f *Fetcher) Fetch(ctx context.Context, opts FetchOptions) ([]*types.Transaction, *FetchStats, error) {
	account := opts.Account
	if account == "" {
		account = DefaultRouter
	}
	pages := opts.Pages
	if pages < 1 {
		pages = 1
	}
	if opts.Limit < 1 {
		return nil, nil, fmt.Errorf("page limit must be positive, got %d", opts.Limit)
	}

	stats := &FetchStats{StopReason: "page_limit"}
	var all []*types.Transaction
	cursor := opts.BeforeLT

	for page := 0; page < pages; page++ {
		txs, err := f.source.AccountTransactions(ctx, account, opts.Limit, cursor)
		if err != nil {
			return all, stats, fmt.Errorf("page %d: %w", page+1, err)
		}
		if len(txs) == 0 {
			stats.StopReason = "empty_page"
			break
		}

		stats.Pages++
		all = append(all, txs...)

		minLT, minUtime := pageBounds(txs)
		stats.OldestLT = minLT
		f.logger.Debug("Fetched page",
			zap.Int("page", page+1),
			zap.Int("transactions", len(txs)),
			zap.Uint64("min_lt", minLT),
			zap.Int64("min_utime", minUtime))

		if !opts.Cutoff.IsZero() && minUtime > 0 && minUtime < opts.Cutoff.Unix() {
			stats.StopReason = "cutoff"
			break
		}
		if len(txs) < opts.Limit {
			stats.StopReason = "short_page"
			break
		}
		if minLT == 0 {
			stats.StopReason = "no_lt"
			break
		}
		cursor = minLT - 1
	}

	stats.Transactions = len(all)
	f.logger.Info("Fetch finished",
		zap.String("account", account),
		zap.Int("pages", stats.Pages),
		zap.Int("transactions", stats.Transactions),
		zap.String("stop_reason", stats.StopReason))

	return all, stats, nil
}

// pageBounds returns the smallest non-zero lt and utime of a page
func pageBounds(txs []*types.Transaction) (uint64, int64) {
	var minLT uint64
	var minUtime int64
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		if lt := uint64(tx.LT); lt > 0 && (minLT == 0 || lt < minLT) {
			minLT = lt
		}
		if ut := int64(tx.Utime); ut > 0 && (minUtime == 0 || ut < minUtime) {
			minUtime = ut
		}
	}
	return minLT, minUtime
}
