package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

// SwapStore implements interfaces.SwapStore using PostgreSQL.
type SwapStore struct {
	pool *Pool
}

// NewSwapStore creates a new SwapStore.
func NewSwapStore(pool *Pool) *SwapStore {
	return &SwapStore{pool: pool}
}

// Compile-time interface check.
var _ interfaces.SwapStore = (*SwapStore)(nil)

const upsertSwapQuery = `
	INSERT INTO ton_swaps (
		query_id, direction, in_amount, out_amount, min_out, lt, utime,
		block_workchain, block_shard, block_seqno, notify_tx_hash, transfer_tx_hash, direction_rule
	) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (query_id) DO UPDATE SET
		direction = EXCLUDED.direction,
		in_amount = EXCLUDED.in_amount,
		out_amount = EXCLUDED.out_amount,
		min_out = EXCLUDED.min_out,
		lt = EXCLUDED.lt,
		utime = EXCLUDED.utime,
		block_workchain = EXCLUDED.block_workchain,
		block_shard = EXCLUDED.block_shard,
		block_seqno = EXCLUDED.block_seqno,
		notify_tx_hash = EXCLUDED.notify_tx_hash,
		transfer_tx_hash = EXCLUDED.transfer_tx_hash,
		direction_rule = EXCLUDED.direction_rule,
		updated_at = now()
`

const upsertIndicatorQuery = `
	INSERT INTO ton_swap_indicators (
		query_id, scaled_rate, hit_pct, rate_deviation, roles, invalid
	) VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5, $6)
	ON CONFLICT (query_id) DO UPDATE SET
		scaled_rate = EXCLUDED.scaled_rate,
		hit_pct = EXCLUDED.hit_pct,
		rate_deviation = EXCLUDED.rate_deviation,
		roles = EXCLUDED.roles,
		invalid = EXCLUDED.invalid,
		updated_at = now()
`

// UpsertAnalysis writes swaps and their indicators atomically, replacing
// rows with the same query id.
func (s *SwapStore) UpsertAnalysis(ctx context.Context, records []types.IndicatorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range records {
		rec := &records[i]
		sw := &rec.Swap

		var wc *int32
		var shard *string
		var seqno *int64
		if sw.Block != nil {
			wc, shard = &sw.Block.Workchain, &sw.Block.Shard
			seq := int64(sw.Block.Seqno)
			seqno = &seq
		}

		_, err := tx.Exec(ctx, upsertSwapQuery,
			sw.QueryID,
			string(sw.Direction),
			sw.InAmount.String(),
			sw.OutAmount.String(),
			nullText(sw.MinOut),
			int64(sw.LT),
			int64(sw.Utime),
			wc,
			shard,
			seqno,
			sw.NotifyTxHash,
			sw.TransferTxHash,
			int16(sw.DirectionRule),
		)
		if err != nil {
			return fmt.Errorf("upsert swap %s: %w", sw.QueryID, err)
		}

		var roles []string
		if rec.Roles != types.AdjacencyNone {
			roles = rec.Roles.Names()
		} else {
			roles = []string{}
		}

		_, err = tx.Exec(ctx, upsertIndicatorQuery,
			sw.QueryID,
			nullText(rec.ScaledRate),
			nullText(rec.HitPct),
			nullText(rec.RateDeviation),
			roles,
			string(rec.Invalid),
		)
		if err != nil {
			return fmt.Errorf("upsert indicators %s: %w", sw.QueryID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// ListByLTRange returns records with fromLT <= lt <= toLT ordered by lt, then query id.
func (s *SwapStore) ListByLTRange(ctx context.Context, fromLT, toLT uint64) ([]types.IndicatorRecord, error) {
	query := `
		SELECT s.query_id, s.direction, s.in_amount::text, s.out_amount::text, s.min_out::text,
		       s.lt, s.utime, s.block_workchain, s.block_shard, s.block_seqno,
		       s.notify_tx_hash, s.transfer_tx_hash, s.direction_rule,
		       i.scaled_rate::text, i.hit_pct::text, i.rate_deviation::text,
		       COALESCE(i.roles, '{}'), COALESCE(i.invalid, '')
		FROM ton_swaps s
		LEFT JOIN ton_swap_indicators i ON i.query_id = s.query_id
		WHERE s.lt BETWEEN $1 AND $2
		ORDER BY s.lt ASC, s.query_id ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(fromLT), int64(toLT))
	if err != nil {
		return nil, fmt.Errorf("list swaps by lt range: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]types.IndicatorRecord, error) {
	var records []types.IndicatorRecord

	for rows.Next() {
		var (
			rec                  types.IndicatorRecord
			direction, in, out   string
			minOut               *string
			lt, utime            int64
			wc                   *int32
			shard                *string
			seqno                *int64
			rule                 int16
			rate, hit, deviation *string
			roles                []string
			invalid              string
		)

		err := rows.Scan(
			&rec.Swap.QueryID, &direction, &in, &out, &minOut,
			&lt, &utime, &wc, &shard, &seqno,
			&rec.Swap.NotifyTxHash, &rec.Swap.TransferTxHash, &rule,
			&rate, &hit, &deviation,
			&roles, &invalid,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap: %w", err)
		}

		rec.Swap.Direction = types.Direction(direction)
		rec.Swap.LT = types.LogicalTime(lt)
		rec.Swap.Utime = types.UnixTime(utime)
		rec.Swap.DirectionRule = int(rule)
		rec.Invalid = types.InvalidReason(invalid)

		if rec.Swap.InAmount, err = decimal.NewFromString(in); err != nil {
			return nil, fmt.Errorf("parse in_amount of %s: %w", rec.Swap.QueryID, err)
		}
		if rec.Swap.OutAmount, err = decimal.NewFromString(out); err != nil {
			return nil, fmt.Errorf("parse out_amount of %s: %w", rec.Swap.QueryID, err)
		}
		for _, f := range []struct {
			src *string
			dst *decimal.NullDecimal
		}{
			{minOut, &rec.Swap.MinOut},
			{rate, &rec.ScaledRate},
			{hit, &rec.HitPct},
			{deviation, &rec.RateDeviation},
		} {
			if *f.dst, err = parseNull(f.src); err != nil {
				return nil, fmt.Errorf("parse numeric of %s: %w", rec.Swap.QueryID, err)
			}
		}

		if wc != nil && shard != nil && seqno != nil {
			rec.Swap.Block = &types.BlockRef{Workchain: *wc, Shard: *shard, Seqno: uint64(*seqno)}
		}

		for _, name := range roles {
			role, err := types.ParseAdjacencyRole(name)
			if err != nil {
				return nil, fmt.Errorf("parse role of %s: %w", rec.Swap.QueryID, err)
			}
			rec.Roles |= role
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swaps: %w", err)
	}

	return records, nil
}

func nullText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func parseNull(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
