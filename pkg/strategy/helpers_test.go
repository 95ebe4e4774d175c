package strategy

import (
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	shardA = "8000000000000000"
	shardB = "4000000000000000"
)

// rec builds a rate-valid record on workchain 0
func rec(qid string, dir types.Direction, lt uint64, shard string, seq uint64, r string) types.IndicatorRecord {
	return types.IndicatorRecord{
		Swap: types.SwapEvent{
			QueryID:   qid,
			Direction: dir,
			LT:        types.LogicalTime(lt),
			Block:     &types.BlockRef{Workchain: 0, Shard: shard, Seqno: seq},
		},
		ScaledRate: decimal.NewNullDecimal(decimal.RequireFromString(r)),
	}
}

func sell(qid string, lt uint64, seq uint64, r string) types.IndicatorRecord {
	return rec(qid, types.DirectionTONToUSDT, lt, shardA, seq, r)
}

func buy(qid string, lt uint64, seq uint64, r string) types.IndicatorRecord {
	return rec(qid, types.DirectionUSDTToTON, lt, shardA, seq, r)
}

func queryIDs(records []types.IndicatorRecord, pairs []types.Pair) [][2]string {
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]string{records[p.First].Swap.QueryID, records[p.Second].Swap.QueryID})
	}
	return out
}
