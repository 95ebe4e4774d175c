package strategy

import (
	"sort"

	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

// lane holds record indexes from one shard chain, ordered
// by block seqno, then logical time, then query id
type lane struct {
	key     string
	records []int
}

// buildLanes partitions records by shard chain. With validOnly set, records
// without a usable rate are left out; otherwise they stay in the lane and
// break adjacency. Records without block metadata cannot be placed and are
// only counted.
func buildLanes(records []types.IndicatorRecord, validOnly bool) ([]lane, int) {
	byKey := make(map[string][]int)
	noBlock := 0

	for i := range records {
		rec := &records[i]
		if validOnly && !rec.RateValid() {
			continue
		}
		if !rec.Swap.HasBlock() {
			noBlock++
			continue
		}
		key := rec.Swap.Block.Lane()
		byKey[key] = append(byKey[key], i)
	}

	lanes := make([]lane, 0, len(byKey))
	for key, idx := range byKey {
		sort.Slice(idx, func(a, b int) bool {
			return laneLess(&records[idx[a]].Swap, &records[idx[b]].Swap)
		})
		lanes = append(lanes, lane{key: key, records: idx})
	}
	sort.Slice(lanes, func(a, b int) bool { return lanes[a].key < lanes[b].key })

	return lanes, noBlock
}

func laneLess(a, b *types.SwapEvent) bool {
	if a.Block.Seqno != b.Block.Seqno {
		return a.Block.Seqno < b.Block.Seqno
	}
	if a.LT != b.LT {
		return a.LT < b.LT
	}
	return a.QueryID < b.QueryID
}

// blockGroups splits each lane into single blocks, keeping lane order
func blockGroups(lanes []lane, records []types.IndicatorRecord) [][]int {
	var groups [][]int
	for _, l := range lanes {
		var cur []int
		var curSeq uint64
		for _, idx := range l.records {
			seq := records[idx].Swap.Block.Seqno
			if len(cur) > 0 && seq != curSeq {
				groups = append(groups, cur)
				cur = nil
			}
			cur = append(cur, idx)
			curSeq = seq
		}
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
	}
	return groups
}

// rate returns the scaled rate of a record known to be rate-valid
func rate(records []types.IndicatorRecord, i int) decimal.Decimal {
	return records[i].ScaledRate.Decimal
}

func sortPairs(pairs []types.Pair) {
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].First != pairs[b].First {
			return pairs[a].First < pairs[b].First
		}
		return pairs[a].Second < pairs[b].Second
	})
}

func newPair(kind types.PairKind, records []types.IndicatorRecord, first, second int) types.Pair {
	p := types.Pair{
		Kind:          kind,
		First:         first,
		Second:        second,
		FirstQueryID:  records[first].Swap.QueryID,
		SecondQueryID: records[second].Swap.QueryID,
	}
	a, b := records[first].Swap.Block, records[second].Swap.Block
	if a != nil && b != nil && a.SameLane(b) {
		p.Lane = a.Lane()
		if b.Seqno >= a.Seqno {
			p.SeqGap = b.Seqno - a.Seqno
		}
	}
	return p
}
