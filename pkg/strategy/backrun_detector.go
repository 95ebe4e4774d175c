package strategy

import (
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// backrunDetector implements the BackrunDetector interface
type backrunDetector struct {
	config *interfaces.BackrunConfig
}

// NewBackrunDetector creates a new backrun pair scanner with the given configuration
func NewBackrunDetector(config *interfaces.BackrunConfig) interfaces.BackrunDetector {
	if config == nil {
		config = &interfaces.BackrunConfig{
			CrossBlock: false,
			BlockGap:   DefaultBlockGap,
		}
	}
	return &backrunDetector{
		config: config,
	}
}

// GetConfiguration returns the current configuration
func (b *backrunDetector) GetConfiguration() *interfaces.BackrunConfig {
	return b.config
}

// DetectAdjacent flags a swap followed in logical-time order by an
// opposite-direction swap that got a better rate
func (b *backrunDetector) DetectAdjacent(records []types.IndicatorRecord) []types.Pair {
	var pairs []types.Pair
	for i := 1; i < len(records); i++ {
		if backrun(records, i-1, i) {
			pairs = append(pairs, newPair(types.PairAdjacentBackrun, records, i-1, i))
		}
	}
	return pairs
}

// DetectSameBlock applies the adjacent rule to consecutive swaps of one block
func (b *backrunDetector) DetectSameBlock(records []types.IndicatorRecord) []types.Pair {
	lanes, _ := buildLanes(records, false)

	var pairs []types.Pair
	for _, block := range blockGroups(lanes, records) {
		for i := 1; i < len(block); i++ {
			if backrun(records, block[i-1], block[i]) {
				pairs = append(pairs, newPair(types.PairSameBlockBackrun, records, block[i-1], block[i]))
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

// DetectCrossBlock applies the adjacent rule to consecutive swaps of one
// shard that landed in different blocks at most BlockGap apart. It returns
// nothing unless cross-block scanning is enabled.
func (b *backrunDetector) DetectCrossBlock(records []types.IndicatorRecord) []types.Pair {
	if !b.config.CrossBlock {
		return nil
	}
	lanes, _ := buildLanes(records, false)

	var pairs []types.Pair
	for _, l := range lanes {
		for i := 1; i < len(l.records); i++ {
			v, n := l.records[i-1], l.records[i]
			gap := records[n].Swap.Block.Seqno - records[v].Swap.Block.Seqno
			if gap == 0 || gap > b.config.BlockGap {
				continue
			}
			if backrun(records, v, n) {
				pairs = append(pairs, newPair(types.PairCrossBlockBackrun, records, v, n))
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

func backrun(records []types.IndicatorRecord, first, second int) bool {
	v, b := &records[first], &records[second]
	if !v.RateValid() || !b.RateValid() {
		return false
	}
	vRate, bRate := rate(records, first), rate(records, second)

	switch {
	case v.Swap.Direction == types.DirectionUSDTToTON && b.Swap.Direction == types.DirectionTONToUSDT:
		return bRate.GreaterThan(vRate)
	case v.Swap.Direction == types.DirectionTONToUSDT && b.Swap.Direction == types.DirectionUSDTToTON:
		return bRate.LessThan(vRate)
	default:
		return false
	}
}
