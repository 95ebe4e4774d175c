package strategy

import (
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// frontrunDetector implements the FrontrunDetector interface
type frontrunDetector struct{}

// NewFrontrunDetector creates a new frontrun pair scanner
func NewFrontrunDetector() interfaces.FrontrunDetector {
	return &frontrunDetector{}
}

// DetectAdjacent flags consecutive swaps in logical-time order that trade the
// same direction where the second got a worse rate than the first
func (f *frontrunDetector) DetectAdjacent(records []types.IndicatorRecord) []types.Pair {
	var pairs []types.Pair
	for i := 1; i < len(records); i++ {
		if frontrun(records, i-1, i) {
			pairs = append(pairs, newPair(types.PairAdjacentFrontrun, records, i-1, i))
		}
	}
	return pairs
}

// DetectSameBlock applies the adjacent rule to consecutive swaps of one block
func (f *frontrunDetector) DetectSameBlock(records []types.IndicatorRecord) []types.Pair {
	lanes, _ := buildLanes(records, false)

	var pairs []types.Pair
	for _, block := range blockGroups(lanes, records) {
		for i := 1; i < len(block); i++ {
			if frontrun(records, block[i-1], block[i]) {
				pairs = append(pairs, newPair(types.PairSameBlockFrontrun, records, block[i-1], block[i]))
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

func frontrun(records []types.IndicatorRecord, first, second int) bool {
	fr, v := &records[first], &records[second]
	if !fr.RateValid() || !v.RateValid() {
		return false
	}
	if fr.Swap.Direction != v.Swap.Direction {
		return false
	}
	return interfaces.Worse(v.Swap.Direction, rate(records, second), rate(records, first))
}
