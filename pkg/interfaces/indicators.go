package interfaces

import (
	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// IndicatorEngine derives indicator records, adjacency candidates and the
// summary from an ordered swap sequence
type IndicatorEngine interface {
	Compute(swaps []types.SwapEvent) *Analysis
}

// Analysis is the full output of the indicator engine
type Analysis struct {
	Records []types.IndicatorRecord         `json:"records"`
	Triples []types.Triple                  `json:"triples"`
	Pairs   map[types.PairKind][]types.Pair `json:"pairs"`
	Summary *Summary                        `json:"summary"`
}

// Record returns the record for a query id
func (a *Analysis) Record(queryID string) (*types.IndicatorRecord, bool) {
	for i := range a.Records {
		if a.Records[i].Swap.QueryID == queryID {
			return &a.Records[i], true
		}
	}
	return nil, false
}
