package interfaces

import (
	"net/http"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// MetricsCollector records the outcome of analysis runs
type MetricsCollector interface {
	RecordRun(run *RunReport)
	RecordStage(stage string, duration time.Duration)
	Handler() http.Handler
	WriteTextfile(path string) error
}

// RunReport is what a single pipeline run hands to the metrics collector
type RunReport struct {
	Transactions int
	Events       int
	Records      []types.IndicatorRecord
	Summary      *Summary
	Duration     time.Duration
}

// Distribution summarises a sample of values
type Distribution struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Stdev  float64 `json:"stdev"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// AnalysisTally counts records the indicator engine excluded or annotated
type AnalysisTally struct {
	InvalidRate int `json:"invalid_rate"`
	SanityRange int `json:"sanity_range"`
	MissingMin  int `json:"missing_min_out"`
	ZeroMinOut  int `json:"zero_min_out"`
	NoBlock     int `json:"no_block"`
	HitAbove100 int `json:"hit_above_100"`
}

// HitEntry is one row of the closest-to-floor list
type HitEntry struct {
	QueryID   string          `json:"query_id"`
	Direction types.Direction `json:"direction"`
	HitPct    float64         `json:"hit_pct"`
	LT        uint64          `json:"lt"`
}

// Summary is the aggregate view of one analysis
type Summary struct {
	TotalSwaps            int                              `json:"total_swaps"`
	ValidRates            int                              `json:"valid_rates"`
	WithMinOut            int                              `json:"with_min_out"`
	Victims               int                              `json:"victims"`
	FrontRunners          int                              `json:"front_runners"`
	BackRunners           int                              `json:"back_runners"`
	CrossBlock            bool                             `json:"cross_block"`
	BlockGap              uint64                           `json:"block_gap"`
	TriplesByConfidence   map[types.Confidence]int         `json:"triples_by_confidence"`
	PairsByKind           map[types.PairKind]int           `json:"pairs_by_kind"`
	SwapsByDirection      map[types.Direction]int          `json:"swaps_by_direction"`
	Reconstruction        ReconstructionTally              `json:"reconstruction"`
	Tally                 AnalysisTally                    `json:"tally"`
	HitPct                Distribution                     `json:"hit_pct"`
	ScaledRate            Distribution                     `json:"scaled_rate"`
	ScaledRateByDirection map[types.Direction]Distribution `json:"scaled_rate_by_direction"`
	RateDeviation         Distribution                     `json:"rate_deviation"`
	VictimImpact          Distribution                     `json:"victim_impact"`
	TripleLatency         Distribution                     `json:"triple_latency_seconds"`
	TopHits               []HitEntry                       `json:"top_hits"`
}

// TotalTriples sums the triples over all confidence grades
func (s *Summary) TotalTriples() int {
	total := 0
	for _, n := range s.TriplesByConfidence {
		total += n
	}
	return total
}
