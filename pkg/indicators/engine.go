package indicators

import (
	"sort"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/metrics"
	"github.com/mev-engine/ton-mev-lab/pkg/profit"
	"github.com/mev-engine/ton-mev-lab/pkg/strategy"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

// DefaultTopHits is the length of the closest-to-floor list in the summary
const DefaultTopHits = 5

var hundred = decimal.NewFromInt(100)

// Config contains the engine configuration
type Config struct {
	Rate     *interfaces.RateConfig
	Sandwich *interfaces.SandwichConfig
	TopHits  int
}

// Engine implements the IndicatorEngine interface
type Engine struct {
	rates    interfaces.RateCalculator
	slippage interfaces.SlippageCalculator
	sandwich interfaces.SandwichDetector
	frontrun interfaces.FrontrunDetector
	backrun  interfaces.BackrunDetector
	topHits  int
}

// NewEngine creates an indicator engine. Nil sub-configs fall back to the
// calculator and detector defaults.
func NewEngine(cfg Config) *Engine {
	sandwich := strategy.NewSandwichDetector(cfg.Sandwich)
	sc := sandwich.GetConfiguration()

	topHits := cfg.TopHits
	if topHits <= 0 {
		topHits = DefaultTopHits
	}

	return &Engine{
		rates:    profit.NewRateCalculator(cfg.Rate),
		slippage: profit.NewSlippageCalculator(),
		sandwich: sandwich,
		frontrun: strategy.NewFrontrunDetector(),
		backrun: strategy.NewBackrunDetector(&interfaces.BackrunConfig{
			CrossBlock: sc.CrossBlock,
			BlockGap:   sc.BlockGap,
		}),
		topHits: topHits,
	}
}

// Compute derives records, triples, pairs and the summary. The swaps are
// expected in logical-time order, as the reconstructor emits them, and are
// not modified.
func (e *Engine) Compute(swaps []types.SwapEvent) *interfaces.Analysis {
	tally := interfaces.AnalysisTally{}
	records := make([]types.IndicatorRecord, len(swaps))

	for i := range swaps {
		records[i] = e.record(swaps[i], &tally)
	}
	applyDeviation(records)

	sandwich := e.sandwich.Detect(records)
	tally.NoBlock = sandwich.NoBlock
	for _, t := range sandwich.Triples {
		records[t.Front].Roles |= types.AdjacencyFrontRunner
		records[t.Victim].Roles |= types.AdjacencyVictim
		records[t.Back].Roles |= types.AdjacencyBackRunner
	}

	pairs := map[types.PairKind][]types.Pair{
		types.PairAdjacentFrontrun:  e.frontrun.DetectAdjacent(records),
		types.PairAdjacentBackrun:   e.backrun.DetectAdjacent(records),
		types.PairSameBlockFrontrun: e.frontrun.DetectSameBlock(records),
		types.PairSameBlockBackrun:  e.backrun.DetectSameBlock(records),
		types.PairCrossBlockBackrun: e.backrun.DetectCrossBlock(records),
	}

	analysis := &interfaces.Analysis{
		Records: records,
		Triples: sandwich.Triples,
		Pairs:   pairs,
	}
	analysis.Summary = e.summarize(analysis, tally)
	return analysis
}

func (e *Engine) record(swap types.SwapEvent, tally *interfaces.AnalysisTally) types.IndicatorRecord {
	rec := types.IndicatorRecord{Swap: swap}

	rate, invalid := e.rates.ScaledRate(&swap)
	switch {
	case invalid != "":
		rec.Invalid = invalid
		tally.InvalidRate++
	case !e.rates.InSanityRange(swap.Direction, rate):
		rec.ScaledRate = decimal.NewNullDecimal(rate)
		rec.Invalid = types.InvalidSanityRange
		tally.SanityRange++
	default:
		rec.ScaledRate = decimal.NewNullDecimal(rate)
	}

	hit, outcome := e.slippage.HitPct(&swap)
	rec.HitPct = hit
	switch outcome {
	case interfaces.SlippageNoMinOut:
		tally.MissingMin++
	case interfaces.SlippageZeroMinOut:
		tally.ZeroMinOut++
	}
	if hit.Valid && hit.Decimal.GreaterThan(hundred) {
		tally.HitAbove100++
	}

	return rec
}

// applyDeviation sets each valid record's relative distance from the median
// rate of its direction
func applyDeviation(records []types.IndicatorRecord) {
	byDir := make(map[types.Direction][]decimal.Decimal)
	for i := range records {
		if records[i].RateValid() {
			dir := records[i].Swap.Direction
			byDir[dir] = append(byDir[dir], records[i].ScaledRate.Decimal)
		}
	}

	medians := make(map[types.Direction]decimal.Decimal, len(byDir))
	for dir, rates := range byDir {
		medians[dir] = medianDecimal(rates)
	}

	for i := range records {
		rec := &records[i]
		if !rec.RateValid() {
			continue
		}
		median := medians[rec.Swap.Direction]
		if median.IsZero() {
			continue
		}
		dev := rec.ScaledRate.Decimal.Sub(median).DivRound(median, 18)
		rec.RateDeviation = decimal.NewNullDecimal(dev)
	}
}

func medianDecimal(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].LessThan(sorted[b]) })

	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 0 {
		return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
	}
	return sorted[n/2]
}

func (e *Engine) summarize(a *interfaces.Analysis, tally interfaces.AnalysisTally) *interfaces.Summary {
	sc := e.sandwich.GetConfiguration()
	s := &interfaces.Summary{
		TotalSwaps:            len(a.Records),
		CrossBlock:            sc.CrossBlock,
		BlockGap:              sc.BlockGap,
		TriplesByConfidence:   make(map[types.Confidence]int, len(types.Confidences)),
		PairsByKind:           make(map[types.PairKind]int, len(types.PairKinds)),
		SwapsByDirection:      make(map[types.Direction]int),
		ScaledRateByDirection: make(map[types.Direction]interfaces.Distribution),
		Tally:                 tally,
	}

	var hits, rates, deviations []float64
	ratesByDir := make(map[types.Direction][]float64)

	for i := range a.Records {
		rec := &a.Records[i]
		s.SwapsByDirection[rec.Swap.Direction]++
		if rec.Swap.MinOut.Valid {
			s.WithMinOut++
		}
		if rec.Roles.Has(types.AdjacencyVictim) {
			s.Victims++
		}
		if rec.Roles.Has(types.AdjacencyFrontRunner) {
			s.FrontRunners++
		}
		if rec.Roles.Has(types.AdjacencyBackRunner) {
			s.BackRunners++
		}
		if rec.HitPct.Valid {
			hits = append(hits, rec.HitPct.Decimal.InexactFloat64())
		}
		if rec.RateValid() {
			s.ValidRates++
			r := rec.ScaledRate.Decimal.InexactFloat64()
			rates = append(rates, r)
			ratesByDir[rec.Swap.Direction] = append(ratesByDir[rec.Swap.Direction], r)
		}
		if rec.RateDeviation.Valid {
			deviations = append(deviations, rec.RateDeviation.Decimal.InexactFloat64())
		}
	}

	for _, c := range types.Confidences {
		s.TriplesByConfidence[c] = 0
	}
	var impacts, latencies []float64
	for _, t := range a.Triples {
		s.TriplesByConfidence[t.Confidence]++
		impacts = append(impacts, t.Impact.InexactFloat64())
		latency := a.Records[t.Victim].Swap.Utime - a.Records[t.Front].Swap.Utime
		latencies = append(latencies, float64(latency))
	}

	for _, kind := range types.PairKinds {
		s.PairsByKind[kind] = len(a.Pairs[kind])
	}

	s.HitPct = metrics.Describe(hits)
	s.ScaledRate = metrics.Describe(rates)
	for dir, values := range ratesByDir {
		s.ScaledRateByDirection[dir] = metrics.Describe(values)
	}
	s.RateDeviation = metrics.Describe(deviations)
	s.VictimImpact = metrics.Describe(impacts)
	s.TripleLatency = metrics.Describe(latencies)
	s.TopHits = topHits(a.Records, e.topHits)

	return s
}

// topHits lists the swaps whose floor sat closest to the received amount
func topHits(records []types.IndicatorRecord, n int) []interfaces.HitEntry {
	var idx []int
	for i := range records {
		if records[i].HitPct.Valid {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ha, hb := records[idx[a]].HitPct.Decimal, records[idx[b]].HitPct.Decimal
		if !ha.Equal(hb) {
			return ha.GreaterThan(hb)
		}
		return records[idx[a]].Swap.LT < records[idx[b]].Swap.LT
	})
	if len(idx) > n {
		idx = idx[:n]
	}

	entries := make([]interfaces.HitEntry, 0, len(idx))
	for _, i := range idx {
		rec := &records[i]
		entries = append(entries, interfaces.HitEntry{
			QueryID:   rec.Swap.QueryID,
			Direction: rec.Swap.Direction,
			HitPct:    rec.HitPct.Decimal.InexactFloat64(),
			LT:        uint64(rec.Swap.LT),
		})
	}
	return entries
}
