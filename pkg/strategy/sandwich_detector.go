package strategy

import (
	"sort"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBlockGap is the cross-block window used when cross-block scanning is enabled
	DefaultBlockGap uint64 = 1
	// DefaultBaselineWindow is how far back a victim's baseline swap may sit
	DefaultBaselineWindow uint64 = 10
)

// sandwichDetector implements the SandwichDetector interface
type sandwichDetector struct {
	config *interfaces.SandwichConfig
}

// NewSandwichDetector creates a new sandwich detector with the given configuration
func NewSandwichDetector(config *interfaces.SandwichConfig) interfaces.SandwichDetector {
	if config == nil {
		config = &interfaces.SandwichConfig{
			CrossBlock:     false,
			BlockGap:       DefaultBlockGap,
			MinRateImpact:  decimal.Zero,
			BaselineWindow: DefaultBaselineWindow,
		}
	}
	return &sandwichDetector{
		config: config,
	}
}

// GetConfiguration returns the current configuration
func (s *sandwichDetector) GetConfiguration() *interfaces.SandwichConfig {
	return s.config
}

// candidate is a front/back pair surrounding a fixed victim
type candidate struct {
	front, back int
	span        uint64
	baseline    decimal.Decimal
	source      types.BaselineSource
	impact      decimal.Decimal
}

func (c *candidate) better(other *candidate, records []types.IndicatorRecord) bool {
	if c.span != other.span {
		return c.span < other.span
	}
	if fa, fb := records[c.front].Swap.LT, records[other.front].Swap.LT; fa != fb {
		return fa < fb
	}
	return records[c.back].Swap.LT < records[other.back].Swap.LT
}

// Detect scans every shard lane and returns at most one triple per victim,
// ordered by victim index
func (s *sandwichDetector) Detect(records []types.IndicatorRecord) *interfaces.SandwichResult {
	lanes, noBlock := buildLanes(records, true)
	result := &interfaces.SandwichResult{NoBlock: noBlock}

	gap := s.config.EffectiveGap()
	for _, l := range lanes {
		for pos := range l.records {
			if t, ok := s.victimTriple(records, l, pos, gap); ok {
				result.Triples = append(result.Triples, t)
			}
		}
	}

	sort.Slice(result.Triples, func(a, b int) bool {
		return result.Triples[a].Victim < result.Triples[b].Victim
	})
	return result
}

// victimTriple finds the best front/back pair around the lane position pos
func (s *sandwichDetector) victimTriple(records []types.IndicatorRecord, l lane, pos int, gap uint64) (types.Triple, bool) {
	vIdx := l.records[pos]
	victim := &records[vIdx].Swap
	vRate := rate(records, vIdx)

	var best *candidate

	for a := pos - 1; a >= 0; a-- {
		fIdx := l.records[a]
		front := &records[fIdx].Swap
		if victim.Block.Seqno-front.Block.Seqno > gap {
			break
		}
		if front.Direction == victim.Direction || front.LT >= victim.LT {
			continue
		}

		baseline, source := s.baseline(records, l, a, victim.Direction)
		if !interfaces.Worse(victim.Direction, vRate, baseline) {
			continue
		}
		impact := interfaces.Impact(victim.Direction, vRate, baseline)
		if impact.LessThan(s.config.MinRateImpact) {
			continue
		}

		for b := pos + 1; b < len(l.records); b++ {
			bIdx := l.records[b]
			back := &records[bIdx].Swap
			if back.Block.Seqno-front.Block.Seqno > gap {
				break
			}
			if back.Direction != front.Direction || back.LT <= victim.LT {
				continue
			}

			c := &candidate{
				front:    fIdx,
				back:     bIdx,
				span:     back.Block.Seqno - front.Block.Seqno,
				baseline: baseline,
				source:   source,
				impact:   impact,
			}
			if best == nil || c.better(best, records) {
				best = c
			}
			// later backs in the lane only widen the span or the LT
			break
		}
	}

	if best == nil {
		return types.Triple{}, false
	}

	return types.Triple{
		Front:          best.front,
		Victim:         vIdx,
		Back:           best.back,
		FrontQueryID:   records[best.front].Swap.QueryID,
		VictimQueryID:  victim.QueryID,
		BackQueryID:    records[best.back].Swap.QueryID,
		Lane:           l.key,
		Span:           best.span,
		Confidence:     types.ConfidenceForSpan(best.span),
		Baseline:       best.baseline,
		BaselineSource: best.source,
		Impact:         best.impact,
	}, true
}

// baseline is the rate of the nearest swap before the front-runner that went
// the victim's way, falling back to the front-runner's own rate
func (s *sandwichDetector) baseline(records []types.IndicatorRecord, l lane, frontPos int, dir types.Direction) (decimal.Decimal, types.BaselineSource) {
	fIdx := l.records[frontPos]
	frontSeq := records[fIdx].Swap.Block.Seqno

	for j := frontPos - 1; j >= 0; j-- {
		idx := l.records[j]
		if frontSeq-records[idx].Swap.Block.Seqno > s.config.BaselineWindow {
			break
		}
		if records[idx].Swap.Direction == dir {
			return rate(records, idx), types.BaselinePrevious
		}
	}
	return rate(records, fIdx), types.BaselineFront
}
