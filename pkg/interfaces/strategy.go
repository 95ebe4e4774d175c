package interfaces

import (
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

// SandwichDetector finds front-runner, victim, back-runner triples
type SandwichDetector interface {
	Detect(records []types.IndicatorRecord) *SandwichResult
	GetConfiguration() *SandwichConfig
}

// FrontrunDetector finds same-direction pairs where the second swap got a worse rate
type FrontrunDetector interface {
	DetectAdjacent(records []types.IndicatorRecord) []types.Pair
	DetectSameBlock(records []types.IndicatorRecord) []types.Pair
}

// BackrunDetector finds opposite-direction pairs where the second swap benefits
type BackrunDetector interface {
	DetectAdjacent(records []types.IndicatorRecord) []types.Pair
	DetectSameBlock(records []types.IndicatorRecord) []types.Pair
	DetectCrossBlock(records []types.IndicatorRecord) []types.Pair
	GetConfiguration() *BackrunConfig
}

// SandwichConfig contains the triple scan configuration
type SandwichConfig struct {
	CrossBlock    bool
	BlockGap      uint64
	MinRateImpact decimal.Decimal
	// BaselineWindow bounds how many blocks before the front-runner the
	// victim's baseline swap may sit
	BaselineWindow uint64
}

// EffectiveGap is the block gap the scan applies: 0 unless cross-block is enabled
func (c *SandwichConfig) EffectiveGap() uint64 {
	if !c.CrossBlock {
		return 0
	}
	return c.BlockGap
}

// BackrunConfig contains the pair scan configuration
type BackrunConfig struct {
	CrossBlock bool
	BlockGap   uint64
}

// SandwichResult holds the triples and the swaps left out of the block scan
type SandwichResult struct {
	Triples []types.Triple
	NoBlock int
}

// Worse reports whether a swap in direction dir at rate got a worse price than
// reference. TON_TO_USDT sellers want a higher rate, USDT_TO_TON buyers a lower one.
func Worse(dir types.Direction, rate, reference decimal.Decimal) bool {
	switch dir {
	case types.DirectionTONToUSDT:
		return rate.LessThan(reference)
	case types.DirectionUSDTToTON:
		return rate.GreaterThan(reference)
	default:
		return false
	}
}

// Impact is the relative worsening of rate against reference, positive when worse
func Impact(dir types.Direction, rate, reference decimal.Decimal) decimal.Decimal {
	if reference.IsZero() {
		return decimal.Zero
	}
	diff := rate.Sub(reference)
	if dir == types.DirectionTONToUSDT {
		diff = diff.Neg()
	}
	return diff.DivRound(reference, 18)
}
