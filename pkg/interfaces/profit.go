package interfaces

import (
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

// RateCalculator converts swap amounts into the canonical USDT-per-TON rate
type RateCalculator interface {
	ScaledRate(swap *types.SwapEvent) (decimal.Decimal, types.InvalidReason)
	InSanityRange(direction types.Direction, rate decimal.Decimal) bool
	GetConfiguration() *RateConfig
}

// SlippageCalculator measures how close a swap came to its declared floor
type SlippageCalculator interface {
	HitPct(swap *types.SwapEvent) (decimal.NullDecimal, SlippageOutcome)
}

// RateConfig contains token decimals and the rate presentation scale
type RateConfig struct {
	TONDecimals  int32
	USDTDecimals int32
	Scale        decimal.Decimal
	Sanity       map[types.Direction]RateBounds
}

// RateBounds is an inclusive range on the scaled rate; 0/0 disables it
type RateBounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Enabled reports whether any bound is set
func (b RateBounds) Enabled() bool {
	return !b.Min.IsZero() || !b.Max.IsZero()
}

// Contains reports whether rate lies within the set bounds
func (b RateBounds) Contains(rate decimal.Decimal) bool {
	if !b.Min.IsZero() && rate.LessThan(b.Min) {
		return false
	}
	if !b.Max.IsZero() && rate.GreaterThan(b.Max) {
		return false
	}
	return true
}

// SlippageOutcome explains a null hit percentage
type SlippageOutcome string

const (
	SlippageOK            SlippageOutcome = "ok"
	SlippageNoMinOut      SlippageOutcome = "no_min_out"
	SlippageZeroMinOut    SlippageOutcome = "zero_min_out"
	SlippageInvalidOutput SlippageOutcome = "invalid_output"
)
