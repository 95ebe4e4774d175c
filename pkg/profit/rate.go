package profit

import (
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

// Default token decimals and rate presentation scale
const (
	DefaultTONDecimals  int32 = 9
	DefaultUSDTDecimals int32 = 6
	DefaultRateScale    int64 = 1000

	// divisionPrecision is the number of fractional digits kept by divisions
	divisionPrecision int32 = 18
)

// RateCalculator implements the RateCalculator interface
type RateCalculator struct {
	config *interfaces.RateConfig
}

// NewRateCalculator creates a rate calculator; nil config uses the TON/USDT defaults
func NewRateCalculator(config *interfaces.RateConfig) *RateCalculator {
	if config == nil {
		config = &interfaces.RateConfig{
			TONDecimals:  DefaultTONDecimals,
			USDTDecimals: DefaultUSDTDecimals,
			Scale:        decimal.NewFromInt(DefaultRateScale),
		}
	}
	if config.Scale.IsZero() {
		config.Scale = decimal.NewFromInt(DefaultRateScale)
	}
	return &RateCalculator{config: config}
}

// GetConfiguration returns the current rate configuration
func (c *RateCalculator) GetConfiguration() *interfaces.RateConfig {
	return c.config
}

// ScaledRate returns the decimal-adjusted USDT-per-TON rate times the scale.
// Both directions land on the same axis: out/in for TON_TO_USDT and in/out for
// USDT_TO_TON. A zero or negative amount yields an invalid reason instead.
func (c *RateCalculator) ScaledRate(swap *types.SwapEvent) (decimal.Decimal, types.InvalidReason) {
	if swap.InAmount.Sign() <= 0 {
		return decimal.Zero, types.InvalidZeroInput
	}
	if swap.OutAmount.Sign() <= 0 {
		return decimal.Zero, types.InvalidZeroOutput
	}

	var tonRaw, usdtRaw decimal.Decimal
	switch swap.Direction {
	case types.DirectionTONToUSDT:
		tonRaw, usdtRaw = swap.InAmount, swap.OutAmount
	case types.DirectionUSDTToTON:
		tonRaw, usdtRaw = swap.OutAmount, swap.InAmount
	default:
		return decimal.Zero, types.InvalidDirection
	}

	ton := tonRaw.Shift(-c.config.TONDecimals)
	usdt := usdtRaw.Shift(-c.config.USDTDecimals)

	base := usdt.DivRound(ton, divisionPrecision)
	return base.Mul(c.config.Scale), ""
}

// InSanityRange reports whether rate passes the configured bounds for direction
func (c *RateCalculator) InSanityRange(direction types.Direction, rate decimal.Decimal) bool {
	bounds, ok := c.config.Sanity[direction]
	if !ok || !bounds.Enabled() {
		return true
	}
	return bounds.Contains(rate)
}
