package profit

import (
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SlippageCalculator implements the SlippageCalculator interface
type SlippageCalculator struct{}

// NewSlippageCalculator creates a new slippage calculator
func NewSlippageCalculator() *SlippageCalculator {
	return &SlippageCalculator{}
}

// HitPct returns 100 * min_out / out, the share of the received amount the
// swap's declared floor accounted for. It is null when the floor is absent,
// non-positive, or the output is not positive.
func (s *SlippageCalculator) HitPct(swap *types.SwapEvent) (decimal.NullDecimal, interfaces.SlippageOutcome) {
	if !swap.MinOut.Valid {
		return decimal.NullDecimal{}, interfaces.SlippageNoMinOut
	}
	if swap.MinOut.Decimal.Sign() <= 0 {
		return decimal.NullDecimal{}, interfaces.SlippageZeroMinOut
	}
	if swap.OutAmount.Sign() <= 0 {
		return decimal.NullDecimal{}, interfaces.SlippageInvalidOutput
	}

	pct := swap.MinOut.Decimal.Mul(hundred).DivRound(swap.OutAmount, divisionPrecision)
	return decimal.NewNullDecimal(pct), interfaces.SlippageOK
}
