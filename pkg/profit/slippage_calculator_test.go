package profit

import (
	"testing"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlippageCalculator_HitPct(t *testing.T) {
	calc := NewSlippageCalculator()

	tests := []struct {
		name    string
		swap    types.SwapEvent
		want    string
		outcome interfaces.SlippageOutcome
	}{
		{
			name:    "worked example",
			swap:    types.SwapEvent{OutAmount: d("950"), MinOut: decimal.NewNullDecimal(d("940"))},
			want:    "98.947368",
			outcome: interfaces.SlippageOK,
		},
		{
			name:    "floor equals output",
			swap:    types.SwapEvent{OutAmount: d("950"), MinOut: decimal.NewNullDecimal(d("950"))},
			want:    "100.000000",
			outcome: interfaces.SlippageOK,
		},
		{
			name:    "absent floor is null",
			swap:    types.SwapEvent{OutAmount: d("950")},
			outcome: interfaces.SlippageNoMinOut,
		},
		{
			name:    "declared zero floor is null",
			swap:    types.SwapEvent{OutAmount: d("950"), MinOut: decimal.NewNullDecimal(decimal.Zero)},
			outcome: interfaces.SlippageZeroMinOut,
		},
		{
			name:    "zero output is null",
			swap:    types.SwapEvent{OutAmount: decimal.Zero, MinOut: decimal.NewNullDecimal(d("1"))},
			outcome: interfaces.SlippageInvalidOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := calc.HitPct(&tt.swap)
			assert.Equal(t, tt.outcome, outcome)
			if tt.outcome != interfaces.SlippageOK {
				assert.False(t, got.Valid)
				return
			}
			require.True(t, got.Valid)
			assert.Equal(t, tt.want, got.Decimal.StringFixed(6))
		})
	}
}

func TestSlippageCalculator_HitPctRange(t *testing.T) {
	calc := NewSlippageCalculator()

	for _, out := range []int64{1, 2, 17, 950, 1_000_000_007} {
		for _, frac := range []int64{1, 50, 99, 100} {
			minOut := decimal.NewFromInt(out).Mul(decimal.NewFromInt(frac)).Div(decimal.NewFromInt(100))
			if minOut.Sign() <= 0 {
				continue
			}
			swap := types.SwapEvent{OutAmount: decimal.NewFromInt(out), MinOut: decimal.NewNullDecimal(minOut)}

			got, _ := calc.HitPct(&swap)
			require.True(t, got.Valid)
			assert.True(t, got.Decimal.Sign() > 0)
			assert.True(t, got.Decimal.LessThanOrEqual(decimal.NewFromInt(100)))
		}
	}
}
