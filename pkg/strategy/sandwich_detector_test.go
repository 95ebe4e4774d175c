package strategy

import (
	"testing"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSandwichDetector(t *testing.T) {
	tests := []struct {
		name   string
		config *interfaces.SandwichConfig
		want   *interfaces.SandwichConfig
	}{
		{
			name:   "with nil config uses defaults",
			config: nil,
			want: &interfaces.SandwichConfig{
				BlockGap:       1,
				MinRateImpact:  decimal.Zero,
				BaselineWindow: 10,
			},
		},
		{
			name: "with custom config",
			config: &interfaces.SandwichConfig{
				CrossBlock:     true,
				BlockGap:       3,
				MinRateImpact:  decimal.RequireFromString("0.01"),
				BaselineWindow: 2,
			},
			want: &interfaces.SandwichConfig{
				CrossBlock:     true,
				BlockGap:       3,
				MinRateImpact:  decimal.RequireFromString("0.01"),
				BaselineWindow: 2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewSandwichDetector(tt.config).GetConfiguration()

			assert.Equal(t, tt.want.CrossBlock, config.CrossBlock)
			assert.Equal(t, tt.want.BlockGap, config.BlockGap)
			assert.True(t, tt.want.MinRateImpact.Equal(config.MinRateImpact))
			assert.Equal(t, tt.want.BaselineWindow, config.BaselineWindow)
		})
	}
}

func TestSandwichConfig_EffectiveGap(t *testing.T) {
	assert.Equal(t, uint64(0), (&interfaces.SandwichConfig{BlockGap: 3}).EffectiveGap())
	assert.Equal(t, uint64(3), (&interfaces.SandwichConfig{CrossBlock: true, BlockGap: 3}).EffectiveGap())
}

func crossBlock(gap uint64) *interfaces.SandwichConfig {
	return &interfaces.SandwichConfig{
		CrossBlock:     true,
		BlockGap:       gap,
		MinRateImpact:  decimal.Zero,
		BaselineWindow: DefaultBaselineWindow,
	}
}

func TestSandwichDetector_Detect(t *testing.T) {
	tests := []struct {
		name       string
		config     *interfaces.SandwichConfig
		records    []types.IndicatorRecord
		want       [][3]string
		confidence []types.Confidence
	}{
		{
			name:   "same block triple against the front-runner's rate",
			config: nil,
			records: []types.IndicatorRecord{
				sell("a", 10, 100, "3200"),
				buy("v", 20, 100, "3300"),
				sell("b", 30, 100, "3250"),
			},
			want:       [][3]string{{"a", "v", "b"}},
			confidence: []types.Confidence{types.ConfidenceHigh},
		},
		{
			name:   "sell victim against buy attackers",
			config: nil,
			records: []types.IndicatorRecord{
				buy("a", 10, 100, "3300"),
				sell("v", 20, 100, "3200"),
				buy("b", 30, 100, "3210"),
			},
			want:       [][3]string{{"a", "v", "b"}},
			confidence: []types.Confidence{types.ConfidenceHigh},
		},
		{
			name:   "victim not worse than baseline",
			config: nil,
			records: []types.IndicatorRecord{
				buy("base", 5, 99, "3400"),
				sell("a", 10, 100, "3200"),
				buy("v", 20, 100, "3300"),
				sell("b", 30, 100, "3250"),
			},
			want: nil,
		},
		{
			name:   "same direction neighbours are not attackers",
			config: nil,
			records: []types.IndicatorRecord{
				buy("a", 10, 100, "3200"),
				buy("v", 20, 100, "3300"),
				buy("b", 30, 100, "3250"),
			},
			want: nil,
		},
		{
			name:   "cross block disabled ignores next block back-runner",
			config: nil,
			records: []types.IndicatorRecord{
				sell("a", 10, 100, "3200"),
				buy("v", 20, 100, "3300"),
				sell("b", 30, 101, "3250"),
			},
			want: nil,
		},
		{
			name:   "gap one spanning one block boundary",
			config: crossBlock(1),
			records: []types.IndicatorRecord{
				sell("a", 10, 100, "3200"),
				buy("v", 20, 100, "3300"),
				sell("b", 30, 101, "3250"),
			},
			want:       [][3]string{{"a", "v", "b"}},
			confidence: []types.Confidence{types.ConfidenceMedium},
		},
		{
			name:   "gap one rejects two block boundaries",
			config: crossBlock(1),
			records: []types.IndicatorRecord{
				sell("a", 10, 100, "3200"),
				buy("v", 20, 101, "3300"),
				sell("b", 30, 102, "3250"),
			},
			want: nil,
		},
		{
			name:   "gap two grades low",
			config: crossBlock(2),
			records: []types.IndicatorRecord{
				sell("a", 10, 100, "3200"),
				buy("v", 20, 101, "3300"),
				sell("b", 30, 102, "3250"),
			},
			want:       [][3]string{{"a", "v", "b"}},
			confidence: []types.Confidence{types.ConfidenceLow},
		},
		{
			name:   "different shards never form a triple",
			config: crossBlock(5),
			records: []types.IndicatorRecord{
				sell("a", 10, 100, "3200"),
				buy("v", 20, 100, "3300"),
				rec("b", types.DirectionTONToUSDT, 30, shardB, 100, "3250"),
			},
			want: nil,
		},
		{
			name: "impact below threshold",
			config: &interfaces.SandwichConfig{
				MinRateImpact:  decimal.RequireFromString("0.05"),
				BaselineWindow: DefaultBaselineWindow,
			},
			records: []types.IndicatorRecord{
				sell("a", 10, 100, "3200"),
				buy("v", 20, 100, "3300"),
				sell("b", 30, 100, "3250"),
			},
			want: nil,
		},
		{
			name:   "earliest front-runner wins on equal span",
			config: nil,
			records: []types.IndicatorRecord{
				sell("a1", 10, 100, "3200"),
				sell("a2", 15, 100, "3210"),
				buy("v", 20, 100, "3300"),
				sell("b", 30, 100, "3250"),
			},
			want:       [][3]string{{"a1", "v", "b"}},
			confidence: []types.Confidence{types.ConfidenceHigh},
		},
		{
			name:   "smaller span beats earlier front-runner",
			config: crossBlock(2),
			records: []types.IndicatorRecord{
				sell("a1", 10, 99, "3200"),
				sell("a2", 15, 100, "3210"),
				buy("v", 20, 100, "3300"),
				sell("b", 30, 100, "3250"),
			},
			want:       [][3]string{{"a2", "v", "b"}},
			confidence: []types.Confidence{types.ConfidenceHigh},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewSandwichDetector(tt.config).Detect(tt.records)
			require.NotNil(t, result)

			var got [][3]string
			var confidence []types.Confidence
			for _, tr := range result.Triples {
				got = append(got, [3]string{tr.FrontQueryID, tr.VictimQueryID, tr.BackQueryID})
				confidence = append(confidence, tr.Confidence)
			}
			assert.Equal(t, tt.want, got)
			if tt.confidence != nil {
				assert.Equal(t, tt.confidence, confidence)
			}
		})
	}
}

func TestSandwichDetector_Baseline(t *testing.T) {
	records := []types.IndicatorRecord{
		buy("base", 5, 99, "3250"),
		sell("a", 10, 100, "3200"),
		buy("v", 20, 100, "3300"),
		sell("b", 30, 100, "3250"),
	}

	result := NewSandwichDetector(nil).Detect(records)
	require.Len(t, result.Triples, 1)

	tr := result.Triples[0]
	assert.Equal(t, types.BaselinePrevious, tr.BaselineSource)
	assert.True(t, tr.Baseline.Equal(decimal.NewFromInt(3250)))
	assert.Equal(t, "0.0153846153846154", tr.Impact.StringFixed(16))
	assert.Equal(t, "0:"+shardA, tr.Lane)
	assert.Equal(t, 0, tr.Front)
	assert.Equal(t, 2, tr.Victim)
	assert.Equal(t, 3, tr.Back)

	// outside the window the front-runner's rate is used
	narrow := NewSandwichDetector(&interfaces.SandwichConfig{BaselineWindow: 0}).Detect(records)
	require.Len(t, narrow.Triples, 1)
	assert.Equal(t, types.BaselineFront, narrow.Triples[0].BaselineSource)
	assert.True(t, narrow.Triples[0].Baseline.Equal(decimal.NewFromInt(3200)))
}

func TestSandwichDetector_SkipsUnplaceableRecords(t *testing.T) {
	noBlock := buy("nb", 15, 0, "9999")
	noBlock.Swap.Block = nil

	invalid := buy("bad", 16, 100, "0")
	invalid.ScaledRate = decimal.NullDecimal{}
	invalid.Invalid = types.InvalidZeroOutput

	records := []types.IndicatorRecord{
		sell("a", 10, 100, "3200"),
		noBlock,
		invalid,
		buy("v", 20, 100, "3300"),
		sell("b", 30, 100, "3250"),
	}

	result := NewSandwichDetector(nil).Detect(records)
	assert.Equal(t, 1, result.NoBlock)
	require.Len(t, result.Triples, 1)
	assert.Equal(t, 3, result.Triples[0].Victim)
}

func TestSandwichDetector_OneTriplePerVictimOrdered(t *testing.T) {
	records := []types.IndicatorRecord{
		sell("a", 10, 100, "3200"),
		buy("v1", 20, 100, "3300"),
		buy("v2", 25, 100, "3310"),
		sell("b", 30, 100, "3250"),
		sell("b2", 35, 100, "3240"),
	}

	result := NewSandwichDetector(nil).Detect(records)
	require.Len(t, result.Triples, 2)
	assert.Equal(t, "v1", result.Triples[0].VictimQueryID)
	assert.Equal(t, "v2", result.Triples[1].VictimQueryID)
	assert.Equal(t, "b", result.Triples[1].BackQueryID)
}
