package metrics

import (
	"math"
	"testing"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   interfaces.Distribution
	}{
		{
			name:   "empty",
			values: nil,
			want:   interfaces.Distribution{},
		},
		{
			name:   "single value",
			values: []float64{42},
			want: interfaces.Distribution{
				Count: 1, Min: 42, Max: 42, Mean: 42, Median: 42, P90: 42, P95: 42, P99: 42,
			},
		},
		{
			name:   "even count averages the middle",
			values: []float64{4, 1, 3, 2},
			want: interfaces.Distribution{
				Count: 4, Min: 1, Max: 4, Mean: 2.5, Median: 2.5,
				Stdev: math.Sqrt(5.0 / 3.0), P90: 4, P95: 4, P99: 4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.values)
			assert.Equal(t, tt.want.Count, got.Count)
			assert.InDelta(t, tt.want.Min, got.Min, 1e-12)
			assert.InDelta(t, tt.want.Max, got.Max, 1e-12)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-12)
			assert.InDelta(t, tt.want.Median, got.Median, 1e-12)
			assert.InDelta(t, tt.want.Stdev, got.Stdev, 1e-12)
			assert.InDelta(t, tt.want.P90, got.P90, 1e-12)
			assert.InDelta(t, tt.want.P99, got.P99, 1e-12)
		})
	}
}

func TestDescribe_DoesNotSortInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Describe(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestDescribe_Percentiles(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}

	got := Describe(values)
	assert.Equal(t, 91.0, got.P90)
	assert.Equal(t, 96.0, got.P95)
	assert.Equal(t, 100.0, got.P99)
	assert.Equal(t, 50.5, got.Median)
}
