package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		window   int
		expected []float64
	}{
		{
			name:     "partial windows averaged",
			values:   []float64{2, 4, 6, 8},
			window:   3,
			expected: []float64{2, 3, 4, 6},
		},
		{
			name:     "window larger than series",
			values:   []float64{10, 20},
			window:   5,
			expected: []float64{10, 15},
		},
		{
			name:     "window of one is identity",
			values:   []float64{1, 2, 3},
			window:   1,
			expected: []float64{1, 2, 3},
		},
		{
			name:     "empty input",
			values:   []float64{},
			window:   3,
			expected: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MovingAverage(tt.values, tt.window)
			require.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], got[i], 1e-9)
			}
		})
	}
}

func TestIndexTo100(t *testing.T) {
	got := IndexTo100([]float64{50, 55, 45})
	require.Len(t, got, 3)
	assert.InDelta(t, 100, got[0], 1e-9)
	assert.InDelta(t, 110, got[1], 1e-9)
	assert.InDelta(t, 90, got[2], 1e-9)

	assert.Empty(t, IndexTo100([]float64{0, 0}))
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}
