package formulas

import (
	"github.com/markcheno/go-talib"
)

// MovingAverage calculates a simple moving average over the given window.
// Partial windows at the start of the series are averaged over the points
// available, so the result has the same length as the input and no leading
// gaps.
func MovingAverage(values []float64, window int) []float64 {
	if len(values) == 0 || window <= 0 {
		return []float64{}
	}

	out := make([]float64, len(values))

	if len(values) >= window {
		copy(out, talib.Sma(values, window))
	}

	// talib leaves the first window-1 slots empty; fill them with the
	// mean of the points seen so far. When the series is shorter than the
	// window the whole output is built this way.
	limit := window - 1
	if limit > len(values) {
		limit = len(values)
	}
	sum := 0.0
	for i := 0; i < limit; i++ {
		sum += values[i]
		out[i] = sum / float64(i+1)
	}

	return out
}

// IndexTo100 rescales a series so its first non-zero value becomes 100.
// Returns an empty slice when no usable base exists.
func IndexTo100(values []float64) []float64 {
	base := 0.0
	for _, v := range values {
		if v != 0 {
			base = v
			break
		}
	}
	if base == 0 {
		return []float64{}
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / base * 100
	}
	return out
}
