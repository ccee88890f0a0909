package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRange(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		wantStart time.Time
		wantIval  string
	}{
		{"Intraday", now.Add(-24 * time.Hour), "5m"},
		{"1D", now.Add(-24 * time.Hour), "5m"},
		{"5D", now.AddDate(0, 0, -5), "15m"},
		{"1M", now.AddDate(0, 0, -30), "1d"},
		{"3M", now.AddDate(0, 0, -90), "1d"},
		{"YTD", time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), "1d"},
		{"12M", now.AddDate(0, 0, -365), "1d"},
		{"24M", now.AddDate(0, 0, -730), "1d"},
		{"5Y", now.AddDate(0, 0, -1825), "1d"},
		{"10Y", now.AddDate(0, 0, -3650), "1d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := ResolveRange(tt.name, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, rng.Start)
			assert.Equal(t, now, rng.End)
			assert.Equal(t, tt.wantIval, rng.Interval)
		})
	}
}

func TestResolveRangeUnknown(t *testing.T) {
	_, err := ResolveRange("7W", time.Now())
	assert.Error(t, err)
}

func TestRangeIntraday(t *testing.T) {
	now := time.Now()

	rng, err := ResolveRange("Intraday", now)
	require.NoError(t, err)
	assert.True(t, rng.Intraday())

	rng, err = ResolveRange("5Y", now)
	require.NoError(t, err)
	assert.False(t, rng.Intraday())
}

func TestBenchmarkName(t *testing.T) {
	name, ok := BenchmarkName("^GSPC")
	assert.True(t, ok)
	assert.Equal(t, "S&P 500", name)

	_, ok = BenchmarkName("^FTSE")
	assert.False(t, ok)
}
