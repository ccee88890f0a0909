// Package dashboard builds the chart, comparison, news and analyst data
// shown on the main screen.
package dashboard

import (
	"fmt"
	"time"
)

// Range is a resolved time window with the bar interval to request.
type Range struct {
	Start    time.Time
	End      time.Time
	Interval string
}

// Intraday reports whether the range uses sub-daily bars.
func (r Range) Intraday() bool {
	return r.Interval != "1d"
}

// ResolveRange maps a named range selector to a concrete window.
func ResolveRange(name string, now time.Time) (Range, error) {
	switch name {
	case "Intraday", "1D":
		return Range{Start: now.Add(-24 * time.Hour), End: now, Interval: "5m"}, nil
	case "5D":
		return Range{Start: now.AddDate(0, 0, -5), End: now, Interval: "15m"}, nil
	case "1M":
		return Range{Start: now.AddDate(0, 0, -30), End: now, Interval: "1d"}, nil
	case "3M":
		return Range{Start: now.AddDate(0, 0, -90), End: now, Interval: "1d"}, nil
	case "YTD":
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Range{Start: start, End: now, Interval: "1d"}, nil
	case "12M":
		return Range{Start: now.AddDate(0, 0, -365), End: now, Interval: "1d"}, nil
	case "24M":
		return Range{Start: now.AddDate(0, 0, -730), End: now, Interval: "1d"}, nil
	case "5Y":
		return Range{Start: now.AddDate(0, 0, -1825), End: now, Interval: "1d"}, nil
	case "10Y":
		return Range{Start: now.AddDate(0, 0, -3650), End: now, Interval: "1d"}, nil
	default:
		return Range{}, fmt.Errorf("unknown range %q", name)
	}
}

// Benchmarks selectable for the indexed comparison overlay.
var benchmarkNames = map[string]string{
	"^GSPC": "S&P 500",
	"^NDX":  "Nasdaq 100",
	"^SSMI": "SMI",
}

// BenchmarkName resolves a benchmark symbol to its display name.
func BenchmarkName(symbol string) (string, bool) {
	name, ok := benchmarkNames[symbol]
	return name, ok
}
