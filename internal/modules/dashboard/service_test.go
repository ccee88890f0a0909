package dashboard

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmystocks/server/internal/clients/yahoo"
)

// fakeMarketData serves canned series and headlines.
type fakeMarketData struct {
	candles map[string][]yahoo.Candle
	news    map[string][]yahoo.NewsItem
	trends  map[string][]yahoo.RecommendationPeriod
	calls   int
}

func (f *fakeMarketData) GetHistoricalPrices(symbol string, start, end time.Time, interval string) ([]yahoo.Candle, error) {
	f.calls++
	candles, ok := f.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	return candles, nil
}

func (f *fakeMarketData) GetNews(symbol string, count int) ([]yahoo.NewsItem, error) {
	return f.news[symbol], nil
}

func (f *fakeMarketData) GetRecommendationTrend(symbol string) ([]yahoo.RecommendationPeriod, error) {
	return f.trends[symbol], nil
}

func (f *fakeMarketData) GetFundamentals(symbol string) (*yahoo.Fundamentals, error) {
	return &yahoo.Fundamentals{Symbol: symbol, Name: symbol + " Inc"}, nil
}

func (f *fakeMarketData) GetCurrentPrice(symbol string, maxRetries int) (*float64, error) {
	candles, ok := f.candles[symbol]
	if !ok || len(candles) == 0 {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	price := candles[len(candles)-1].Close
	return &price, nil
}

func candlesFromCloses(start time.Time, closes ...float64) []yahoo.Candle {
	out := make([]yahoo.Candle, len(closes))
	for i, c := range closes {
		out[i] = yahoo.Candle{
			Date: start.AddDate(0, 0, i),
			Open: c, High: c, Low: c, Close: c,
		}
	}
	return out
}

func newTestService(data *fakeMarketData) *Service {
	return NewService(data, nil, 15*time.Minute, 2*time.Minute, zerolog.Nop())
}

func TestPriceChart(t *testing.T) {
	start := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	data := &fakeMarketData{
		candles: map[string][]yahoo.Candle{
			"AAPL": candlesFromCloses(start, 100, 102, 104, 106),
		},
	}
	svc := newTestService(data)

	chart, err := svc.PriceChart([]string{"AAPL", "MISSING"}, "1M")
	require.NoError(t, err)
	require.Len(t, chart.Series, 1, "failing symbols are skipped")
	assert.False(t, chart.NoData)

	aapl := chart.Series[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	require.Len(t, aapl.Close, 4)
	require.Len(t, aapl.MA30, 4)
	require.Len(t, aapl.MA100, 4)

	// Partial windows: MA is the running mean while under the window size
	assert.InDelta(t, 100, aapl.MA30[0], 1e-9)
	assert.InDelta(t, 101, aapl.MA30[1], 1e-9)
	assert.InDelta(t, 103, aapl.MA30[3], 1e-9)
}

func TestPriceChartNoData(t *testing.T) {
	svc := newTestService(&fakeMarketData{candles: map[string][]yahoo.Candle{}})

	chart, err := svc.PriceChart([]string{"MISSING", "ALSOMISSING"}, "1M")
	require.NoError(t, err)
	assert.Empty(t, chart.Series)
	assert.True(t, chart.NoData)
	assert.NotEmpty(t, chart.Message)
}

func TestIndexedComparison(t *testing.T) {
	start := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	data := &fakeMarketData{
		candles: map[string][]yahoo.Candle{
			"AAPL":  candlesFromCloses(start, 200, 220),
			"MSFT":  candlesFromCloses(start, 400, 380),
			"^GSPC": candlesFromCloses(start, 5000, 5100),
		},
	}
	svc := newTestService(data)

	series, err := svc.IndexedComparison([]string{"AAPL", "MSFT"}, "1M", "^GSPC")
	require.NoError(t, err)
	require.Len(t, series, 3)

	bySymbol := map[string]ComparisonSeries{}
	for _, s := range series {
		bySymbol[s.Symbol] = s
	}

	assert.InDelta(t, 100, bySymbol["AAPL"].Indexed[0], 1e-9)
	assert.InDelta(t, 110, bySymbol["AAPL"].Indexed[1], 1e-9)
	assert.InDelta(t, 95, bySymbol["MSFT"].Indexed[1], 1e-9)

	bench := bySymbol["^GSPC"]
	assert.True(t, bench.IsBenchmark)
	assert.Equal(t, "S&P 500", bench.Label)
	assert.InDelta(t, 102, bench.Indexed[1], 1e-9)
}

func TestIndexedComparisonRejectsUnknownBenchmark(t *testing.T) {
	svc := newTestService(&fakeMarketData{candles: map[string][]yahoo.Candle{}})

	_, err := svc.IndexedComparison([]string{"AAPL"}, "1M", "^FTSE")
	assert.Error(t, err)
}

func TestNewsPagination(t *testing.T) {
	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	mkNews := func(symbol string, n int, offset time.Duration) []yahoo.NewsItem {
		items := make([]yahoo.NewsItem, n)
		for i := range items {
			items[i] = yahoo.NewsItem{
				Symbol:      symbol,
				Title:       fmt.Sprintf("%s story %d", symbol, i),
				PublishedAt: base.Add(offset + time.Duration(i)*time.Hour),
			}
		}
		return items
	}

	data := &fakeMarketData{
		news: map[string][]yahoo.NewsItem{
			"AAPL": mkNews("AAPL", 5, 0),
			"MSFT": mkNews("MSFT", 4, 30*time.Minute),
		},
	}
	svc := newTestService(data)

	page0, err := svc.News([]string{"AAPL", "MSFT"}, 0)
	require.NoError(t, err)
	assert.Len(t, page0.Items, 4)
	assert.True(t, page0.HasMore)

	// Newest first across symbols
	for i := 1; i < len(page0.Items); i++ {
		assert.False(t, page0.Items[i].PublishedAt.After(page0.Items[i-1].PublishedAt))
	}

	page1, err := svc.News([]string{"AAPL", "MSFT"}, 1)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 4)
	assert.True(t, page1.HasMore)

	page2, err := svc.News([]string{"AAPL", "MSFT"}, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 1, "9 items total, last batch is partial")
	assert.False(t, page2.HasMore)

	page3, err := svc.News([]string{"AAPL", "MSFT"}, 3)
	require.NoError(t, err)
	assert.Empty(t, page3.Items)
	assert.False(t, page3.HasMore)
}

func TestCompanyInfo(t *testing.T) {
	start := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	data := &fakeMarketData{
		candles: map[string][]yahoo.Candle{
			"AAPL": candlesFromCloses(start, 100, 110, 99),
		},
	}
	svc := newTestService(data)

	profile, err := svc.CompanyInfo("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL Inc", profile.Name)

	require.NotNil(t, profile.CurrentPrice)
	assert.InDelta(t, 99, *profile.CurrentPrice, 1e-9)

	// Daily returns are +10% then -10%, so the mean is zero and the
	// annualized volatility is their sample stddev scaled by sqrt(252).
	assert.InDelta(t, 0, profile.AverageDailyReturn, 1e-9)
	assert.InDelta(t, math.Sqrt(0.02*252), profile.AnnualizedVolatility, 1e-9)
}

func TestCompanyInfoWithoutHistory(t *testing.T) {
	svc := newTestService(&fakeMarketData{candles: map[string][]yahoo.Candle{}})

	profile, err := svc.CompanyInfo("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL Inc", profile.Name)
	assert.Nil(t, profile.CurrentPrice)
	assert.Zero(t, profile.AverageDailyReturn)
	assert.Zero(t, profile.AnnualizedVolatility)
}

func TestPerformance(t *testing.T) {
	start := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	data := &fakeMarketData{
		candles: map[string][]yahoo.Candle{
			"AAPL": candlesFromCloses(start, 100, 120),
		},
	}
	svc := newTestService(data)

	perf, err := svc.Performance([]string{"AAPL", "MISSING"}, "1M")
	require.NoError(t, err)
	require.Len(t, perf, 1)
	assert.Equal(t, "AAPL", perf[0].Symbol)
	assert.InDelta(t, 20, perf[0].ChangePercent, 1e-9)
}
