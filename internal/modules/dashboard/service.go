package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/cache"
	"github.com/watchmystocks/server/internal/clients/yahoo"
	"github.com/watchmystocks/server/pkg/formulas"
)

// NewsBatchSize is the page size for the headline feed.
const NewsBatchSize = 4

// Moving-average windows shown on the price chart.
const (
	shortMAWindow = 30
	longMAWindow  = 100
)

// MarketData is the upstream data dependency.
type MarketData interface {
	GetHistoricalPrices(symbol string, start, end time.Time, interval string) ([]yahoo.Candle, error)
	GetNews(symbol string, count int) ([]yahoo.NewsItem, error)
	GetRecommendationTrend(symbol string) ([]yahoo.RecommendationPeriod, error)
	GetFundamentals(symbol string) (*yahoo.Fundamentals, error)
	GetCurrentPrice(symbol string, maxRetries int) (*float64, error)
}

// SymbolSeries is one symbol's line on the price chart.
type SymbolSeries struct {
	Symbol string      `json:"symbol"`
	Dates  []time.Time `json:"dates"`
	Open   []float64   `json:"open"`
	High   []float64   `json:"high"`
	Low    []float64   `json:"low"`
	Close  []float64   `json:"close"`
	MA30   []float64   `json:"ma_30"`
	MA100  []float64   `json:"ma_100"`
}

// ComparisonSeries is one indexed line on the comparison chart. The
// benchmark line is rendered dashed.
type ComparisonSeries struct {
	Symbol      string      `json:"symbol"`
	Label       string      `json:"label"`
	Dates       []time.Time `json:"dates"`
	Indexed     []float64   `json:"indexed"`
	IsBenchmark bool        `json:"is_benchmark"`
}

// NewsPage is one batch of merged headlines.
type NewsPage struct {
	Items   []yahoo.NewsItem `json:"items"`
	Page    int              `json:"page"`
	HasMore bool             `json:"has_more"`
}

// SymbolRecommendations is the analyst trend matrix for one symbol.
type SymbolRecommendations struct {
	Symbol  string                       `json:"symbol"`
	Periods []yahoo.RecommendationPeriod `json:"periods"`
}

// SymbolPerformance is the % change of one symbol over a range.
type SymbolPerformance struct {
	Symbol        string  `json:"symbol"`
	FirstClose    float64 `json:"first_close"`
	LastClose     float64 `json:"last_close"`
	ChangePercent float64 `json:"change_percent"`
}

// Service assembles dashboard data from the market-data client, with a
// short-TTL cache in front of every upstream call.
type Service struct {
	data        MarketData
	cache       *cache.Cache
	dailyTTL    time.Duration
	intradayTTL time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates a new dashboard service. The cache may be nil in
// tests.
func NewService(data MarketData, c *cache.Cache, dailyTTL, intradayTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		data:        data,
		cache:       c,
		dailyTTL:    dailyTTL,
		intradayTTL: intradayTTL,
		now:         time.Now,
		log:         log.With().Str("service", "dashboard").Logger(),
	}
}

// Chart is the price-chart payload for a set of symbols. NoData is set
// when none of the requested symbols produced a series, so the client can
// render a placeholder instead of an empty chart.
type Chart struct {
	Range   string         `json:"range"`
	Series  []SymbolSeries `json:"series"`
	NoData  bool           `json:"no_data"`
	Message string         `json:"message,omitempty"`
}

// PriceChart builds OHLC series with 30 and 100 point moving averages for
// each symbol over the named range.
func (s *Service) PriceChart(symbols []string, rangeName string) (*Chart, error) {
	rng, err := ResolveRange(rangeName, s.now())
	if err != nil {
		return nil, err
	}

	series := make([]SymbolSeries, 0, len(symbols))
	for _, symbol := range symbols {
		candles, err := s.candles(symbol, rangeName, rng)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol in price chart")
			continue
		}
		if len(candles) == 0 {
			continue
		}

		one := SymbolSeries{
			Symbol: symbol,
			Dates:  make([]time.Time, len(candles)),
			Open:   make([]float64, len(candles)),
			High:   make([]float64, len(candles)),
			Low:    make([]float64, len(candles)),
			Close:  make([]float64, len(candles)),
		}
		for i, c := range candles {
			one.Dates[i] = c.Date
			one.Open[i] = c.Open
			one.High[i] = c.High
			one.Low[i] = c.Low
			one.Close[i] = c.Close
		}
		one.MA30 = formulas.MovingAverage(one.Close, shortMAWindow)
		one.MA100 = formulas.MovingAverage(one.Close, longMAWindow)

		series = append(series, one)
	}

	chart := &Chart{Range: rangeName, Series: series}
	if len(series) == 0 {
		chart.NoData = true
		chart.Message = "no price data available for the selected symbols"
	}
	return chart, nil
}

// IndexedComparison rescales each symbol to 100 at the range start so
// relative performance is comparable, optionally with a benchmark overlay.
func (s *Service) IndexedComparison(symbols []string, rangeName, benchmark string) ([]ComparisonSeries, error) {
	rng, err := ResolveRange(rangeName, s.now())
	if err != nil {
		return nil, err
	}

	if benchmark != "" {
		if _, ok := BenchmarkName(benchmark); !ok {
			return nil, fmt.Errorf("unknown benchmark %q", benchmark)
		}
	}

	series := make([]ComparisonSeries, 0, len(symbols)+1)
	for _, symbol := range symbols {
		one, err := s.indexedSeries(symbol, symbol, false, rangeName, rng)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol in comparison")
			continue
		}
		if one != nil {
			series = append(series, *one)
		}
	}

	if benchmark != "" {
		label, _ := BenchmarkName(benchmark)
		one, err := s.indexedSeries(benchmark, label, true, rangeName, rng)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", benchmark).Msg("Benchmark series unavailable")
		} else if one != nil {
			series = append(series, *one)
		}
	}

	return series, nil
}

func (s *Service) indexedSeries(symbol, label string, isBenchmark bool, rangeName string, rng Range) (*ComparisonSeries, error) {
	candles, err := s.candles(symbol, rangeName, rng)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}

	closes := make([]float64, len(candles))
	dates := make([]time.Time, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		dates[i] = c.Date
	}

	indexed := formulas.IndexTo100(closes)
	if len(indexed) == 0 {
		return nil, nil
	}

	return &ComparisonSeries{
		Symbol:      symbol,
		Label:       label,
		Dates:       dates,
		Indexed:     indexed,
		IsBenchmark: isBenchmark,
	}, nil
}

// News merges the symbols' headlines newest-first and returns the
// requested batch of four.
func (s *Service) News(symbols []string, page int) (*NewsPage, error) {
	if page < 0 {
		page = 0
	}

	var merged []yahoo.NewsItem
	for _, symbol := range symbols {
		items, err := s.news(symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol in news feed")
			continue
		}
		merged = append(merged, items...)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	start := page * NewsBatchSize
	if start >= len(merged) {
		return &NewsPage{Items: []yahoo.NewsItem{}, Page: page, HasMore: false}, nil
	}

	end := start + NewsBatchSize
	if end > len(merged) {
		end = len(merged)
	}

	return &NewsPage{
		Items:   merged[start:end],
		Page:    page,
		HasMore: end < len(merged),
	}, nil
}

// Recommendations fetches the analyst trend matrix per symbol.
func (s *Service) Recommendations(symbols []string) ([]SymbolRecommendations, error) {
	out := make([]SymbolRecommendations, 0, len(symbols))
	for _, symbol := range symbols {
		key := "recs:" + symbol

		var periods []yahoo.RecommendationPeriod
		if !s.cacheGet(key, &periods) {
			var err error
			periods, err = s.data.GetRecommendationTrend(symbol)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol in recommendations")
				continue
			}
			s.cacheSet(key, periods, s.dailyTTL)
		}

		out = append(out, SymbolRecommendations{Symbol: symbol, Periods: periods})
	}
	return out, nil
}

// riskRangeName is the window the profile's return statistics cover.
const riskRangeName = "12M"

// CompanyProfile is the fundamentals panel for one symbol, augmented with
// a live quote and return statistics over the last twelve months.
type CompanyProfile struct {
	yahoo.Fundamentals
	CurrentPrice         *float64 `json:"current_price"`
	AverageDailyReturn   float64  `json:"average_daily_return"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
}

// CompanyInfo returns the fundamentals panel for one symbol.
func (s *Service) CompanyInfo(symbol string) (*CompanyProfile, error) {
	key := "info:" + symbol

	var profile CompanyProfile
	if s.cacheGet(key, &profile) {
		return &profile, nil
	}

	fetched, err := s.data.GetFundamentals(symbol)
	if err != nil {
		return nil, err
	}
	profile = CompanyProfile{Fundamentals: *fetched}

	if price, err := s.data.GetCurrentPrice(symbol, 3); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Live quote unavailable")
	} else {
		profile.CurrentPrice = price
	}

	if rng, rngErr := ResolveRange(riskRangeName, s.now()); rngErr == nil {
		if candles, cErr := s.candles(symbol, riskRangeName, rng); cErr == nil && len(candles) > 1 {
			closes := make([]float64, len(candles))
			for i, c := range candles {
				closes[i] = c.Close
			}
			returns := formulas.CalculateReturns(closes)
			profile.AverageDailyReturn = formulas.Mean(returns)
			profile.AnnualizedVolatility = formulas.AnnualizedVolatility(returns)
		}
	}

	s.cacheSet(key, &profile, s.dailyTTL)
	return &profile, nil
}

// Performance summarizes each symbol's % change over the named range.
// Used by the assistant's watchlist summary and the greeting.
func (s *Service) Performance(symbols []string, rangeName string) ([]SymbolPerformance, error) {
	rng, err := ResolveRange(rangeName, s.now())
	if err != nil {
		return nil, err
	}

	out := make([]SymbolPerformance, 0, len(symbols))
	for _, symbol := range symbols {
		candles, err := s.candles(symbol, rangeName, rng)
		if err != nil || len(candles) == 0 {
			continue
		}

		first := candles[0].Close
		last := candles[len(candles)-1].Close
		out = append(out, SymbolPerformance{
			Symbol:        symbol,
			FirstClose:    first,
			LastClose:     last,
			ChangePercent: formulas.PercentChange(first, last),
		})
	}
	return out, nil
}

// candles fetches bars through the cache.
func (s *Service) candles(symbol, rangeName string, rng Range) ([]yahoo.Candle, error) {
	key := "prices:" + symbol + ":" + rangeName

	var cached []yahoo.Candle
	if s.cacheGet(key, &cached) {
		return cached, nil
	}

	candles, err := s.data.GetHistoricalPrices(symbol, rng.Start, rng.End, rng.Interval)
	if err != nil {
		return nil, err
	}

	ttl := s.dailyTTL
	if rng.Intraday() {
		ttl = s.intradayTTL
	}
	s.cacheSet(key, candles, ttl)

	return candles, nil
}

func (s *Service) news(symbol string) ([]yahoo.NewsItem, error) {
	key := "news:" + symbol

	var cached []yahoo.NewsItem
	if s.cacheGet(key, &cached) {
		return cached, nil
	}

	items, err := s.data.GetNews(symbol, 12)
	if err != nil {
		return nil, err
	}
	s.cacheSet(key, items, s.intradayTTL)

	return items, nil
}

func (s *Service) cacheGet(key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Get(key, dest) == nil
}

func (s *Service) cacheSet(key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(key, value, ttl); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
