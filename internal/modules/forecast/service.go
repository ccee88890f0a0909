package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/clients/prophetd"
	"github.com/watchmystocks/server/internal/clients/yahoo"
)

// HistorySource supplies daily candles for model fitting.
type HistorySource interface {
	GetHistoricalPrices(symbol string, start, end time.Time, interval string) ([]yahoo.Candle, error)
}

// Forecaster runs the time-series model.
type Forecaster interface {
	Forecast(req prophetd.ForecastRequest) (*prophetd.ForecastResult, error)
}

// Service generates forecasts and simulations.
type Service struct {
	data       HistorySource
	forecaster Forecaster
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a forecast service.
func NewService(data HistorySource, forecaster Forecaster, log zerolog.Logger) *Service {
	return &Service{
		data:       data,
		forecaster: forecaster,
		now:        time.Now,
		log:        log.With().Str("service", "forecast").Logger(),
	}
}

// ClampHorizon normalizes a requested horizon to the allowed window.
// Zero or negative means the caller did not pick one.
func ClampHorizon(days int) int {
	if days <= 0 {
		return DefaultHorizon
	}
	if days < MinHorizonDays {
		return MinHorizonDays
	}
	if days > MaxHorizonDays {
		return MaxHorizonDays
	}
	return days
}

// Generate fits a model per symbol and returns projected series with KPIs.
// The horizon is clamped, not rejected.
func (s *Service) Generate(symbols []string, horizonDays int) ([]SymbolForecast, error) {
	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if len(symbols) > MaxSymbols {
		return nil, ErrTooManySymbols
	}
	horizonDays = ClampHorizon(horizonDays)

	end := s.now()
	start := end.AddDate(-HistoryYears, 0, 0)

	out := make([]SymbolForecast, 0, len(symbols))
	for _, symbol := range symbols {
		fc, err := s.generateOne(symbol, start, end, horizonDays)
		if err != nil {
			return nil, fmt.Errorf("forecasting %s: %w", symbol, err)
		}
		out = append(out, *fc)
	}
	return out, nil
}

func (s *Service) generateOne(symbol string, start, end time.Time, horizonDays int) (*SymbolForecast, error) {
	candles, err := s.data.GetHistoricalPrices(symbol, start, end, "1d")
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	if len(candles) < 2 {
		return nil, ErrNoHistory
	}

	req := prophetd.ForecastRequest{
		Symbol:  symbol,
		Dates:   make([]string, len(candles)),
		Closes:  make([]float64, len(candles)),
		Horizon: horizonDays,
	}
	for i, c := range candles {
		req.Dates[i] = c.Date.Format("2006-01-02")
		req.Closes[i] = c.Close
	}

	result, err := s.forecaster.Forecast(req)
	if err != nil {
		return nil, fmt.Errorf("model service: %w", err)
	}
	if len(result.Yhat) == 0 {
		return nil, fmt.Errorf("model service returned an empty projection")
	}

	fc := &SymbolForecast{Symbol: symbol}
	fc.History = historyTail(candles, 250)
	fc.Projected = parseProjection(result.Dates, result.Yhat)
	fc.Upper = parseProjection(result.Dates, result.YhatUpper)
	fc.Lower = parseProjection(result.Dates, result.YhatLower)

	latest := candles[len(candles)-1].Close
	last := len(result.Yhat) - 1
	fc.KPIs = KPIs{
		LatestClose:   latest,
		ExpectedPrice: result.Yhat[last],
		HorizonDays:   horizonDays,
	}
	if latest != 0 {
		fc.KPIs.PercentDiff = (result.Yhat[last] - latest) / latest * 100
	}
	if last < len(result.YhatUpper) {
		fc.KPIs.UpperBound = result.YhatUpper[last]
	}
	if last < len(result.YhatLower) {
		fc.KPIs.LowerBound = result.YhatLower[last]
	}
	if last < len(result.Dates) {
		fc.KPIs.HorizonEndDate = result.Dates[last]
	}

	s.log.Debug().
		Str("symbol", symbol).
		Int("horizon_days", horizonDays).
		Float64("expected", fc.KPIs.ExpectedPrice).
		Msg("forecast generated")
	return fc, nil
}

// Simulate runs a buy-and-hold backtest: the full amount is invested at the
// close of the first trading day on or after startDate.
func (s *Service) Simulate(symbol string, amount float64, startDate time.Time) (*Simulation, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrNoSymbols
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	end := s.now()
	if !startDate.Before(end) {
		return nil, fmt.Errorf("start date must be in the past")
	}

	candles, err := s.data.GetHistoricalPrices(symbol, startDate, end, "1d")
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	if len(candles) == 0 {
		return nil, ErrNoHistory
	}

	entry := candles[0]
	latest := candles[len(candles)-1]
	if entry.Close <= 0 {
		return nil, ErrNoHistory
	}

	shares := amount / entry.Close
	value := shares * latest.Close
	profit := value - amount

	return &Simulation{
		Symbol:       symbol,
		Amount:       amount,
		StartDate:    startDate,
		EntryDate:    entry.Date,
		EntryPrice:   entry.Close,
		Shares:       shares,
		LatestPrice:  latest.Close,
		CurrentValue: value,
		Profit:       profit,
		Waterfall: []WaterfallStep{
			{Label: "Invested", Value: amount},
			{Label: "Gain/Loss", Value: profit},
			{Label: "Current value", Value: value},
		},
	}, nil
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool)
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func historyTail(candles []yahoo.Candle, n int) Series {
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	s := Series{
		Dates:  make([]time.Time, len(candles)),
		Values: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Dates[i] = c.Date
		s.Values[i] = c.Close
	}
	return s
}

func parseProjection(dates []string, values []float64) Series {
	n := len(values)
	if len(dates) < n {
		n = len(dates)
	}
	s := Series{
		Dates:  make([]time.Time, 0, n),
		Values: make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		d, err := time.Parse("2006-01-02", dates[i])
		if err != nil {
			continue
		}
		s.Dates = append(s.Dates, d)
		s.Values = append(s.Values, values[i])
	}
	return s
}
