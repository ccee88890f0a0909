// Package forecast produces price projections and investment simulations.
package forecast

import (
	"errors"
	"time"
)

// Limits on a forecast request.
const (
	MaxSymbols     = 3
	MinHorizonDays = 30
	MaxHorizonDays = 730
	DefaultHorizon = 90

	// HistoryYears is how much daily history feeds the model fit.
	HistoryYears = 5

	// FreeAttemptLimit is the number of forecasts granted to guests and
	// free-tier accounts.
	FreeAttemptLimit = 2
)

// Series is a dated value sequence, dates and values index-aligned.
type Series struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// KPIs is the headline summary of one symbol's projection.
type KPIs struct {
	LatestClose    float64 `json:"latest_close"`
	ExpectedPrice  float64 `json:"expected_price"`
	PercentDiff    float64 `json:"percent_diff"`
	UpperBound     float64 `json:"upper_bound"`
	LowerBound     float64 `json:"lower_bound"`
	HorizonDays    int     `json:"horizon_days"`
	HorizonEndDate string  `json:"horizon_end_date"`
}

// SymbolForecast is the full projection for one symbol.
type SymbolForecast struct {
	Symbol    string `json:"symbol"`
	History   Series `json:"history"`
	Projected Series `json:"projected"`
	Upper     Series `json:"upper"`
	Lower     Series `json:"lower"`
	KPIs      KPIs   `json:"kpis"`
}

// WaterfallStep is one bar of the simulation waterfall.
type WaterfallStep struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Simulation is the result of a buy-and-hold backtest.
type Simulation struct {
	Symbol       string          `json:"symbol"`
	Amount       float64         `json:"amount"`
	StartDate    time.Time       `json:"start_date"`
	EntryDate    time.Time       `json:"entry_date"`
	EntryPrice   float64         `json:"entry_price"`
	Shares       float64         `json:"shares"`
	LatestPrice  float64         `json:"latest_price"`
	CurrentValue float64         `json:"current_value"`
	Profit       float64         `json:"profit"`
	Waterfall    []WaterfallStep `json:"waterfall"`
}

// QuotaStatus describes how many forecast attempts remain.
type QuotaStatus struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Unlimited bool `json:"unlimited"`
}

// Exceeded reports whether a new attempt must be rejected.
func (q QuotaStatus) Exceeded() bool {
	return !q.Unlimited && q.Used >= q.Limit
}

// Domain errors.
var (
	ErrNoSymbols      = errors.New("at least one symbol is required")
	ErrTooManySymbols = errors.New("a forecast covers at most 3 symbols")
	ErrNoHistory      = errors.New("not enough price history")
	ErrQuotaExceeded  = errors.New("free forecast quota exhausted")
)
