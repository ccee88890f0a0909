// Package kpi runs the weekly fundamentals screen over the S&P 500 and
// serves the resulting buy candidates per risk bucket.
package kpi

import (
	"errors"
	"time"
)

// Risk buckets derived from beta.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// TopPerBucket caps how many candidates each bucket keeps.
const TopPerBucket = 20

// RetainedBatches is how many past screen runs stay queryable.
const RetainedBatches = 5

// StockKPI is one screened symbol in a batch.
type StockKPI struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	PERatio       *float64  `json:"pe_ratio"`
	PBRatio       *float64  `json:"pb_ratio"`
	Beta          *float64  `json:"beta"`
	DividendYield *float64  `json:"dividend_yield"`
	MarketCap     *float64  `json:"market_cap"`
	ROE           *float64  `json:"roe"`
	DebtToEquity  *float64  `json:"debt_to_equity"`
	PriceMomentum *float64  `json:"price_momentum"`
	RiskTolerance string    `json:"risk_tolerance"`
	BatchID       int64     `json:"batch_id"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Domain errors.
var (
	ErrNoBatches   = errors.New("no kpi batches recorded yet")
	ErrUnknownRisk = errors.New("unknown risk tolerance")
)

// ValidRisk reports whether the name is one of the three buckets.
func ValidRisk(risk string) bool {
	switch risk {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}
