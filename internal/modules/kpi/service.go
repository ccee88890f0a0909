package kpi

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/clients/yahoo"
)

// Universe lists the symbols the screen covers.
type Universe interface {
	Symbols() ([]string, error)
}

// FundamentalsSource fetches valuation figures per symbol.
type FundamentalsSource interface {
	GetFundamentals(symbol string) (*yahoo.Fundamentals, error)
}

// Service runs the fundamentals screen and serves its results.
type Service struct {
	universe Universe
	data     FundamentalsSource
	repo     *Repository
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates the KPI service.
func NewService(universe Universe, data FundamentalsSource, repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		universe: universe,
		data:     data,
		repo:     repo,
		now:      time.Now,
		log:      log.With().Str("service", "kpi").Logger(),
	}
}

// RunScreen fetches fundamentals for the whole universe, keeps the buy
// candidates, buckets them by beta and stores the top of each bucket as a
// new batch. Symbols that fail to fetch are skipped, not fatal.
func (s *Service) RunScreen() error {
	symbols, err := s.universe.Symbols()
	if err != nil {
		return fmt.Errorf("loading screen universe: %w", err)
	}

	batchID := s.now().Unix()
	buckets := map[string][]StockKPI{}
	fetched, skipped := 0, 0

	for _, symbol := range symbols {
		f, err := s.data.GetFundamentals(symbol)
		if err != nil {
			skipped++
			s.log.Debug().Err(err).Str("symbol", symbol).Msg("Skipping symbol")
			continue
		}
		fetched++

		// No beta means no risk bucket to place it in.
		if f.Beta == nil {
			continue
		}

		kpi := fromFundamentals(f, batchID)
		if !buyEligible(kpi) {
			continue
		}
		buckets[kpi.RiskTolerance] = append(buckets[kpi.RiskTolerance], kpi)
	}

	var rows []StockKPI
	for _, risk := range []string{RiskLow, RiskMedium, RiskHigh} {
		bucket := buckets[risk]
		sort.SliceStable(bucket, func(i, j int) bool {
			return momentum(bucket[i]) > momentum(bucket[j])
		})
		if len(bucket) > TopPerBucket {
			bucket = bucket[:TopPerBucket]
		}
		rows = append(rows, bucket...)
	}

	if err := s.repo.InsertBatch(batchID, rows); err != nil {
		return fmt.Errorf("storing batch %d: %w", batchID, err)
	}

	s.log.Info().
		Int64("batch_id", batchID).
		Int("universe", len(symbols)).
		Int("fetched", fetched).
		Int("skipped", skipped).
		Int("candidates", len(rows)).
		Msg("Screen batch stored")
	return nil
}

// Latest returns the newest batch's candidates for one risk bucket.
func (s *Service) Latest(risk string) ([]StockKPI, error) {
	if !ValidRisk(risk) {
		return nil, ErrUnknownRisk
	}
	batchID, err := s.repo.LatestBatchID()
	if err != nil {
		return nil, err
	}
	return s.repo.TopByRisk(batchID, risk, TopPerBucket)
}

// fromFundamentals maps raw figures to a screen row. Momentum is the width
// of the 52-week range; risk comes from beta.
func fromFundamentals(f *yahoo.Fundamentals, batchID int64) StockKPI {
	kpi := StockKPI{
		Symbol:        f.Symbol,
		PERatio:       f.PERatio,
		PBRatio:       f.PriceToBook,
		Beta:          f.Beta,
		DividendYield: f.DividendYield,
		MarketCap:     f.MarketCap,
		ROE:           f.ROE,
		DebtToEquity:  f.DebtToEquity,
		RiskTolerance: riskBucket(f.Beta),
		BatchID:       batchID,
	}
	if f.WeekHigh52 != nil && f.WeekLow52 != nil {
		m := *f.WeekHigh52 - *f.WeekLow52
		kpi.PriceMomentum = &m
	}
	return kpi
}

func riskBucket(beta *float64) string {
	switch {
	case *beta < 1:
		return RiskLow
	case *beta <= 2:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// buyEligible applies the screen rules: reasonable valuation, profitable,
// not over-leveraged, positive momentum. A missing P/E does not disqualify.
func buyEligible(kpi StockKPI) bool {
	if kpi.PERatio != nil && *kpi.PERatio >= 30 {
		return false
	}
	if kpi.ROE == nil || *kpi.ROE <= 0.10 {
		return false
	}
	if kpi.DebtToEquity == nil || *kpi.DebtToEquity >= 2 {
		return false
	}
	if kpi.PriceMomentum == nil || *kpi.PriceMomentum <= 0 {
		return false
	}
	return true
}

func momentum(kpi StockKPI) float64 {
	if kpi.PriceMomentum == nil {
		return 0
	}
	return *kpi.PriceMomentum
}
