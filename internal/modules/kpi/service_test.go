package kpi

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmystocks/server/internal/clients/yahoo"
	"github.com/watchmystocks/server/internal/database"
)

var testDBCounter int64

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	db, err := database.New(fmt.Sprintf("file:kpitest%d?mode=memory&cache=shared", n))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db.Conn(), zerolog.Nop())
}

type fakeUniverse struct{ symbols []string }

func (f *fakeUniverse) Symbols() ([]string, error) { return f.symbols, nil }

type fakeFundamentals struct {
	data map[string]*yahoo.Fundamentals
}

func (f *fakeFundamentals) GetFundamentals(symbol string) (*yahoo.Fundamentals, error) {
	fund, ok := f.data[symbol]
	if !ok {
		return nil, fmt.Errorf("quote lookup failed for %s", symbol)
	}
	return fund, nil
}

func ptr(v float64) *float64 { return &v }

// fund builds a buy-eligible set of figures that tests then distort.
func fund(symbol string, beta float64) *yahoo.Fundamentals {
	return &yahoo.Fundamentals{
		Symbol:       symbol,
		PERatio:      ptr(20),
		Beta:         ptr(beta),
		ROE:          ptr(0.25),
		DebtToEquity: ptr(0.8),
		WeekHigh52:   ptr(150),
		WeekLow52:    ptr(100),
	}
}

func newScreenService(t *testing.T, universe []string, data map[string]*yahoo.Fundamentals) (*Service, *Repository) {
	t.Helper()
	repo := newTestRepo(t)
	svc := NewService(&fakeUniverse{symbols: universe}, &fakeFundamentals{data: data}, repo, zerolog.Nop())
	return svc, repo
}

func TestRiskBucket(t *testing.T) {
	assert.Equal(t, RiskLow, riskBucket(ptr(0.5)))
	assert.Equal(t, RiskLow, riskBucket(ptr(0.99)))
	assert.Equal(t, RiskMedium, riskBucket(ptr(1)))
	assert.Equal(t, RiskMedium, riskBucket(ptr(2)))
	assert.Equal(t, RiskHigh, riskBucket(ptr(2.01)))
}

func TestBuyEligible(t *testing.T) {
	base := fromFundamentals(fund("OK", 1.5), 1)
	assert.True(t, buyEligible(base))

	expensive := fromFundamentals(fund("PE", 1.5), 1)
	expensive.PERatio = ptr(45)
	assert.False(t, buyEligible(expensive))

	// Missing P/E alone does not disqualify.
	noPE := fromFundamentals(fund("NOPE", 1.5), 1)
	noPE.PERatio = nil
	assert.True(t, buyEligible(noPE))

	unprofitable := fromFundamentals(fund("ROE", 1.5), 1)
	unprofitable.ROE = ptr(0.05)
	assert.False(t, buyEligible(unprofitable))

	leveraged := fromFundamentals(fund("DEBT", 1.5), 1)
	leveraged.DebtToEquity = ptr(3.5)
	assert.False(t, buyEligible(leveraged))

	flat := fromFundamentals(fund("FLAT", 1.5), 1)
	flat.PriceMomentum = ptr(0)
	assert.False(t, buyEligible(flat))

	unknown := fromFundamentals(fund("MISS", 1.5), 1)
	unknown.ROE = nil
	assert.False(t, buyEligible(unknown))
}

func TestRunScreenBucketsAndSkipsFailures(t *testing.T) {
	data := map[string]*yahoo.Fundamentals{
		"CALM": fund("CALM", 0.6),
		"MID":  fund("MID", 1.4),
		"WILD": fund("WILD", 2.5),
		"BAD":  fund("BAD", 1.2),
	}
	data["BAD"].ROE = ptr(0.01)

	// No beta, no bucket.
	data["NOBETA"] = fund("NOBETA", 0)
	data["NOBETA"].Beta = nil

	// FAIL is in the universe but has no quote data.
	svc, repo := newScreenService(t, []string{"CALM", "MID", "WILD", "BAD", "NOBETA", "FAIL"}, data)
	svc.now = func() time.Time { return time.Unix(1_756_000_000, 0) }

	require.NoError(t, svc.RunScreen())

	low, err := svc.Latest(RiskLow)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "CALM", low[0].Symbol)
	assert.Equal(t, int64(1_756_000_000), low[0].BatchID)

	medium, err := svc.Latest(RiskMedium)
	require.NoError(t, err)
	require.Len(t, medium, 1)
	assert.Equal(t, "MID", medium[0].Symbol)

	high, err := svc.Latest(RiskHigh)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "WILD", high[0].Symbol)

	n, err := repo.CountBatches()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunScreenCapsBucketAtTwenty(t *testing.T) {
	universe := make([]string, 0, 30)
	data := map[string]*yahoo.Fundamentals{}
	for i := 0; i < 30; i++ {
		symbol := fmt.Sprintf("S%02d", i)
		f := fund(symbol, 1.5)
		// Spread momentum so the strongest names are unambiguous.
		f.WeekHigh52 = ptr(100 + float64(i))
		f.WeekLow52 = ptr(50)
		universe = append(universe, symbol)
		data[symbol] = f
	}

	svc, _ := newScreenService(t, universe, data)
	require.NoError(t, svc.RunScreen())

	medium, err := svc.Latest(RiskMedium)
	require.NoError(t, err)
	require.Len(t, medium, TopPerBucket)

	// Strongest momentum first.
	assert.Equal(t, "S29", medium[0].Symbol)
	assert.Equal(t, "S10", medium[TopPerBucket-1].Symbol)
}

func TestLatestReturnsNewestBatch(t *testing.T) {
	data := map[string]*yahoo.Fundamentals{"AAPL": fund("AAPL", 0.8)}
	svc, _ := newScreenService(t, []string{"AAPL"}, data)

	svc.now = func() time.Time { return time.Unix(1000, 0) }
	require.NoError(t, svc.RunScreen())

	svc.now = func() time.Time { return time.Unix(2000, 0) }
	require.NoError(t, svc.RunScreen())

	low, err := svc.Latest(RiskLow)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, int64(2000), low[0].BatchID)
}

func TestBatchRetention(t *testing.T) {
	data := map[string]*yahoo.Fundamentals{"AAPL": fund("AAPL", 0.8)}
	svc, repo := newScreenService(t, []string{"AAPL"}, data)

	for i := 1; i <= RetainedBatches+2; i++ {
		svc.now = func() time.Time { return time.Unix(int64(i*1000), 0) }
		require.NoError(t, svc.RunScreen())
	}

	n, err := repo.CountBatches()
	require.NoError(t, err)
	assert.Equal(t, RetainedBatches, n)

	latest, err := repo.LatestBatchID()
	require.NoError(t, err)
	assert.Equal(t, int64((RetainedBatches+2)*1000), latest)
}

func TestLatestValidation(t *testing.T) {
	svc, _ := newScreenService(t, nil, nil)

	_, err := svc.Latest("extreme")
	assert.ErrorIs(t, err, ErrUnknownRisk)

	_, err = svc.Latest(RiskLow)
	assert.ErrorIs(t, err, ErrNoBatches)
}
