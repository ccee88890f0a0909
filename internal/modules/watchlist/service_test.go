package watchlist

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmystocks/server/internal/database"
)

var testDBCounter int64

func newTestService(t *testing.T) (*Service, int64) {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	db, err := database.New(fmt.Sprintf("file:wltest%d?mode=memory&cache=shared", n))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	res, err := db.Conn().Exec(
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		"alice", "alice@example.com", "x",
	)
	require.NoError(t, err)
	userID, err := res.LastInsertId()
	require.NoError(t, err)

	return NewService(NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop()), userID
}

func TestSaveUpsertsByName(t *testing.T) {
	svc, userID := newTestService(t)

	first, err := svc.Save(userID, "Tech", []string{"aapl", "msft", "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, first.Stocks, "symbols normalized and deduplicated")

	second, err := svc.Save(userID, "Tech", []string{"NVDA"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same name overwrites, no new row")
	assert.Equal(t, []string{"NVDA"}, second.Stocks)

	lists, err := svc.List(userID)
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func TestDeleteIsOwnerChecked(t *testing.T) {
	svc, userID := newTestService(t)

	wl, err := svc.Save(userID, "Tech", []string{"AAPL"})
	require.NoError(t, err)

	// Foreign user id: no-op, list survives
	require.NoError(t, svc.Delete(wl.ID, userID+1))
	lists, err := svc.List(userID)
	require.NoError(t, err)
	assert.Len(t, lists, 1)

	require.NoError(t, svc.Delete(wl.ID, userID))
	lists, err = svc.List(userID)
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestResolveChain(t *testing.T) {
	svc, userID := newTestService(t)

	// Guest gets the fallback
	wl, symbols, err := svc.Resolve(0, 0)
	require.NoError(t, err)
	assert.Nil(t, wl)
	assert.Equal(t, FallbackSymbols(), symbols)

	// User with no lists gets the fallback too
	wl, symbols, err = svc.Resolve(userID, 0)
	require.NoError(t, err)
	assert.Nil(t, wl)
	assert.Equal(t, FallbackSymbols(), symbols)

	tech, err := svc.Save(userID, "Tech", []string{"AAPL"})
	require.NoError(t, err)
	energy, err := svc.Save(userID, "Energy", []string{"XOM"})
	require.NoError(t, err)

	// No default set: most recent wins
	wl, _, err = svc.Resolve(userID, 0)
	require.NoError(t, err)
	assert.Equal(t, energy.ID, wl.ID)

	// Default beats most recent
	require.NoError(t, svc.SetDefault(tech.ID, userID))
	wl, _, err = svc.Resolve(userID, 0)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, wl.ID)

	// Explicit selection beats everything
	wl, _, err = svc.Resolve(userID, energy.ID)
	require.NoError(t, err)
	assert.Equal(t, energy.ID, wl.ID)

	// A stale selection falls back down the chain
	wl, _, err = svc.Resolve(userID, 99999)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, wl.ID)
}

func TestCreateDefault(t *testing.T) {
	svc, userID := newTestService(t)

	require.NoError(t, svc.CreateDefault(userID))

	wl, symbols, err := svc.Resolve(userID, 0)
	require.NoError(t, err)
	require.NotNil(t, wl)
	assert.Equal(t, DefaultName, wl.Name)
	assert.True(t, wl.IsDefault)
	assert.Equal(t, FallbackSymbols(), symbols)
}

func TestAddRemoveSymbol(t *testing.T) {
	svc, userID := newTestService(t)

	wl, err := svc.Save(userID, "Tech", []string{"AAPL"})
	require.NoError(t, err)

	updated, err := svc.AddSymbol(wl.ID, userID, "msft")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, updated.Stocks)

	// Duplicate add is a no-op
	updated, err = svc.AddSymbol(wl.ID, userID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, updated.Stocks)

	updated, err = svc.RemoveSymbol(wl.ID, userID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, updated.Stocks)

	// Removing an absent symbol is a no-op
	updated, err = svc.RemoveSymbol(wl.ID, userID, "TSLA")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, updated.Stocks)
}

func TestSetDefaultIsExclusive(t *testing.T) {
	svc, userID := newTestService(t)

	a, err := svc.Save(userID, "A", []string{"AAPL"})
	require.NoError(t, err)
	b, err := svc.Save(userID, "B", []string{"MSFT"})
	require.NoError(t, err)

	require.NoError(t, svc.SetDefault(a.ID, userID))
	require.NoError(t, svc.SetDefault(b.ID, userID))

	lists, err := svc.List(userID)
	require.NoError(t, err)

	defaults := 0
	for _, wl := range lists {
		if wl.IsDefault {
			defaults++
			assert.Equal(t, b.ID, wl.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	// Foreign user cannot claim the list
	assert.ErrorIs(t, svc.SetDefault(a.ID, userID+1), ErrNotFound)
}

func TestFilterToMembers(t *testing.T) {
	got := FilterToMembers([]string{"aapl", "TSLA", "MSFT"}, []string{"AAPL", "MSFT"})
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)

	assert.Empty(t, FilterToMembers([]string{"TSLA"}, []string{"AAPL"}))
}
