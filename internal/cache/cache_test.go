package cache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE cache (key TEXT PRIMARY KEY, value BLOB NOT NULL, expires_at INTEGER NOT NULL)`)
	require.NoError(t, err)

	return New(db)
}

func TestSetGetRoundtrip(t *testing.T) {
	c := newTestCache(t)

	type payload struct {
		Symbol string
		Closes []float64
	}

	in := payload{Symbol: "AAPL", Closes: []float64{190.1, 191.4}}
	require.NoError(t, c.Set("prices:AAPL", in, time.Minute))

	var out payload
	require.NoError(t, c.Get("prices:AAPL", &out))
	assert.Equal(t, in, out)
}

func TestGetMissAndExpiry(t *testing.T) {
	c := newTestCache(t)

	var out string
	assert.ErrorIs(t, c.Get("absent", &out), ErrMiss)

	require.NoError(t, c.Set("short", "value", -time.Second))
	assert.ErrorIs(t, c.Get("short", &out), ErrMiss)
}

func TestDeleteByPrefix(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("news:AAPL", "a", time.Minute))
	require.NoError(t, c.Set("news:MSFT", "b", time.Minute))
	require.NoError(t, c.Set("prices:AAPL", "c", time.Minute))

	require.NoError(t, c.DeleteByPrefix("news:"))

	var out string
	assert.ErrorIs(t, c.Get("news:AAPL", &out), ErrMiss)
	assert.ErrorIs(t, c.Get("news:MSFT", &out), ErrMiss)
	assert.NoError(t, c.Get("prices:AAPL", &out))
}

func TestPurgeExpired(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("stale", "x", -time.Minute))
	require.NoError(t, c.Set("fresh", "y", time.Minute))
	require.NoError(t, c.PurgeExpired())

	var count int
	require.NoError(t, c.db.QueryRow("SELECT COUNT(*) FROM cache").Scan(&count))
	assert.Equal(t, 1, count)
}
