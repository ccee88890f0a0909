// Package cache provides simple key-value storage with expiration, backed by
// the application database. Values are msgpack-encoded.
package cache

import (
	"database/sql"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache provides TTL key-value storage over the cache table.
type Cache struct {
	db *sql.DB
}

// New creates a new cache instance.
func New(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Set stores a value with a time-to-live.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(ttl).Unix()
	_, err = c.db.Exec(`
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, data, expiresAt)
	return err
}

// Get retrieves a value into dest. Returns ErrMiss when the key does not
// exist or has expired.
func (c *Cache) Get(key string, dest interface{}) error {
	var data []byte
	var expiresAt int64
	err := c.db.QueryRow("SELECT value, expires_at FROM cache WHERE key = ?", key).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	if time.Now().Unix() >= expiresAt {
		return ErrMiss
	}

	return msgpack.Unmarshal(data, dest)
}

// Delete removes a cache entry.
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

// DeleteByPrefix removes all cache entries matching a prefix.
func (c *Cache) DeleteByPrefix(prefix string) error {
	_, err := c.db.Exec("DELETE FROM cache WHERE key LIKE ?", prefix+"%")
	return err
}

// PurgeExpired removes rows whose TTL has elapsed.
func (c *Cache) PurgeExpired() error {
	_, err := c.db.Exec("DELETE FROM cache WHERE expires_at < ?", time.Now().Unix())
	return err
}
