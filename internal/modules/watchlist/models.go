// Package watchlist manages named symbol lists per user.
package watchlist

import (
	"errors"
	"time"
)

// Watchlist is a named list of ticker symbols owned by a user.
type Watchlist struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Stocks    []string  `json:"stocks"`
	IsDefault bool      `json:"is_default"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultName and FallbackSymbols seed new accounts and guest sessions.
const DefaultName = "My Watchlist"

// FallbackSymbols returns the guest watchlist.
func FallbackSymbols() []string {
	return []string{"AAPL", "MSFT"}
}

// Domain errors.
var (
	ErrNotFound = errors.New("watchlist not found")
)
