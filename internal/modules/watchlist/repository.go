package watchlist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/database"
)

const watchlistColumns = "id, user_id, name, stocks, is_default, updated_at"

// Repository provides access to the watchlists table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "watchlists").Logger(),
	}
}

// ListByUser returns the user's watchlists, most recently updated first.
func (r *Repository) ListByUser(userID int64) ([]Watchlist, error) {
	rows, err := r.db.Query(
		"SELECT "+watchlistColumns+" FROM watchlists WHERE user_id = ? ORDER BY updated_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlists: %w", err)
	}
	defer rows.Close()

	var lists []Watchlist
	for rows.Next() {
		wl, err := scanWatchlist(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *wl)
	}
	return lists, rows.Err()
}

// GetByID fetches a watchlist owned by the user.
func (r *Repository) GetByID(id, userID int64) (*Watchlist, error) {
	row := r.db.QueryRow(
		"SELECT "+watchlistColumns+" FROM watchlists WHERE id = ? AND user_id = ?",
		id, userID,
	)
	return scanWatchlistRow(row)
}

// GetDefault fetches the user's default watchlist.
func (r *Repository) GetDefault(userID int64) (*Watchlist, error) {
	row := r.db.QueryRow(
		"SELECT "+watchlistColumns+" FROM watchlists WHERE user_id = ? AND is_default = 1",
		userID,
	)
	return scanWatchlistRow(row)
}

// GetMostRecent fetches the user's most recently updated watchlist.
func (r *Repository) GetMostRecent(userID int64) (*Watchlist, error) {
	row := r.db.QueryRow(
		"SELECT "+watchlistColumns+" FROM watchlists WHERE user_id = ? ORDER BY updated_at DESC, id DESC LIMIT 1",
		userID,
	)
	return scanWatchlistRow(row)
}

// Upsert saves symbols under a name. An existing (user, name) pair is
// overwritten, otherwise a new list is created. Returns the saved list.
func (r *Repository) Upsert(userID int64, name string, stocks []string, isDefault bool) (*Watchlist, error) {
	stocksJSON, err := json.Marshal(stocks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stocks: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO watchlists (user_id, name, stocks, is_default, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO UPDATE SET
			stocks = excluded.stocks,
			updated_at = excluded.updated_at
	`, userID, name, string(stocksJSON), boolToInt(isDefault), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to save watchlist: %w", err)
	}

	row := r.db.QueryRow(
		"SELECT "+watchlistColumns+" FROM watchlists WHERE user_id = ? AND name = ?",
		userID, name,
	)
	return scanWatchlistRow(row)
}

// UpdateStocks replaces the symbol list of a watchlist owned by the user.
func (r *Repository) UpdateStocks(id, userID int64, stocks []string) error {
	stocksJSON, err := json.Marshal(stocks)
	if err != nil {
		return fmt.Errorf("failed to encode stocks: %w", err)
	}

	res, err := r.db.Exec(
		"UPDATE watchlists SET stocks = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		string(stocksJSON), time.Now().UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update watchlist: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a watchlist. Deleting a list the user does not own is a
// no-op.
func (r *Repository) Delete(id, userID int64) error {
	_, err := r.db.Exec("DELETE FROM watchlists WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist: %w", err)
	}
	return nil
}

// SetDefault marks one watchlist as the user's default, clearing any
// previous default in the same transaction.
func (r *Repository) SetDefault(id, userID int64) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("UPDATE watchlists SET is_default = 0 WHERE user_id = ?", userID); err != nil {
			return err
		}

		res, err := tx.Exec(
			"UPDATE watchlists SET is_default = 1 WHERE id = ? AND user_id = ?",
			id, userID,
		)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWatchlistRow(row *sql.Row) (*Watchlist, error) {
	wl, err := scanWatchlist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return wl, err
}

func scanWatchlist(row rowScanner) (*Watchlist, error) {
	var wl Watchlist
	var stocksJSON string
	var isDefault int

	err := row.Scan(&wl.ID, &wl.UserID, &wl.Name, &stocksJSON, &isDefault, &wl.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan watchlist: %w", err)
	}

	if err := json.Unmarshal([]byte(stocksJSON), &wl.Stocks); err != nil {
		return nil, fmt.Errorf("failed to decode stocks for watchlist %d: %w", wl.ID, err)
	}
	wl.IsDefault = isDefault == 1
	return &wl, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
