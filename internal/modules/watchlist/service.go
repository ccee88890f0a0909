package watchlist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Service implements watchlist management and the load-resolution chain.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new watchlist service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "watchlist").Logger(),
	}
}

// CreateDefault seeds the starter watchlist for a new account.
func (s *Service) CreateDefault(userID int64) error {
	_, err := s.repo.Upsert(userID, DefaultName, FallbackSymbols(), true)
	return err
}

// List returns the user's watchlists.
func (s *Service) List(userID int64) ([]Watchlist, error) {
	return s.repo.ListByUser(userID)
}

// Members returns the symbols in one of the user's watchlists.
func (s *Service) Members(id, userID int64) ([]string, error) {
	wl, err := s.repo.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	return wl.Stocks, nil
}

// Save upserts a watchlist by name with normalized symbols.
func (s *Service) Save(userID int64, name string, symbols []string) (*Watchlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("watchlist name is required")
	}

	return s.repo.Upsert(userID, name, normalizeSymbols(symbols), false)
}

// Delete removes a watchlist owned by the user; foreign ids are a no-op.
func (s *Service) Delete(id, userID int64) error {
	return s.repo.Delete(id, userID)
}

// SetDefault marks a watchlist as the user's default.
func (s *Service) SetDefault(id, userID int64) error {
	return s.repo.SetDefault(id, userID)
}

// Resolve picks the watchlist to display: the explicitly selected one, then
// the default, then the most recent. Guests and users with no lists get the
// fallback symbols with a nil watchlist.
func (s *Service) Resolve(userID, selectedID int64) (*Watchlist, []string, error) {
	if userID == 0 {
		return nil, FallbackSymbols(), nil
	}

	if selectedID != 0 {
		wl, err := s.repo.GetByID(selectedID, userID)
		if err == nil {
			return wl, wl.Stocks, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		// Selected list is gone, fall through the chain
	}

	wl, err := s.repo.GetDefault(userID)
	if err == nil {
		return wl, wl.Stocks, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}

	wl, err = s.repo.GetMostRecent(userID)
	if err == nil {
		return wl, wl.Stocks, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}

	return nil, FallbackSymbols(), nil
}

// AddSymbol appends a symbol to a watchlist if not already present.
func (s *Service) AddSymbol(id, userID int64, symbol string) (*Watchlist, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	wl, err := s.repo.GetByID(id, userID)
	if err != nil {
		return nil, err
	}

	for _, existing := range wl.Stocks {
		if existing == symbol {
			return wl, nil
		}
	}

	updated := append(wl.Stocks, symbol)
	if err := s.repo.UpdateStocks(id, userID, updated); err != nil {
		return nil, err
	}

	return s.repo.GetByID(id, userID)
}

// RemoveSymbol drops a symbol from a watchlist. Selections that referenced
// the symbol (chart, forecast, simulation) are rebuilt from the returned
// membership by their handlers.
func (s *Service) RemoveSymbol(id, userID int64, symbol string) (*Watchlist, error) {
	symbol = normalizeSymbol(symbol)

	wl, err := s.repo.GetByID(id, userID)
	if err != nil {
		return nil, err
	}

	updated := make([]string, 0, len(wl.Stocks))
	for _, existing := range wl.Stocks {
		if existing != symbol {
			updated = append(updated, existing)
		}
	}

	if len(updated) == len(wl.Stocks) {
		return wl, nil
	}

	if err := s.repo.UpdateStocks(id, userID, updated); err != nil {
		return nil, err
	}

	return s.repo.GetByID(id, userID)
}

// FilterToMembers intersects requested symbols with the watchlist
// membership, preserving request order. Used to reconcile stale selections
// after a symbol was removed.
func FilterToMembers(requested, members []string) []string {
	memberSet := make(map[string]struct{}, len(members))
	for _, m := range members {
		memberSet[m] = struct{}{}
	}

	out := make([]string, 0, len(requested))
	for _, sym := range requested {
		if _, ok := memberSet[normalizeSymbol(sym)]; ok {
			out = append(out, normalizeSymbol(sym))
		}
	}
	return out
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := normalizeSymbol(s)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
