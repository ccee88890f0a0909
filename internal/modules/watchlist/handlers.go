package watchlist

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/clients/yahoo"
	"github.com/watchmystocks/server/internal/modules/auth"
)

// SymbolSearcher provides ticker typeahead matches.
type SymbolSearcher interface {
	Search(query string) ([]yahoo.SearchResult, error)
}

// Handlers exposes the watchlist endpoints.
type Handlers struct {
	service  *Service
	sessions *auth.SessionManager
	searcher SymbolSearcher
	log      zerolog.Logger
}

// NewHandlers creates the watchlist handlers.
func NewHandlers(service *Service, sessions *auth.SessionManager, searcher SymbolSearcher, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:  service,
		sessions: sessions,
		searcher: searcher,
		log:      log.With().Str("handler", "watchlist").Logger(),
	}
}

// HandleList returns the user's watchlists.
// GET /api/watchlists
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	lists, err := h.service.List(user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list watchlists")
		writeError(w, http.StatusInternalServerError, "failed to list watchlists")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   lists,
	})
}

// HandleSave upserts a watchlist by name.
// POST /api/watchlists
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Name    string   `json:"name"`
		Symbols []string `json:"symbols"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wl, err := h.service.Save(user.ID, req.Name, req.Symbols)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to save watchlist")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   wl,
	})
}

// HandleDelete removes a watchlist; ids owned by other users are a no-op.
// DELETE /api/watchlists/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	user, _ := auth.UserFromContext(r.Context())

	if err := h.service.Delete(id, user.ID); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete watchlist")
		writeError(w, http.StatusInternalServerError, "failed to delete watchlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"message": "watchlist deleted"},
	})
}

// HandleSetDefault marks a watchlist as the user's default.
// PUT /api/watchlists/{id}/default
func (h *Handlers) HandleSetDefault(w http.ResponseWriter, r *http.Request, id int64) {
	user, _ := auth.UserFromContext(r.Context())

	err := h.service.SetDefault(id, user.ID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "watchlist not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to set default watchlist")
		writeError(w, http.StatusInternalServerError, "failed to set default watchlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"message": "default watchlist updated"},
	})
}

// HandleLoad resolves the watchlist to display and remembers the choice in
// the session. Guests get the fallback symbols.
// GET /api/watchlists/load?selected={id}
func (h *Handlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if user, ok := auth.UserFromContext(r.Context()); ok {
		userID = user.ID
	}

	selectedID := h.sessions.SelectedWatchlist(r)
	if param := r.URL.Query().Get("selected"); param != "" {
		if id, err := strconv.ParseInt(param, 10, 64); err == nil {
			selectedID = id
		}
	}

	wl, symbols, err := h.service.Resolve(userID, selectedID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to resolve watchlist")
		writeError(w, http.StatusInternalServerError, "failed to load watchlist")
		return
	}

	if wl != nil {
		if err := h.sessions.SetSelectedWatchlist(w, r, wl.ID); err != nil {
			h.log.Debug().Err(err).Msg("Failed to remember watchlist selection")
		}
	}

	// The client sends its current chart/news selections so removed symbols
	// drop out of them too.
	selections := symbols
	if raw := r.URL.Query().Get("selections"); raw != "" {
		selections = FilterToMembers(strings.Split(raw, ","), symbols)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"watchlist":  wl,
			"symbols":    symbols,
			"selections": selections,
		},
	})
}

// HandleAddSymbol appends a symbol to a watchlist.
// POST /api/watchlists/{id}/symbols
func (h *Handlers) HandleAddSymbol(w http.ResponseWriter, r *http.Request, id int64) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wl, err := h.service.AddSymbol(id, user.ID, req.Symbol)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "watchlist not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   wl,
	})
}

// HandleRemoveSymbol drops a symbol from a watchlist.
// DELETE /api/watchlists/{id}/symbols/{symbol}
func (h *Handlers) HandleRemoveSymbol(w http.ResponseWriter, r *http.Request, id int64, symbol string) {
	user, _ := auth.UserFromContext(r.Context())

	wl, err := h.service.RemoveSymbol(id, user.ID, symbol)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "watchlist not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to remove symbol")
		writeError(w, http.StatusInternalServerError, "failed to remove symbol")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   wl,
	})
}

// HandleSearch proxies ticker typeahead.
// GET /api/symbols/search?q=
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	results, err := h.searcher.Search(query)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Symbol search failed")
		writeError(w, http.StatusBadGateway, "symbol search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   results,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}
