package assistant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/modules/auth"
	"github.com/watchmystocks/server/internal/modules/watchlist"
)

// WatchlistResolver picks the caller's effective watchlist.
type WatchlistResolver interface {
	Resolve(userID, selectedID int64) (*watchlist.Watchlist, []string, error)
}

// Handlers exposes the chat endpoints.
type Handlers struct {
	service    *Service
	sessions   *auth.SessionManager
	watchlists WatchlistResolver
	log        zerolog.Logger
}

// NewHandlers creates the assistant handlers.
func NewHandlers(service *Service, sessions *auth.SessionManager, watchlists WatchlistResolver, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:    service,
		sessions:   sessions,
		watchlists: watchlists,
		log:        log.With().Str("handler", "assistant").Logger(),
	}
}

// RegisterRoutes mounts the chat endpoints. Guests can chat too.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/assistant", func(r chi.Router) {
		r.Get("/greeting", h.HandleGreeting)
		r.Post("/message", h.HandleMessage)
		r.Get("/history", h.HandleHistory)
		r.Post("/clear", h.HandleClear)
		r.Get("/ws", h.HandleWebsocket)
	})
}

type messageRequest struct {
	Message string `json:"message"`
}

// HandleGreeting opens (or reopens) a conversation with a personalized
// welcome.
// GET /api/assistant/greeting
func (h *Handlers) HandleGreeting(w http.ResponseWriter, r *http.Request) {
	conversationID, err := h.sessions.ConversationID(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open conversation")
		return
	}

	username := ""
	if user, ok := auth.UserFromContext(r.Context()); ok {
		username = user.Username
	}

	msg := h.service.Greeting(conversationID, username, h.callerSymbols(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   msg,
	})
}

// HandleMessage processes one chat turn.
// POST /api/assistant/message
func (h *Handlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conversationID, err := h.sessions.ConversationID(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open conversation")
		return
	}

	reply, err := h.service.Reply(r.Context(), conversationID, req.Message, h.callerSymbols(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "message is required")
		case errors.Is(err, ErrNotAvailable):
			writeError(w, http.StatusServiceUnavailable, "the assistant is not available right now")
		default:
			h.log.Error().Err(err).Msg("Assistant reply failed")
			writeError(w, http.StatusBadGateway, "the assistant could not answer")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   reply,
	})
}

// HandleHistory returns the conversation so far.
// GET /api/assistant/history
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID, err := h.sessions.ConversationID(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open conversation")
		return
	}

	history := h.service.History(conversationID)
	if history == nil {
		history = []Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   history,
	})
}

// HandleClear forgets the conversation and starts over with a fresh
// greeting.
// POST /api/assistant/clear
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	conversationID, err := h.sessions.ConversationID(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open conversation")
		return
	}

	h.service.Clear(conversationID)

	username := ""
	if user, ok := auth.UserFromContext(r.Context()); ok {
		username = user.Username
	}
	msg := h.service.Greeting(conversationID, username, h.callerSymbols(r))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   msg,
	})
}

// callerSymbols resolves the watchlist backing personalized answers.
func (h *Handlers) callerSymbols(r *http.Request) []string {
	var userID int64
	if user, ok := auth.UserFromContext(r.Context()); ok {
		userID = user.ID
	}

	_, symbols, err := h.watchlists.Resolve(userID, h.sessions.SelectedWatchlist(r))
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to resolve watchlist for assistant")
		return watchlist.FallbackSymbols()
	}
	return symbols
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
