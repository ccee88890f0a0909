package forecast

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/modules/auth"
)

// AttemptCounter persists forecast attempts for signed-in accounts.
type AttemptCounter interface {
	IncrementForecastAttempts(userID int64) (int, error)
}

// MemberResolver reports the symbols currently in a watchlist.
type MemberResolver interface {
	Members(id, userID int64) ([]string, error)
}

// Handlers exposes the forecast and simulation endpoints.
type Handlers struct {
	service  *Service
	sessions *auth.SessionManager
	attempts AttemptCounter
	members  MemberResolver
	log      zerolog.Logger
}

// NewHandlers creates the forecast handlers.
func NewHandlers(service *Service, sessions *auth.SessionManager, attempts AttemptCounter, members MemberResolver, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:  service,
		sessions: sessions,
		attempts: attempts,
		members:  members,
		log:      log.With().Str("handler", "forecast").Logger(),
	}
}

type generateRequest struct {
	Symbols     []string `json:"symbols"`
	HorizonDays int      `json:"horizon_days"`
	WatchlistID int64    `json:"watchlist_id"`
}

type simulateRequest struct {
	Symbol    string  `json:"symbol"`
	Amount    float64 `json:"amount"`
	StartDate string  `json:"start_date"`
}

// HandleGenerate runs the model for up to three symbols. Guests and free
// accounts are limited to FreeAttemptLimit runs.
// POST /api/forecast
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quota := h.quota(r)
	if quota.Exceeded() {
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"status":  "error",
			"message": ErrQuotaExceeded.Error(),
			"quota":   quota,
			"upgrade": true,
		})
		return
	}

	symbols := req.Symbols
	if req.WatchlistID > 0 {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "sign in to forecast a watchlist")
			return
		}
		members, err := h.members.Members(req.WatchlistID, user.ID)
		if err != nil {
			writeError(w, http.StatusNotFound, "watchlist not found")
			return
		}
		symbols = intersect(symbols, members)
		if len(symbols) == 0 {
			writeError(w, http.StatusBadRequest, "none of the requested symbols are in the watchlist")
			return
		}
	}

	forecasts, err := h.service.Generate(symbols, req.HorizonDays)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSymbols), errors.Is(err, ErrTooManySymbols):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNoHistory):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			h.log.Error().Err(err).Msg("Forecast failed")
			writeError(w, http.StatusBadGateway, "forecast service unavailable")
		}
		return
	}

	quota = h.recordAttempt(w, r, quota)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   forecasts,
		"quota":  quota,
	})
}

// HandleSimulate backtests a lump-sum investment.
// POST /api/forecast/simulate
func (h *Handlers) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}

	sim, err := h.service.Simulate(req.Symbol, req.Amount, start)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoHistory):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNoSymbols):
			writeError(w, http.StatusBadRequest, "symbol is required")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   sim,
	})
}

// HandleQuota reports the caller's remaining forecast attempts.
// GET /api/forecast/quota
func (h *Handlers) HandleQuota(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   h.quota(r),
	})
}

func (h *Handlers) quota(r *http.Request) QuotaStatus {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return QuotaStatus{
			Used:  h.sessions.AnonymousForecastAttempts(r),
			Limit: FreeAttemptLimit,
		}
	}
	if user.IsPremium() {
		return QuotaStatus{Unlimited: true}
	}
	return QuotaStatus{
		Used:  user.ForecastAttempts,
		Limit: FreeAttemptLimit,
	}
}

func (h *Handlers) recordAttempt(w http.ResponseWriter, r *http.Request, quota QuotaStatus) QuotaStatus {
	if quota.Unlimited {
		return quota
	}

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		used, err := h.sessions.IncrementAnonymousForecastAttempts(w, r)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to persist guest forecast attempt")
			used = quota.Used + 1
		}
		quota.Used = used
		return quota
	}

	used, err := h.attempts.IncrementForecastAttempts(user.ID)
	if err != nil {
		h.log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to persist forecast attempt")
		used = quota.Used + 1
	}
	quota.Used = used
	return quota
}

func intersect(requested, members []string) []string {
	allowed := make(map[string]bool, len(members))
	for _, m := range members {
		allowed[strings.ToUpper(m)] = true
	}
	if len(requested) == 0 {
		if len(members) > MaxSymbols {
			members = members[:MaxSymbols]
		}
		return members
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if allowed[strings.ToUpper(strings.TrimSpace(s))] {
			out = append(out, s)
		}
	}
	return out
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
