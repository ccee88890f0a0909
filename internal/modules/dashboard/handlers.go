package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Handlers exposes the dashboard data endpoints. All of them are open to
// guests.
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates the dashboard handlers.
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "dashboard").Logger(),
	}
}

// HandleChart returns OHLC series with moving averages.
// GET /api/dashboard/chart?symbols=AAPL,MSFT&range=1M
func (h *Handlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r)
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols parameter is required")
		return
	}

	rangeName := r.URL.Query().Get("range")
	if rangeName == "" {
		rangeName = "12M"
	}

	chart, err := h.service.PriceChart(symbols, rangeName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   chart,
	})
}

// HandleComparison returns indexed performance with an optional benchmark.
// GET /api/dashboard/comparison?symbols=...&range=...&benchmark=^GSPC
func (h *Handlers) HandleComparison(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r)
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols parameter is required")
		return
	}

	rangeName := r.URL.Query().Get("range")
	if rangeName == "" {
		rangeName = "12M"
	}
	benchmark := r.URL.Query().Get("benchmark")

	series, err := h.service.IndexedComparison(symbols, rangeName, benchmark)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"range":  rangeName,
			"series": series,
		},
	})
}

// HandleNews returns one batch of merged headlines.
// GET /api/dashboard/news?symbols=...&page=0
func (h *Handlers) HandleNews(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r)
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols parameter is required")
		return
	}

	page := 0
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			page = parsed
		}
	}

	newsPage, err := h.service.News(symbols, page)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build news feed")
		writeError(w, http.StatusInternalServerError, "failed to load news")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   newsPage,
	})
}

// HandleRecommendations returns the analyst trend matrix per symbol.
// GET /api/dashboard/recommendations?symbols=...
func (h *Handlers) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r)
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols parameter is required")
		return
	}

	recs, err := h.service.Recommendations(symbols)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load recommendations")
		writeError(w, http.StatusInternalServerError, "failed to load recommendations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   recs,
	})
}

// HandleCompanyInfo returns the fundamentals panel for one symbol.
// GET /api/dashboard/company/{symbol}
func (h *Handlers) HandleCompanyInfo(w http.ResponseWriter, r *http.Request, symbol string) {
	info, err := h.service.CompanyInfo(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load company info")
		writeError(w, http.StatusBadGateway, "failed to load company info")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

func parseSymbols(r *http.Request) []string {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		sym := strings.ToUpper(strings.TrimSpace(p))
		if sym != "" {
			symbols = append(symbols, sym)
		}
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
