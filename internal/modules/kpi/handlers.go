package kpi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers serves the screen results.
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates the KPI handlers.
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "kpi").Logger(),
	}
}

// RegisterRoutes mounts the screen endpoints.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/screener", func(r chi.Router) {
		r.Get("/{risk}", h.HandleLatest)
		r.Post("/run", h.HandleRun)
	})
}

// HandleLatest returns the newest batch for one risk bucket.
// GET /api/screener/{risk}
func (h *Handlers) HandleLatest(w http.ResponseWriter, r *http.Request) {
	risk := chi.URLParam(r, "risk")

	candidates, err := h.service.Latest(risk)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownRisk):
			writeError(w, http.StatusBadRequest, "risk must be low, medium or high")
		case errors.Is(err, ErrNoBatches):
			writeError(w, http.StatusNotFound, "no screen results yet")
		default:
			h.log.Error().Err(err).Str("risk", risk).Msg("Failed to load screen results")
			writeError(w, http.StatusInternalServerError, "failed to load screen results")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   candidates,
	})
}

// HandleRun triggers a screen batch outside the weekly schedule. The run
// happens in the background since a full pass takes minutes.
// POST /api/screener/run
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := h.service.RunScreen(); err != nil {
			h.log.Error().Err(err).Msg("Manual screen run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"state": "started"},
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
