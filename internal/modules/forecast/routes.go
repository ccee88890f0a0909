package forecast

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the forecast endpoints. Quota enforcement happens in
// the handlers so guests can use their free attempts.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/forecast", func(r chi.Router) {
		r.Post("/", h.HandleGenerate)
		r.Post("/simulate", h.HandleSimulate)
		r.Get("/quota", h.HandleQuota)
	})
}
