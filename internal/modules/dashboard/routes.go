package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all dashboard routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/chart", h.HandleChart)
		r.Get("/comparison", h.HandleComparison)
		r.Get("/news", h.HandleNews)
		r.Get("/recommendations", h.HandleRecommendations)
		r.Get("/company/{symbol}", func(w http.ResponseWriter, req *http.Request) {
			h.HandleCompanyInfo(w, req, chi.URLParam(req, "symbol"))
		})
	})
}
