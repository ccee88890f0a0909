package watchlist

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/watchmystocks/server/internal/modules/auth"
)

// RegisterRoutes registers all watchlist routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/watchlists", func(r chi.Router) {
		r.Get("/load", h.HandleLoad) // guests allowed

		r.Get("/", auth.RequireUser(h.HandleList))
		r.Post("/", auth.RequireUser(h.HandleSave))

		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", auth.RequireUser(h.withID(h.HandleDelete)))
			r.Put("/default", auth.RequireUser(h.withID(h.HandleSetDefault)))
			r.Post("/symbols", auth.RequireUser(h.withID(h.HandleAddSymbol)))
			r.Delete("/symbols/{symbol}", auth.RequireUser(func(w http.ResponseWriter, req *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid watchlist id")
					return
				}
				h.HandleRemoveSymbol(w, req, id, chi.URLParam(req, "symbol"))
			}))
		})
	})

	r.Get("/symbols/search", h.HandleSearch)
}

// withID parses the {id} URL parameter before delegating.
func (h *Handlers) withID(fn func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid watchlist id")
			return
		}
		fn(w, r, id)
	}
}
