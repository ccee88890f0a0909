package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all auth routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Get("/confirm/{token}", func(w http.ResponseWriter, req *http.Request) {
			h.HandleConfirm(w, req, chi.URLParam(req, "token"))
		})
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.Post("/resend-confirmation", h.HandleResendConfirmation)
		r.Post("/password-reset/request", h.HandleRequestPasswordReset)
		r.Post("/password-reset/confirm", h.HandleResetPassword)

		r.Get("/me", h.HandleMe)
		r.Put("/profile", RequireUser(h.HandleUpdateProfile))
		r.Put("/password", RequireUser(h.HandleChangePassword))
		r.Put("/theme", RequireUser(h.HandleSetTheme))
		r.Put("/subscription", RequireUser(h.HandleSetSubscription))
	})
}
