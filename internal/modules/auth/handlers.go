package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Handlers exposes the account endpoints.
type Handlers struct {
	service  *Service
	sessions *SessionManager
	log      zerolog.Logger
}

// NewHandlers creates the auth handlers.
func NewHandlers(service *Service, sessions *SessionManager, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:  service,
		sessions: sessions,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// HandleRegister creates a new account.
// POST /api/auth/register
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Plan     string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Register(req.Username, req.Email, req.Password, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("Registration failed")
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"user":    user,
			"message": "confirmation email sent",
		},
	})
}

// HandleConfirm validates an email confirmation token.
// GET /api/auth/confirm/{token}
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request, token string) {
	email, already, err := h.service.ConfirmEmail(token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			writeError(w, http.StatusGone, "confirmation link expired")
		case errors.Is(err, ErrTokenInvalid):
			writeError(w, http.StatusBadRequest, "confirmation link invalid")
		default:
			h.log.Error().Err(err).Msg("Confirmation failed")
			writeError(w, http.StatusInternalServerError, "confirmation failed")
		}
		return
	}

	message := "email confirmed"
	if already {
		message = "email was already confirmed"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"email":   email,
			"message": message,
		},
	})
}

// HandleLogin verifies credentials and opens a session.
// POST /api/auth/login
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity := req.Username
	if identity == "" {
		identity = req.Email
	}

	user, err := h.service.Authenticate(identity, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid username or password")
		case errors.Is(err, ErrNotConfirmed):
			writeError(w, http.StatusForbidden, "account not confirmed, check your inbox or request a new link")
		default:
			h.log.Error().Err(err).Msg("Login failed")
			writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	if err := h.sessions.SignIn(w, r, user); err != nil {
		h.log.Error().Err(err).Msg("Failed to save session")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   user,
	})
}

// HandleLogout clears the session.
// POST /api/auth/logout
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		h.log.Error().Err(err).Msg("Failed to clear session")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"message": "logged out"},
	})
}

// HandleResendConfirmation mails a fresh confirmation link.
// POST /api/auth/resend-confirmation
func (h *Handlers) HandleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.ResendConfirmation(req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyConfirmed):
			writeError(w, http.StatusConflict, "account already confirmed")
		case errors.Is(err, ErrUserNotFound):
			writeError(w, http.StatusNotFound, "no account for that email")
		default:
			h.log.Error().Err(err).Msg("Resend confirmation failed")
			writeError(w, http.StatusInternalServerError, "failed to resend confirmation")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"message": "confirmation email sent"},
	})
}

// HandleRequestPasswordReset mails a reset link. Always answers 200 so the
// endpoint cannot be used to enumerate accounts.
// POST /api/auth/password-reset/request
func (h *Handlers) HandleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.RequestPasswordReset(req.Email); err != nil {
		h.log.Error().Err(err).Msg("Password reset request failed")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"message": "if the address is registered, a reset link is on its way"},
	})
}

// HandleResetPassword applies a new password from a reset token.
// POST /api/auth/password-reset/confirm
func (h *Handlers) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.ResetPassword(req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			writeError(w, http.StatusGone, "reset link expired")
		case errors.Is(err, ErrTokenInvalid):
			writeError(w, http.StatusBadRequest, "reset link invalid")
		case errors.Is(err, ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("Password reset failed")
			writeError(w, http.StatusInternalServerError, "password reset failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"message": "password updated"},
	})
}

// HandleMe returns the signed-in user.
// GET /api/auth/me
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   user,
	})
}

// HandleUpdateProfile changes username and email.
// PUT /api/auth/profile
func (h *Handlers) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.UpdateProfile(user.ID, req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.log.Error().Err(err).Msg("Profile update failed")
			writeError(w, http.StatusInternalServerError, "profile update failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"message": "profile updated"},
	})
}

// HandleChangePassword verifies the old password and sets a new one.
// PUT /api/auth/password
func (h *Handlers) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusForbidden, "current password is incorrect")
		case errors.Is(err, ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("Password change failed")
			writeError(w, http.StatusInternalServerError, "password change failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"message": "password changed"},
	})
}

// HandleSetTheme persists the UI theme.
// PUT /api/auth/theme
func (h *Handlers) HandleSetTheme(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req struct {
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetTheme(user.ID, req.Theme); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"theme": req.Theme},
	})
}

// HandleSetSubscription records the account tier after a billing flow
// completes. PUT /api/auth/subscription
func (h *Handlers) HandleSetSubscription(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req struct {
		SubscriptionStatus string `json:"subscription_status"`
		PaymentStatus      string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetSubscription(user.ID, req.SubscriptionStatus, req.PaymentStatus); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"subscription_status": req.SubscriptionStatus},
	})
}

// Shared response helpers for this package.

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
