package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

const (
	sessionName = "wms_session"

	sessionKeyUserID            = "user_id"
	sessionKeyConversationID    = "conversation_id"
	sessionKeyForecastAttempts  = "forecast_attempts"
	sessionKeySelectedWatchlist = "selected_watchlist"
)

type contextKey string

const userContextKey contextKey = "auth.user"

// SessionManager wraps the signed cookie store and resolves the current
// user on each request.
type SessionManager struct {
	store *sessions.CookieStore
	repo  *Repository
	log   zerolog.Logger
}

// NewSessionManager creates a session manager backed by a signed cookie
// store.
func NewSessionManager(secret string, secure bool, repo *Repository, log zerolog.Logger) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{
		store: store,
		repo:  repo,
		log:   log.With().Str("component", "sessions").Logger(),
	}
}

// SignIn establishes a session for the user.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, user *User) error {
	session, _ := sm.store.Get(r, sessionName)
	session.Values[sessionKeyUserID] = user.ID
	return session.Save(r, w)
}

// SignOut clears the session.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	session, _ := sm.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Middleware resolves the session user and stores it in the request
// context. Requests without a valid session pass through as guests.
func (sm *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := sm.store.Get(r, sessionName)
		if err != nil {
			// Tampered or stale cookie, treat as guest
			next.ServeHTTP(w, r)
			return
		}

		userID, ok := session.Values[sessionKeyUserID].(int64)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := sm.repo.GetByID(userID)
		if err != nil {
			sm.log.Debug().Err(err).Int64("user_id", userID).Msg("Session user no longer exists")
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects guest requests with 401.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// UserFromContext returns the signed-in user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok
}

// AnonymousForecastAttempts returns the forecast attempts recorded in the
// guest session.
func (sm *SessionManager) AnonymousForecastAttempts(r *http.Request) int {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		return 0
	}
	attempts, _ := session.Values[sessionKeyForecastAttempts].(int)
	return attempts
}

// IncrementAnonymousForecastAttempts bumps the guest forecast counter and
// returns the new value.
func (sm *SessionManager) IncrementAnonymousForecastAttempts(w http.ResponseWriter, r *http.Request) (int, error) {
	session, _ := sm.store.Get(r, sessionName)
	attempts, _ := session.Values[sessionKeyForecastAttempts].(int)
	attempts++
	session.Values[sessionKeyForecastAttempts] = attempts
	return attempts, session.Save(r, w)
}

// ConversationID returns the assistant conversation id for this session,
// creating one when absent.
func (sm *SessionManager) ConversationID(w http.ResponseWriter, r *http.Request) (string, error) {
	session, _ := sm.store.Get(r, sessionName)
	if id, ok := session.Values[sessionKeyConversationID].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.New().String()
	session.Values[sessionKeyConversationID] = id
	return id, session.Save(r, w)
}

// SelectedWatchlist returns the watchlist id the session last loaded, or 0.
func (sm *SessionManager) SelectedWatchlist(r *http.Request) int64 {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		return 0
	}
	id, _ := session.Values[sessionKeySelectedWatchlist].(int64)
	return id
}

// SetSelectedWatchlist records the watchlist id the session is viewing.
func (sm *SessionManager) SetSelectedWatchlist(w http.ResponseWriter, r *http.Request, id int64) error {
	session, _ := sm.store.Get(r, sessionName)
	session.Values[sessionKeySelectedWatchlist] = id
	return session.Save(r, w)
}
