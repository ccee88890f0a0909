package auth

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmystocks/server/internal/database"
)

var testDBCounter int64

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	db, err := database.New(fmt.Sprintf("file:authtest%d?mode=memory&cache=shared", n))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db.Conn(), zerolog.Nop())
}

// capturingMailer records sent mail for assertions.
type capturingMailer struct {
	to       []string
	subjects []string
	bodies   []string
}

func (m *capturingMailer) Send(to, subject, body string) error {
	m.to = append(m.to, to)
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return nil
}

func newTestService(t *testing.T) (*Service, *Repository, *capturingMailer) {
	t.Helper()
	repo := newTestRepo(t)
	mail := &capturingMailer{}
	svc := NewService(repo, mail, NewSigner("test-secret"), "http://localhost:8080", nil, zerolog.Nop())
	return svc, repo, mail
}

func TestRegisterAndConfirm(t *testing.T) {
	svc, repo, mail := newTestService(t)

	user, err := svc.Register("alice", "Alice@Example.com", "Str0ngpass", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email, "email should be normalized")
	assert.False(t, user.Confirmed)
	assert.Equal(t, SubscriptionFree, user.SubscriptionStatus)

	require.Len(t, mail.to, 1)
	assert.Equal(t, "alice@example.com", mail.to[0])

	// Pull the token out of the confirmation link
	body := mail.bodies[0]
	idx := strings.LastIndex(body, "/confirm/")
	require.Greater(t, idx, 0)
	token := strings.TrimSpace(body[idx+len("/confirm/"):])

	email, already, err := svc.ConfirmEmail(token)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "alice@example.com", email)

	confirmed, err := repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.True(t, confirmed.Confirmed)
	require.NotNil(t, confirmed.ConfirmedOn)

	// Confirming a second time is idempotent
	_, already, err = svc.ConfirmEmail(token)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register("alice", "alice@example.com", "Str0ngpass", "")
	require.NoError(t, err)

	_, err = svc.Register("alice", "other@example.com", "Str0ngpass", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Register("bob", "alice@example.com", "Str0ngpass", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register("alice", "alice@example.com", "weak", "")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestAuthenticate(t *testing.T) {
	svc, repo, _ := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "Str0ngpass", "")
	require.NoError(t, err)

	// Unconfirmed accounts cannot sign in
	_, err = svc.Authenticate("alice@example.com", "Str0ngpass")
	assert.ErrorIs(t, err, ErrNotConfirmed)

	require.NoError(t, repo.Confirm(user.Email, user.CreatedAt))

	got, err := svc.Authenticate("alice", "Str0ngpass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// The email address works as a fallback identity
	got, err = svc.Authenticate("alice@example.com", "Str0ngpass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate("alice", "Wrongpass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate("nobody", "Str0ngpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, repo, mail := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "Str0ngpass", "")
	require.NoError(t, err)
	require.NoError(t, repo.Confirm(user.Email, user.CreatedAt))

	require.NoError(t, svc.RequestPasswordReset("alice@example.com"))
	require.Len(t, mail.bodies, 2, "registration mail plus reset mail")

	body := mail.bodies[1]
	idx := strings.LastIndex(body, "/reset-password/")
	require.Greater(t, idx, 0)
	token := strings.TrimSpace(body[idx+len("/reset-password/"):])

	require.NoError(t, svc.ResetPassword(token, "N3wpassword"))

	_, err = svc.Authenticate("alice@example.com", "N3wpassword")
	assert.NoError(t, err)
	_, err = svc.Authenticate("alice@example.com", "Str0ngpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown addresses do not error
	assert.NoError(t, svc.RequestPasswordReset("ghost@example.com"))
}

func TestConfirmTokenRejectedForReset(t *testing.T) {
	svc, _, mail := newTestService(t)

	_, err := svc.Register("alice", "alice@example.com", "Str0ngpass", "")
	require.NoError(t, err)

	body := mail.bodies[0]
	idx := strings.LastIndex(body, "/confirm/")
	token := strings.TrimSpace(body[idx+len("/confirm/"):])

	err = svc.ResetPassword(token, "N3wpassword")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestUpdateProfileAndTheme(t *testing.T) {
	svc, repo, _ := newTestService(t)

	alice, err := svc.Register("alice", "alice@example.com", "Str0ngpass", "")
	require.NoError(t, err)
	_, err = svc.Register("bob", "bob@example.com", "Str0ngpass", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateProfile(alice.ID, "bob", "alice@example.com"), ErrUsernameTaken)
	assert.ErrorIs(t, svc.UpdateProfile(alice.ID, "alice2", "bob@example.com"), ErrEmailTaken)

	require.NoError(t, svc.UpdateProfile(alice.ID, "alice2", "alice2@example.com"))
	updated, err := repo.GetByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "alice2@example.com", updated.Email)

	require.NoError(t, svc.SetTheme(alice.ID, "dark"))
	updated, err = repo.GetByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "dark", updated.Theme)

	assert.Error(t, svc.SetTheme(alice.ID, "neon"))
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "Str0ngpass", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(user.ID, "wrong", "N3wpassword"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(user.ID, "Str0ngpass", "weak"), ErrWeakPassword)
	assert.NoError(t, svc.ChangePassword(user.ID, "Str0ngpass", "N3wpassword"))
}

func TestForecastAttemptsCounter(t *testing.T) {
	svc, repo, _ := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "Str0ngpass", "")
	require.NoError(t, err)

	n, err := repo.IncrementForecastAttempts(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.IncrementForecastAttempts(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRegisterWithPlan(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "Str0ngpass", SubscriptionPremium)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionPremium, user.SubscriptionStatus)
	assert.True(t, user.IsPremium())

	_, err = svc.Register("bob", "bob@example.com", "Str0ngpass", "platinum")
	assert.Error(t, err)
}
