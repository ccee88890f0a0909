package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/mailer"
)

// DefaultWatchlistCreator seeds a starter watchlist for new accounts.
type DefaultWatchlistCreator interface {
	CreateDefault(userID int64) error
}

// Service implements registration, confirmation, login and account
// maintenance flows.
type Service struct {
	repo       *Repository
	mail       mailer.Mailer
	signer     *Signer
	baseURL    string
	watchlists DefaultWatchlistCreator
	log        zerolog.Logger
}

// NewService creates a new auth service.
func NewService(repo *Repository, mail mailer.Mailer, signer *Signer, baseURL string, watchlists DefaultWatchlistCreator, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		mail:       mail,
		signer:     signer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		watchlists: watchlists,
		log:        log.With().Str("service", "auth").Logger(),
	}
}

// Register creates an unconfirmed account, seeds its default watchlist and
// sends the confirmation mail. plan picks the starting tier; empty means
// free. Billing for the premium tier happens elsewhere.
func (s *Service) Register(username, email, password, plan string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required")
	}
	if plan == "" {
		plan = SubscriptionFree
	}
	if plan != SubscriptionFree && plan != SubscriptionPremium {
		return nil, fmt.Errorf("unknown plan %q", plan)
	}

	if taken, err := s.repo.UsernameExists(username, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}

	if taken, err := s.repo.EmailExists(email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.Create(username, email, hash)
	if err != nil {
		return nil, err
	}

	if plan == SubscriptionPremium {
		if err := s.repo.UpdateSubscription(user.ID, plan, "pending"); err != nil {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to set plan")
		} else {
			user.SubscriptionStatus = plan
			user.PaymentStatus = "pending"
		}
	}

	if s.watchlists != nil {
		if err := s.watchlists.CreateDefault(user.ID); err != nil {
			// Account stays usable without the starter list
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to seed default watchlist")
		}
	}

	if err := s.sendConfirmationMail(user); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("Failed to send confirmation mail")
	}

	s.log.Info().Str("username", username).Int64("user_id", user.ID).Msg("User registered")
	return user, nil
}

// ConfirmEmail validates a confirmation token. The alreadyConfirmed flag
// lets handlers distinguish the idempotent second visit.
func (s *Service) ConfirmEmail(token string) (email string, alreadyConfirmed bool, err error) {
	payload, err := s.signer.Verify(token, TokenMaxAge)
	if err != nil {
		return "", false, err
	}

	purpose, email, err := splitPayload(payload)
	if err != nil || purpose != "confirm" {
		return "", false, ErrTokenInvalid
	}

	err = s.repo.Confirm(email, time.Now())
	if err == ErrAlreadyConfirmed {
		return email, true, nil
	}
	if err != nil {
		return "", false, err
	}

	if user, getErr := s.repo.GetByEmail(email); getErr == nil {
		s.sendWelcomeMail(user)
	}

	s.log.Info().Str("email", email).Msg("Email confirmed")
	return email, false, nil
}

// Authenticate verifies credentials and the confirmation gate. The
// identity is a username, or an email address as a convenience.
func (s *Service) Authenticate(identity, password string) (*User, error) {
	identity = strings.TrimSpace(identity)

	user, err := s.repo.GetByUsername(identity)
	if err == ErrUserNotFound && strings.Contains(identity, "@") {
		user, err = s.repo.GetByEmail(strings.ToLower(identity))
	}
	if err == ErrUserNotFound {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !user.Confirmed {
		return nil, ErrNotConfirmed
	}

	return user, nil
}

// ResendConfirmation sends a fresh confirmation link to an unconfirmed
// account.
func (s *Service) ResendConfirmation(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return err
	}
	if user.Confirmed {
		return ErrAlreadyConfirmed
	}

	return s.sendConfirmationMail(user)
}

// RequestPasswordReset mails a reset link. Unknown addresses are not
// reported to the caller.
func (s *Service) RequestPasswordReset(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(email)
	if err == ErrUserNotFound {
		s.log.Debug().Str("email", email).Msg("Password reset requested for unknown address")
		return nil
	}
	if err != nil {
		return err
	}

	token := s.signer.Sign(resetPayload(user.Email))
	link := s.baseURL + "/reset-password/" + token
	body := fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. The link expires in one hour.\n\n%s\n", user.Username, link)

	return s.mail.Send(user.Email, "Reset your WatchMyStocks password", body)
}

// ResetPassword applies a new password carried by a valid reset token.
func (s *Service) ResetPassword(token, newPassword string) error {
	payload, err := s.signer.Verify(token, TokenMaxAge)
	if err != nil {
		return err
	}

	purpose, email, err := splitPayload(payload)
	if err != nil || purpose != "reset" {
		return ErrTokenInvalid
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(user.ID, hash); err != nil {
		return err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("Password reset")
	return nil
}

// UpdateProfile changes username and email after re-checking uniqueness.
func (s *Service) UpdateProfile(id int64, username, email string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" {
		return fmt.Errorf("username and email are required")
	}

	if taken, err := s.repo.UsernameExists(username, id); err != nil {
		return err
	} else if taken {
		return ErrUsernameTaken
	}

	if taken, err := s.repo.EmailExists(email, id); err != nil {
		return err
	} else if taken {
		return ErrEmailTaken
	}

	return s.repo.UpdateProfile(id, username, email)
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(id int64, current, newPassword string) error {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	if !CheckPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpdatePassword(id, hash)
}

// SetTheme persists the UI theme preference.
func (s *Service) SetTheme(id int64, theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.repo.UpdateTheme(id, theme)
}

// SetSubscription records the account tier. Payment handling lives outside
// this service; the caller passes whatever status the billing flow settled on.
func (s *Service) SetSubscription(id int64, subscription, payment string) error {
	if subscription != SubscriptionFree && subscription != SubscriptionPremium {
		return fmt.Errorf("unknown subscription %q", subscription)
	}
	return s.repo.UpdateSubscription(id, subscription, payment)
}

func (s *Service) sendConfirmationMail(user *User) error {
	token := s.signer.Sign(confirmPayload(user.Email))
	link := s.baseURL + "/confirm/" + token
	body := fmt.Sprintf("Hi %s,\n\nWelcome to WatchMyStocks. Confirm your email address within one hour using the link below.\n\n%s\n", user.Username, link)
	return s.mail.Send(user.Email, "Confirm your WatchMyStocks account", body)
}

func (s *Service) sendWelcomeMail(user *User) {
	body := fmt.Sprintf("Hi %s,\n\nYour email is confirmed. Your watchlists are waiting for you.\n", user.Username)
	if err := s.mail.Send(user.Email, "Welcome to WatchMyStocks", body); err != nil {
		s.log.Error().Err(err).Str("email", user.Email).Msg("Failed to send welcome mail")
	}
}
