// Package auth provides user accounts, cookie sessions and the signed
// email-token flows around them.
package auth

import (
	"errors"
	"time"
)

// Subscription tiers stored on the user row.
const (
	SubscriptionFree    = "free"
	SubscriptionPremium = "premium"
)

// User is a registered account.
type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Theme              string     `json:"theme"`
	Confirmed          bool       `json:"confirmed"`
	ConfirmedOn        *time.Time `json:"confirmed_on,omitempty"`
	SubscriptionStatus string     `json:"subscription_status"`
	PaymentStatus      string     `json:"payment_status"`
	ForecastAttempts   int        `json:"forecast_attempts"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IsPremium reports whether the account has an active paid subscription.
func (u *User) IsPremium() bool {
	return u.SubscriptionStatus == SubscriptionPremium
}

// Domain errors surfaced to handlers.
var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotConfirmed       = errors.New("account not confirmed")
	ErrAlreadyConfirmed   = errors.New("account already confirmed")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
)
