package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const userColumns = `id, username, email, password_hash, theme, confirmed, confirmed_on,
	subscription_status, payment_status, forecast_attempts, created_at`

// Repository provides access to the users table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new user repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "users").Logger(),
	}
}

// Create inserts a new unconfirmed user and returns it with its ID set.
func (r *Repository) Create(username, email, passwordHash string) (*User, error) {
	res, err := r.db.Exec(`
		INSERT INTO users (username, email, password_hash)
		VALUES (?, ?, ?)
	`, username, email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get new user id: %w", err)
	}

	return r.GetByID(id)
}

// GetByID fetches a user by primary key.
func (r *Repository) GetByID(id int64) (*User, error) {
	row := r.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetByEmail fetches a user by email.
func (r *Repository) GetByEmail(email string) (*User, error) {
	row := r.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetByUsername fetches a user by username.
func (r *Repository) GetByUsername(username string) (*User, error) {
	row := r.db.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// UsernameExists reports whether a username is taken, optionally excluding
// one user id (for profile updates).
func (r *Repository) UsernameExists(username string, excludeID int64) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM users WHERE username = ? AND id != ?",
		username, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// EmailExists reports whether an email is registered, optionally excluding
// one user id.
func (r *Repository) EmailExists(email string, excludeID int64) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM users WHERE email = ? AND id != ?",
		email, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// Confirm marks a user as confirmed. Returns ErrAlreadyConfirmed when the
// flag was set before.
func (r *Repository) Confirm(email string, at time.Time) error {
	user, err := r.GetByEmail(email)
	if err != nil {
		return err
	}
	if user.Confirmed {
		return ErrAlreadyConfirmed
	}

	_, err = r.db.Exec(
		"UPDATE users SET confirmed = 1, confirmed_on = ? WHERE id = ?",
		at, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(id int64, passwordHash string) error {
	res, err := r.db.Exec("UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRow(res)
}

// UpdateProfile changes username and email.
func (r *Repository) UpdateProfile(id int64, username, email string) error {
	res, err := r.db.Exec("UPDATE users SET username = ?, email = ? WHERE id = ?", username, email, id)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireRow(res)
}

// UpdateTheme persists the UI theme preference.
func (r *Repository) UpdateTheme(id int64, theme string) error {
	res, err := r.db.Exec("UPDATE users SET theme = ? WHERE id = ?", theme, id)
	if err != nil {
		return fmt.Errorf("failed to update theme: %w", err)
	}
	return requireRow(res)
}

// IncrementForecastAttempts bumps the free-tier forecast counter and
// returns the new value.
func (r *Repository) IncrementForecastAttempts(id int64) (int, error) {
	_, err := r.db.Exec("UPDATE users SET forecast_attempts = forecast_attempts + 1 WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("failed to increment forecast attempts: %w", err)
	}

	var attempts int
	err = r.db.QueryRow("SELECT forecast_attempts FROM users WHERE id = ?", id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to read forecast attempts: %w", err)
	}
	return attempts, nil
}

// UpdateSubscription sets the subscription and payment status.
func (r *Repository) UpdateSubscription(id int64, subscription, payment string) error {
	res, err := r.db.Exec(
		"UPDATE users SET subscription_status = ?, payment_status = ? WHERE id = ?",
		subscription, payment, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var confirmed int
	var confirmedOn sql.NullTime

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Theme,
		&confirmed, &confirmedOn,
		&u.SubscriptionStatus, &u.PaymentStatus, &u.ForecastAttempts, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Confirmed = confirmed == 1
	if confirmedOn.Valid {
		u.ConfirmedOn = &confirmedOn.Time
	}
	return &u, nil
}
