package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lechuga_bot_backend/platform/apperr"
)

const userNotFoundMessage = "user not found"

// GetUser retrieves a bot user by ID.
func (r *Repo) GetUser(ctx context.Context, userID int64) (User, error) {
	query := `
        SELECT user_id, display_name, phone, terms_accepted_at, diagnosis_count, created_at
        FROM bot_users
        WHERE user_id = $1`

	var user User
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Phone,
		&user.TermsAcceptedAt,
		&user.DiagnosisCount,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// EnsureUser creates the user record if it does not exist and returns it.
// The display name is refreshed on every call.
func (r *Repo) EnsureUser(ctx context.Context, userID int64, displayName string) (User, error) {
	query := `
        INSERT INTO bot_users (user_id, display_name)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name
        RETURNING user_id, display_name, phone, terms_accepted_at, diagnosis_count, created_at`

	var user User
	if err := r.pool.QueryRow(ctx, query, userID, displayName).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Phone,
		&user.TermsAcceptedAt,
		&user.DiagnosisCount,
		&user.CreatedAt,
	); err != nil {
		return User{}, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

// AcceptTerms records the user's terms-and-conditions acceptance.
func (r *Repo) AcceptTerms(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE bot_users SET terms_accepted_at = now()
        WHERE user_id = $1 AND terms_accepted_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("accept terms: %w", err)
	}
	return nil
}

// UpdatePhone sets the user's normalized phone number.
func (r *Repo) UpdatePhone(ctx context.Context, userID int64, phone string) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE bot_users SET phone = $2 WHERE user_id = $1`, userID, phone)
	if err != nil {
		return fmt.Errorf("update phone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(userNotFoundMessage)
	}
	return nil
}

// IncrementDiagnosisCount adds one completed diagnosis to the user's tally
// and returns the new count.
func (r *Repo) IncrementDiagnosisCount(ctx context.Context, userID int64) (int, error) {
	query := `
        UPDATE bot_users SET diagnosis_count = diagnosis_count + 1
        WHERE user_id = $1
        RETURNING diagnosis_count`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound(userNotFoundMessage)
		}
		return 0, fmt.Errorf("increment diagnosis count: %w", err)
	}
	return count, nil
}
