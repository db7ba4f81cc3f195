package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-auth-service/internal/model"
)

// TokenRepository persists the single active refresh token of each user
// directly on the user row. Issuing overwrites whatever token was there,
// so a user never holds more than one valid refresh token.
type TokenRepository struct {
	pool          *pgxpool.Pool
	ttl           time.Duration
	enforceExpiry bool
}

// NewTokenRepository builds the store. enforceExpiry controls whether
// Lookup and Rotate also require the stored expiry to be in the future;
// the legacy behavior stored the expiry but never checked it.
func NewTokenRepository(pool *pgxpool.Pool, ttl time.Duration, enforceExpiry bool) *TokenRepository {
	return &TokenRepository{pool: pool, ttl: ttl, enforceExpiry: enforceExpiry}
}

// Issue generates a fresh opaque token for the user and overwrites any
// previous value. The previous token stops resolving the moment the
// update commits.
func (r *TokenRepository) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(r.ttl)

	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = now()
		 WHERE id = $1`,
		userID, token, expiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", time.Time{}, model.ErrUserNotFound
	}
	return token, expiresAt, nil
}

// Rotate atomically replaces the presented token with a new one. The
// conditional UPDATE is keyed on the old value, so of two concurrent
// rotations with the same token exactly one matches a row; the other
// gets ErrTokenNotFound.
func (r *TokenRepository) Rotate(ctx context.Context, oldToken string) (model.User, string, time.Time, error) {
	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(r.ttl)

	var u model.User
	err := r.pool.QueryRow(ctx, r.rotateQuery(), oldToken, token, expiresAt).
		Scan(&u.ID, &u.Email, &u.Role, &u.Name, &u.LastName, &u.Position)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, "", time.Time{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.User{}, "", time.Time{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	return u, token, expiresAt, nil
}

// Lookup resolves a token to its holder without consuming it.
func (r *TokenRepository) Lookup(ctx context.Context, token string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, r.lookupQuery(), token).
		Scan(&u.ID, &u.Email, &u.Role, &u.Name, &u.LastName, &u.Position)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	return u, nil
}

// rotateQuery is the compare-and-swap at the heart of rotation: the
// UPDATE only matches while the old token is still the current value.
func (r *TokenRepository) rotateQuery() string {
	query := `UPDATE users
		 SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = now()
		 WHERE refresh_token = $1`
	if r.enforceExpiry {
		query += ` AND refresh_token_expires_at > now()`
	}
	return query + ` RETURNING id, email, role, name, last_name, "position"`
}

func (r *TokenRepository) lookupQuery() string {
	query := `SELECT id, email, role, name, last_name, "position"
		 FROM users WHERE refresh_token = $1`
	if r.enforceExpiry {
		query += ` AND refresh_token_expires_at > now()`
	}
	return query
}

// Clear removes the active refresh token, used by server-side logout.
func (r *TokenRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = now()
		 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
