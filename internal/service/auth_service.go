package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"user-auth-service/internal/model"
)

const minPasswordLength = 3

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	Count(ctx context.Context) (int, error)
}

type RefreshTokenStore interface {
	Issue(ctx context.Context, userID string) (string, time.Time, error)
	Rotate(ctx context.Context, oldToken string) (model.User, string, time.Time, error)
	Lookup(ctx context.Context, token string) (model.User, error)
	Clear(ctx context.Context, userID string) error
}

// AuthService orchestrates the token lifecycle: credential login, profile
// lookup, refresh-token rotation and logout.
type AuthService struct {
	users    UserStore
	tokens   RefreshTokenStore
	codec    *AccessTokenCodec
	verifier CredentialVerifier
}

func NewAuthService(users UserStore, tokens RefreshTokenStore, codec *AccessTokenCodec) *AuthService {
	return &AuthService{users: users, tokens: tokens, codec: codec}
}

// Login validates input shape before touching storage, checks the
// password against the stored hash and opens a fresh session. Opening a
// session overwrites any refresh token the user already held.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.Session, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return model.Session{}, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return model.Session{}, err
	}

	if !s.verifier.Verify(password, user.PasswordHash) {
		return model.Session{}, model.ErrInvalidCredentials
	}

	refreshToken, expiresAt, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return model.Session{}, err
	}

	return s.buildSession(user, refreshToken, expiresAt)
}

// Profile returns the public projection of the given user, looked up
// fresh so a deleted user fails even while their access token is valid.
func (s *AuthService) Profile(ctx context.Context, userID string) (model.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	return user.Profile(), nil
}

// Refresh rotates the presented refresh token and issues a new access
// token. The old token value is consumed: only one of any concurrent
// refreshes with the same token wins the conditional rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return model.Session{}, model.ErrMissingToken
	}

	user, newToken, expiresAt, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		return model.Session{}, err
	}

	return s.buildSession(user, newToken, expiresAt)
}

// Logout erases the caller's cookie at the transport layer; with
// serverSide it also clears the stored token of whichever user holds the
// presented value, revoking it for every client. Logout is idempotent:
// an unknown or absent token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, serverSide bool) error {
	if !serverSide || strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	user, err := s.tokens.Lookup(ctx, refreshToken)
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.tokens.Clear(ctx, user.ID)
}

// EnsureAdmin seeds the configured admin account when the users table is
// empty, so a fresh deployment has a way in. Disabled when no admin
// credentials are configured.
func (s *AuthService) EnsureAdmin(ctx context.Context, email string, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := s.verifier.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	admin := model.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         "admin",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}

	slog.Info("seeded admin user", "email", admin.Email)
	return nil
}

func (s *AuthService) buildSession(user model.User, refreshToken string, expiresAt time.Time) (model.Session, error) {
	accessToken, err := s.codec.Issue(user.ID)
	if err != nil {
		return model.Session{}, fmt.Errorf("sign access token: %w", err)
	}

	return model.Session{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		RefreshExpiry: expiresAt,
		User:          user.Profile(),
	}, nil
}

func validateCredentials(email string, password string) error {
	if email == "" || len(password) < minPasswordLength {
		return model.ErrValidation
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return model.ErrValidation
	}

	return nil
}
