package model

import "errors"

var (
	// Credential / user errors
	ErrValidation         = errors.New("invalid credentials payload")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	// Access token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Refresh token errors
	ErrMissingToken  = errors.New("missing refresh token")
	ErrTokenNotFound = errors.New("refresh token not found")
)
