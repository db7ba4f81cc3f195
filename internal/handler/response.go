package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"user-auth-service/internal/model"
	"user-auth-service/pkg/apierror"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps every failure to a fixed status and a static message.
// Internal detail never crosses the boundary; unclassified errors are
// logged and surfaced as the generic 400 the login contract specifies.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	message := "something went wrong, try again"

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		message = apiErr.Message
	case errors.Is(err, model.ErrValidation):
		status = http.StatusUnauthorized
		message = "invalid email or password"
	case errors.Is(err, model.ErrUserNotFound):
		status = http.StatusUnauthorized
		message = "user not found"
	case errors.Is(err, model.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = "wrong password, try again"
	case errors.Is(err, model.ErrMissingToken):
		status = http.StatusUnauthorized
		message = "token not found"
	case errors.Is(err, model.ErrTokenNotFound):
		status = http.StatusUnauthorized
		message = "user not found"
	case errors.Is(err, model.ErrInvalidToken), errors.Is(err, model.ErrTokenExpired):
		status = http.StatusForbidden
		message = "invalid or expired token"
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	writeJSON(w, status, errorResponse{Message: message})
}
