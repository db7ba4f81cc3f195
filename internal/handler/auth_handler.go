package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"user-auth-service/internal/middleware"
	"user-auth-service/internal/model"
	"user-auth-service/internal/service"
	"user-auth-service/pkg/apierror"
)

const refreshCookieName = "refreshToken"

// AuthHandler is the transport edge of the token lifecycle: refresh
// token in an HTTP-only cookie, access token and profile in JSON bodies.
type AuthHandler struct {
	service          *service.AuthService
	serverSideLogout bool
}

func NewAuthHandler(service *service.AuthService, serverSideLogout bool) *AuthHandler {
	return &AuthHandler{service: service, serverSideLogout: serverSideLogout}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", http.StatusBadRequest))
		return
	}

	session, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, session.RefreshToken, session.RefreshExpiry)
	writeJSON(w, http.StatusOK, model.SessionResponse{Token: session.AccessToken, User: session.User})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("FORBIDDEN", "invalid or expired token", http.StatusForbidden))
		return
	}

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UserByID returns the target user's public profile. Any valid access
// token grants the lookup; it is not restricted to self.
func (h *AuthHandler) UserByID(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Refresh(r.Context(), h.refreshCookieValue(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, session.RefreshToken, session.RefreshExpiry)
	writeJSON(w, http.StatusOK, model.SessionResponse{Token: session.AccessToken, User: session.User})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), h.refreshCookieValue(r), h.serverSideLogout); err != nil {
		writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *AuthHandler) refreshCookieValue(r *http.Request) string {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// Secure is intentionally left unset: TLS is terminated upstream.
func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
