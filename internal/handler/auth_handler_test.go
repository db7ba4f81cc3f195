package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"user-auth-service/internal/config"
	"user-auth-service/internal/handler"
	"user-auth-service/internal/middleware"
	"user-auth-service/internal/model"
	"user-auth-service/internal/repository"
	"user-auth-service/internal/router"
	"user-auth-service/internal/service"
)

func newTestServer(t *testing.T, users *repository.MockUserStore, tokens *repository.MockTokenStore, serverSideLogout bool) (*httptest.Server, *service.AccessTokenCodec) {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:   5 * time.Second,
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	codec := service.NewAccessTokenCodec("test-secret", time.Hour)
	authService := service.NewAuthService(users, tokens, codec)
	authHandler := handler.NewAuthHandler(authService, serverSideLogout)
	authMiddleware := middleware.NewAuthMiddleware(codec)

	server := httptest.NewServer(router.New(cfg, authMiddleware, authHandler))
	t.Cleanup(server.Close)

	return server, codec
}

func testUser(t *testing.T, password string) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return model.User{
		ID:           uuid.NewString(),
		Email:        "a@x.com",
		PasswordHash: string(hash),
		Role:         "manager",
		Name:         "Anna",
		LastName:     "Petrova",
		Position:     "lead",
	}
}

func postLogin(t *testing.T, serverURL string, body map[string]string) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(serverURL+"/api/user/auth", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "refreshToken" {
			return cookie
		}
	}
	return nil
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Message
}

func TestLogin(t *testing.T) {
	t.Run("success sets cookie and returns token plus profile", func(t *testing.T) {
		users := new(repository.MockUserStore)
		tokens := new(repository.MockTokenStore)
		user := testUser(t, "secret")
		expiry := time.Now().UTC().Add(720 * time.Hour).Truncate(time.Second)

		users.On("FindByEmail", mock.Anything, "a@x.com").Return(user, nil)
		tokens.On("Issue", mock.Anything, user.ID).Return("refresh-token-1", expiry, nil)

		server, codec := newTestServer(t, users, tokens, false)

		resp := postLogin(t, server.URL, map[string]string{"email": "a@x.com", "password": "secret"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		cookie := refreshCookie(resp)
		require.NotNil(t, cookie, "refresh cookie must be set")
		assert.Equal(t, "refresh-token-1", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.WithinDuration(t, expiry, cookie.Expires, time.Minute)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var parsed model.SessionResponse
		require.NoError(t, json.Unmarshal(raw, &parsed))

		userID, err := codec.Verify(parsed.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)
		assert.Equal(t, user.Profile(), parsed.User)

		// The hash and the raw refresh token never appear in the body.
		assert.NotContains(t, string(raw), "password")
		assert.NotContains(t, string(raw), "refresh-token-1")
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		server, _ := newTestServer(t, new(repository.MockUserStore), new(repository.MockTokenStore), false)

		resp, err := http.Post(server.URL+"/api/user/auth", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("short password is rejected with 401", func(t *testing.T) {
		users := new(repository.MockUserStore)
		server, _ := newTestServer(t, users, new(repository.MockTokenStore), false)

		resp := postLogin(t, server.URL, map[string]string{"email": "a@x.com", "password": "ab"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid email or password", errorMessage(t, resp))
		users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(repository.MockUserStore)
		users.On("FindByEmail", mock.Anything, "b@x.com").Return(model.User{}, model.ErrUserNotFound)
		server, _ := newTestServer(t, users, new(repository.MockTokenStore), false)

		resp := postLogin(t, server.URL, map[string]string{"email": "b@x.com", "password": "secret"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "user not found", errorMessage(t, resp))
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(repository.MockUserStore)
		users.On("FindByEmail", mock.Anything, "a@x.com").Return(testUser(t, "secret"), nil)
		server, _ := newTestServer(t, users, new(repository.MockTokenStore), false)

		resp := postLogin(t, server.URL, map[string]string{"email": "a@x.com", "password": "not-it"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "wrong password, try again", errorMessage(t, resp))
	})
}

func TestRefresh(t *testing.T) {
	t.Run("rotates the cookie", func(t *testing.T) {
		users := new(repository.MockUserStore)
		tokens := new(repository.MockTokenStore)
		user := testUser(t, "secret")
		expiry := time.Now().UTC().Add(720 * time.Hour)

		tokens.On("Rotate", mock.Anything, "refresh-token-1").Return(user, "refresh-token-2", expiry, nil)

		server, codec := newTestServer(t, users, tokens, false)

		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/user/refresh-token", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "refresh-token-1"})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		require.Equal(t, http.StatusOK, resp.StatusCode)

		cookie := refreshCookie(resp)
		require.NotNil(t, cookie)
		assert.Equal(t, "refresh-token-2", cookie.Value)
		assert.True(t, cookie.HttpOnly)

		var parsed model.SessionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))

		userID, err := codec.Verify(parsed.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)
	})

	t.Run("missing cookie", func(t *testing.T) {
		server, _ := newTestServer(t, new(repository.MockUserStore), new(repository.MockTokenStore), false)

		resp, err := http.Post(server.URL+"/api/user/refresh-token", "application/json", nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "token not found", errorMessage(t, resp))
	})

	t.Run("superseded token", func(t *testing.T) {
		tokens := new(repository.MockTokenStore)
		tokens.On("Rotate", mock.Anything, "stale").
			Return(model.User{}, "", time.Time{}, model.ErrTokenNotFound)

		server, _ := newTestServer(t, new(repository.MockUserStore), tokens, false)

		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/user/refresh-token", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "stale"})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "user not found", errorMessage(t, resp))
	})
}

func TestLogout(t *testing.T) {
	t.Run("client-side clears only the cookie", func(t *testing.T) {
		tokens := new(repository.MockTokenStore)
		server, _ := newTestServer(t, new(repository.MockUserStore), tokens, false)

		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/user/logout", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "still-valid"})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		require.Equal(t, http.StatusOK, resp.StatusCode)

		cookie := refreshCookie(resp)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)

		tokens.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
		tokens.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("server-side revokes the stored token", func(t *testing.T) {
		tokens := new(repository.MockTokenStore)
		user := testUser(t, "secret")
		tokens.On("Lookup", mock.Anything, "held-token").Return(user, nil)
		tokens.On("Clear", mock.Anything, user.ID).Return(nil)

		server, _ := newTestServer(t, new(repository.MockUserStore), tokens, true)

		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/user/logout", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "held-token"})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tokens.AssertExpectations(t)
	})

	t.Run("logout without cookie still succeeds", func(t *testing.T) {
		server, _ := newTestServer(t, new(repository.MockUserStore), new(repository.MockTokenStore), true)

		resp, err := http.Post(server.URL+"/api/user/logout", "application/json", nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestProfile(t *testing.T) {
	t.Run("valid token returns the fresh profile", func(t *testing.T) {
		users := new(repository.MockUserStore)
		user := testUser(t, "secret")
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		server, codec := newTestServer(t, users, new(repository.MockTokenStore), false)

		accessToken, err := codec.Issue(user.ID)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/user/profile", nil)
		require.NoError(t, err)
		req.Header.Set("x-access-token", accessToken)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var parsed model.Profile
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
		assert.Equal(t, user.Profile(), parsed)
	})

	t.Run("bearer header works the same", func(t *testing.T) {
		users := new(repository.MockUserStore)
		user := testUser(t, "secret")
		users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		server, codec := newTestServer(t, users, new(repository.MockTokenStore), false)

		accessToken, err := codec.Issue(user.ID)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/user/profile", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token fails fast with 403", func(t *testing.T) {
		users := new(repository.MockUserStore)
		server, _ := newTestServer(t, users, new(repository.MockTokenStore), false)

		resp, err := http.Get(server.URL + "/api/user/profile")
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("garbage token is 403", func(t *testing.T) {
		server, _ := newTestServer(t, new(repository.MockUserStore), new(repository.MockTokenStore), false)

		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/user/profile", nil)
		require.NoError(t, err)
		req.Header.Set("x-access-token", "garbage")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("token for a deleted user is 401", func(t *testing.T) {
		users := new(repository.MockUserStore)
		users.On("FindByID", mock.Anything, "gone").Return(model.User{}, model.ErrUserNotFound)

		server, codec := newTestServer(t, users, new(repository.MockTokenStore), false)

		accessToken, err := codec.Issue("gone")
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/user/profile", nil)
		require.NoError(t, err)
		req.Header.Set("x-access-token", accessToken)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "user not found", errorMessage(t, resp))
	})
}

func TestUserByID(t *testing.T) {
	t.Run("any valid token can look up another user", func(t *testing.T) {
		users := new(repository.MockUserStore)
		caller := testUser(t, "secret")
		target := testUser(t, "other")
		target.Email = "b@x.com"
		users.On("FindByID", mock.Anything, target.ID).Return(target, nil)

		server, codec := newTestServer(t, users, new(repository.MockTokenStore), false)

		accessToken, err := codec.Issue(caller.ID)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/user/"+target.ID, nil)
		require.NoError(t, err)
		req.Header.Set("x-access-token", accessToken)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var parsed model.Profile
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
		assert.Equal(t, target.Profile(), parsed)
	})

	t.Run("unknown target is 401", func(t *testing.T) {
		users := new(repository.MockUserStore)
		users.On("FindByID", mock.Anything, "missing").Return(model.User{}, model.ErrUserNotFound)

		server, codec := newTestServer(t, users, new(repository.MockTokenStore), false)

		accessToken, err := codec.Issue(uuid.NewString())
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/user/missing", nil)
		require.NoError(t, err)
		req.Header.Set("x-access-token", accessToken)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
