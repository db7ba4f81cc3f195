package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"user-auth-service/internal/config"
	"user-auth-service/internal/handler"
	"user-auth-service/internal/middleware"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/user", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/auth", authHandler.Login)
		api.Post("/refresh-token", authHandler.Refresh)
		api.Post("/logout", authHandler.Logout)
		api.With(authMiddleware.RequireAccessToken).Get("/profile", authHandler.Profile)
		api.With(authMiddleware.RequireAccessToken).Get("/{id}", authHandler.UserByID)
	})

	return r
}
