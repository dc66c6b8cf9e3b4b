package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/moverap/backend/internal/auth"
	"github.com/moverap/backend/internal/handlers"
	"github.com/moverap/backend/internal/metrics"
	"github.com/moverap/backend/internal/middleware"
)

// Dependencies carries what RegisterRoutes needs to build the route table
type Dependencies struct {
	Authenticator   auth.Authenticator
	AuthHandler     *handlers.AuthHandler
	UserPageHandler *handlers.UserPageHandler
	UploadHandler   *handlers.UploadHandler
	HealthHandler   *handlers.HealthHandler
	AuthRateLimit   middleware.RateLimitConfig
	UploadRateLimit middleware.RateLimitConfig
	Logger          *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(deps.AuthRateLimit))
		r.Post("/auth/register", deps.AuthHandler.Register)
		r.Post("/auth/login", deps.AuthHandler.Login)
	})

	router.Get("/user-page/public/{username}", deps.UserPageHandler.Public)
	router.Get("/uploads/{filename}", deps.UploadHandler.ServeImage)
	router.Get("/health", deps.HealthHandler.Health)
	router.Handle("/metrics", metrics.Handler())

	// Protected routes - every request carries Basic credentials
	router.Group(func(r chi.Router) {
		r.Use(auth.BasicAuth(deps.Authenticator, deps.Logger))

		r.Get("/auth/me", deps.AuthHandler.Me)

		r.Get("/user-page/me", deps.UserPageHandler.Mine)
		r.Post("/user-page/create", deps.UserPageHandler.Create)
		r.Post("/user-page/update", deps.UserPageHandler.Update)
		r.Put("/user-page/update-image", deps.UserPageHandler.UpdateImage)
		r.Delete("/user-page/delete", deps.UserPageHandler.Delete)
		r.Delete("/user-page/delete-image", deps.UserPageHandler.DeleteImage)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByAccount(deps.UploadRateLimit))
			r.Post("/api/upload/image", deps.UploadHandler.UploadImage)
			r.Delete("/api/upload/image/{filename}", deps.UploadHandler.DeleteImage)
		})
	})
}
