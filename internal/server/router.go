// Package server assembles the HTTP router from the handler packages.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"calculations-service/internal/auth"
	"calculations-service/internal/calculator"
	"calculations-service/internal/handlers"
	"calculations-service/internal/observability"
	"calculations-service/internal/storage"
	"calculations-service/internal/users"
)

// NewRouter wires every route of the service. db and tokens are the only
// shared collaborators; each handler closes over the repositories it needs.
func NewRouter(db *gorm.DB, tokens *auth.Manager, logger *zap.Logger) http.Handler {
	userRepo := storage.NewUsers(db)
	calcRepo := storage.NewCalculations(db)

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.MetricsMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)
	r.Handle("/metrics", observability.PrometheusHandler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", auth.RegisterHandler(userRepo, logger))
		r.Post("/login", auth.LoginHandler(userRepo, tokens, logger))
		r.With(auth.Middleware(tokens)).Post("/logout", auth.LogoutHandler(tokens, logger))
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		r.Get("/", users.MeHandler(userRepo))
		r.Put("/profile", users.UpdateProfileHandler(userRepo, logger))
		r.Put("/password", users.ChangePasswordHandler(userRepo, logger))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		r.Post("/calculate", calculator.EvaluateHandler(logger))
		r.Route("/calculations", func(r chi.Router) {
			r.Get("/", calculator.BrowseHandler(calcRepo))
			r.Post("/", calculator.CreateHandler(calcRepo, logger))
			r.Get("/{id}", calculator.ReadHandler(calcRepo))
			r.Put("/{id}", calculator.EditHandler(calcRepo, logger))
			r.Patch("/{id}", calculator.EditHandler(calcRepo, logger))
			r.Delete("/{id}", calculator.DeleteHandler(calcRepo, logger))
		})
	})

	return r
}
