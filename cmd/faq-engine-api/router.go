// Package main provides the API router setup.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-engine-api/handlers"
	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-engine-api/middleware"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/bootstrap"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/config"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
)

// AppConfig holds router settings.
type AppConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	Auth           middleware.AuthConfig
	ServiceName    string
}

// NewAppConfig derives router settings from the service configuration.
func NewAppConfig(cfg *config.Config) *AppConfig {
	return &AppConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth: middleware.AuthConfig{
			Enabled:  cfg.Auth.Enabled,
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		},
		ServiceName: cfg.Observability.ServiceName,
	}
}

// ReadinessChecker reports whether backing services answer.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *AppConfig, app *bootstrap.App) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","service":"` + cfg.ServiceName + `"}`))
	})

	r.Get("/ready", readyHandler(app))

	chatHandler := handlers.NewChatHandler(logger, app.Engine, app.Repos.ChatLogs, app.Limiter)
	knowledgeHandler := handlers.NewKnowledgeHandler(logger, app.Knowledge, app.Engine.Metrics())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth))

		r.Post("/chat", chatHandler.Chat)
		r.Get("/chat/history", chatHandler.History)
		r.Get("/limits", chatHandler.Limits)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(middleware.RoleAdmin))

			r.Post("/limits/reset", chatHandler.ResetLimit)
			r.Get("/stats", knowledgeHandler.Stats)

			r.Route("/knowledge", func(r chi.Router) {
				r.Get("/", knowledgeHandler.List)
				r.Put("/", knowledgeHandler.Upsert)
				r.Delete("/", knowledgeHandler.Delete)
				r.Post("/verify", knowledgeHandler.Verify)
			})
		})
	})

	return r
}

func readyHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := checker.Ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
