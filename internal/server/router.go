package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lettermill/lettermill/internal/service"
)

// HealthChecker probes the backing store for the health endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies collects handler dependencies.
type Dependencies struct {
	Subscriptions service.SubscriptionService
	Newsletters   service.NewsletterService
	Health        HealthChecker
	AdminUsername string
	AdminPassword string
}

// NewRouter wires the HTTP routes exposed by the service.
func NewRouter(logger *slog.Logger, deps Dependencies) http.Handler {
	h := &handlers{
		subscriptions: deps.Subscriptions,
		newsletters:   deps.Newsletters,
		health:        deps.Health,
		logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogging(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Post("/subscriptions", h.handleSubscribe)
	r.Get("/subscriptions/confirm", h.handleConfirm)

	r.Group(func(r chi.Router) {
		r.Use(basicAuth(deps.AdminUsername, deps.AdminPassword))
		r.Post("/newsletters", h.handlePublish)
	})

	return r
}
