package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Assets        *AssetHandler
	Transitions   *TransitionHandler
	Authenticator TokenAuthenticator
	// Events serves the websocket stream; Metrics the Prometheus exposition.
	Events     http.Handler
	Metrics    http.Handler
	Observer   RequestObserver
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger, cfg.Observer))
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if cfg.Auth != nil {
		r.Post("/tokens", cfg.Auth.IssueToken)
		r.Get("/healthz", cfg.Auth.Health)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if cfg.Authenticator == nil {
		return r
	}

	r.Group(func(api chi.Router) {
		api.Use(RequireToken(cfg.Authenticator, logger))

		if cfg.Assets != nil {
			api.Get("/assets/resolve", cfg.Assets.Resolve)
			api.Get("/assets/suggest", cfg.Assets.Suggest)
			api.Get("/assets/{tag}/history", cfg.Assets.History)
		}

		if cfg.Transitions != nil {
			api.With(RequireCapability(application.CapabilityCheckout, logger)).Post("/checkouts", cfg.Transitions.Checkout)
			api.With(RequireCapability(application.CapabilityCheckin, logger)).Post("/checkins", cfg.Transitions.Checkin)
			api.With(RequireCapability(application.CapabilityReserve, logger)).Post("/reservations", cfg.Transitions.Reserve)
			api.With(RequireCapability(application.CapabilityReserve, logger)).Delete("/reservations/{id}", cfg.Transitions.CancelReservation)
		}

		if cfg.Events != nil {
			api.Method(http.MethodGet, "/events", cfg.Events)
		}
	})

	return r
}
