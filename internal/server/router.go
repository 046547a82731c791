// Package server wires configuration and the HTTP router for the daemon.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/levicap/github-scrapper/internal/api"
	"github.com/levicap/github-scrapper/internal/core"
	"github.com/levicap/github-scrapper/internal/events"
	"github.com/levicap/github-scrapper/internal/metrics"
)

// NewRouter builds the daemon's HTTP surface: the ops API plus /metrics.
// searcher may be nil when no GitHub credentials are configured.
func NewRouter(store core.Store, pub *events.Publisher, searcher api.UsernameSearcher, cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(api.RequestID)
	r.Use(api.RequestLogger)
	r.Use(api.LimitBody)
	r.Use(api.ValidateContentType)

	api.NewHandler(store, pub, searcher, cfg.LeaseTimeout).Register(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
