// Package api exposes the ops HTTP surface: seeding usernames, inspecting
// records and pipeline stats, and triggering a manual reclaim sweep.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/levicap/github-scrapper/internal/core"
	"github.com/levicap/github-scrapper/internal/events"
	"github.com/levicap/github-scrapper/internal/metrics"
)

// maxSeedBatch caps one seeding request.
const maxSeedBatch = 10000

// UsernameSearcher finds GitHub logins matching a search query. Implemented
// by the enricher client.
type UsernameSearcher interface {
	SearchUsernames(ctx context.Context, query string, limit int) ([]string, error)
}

// Handler serves the ops API over the store.
type Handler struct {
	store        core.Store
	events       *events.Publisher
	searcher     UsernameSearcher
	leaseTimeout time.Duration
}

// NewHandler creates the ops API handler. searcher may be nil when no GitHub
// credentials are configured; leaseTimeout is the default staleness cutoff
// for manual reclaim requests.
func NewHandler(store core.Store, pub *events.Publisher, searcher UsernameSearcher, leaseTimeout time.Duration) *Handler {
	if leaseTimeout <= 0 {
		leaseTimeout = 30 * time.Minute
	}
	return &Handler{store: store, events: pub, searcher: searcher, leaseTimeout: leaseTimeout}
}

// Register mounts the API routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/developers/{username}", h.GetDeveloper)
		r.Get("/failed", h.ListFailed)
		r.Post("/usernames", h.SeedUsernames)
		r.Post("/seed-search", h.SeedSearch)
		r.Post("/reclaim", h.Reclaim)
	})
}

// Health reports store connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "unavailable",
			"version": core.Version,
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": core.Version,
	})
}

// Stats returns the pipeline summary.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// GetDeveloper returns one record with its enrichment payload.
func (h *Handler) GetDeveloper(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	dev, err := h.store.GetDeveloper(r.Context(), username)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, dev)
}

// ListFailed pages through terminally failed records.
func (h *Handler) ListFailed(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 500 {
		WriteError(w, core.NewInvalidRequestError("limit must be between 1 and 500", map[string]any{
			"limit": limit,
		}))
		return
	}

	units, err := h.store.ListFailed(r.Context(), limit, offset)
	if err != nil {
		WriteError(w, err)
		return
	}
	if units == nil {
		units = []core.Unit{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"failed": units,
		"limit":  limit,
		"offset": offset,
	})
}

type seedRequest struct {
	Usernames []string `json:"usernames"`
}

// SeedUsernames inserts usernames into the pool in INITIAL status.
func (h *Handler) SeedUsernames(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewInvalidRequestError("invalid JSON body", nil))
		return
	}

	usernames := make([]string, 0, len(req.Usernames))
	for _, u := range req.Usernames {
		u = strings.TrimSpace(u)
		if u != "" {
			usernames = append(usernames, u)
		}
	}
	if len(usernames) == 0 {
		WriteError(w, core.NewValidationError("usernames must contain at least one non-empty entry", nil))
		return
	}
	if len(usernames) > maxSeedBatch {
		WriteError(w, core.NewValidationError("too many usernames in one request", map[string]any{
			"count": len(usernames),
			"max":   maxSeedBatch,
		}))
		return
	}

	inserted, err := h.store.SeedUsernames(r.Context(), usernames)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"inserted": inserted,
		"received": len(usernames),
	})
}

type seedSearchRequest struct {
	Query string `json:"query"`
	Max   int    `json:"max,omitempty"`
}

// SeedSearch runs a GitHub user search and seeds the matching logins.
func (h *Handler) SeedSearch(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		WriteError(w, core.NewConflictError("username search is not configured", nil))
		return
	}

	var req seedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewInvalidRequestError("invalid JSON body", nil))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, core.NewValidationError("query must not be empty", nil))
		return
	}

	usernames, err := h.searcher.SearchUsernames(r.Context(), req.Query, req.Max)
	if err != nil {
		WriteError(w, err)
		return
	}
	if len(usernames) == 0 {
		WriteJSON(w, http.StatusOK, map[string]any{"found": 0, "inserted": 0})
		return
	}

	inserted, err := h.store.SeedUsernames(r.Context(), usernames)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"found":    len(usernames),
		"inserted": inserted,
	})
}

type reclaimRequest struct {
	Timeout string `json:"timeout,omitempty"`
}

// Reclaim triggers a stale-lease sweep outside the scheduler's cadence.
func (h *Handler) Reclaim(w http.ResponseWriter, r *http.Request) {
	timeout := h.leaseTimeout
	if r.Body != nil && r.ContentLength != 0 {
		var req reclaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, core.NewInvalidRequestError("invalid JSON body", nil))
			return
		}
		if req.Timeout != "" {
			d, err := time.ParseDuration(req.Timeout)
			if err != nil || d <= 0 {
				WriteError(w, core.NewValidationError("timeout must be a positive duration", map[string]any{
					"timeout": req.Timeout,
				}))
				return
			}
			timeout = d
		}
	}

	reclaimed, err := h.store.ReclaimStale(r.Context(), timeout)
	if err != nil {
		WriteError(w, err)
		return
	}
	if reclaimed > 0 {
		metrics.LeasesReclaimed.Add(float64(reclaimed))
		h.events.Publish(events.TypeLeaseReclaimed, map[string]any{
			"count":   reclaimed,
			"timeout": timeout.String(),
			"source":  "api",
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"reclaimed": reclaimed,
		"timeout":   timeout.String(),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
