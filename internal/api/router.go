package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Open documents.
	r.Put("/documents", h.PutDocument)
	r.Delete("/documents", h.DeleteDocument)

	// Editor queries.
	r.Post("/completion", h.Completion)
	r.Post("/definition", h.Definition)
	r.Post("/hover", h.Hover)
	r.Post("/links", h.Links)

	// Index.
	r.Get("/slugs", h.Slugs)
	r.Get("/fragments", h.Fragments)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// HealthRoutes returns the unauthenticated liveness and readiness probes.
// Readiness follows the link index build.
func HealthRoutes(svc *Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !svc.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "indexing"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}
