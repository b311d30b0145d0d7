// Package api serves the REST surface next to the Connect services:
// the model proxy, saved meal photos, the MCP endpoint, health and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/mamachef/internal/api/respond"
	"github.com/mmynk/mamachef/internal/auth"
	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/middleware"
	"github.com/mmynk/mamachef/internal/storage"
)

// Deps are the collaborators of the REST handlers.
type Deps struct {
	Generator gateway.Generator

	// CredentialPresent is false when no API key is configured; the proxy
	// then answers 500 without reading the request.
	CredentialPresent bool

	// ProxyDefaults fill model and temperature when a proxy request omits them.
	DefaultModel       string
	DefaultTemperature float64

	Store storage.Store
	JWT   *auth.JWTManager

	// MCP handles POST /mcp; nil disables the route.
	MCP http.Handler
}

// NewRouter registers the REST routes. Callers mount the Connect handlers on
// the returned router.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/api/gemini", &proxyHandler{
		gen:                d.Generator,
		credentialPresent:  d.CredentialPresent,
		defaultModel:       d.DefaultModel,
		defaultTemperature: d.DefaultTemperature,
	}).Methods(http.MethodPost)

	requireSession := middleware.RequireSessionHTTP(d.JWT)
	r.Handle("/api/images/{digest:[0-9a-f]{64}}", requireSession(&imageHandler{store: d.Store})).Methods(http.MethodGet)
	if d.MCP != nil {
		r.Handle("/mcp", requireSession(d.MCP)).Methods(http.MethodPost)
	}

	r.HandleFunc("/healthz", healthHandler(d.Store)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func healthHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			respond.WriteErrorDetails(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
			return
		}
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
