package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/todd-reagan/nile-collector/internal/handlers"
	"github.com/todd-reagan/nile-collector/internal/middleware"
)

// NewRouter constructs a ServeMux with collector, events, and config
// routes registered.
func NewRouter(hec *handlers.HECHandler, events *handlers.EventsHandler, config *handlers.ConfigHandler, auth *middleware.AuthMiddleware) http.Handler {
	mux := http.NewServeMux()

	// Splunk HEC endpoints (HEC token auth handled in the handler)
	mux.HandleFunc("/services/collector/event", hec.HandleEvent)
	mux.HandleFunc("/services/collector/health", hec.HandleHealth)

	// End-user read and config endpoints (JWT bearer auth)
	mux.HandleFunc("/events", auth.RequireAuth(events.List))
	mux.HandleFunc("/events/{id}", auth.RequireAuth(events.Get))
	mux.HandleFunc("/config", auth.RequireAuth(config.Handle))
	mux.HandleFunc("/config/splunk-hec-token/regenerate", auth.RequireAuth(config.RotateToken))

	// Health and metrics
	mux.HandleFunc("/healthz", hec.Healthz)
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
