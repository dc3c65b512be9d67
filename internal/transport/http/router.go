// Package httptransport is the thin HTTP layer. Handlers delegate to the
// domain services and translate results to the JSON wire contract; no
// business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"placet/internal/platform/metrics"
	"placet/internal/platform/middleware"
	"placet/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router wires into handlers.
type Deps struct {
	Release      ReleaseService
	Consent      ConsentService
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	JWTValidator middleware.JWTValidator
}

// NewRouter wires all public endpoints. The release endpoint is open to the
// mail pipeline; the consent administration surface requires a bearer token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	releaseHandler := newReleaseHandler(d.Release, d.Logger)
	consentHandler := newConsentHandler(d.Consent, d.Logger)

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		api.Use(middleware.ContentTypeJSON)
		api.Post("/v1/release", releaseHandler.handleRelease)
	})

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(d.JWTValidator, d.Logger))
		api.Post("/v1/consents", consentHandler.handleIssue)
		api.Post("/v1/consents/{token}/signed-hash", consentHandler.handleSignedHash)
		api.Get("/v1/consents/stats", consentHandler.handleStats)
		api.Post("/v1/consents/cleanup", consentHandler.handleCleanup)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
