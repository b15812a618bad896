package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vatfiler/internal/platform/metrics"
	"vatfiler/internal/platform/middleware"
	rlModels "vatfiler/internal/ratelimit/models"
	"vatfiler/pkg/platform/httputil"
	"vatfiler/pkg/platform/middleware/metadata"
	"vatfiler/pkg/platform/middleware/requesttime"
)

// healthCheck reports whether a backing service is reachable.
type healthCheck func(ctx context.Context) error

// routeRegistrar is implemented by every module handler.
type routeRegistrar interface {
	Register(r chi.Router)
}

type routerDeps struct {
	logger       *slog.Logger
	registry     *prometheus.Registry
	metrics      *metrics.Metrics
	basePath     string
	health       healthCheck
	rateLimit    func(http.Handler) http.Handler
	registration routeRegistrar
	accounts     routeRegistrar
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.RequestLogger(d.logger, d.metrics))
	r.Use(chimw.Recoverer)
	if d.rateLimit != nil {
		r.Use(d.rateLimit)
	}

	if d.basePath != "/" {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, d.basePath, http.StatusTemporaryRedirect)
		})
	}
	r.Get("/healthz", handleHealth(d.health))
	r.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))

	d.registration.Register(r)
	d.accounts.Register(r)
	return r
}

func handleHealth(check healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"redis":  "unreachable",
				})
				return
			}
			status["redis"] = "ok"
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}

// classifyRequest puts credential endpoints in the auth budget and every
// other mutation in the write budget. Reads are not limited.
func classifyRequest(r *http.Request) (rlModels.EndpointClass, bool) {
	switch r.Method {
	case http.MethodPost:
		switch r.URL.Path {
		case "/login", "/api/sessions", "/api/accounts":
			return rlModels.ClassAuth, true
		}
		return rlModels.ClassWrite, true
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		return rlModels.ClassWrite, true
	}
	return "", false
}
