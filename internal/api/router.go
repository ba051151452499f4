// Package api assembles the HTTP surface of the relay.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hszk-dev/mediarelay/internal/api/handler"
	"github.com/hszk-dev/mediarelay/internal/api/middleware"
	"github.com/hszk-dev/mediarelay/internal/usecase"
)

// Deps are the services the router dispatches to.
type Deps struct {
	Logger      *slog.Logger
	Registry    usecase.MediaLookup
	Streams     usecase.StreamService
	Diagnostics usecase.DiagnosticsService
	// Sweeps is nil when asynchronous sweeps are not configured.
	Sweeps usecase.SweepService
	Media  handler.MediaHandlerConfig
	CORS   middleware.CORSConfig
	// Metrics mounts /metrics when set.
	Metrics bool
}

// NewRouter builds the relay router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.CORS(d.CORS))

	media := handler.NewMediaHandler(d.Streams, d.Media)
	diag := handler.NewDiagnosticsHandler(d.Diagnostics)

	sweeps := handler.NewSweepHandler(d.Sweeps)

	r.Get("/api/health", handler.Health(d.Registry))
	if d.Metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api/media", func(r chi.Router) {
		r.Get("/video/{id}", media.Video)
		r.Head("/video/{id}", media.Video)
		r.Get("/audio/{lang}/{id}", media.Audio)
		r.Head("/audio/{lang}/{id}", media.Audio)

		r.Get("/test/{kind}/{id}", diag.Test)
		r.Get("/files", diag.Files)
		r.Get("/health", diag.Health)
		r.Get("/test-all", diag.TestAll)

		r.Post("/sweeps", sweeps.Create)
		r.Get("/sweeps/{id}", sweeps.Get)
	})

	return r
}
