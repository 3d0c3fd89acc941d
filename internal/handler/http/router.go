package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/pkg/health"
	"github.com/utafrali/catalogsearch/pkg/middleware"
)

// RouterConfig holds the tunables of the HTTP surface.
type RouterConfig struct {
	CORS middleware.CORSConfig

	// SuggestRPS and SuggestBurst bound autocomplete calls per client IP.
	// A zero SuggestRPS disables the limiter.
	SuggestRPS   float64
	SuggestBurst int

	SuggestMaxAge time.Duration

	// OperatorToken protects the write endpoints when set.
	OperatorToken string

	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all catalog search routes registered.
// ctx bounds background work such as the rate limiter's cleanup loop.
func NewRouter(
	ctx context.Context,
	searchService *service.SearchService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing("catalogsearch"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("catalogsearch"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	searchHandler := NewSearchHandler(searchService, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)

		r.Group(func(r chi.Router) {
			if cfg.SuggestRPS > 0 {
				r.Use(middleware.RateLimit(ctx, cfg.SuggestRPS, cfg.SuggestBurst, logger))
			}
			if cfg.SuggestMaxAge > 0 {
				r.Use(middleware.CacheControl(cfg.SuggestMaxAge))
			}
			r.Get("/suggest", searchHandler.Suggest)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.OperatorToken(cfg.OperatorToken, logger))
			r.Use(ContentTypeJSON)
			r.Post("/index", searchHandler.IndexProduct)
			r.Post("/bulk", searchHandler.BulkIndex)
			r.Post("/reindex", searchHandler.Reindex)
			r.Post("/cache/invalidate", searchHandler.InvalidateCache)
			r.Delete("/{id}", searchHandler.DeleteProduct)
		})
	})

	return r
}
