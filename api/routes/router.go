package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapwall/snapwall-backend/api/controllers"
	"github.com/snapwall/snapwall-backend/api/middleware"
	"github.com/snapwall/snapwall-backend/internal/broadcast"
	"github.com/snapwall/snapwall-backend/internal/events"
	"github.com/snapwall/snapwall-backend/internal/media"
	"github.com/snapwall/snapwall-backend/internal/quota"
	"github.com/snapwall/snapwall-backend/internal/ratelimit"
	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/metrics"
)

// RouterParams carries everything the HTTP surface depends on. Nil pingers are skipped by readiness.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	Gatherer     prometheus.Gatherer
	HTTPMetrics  *metrics.HTTPMetrics
	Readiness    []controllers.ReadinessCheck
	Idempotency  middleware.IdempotencyStore
	Limiter      ratelimit.Limiter
	Hub          *broadcast.Hub
	EventService events.Service
	MediaService media.Service
	Ledger       quota.Ledger
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger
	policies := ratelimit.PoliciesFromConfig(cfg.RateLimit)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.RealIP,
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness...))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := middleware.RequireAuth(cfg.JWT, logg)
	live := controllers.LiveOptions{
		AllowedOrigins: cfg.App.AllowedOrigins(),
		Buffer:         cfg.Broadcast.ClientBuffer,
		InboundPerSec:  float64(cfg.Broadcast.InboundPerSec),
		InboundBurst:   cfg.Broadcast.InboundBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		if p.Idempotency != nil {
			r.Use(middleware.Idempotency(p.Idempotency, logg))
		}

		r.Route("/events", func(r chi.Router) {
			r.With(requireAuth).Post("/", controllers.EventCreate(p.EventService, logg))
			r.Route("/{eventId}", func(r chi.Router) {
				r.Get("/", controllers.EventGet(p.EventService, logg))
				r.With(requireAuth).Delete("/", controllers.EventDelete(p.EventService, logg))
				r.Post("/pin", controllers.EventVerifyPIN(p.EventService, logg))
				r.Get("/media", controllers.MediaList(p.MediaService, logg))
				r.Post("/media", controllers.MediaUpload(p.MediaService, cfg.Media.MaxUploadBytes(), logg))
				r.With(requireAuth).Post("/media/bulk-delete", controllers.MediaBulkDelete(p.MediaService, logg))
				r.With(middleware.RateLimit(policies.Live, p.Limiter, logg)).Get("/live", controllers.EventLive(p.Hub, p.EventService, live, logg))
			})
		})

		r.Route("/media/{mediaId}", func(r chi.Router) {
			r.Get("/", controllers.MediaGet(p.MediaService, logg))
			r.Get("/asset", controllers.MediaAsset(p.MediaService, logg))
			r.Head("/asset", controllers.MediaAsset(p.MediaService, logg))
			r.Delete("/", controllers.MediaDelete(p.MediaService, logg))
			r.Post("/like", controllers.MediaLike(p.MediaService, logg))
		})

		r.With(requireAuth).Get("/me/quota", controllers.QuotaMe(p.Ledger, cfg.Quota.DefaultLimitBytes, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequireRole(logg, enums.IdentityRoleAdmin))
			r.Put("/quota/{userId}", controllers.AdminQuotaSetLimit(p.Ledger, logg))
		})
	})

	return r
}
