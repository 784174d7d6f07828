package http

import (
	"log/slog"
	"net/http"

	"github.com/dmca-notices/internal/application/notice"
	"github.com/dmca-notices/internal/config"
	"github.com/dmca-notices/internal/transport/http/handler"
	appmiddleware "github.com/dmca-notices/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	proxies, invalid := appmiddleware.ParseProxies(cfg.TrustedProxies)
	if len(invalid) > 0 {
		slog.Warn("ignoring invalid TRUSTED_PROXIES entries", "entries", invalid)
	}
	// 5 requests/second, burst of 10, on the steps that compile and send notices.
	submitRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10, proxies...)

	noticeSvc := notice.NewService(notice.ServiceDeps{
		Notices:   deps.NoticeRepo,
		Providers: deps.ProviderRepo,
		Compiler:  deps.Compiler,
		Mail:      deps.Mail,
		Archive:   deps.Archive,
		Events:    deps.Events,
	})

	healthH := handler.NewHealthHandler(deps.HealthChecks)
	noticeH := handler.NewNoticeHandler(noticeSvc)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))
			r.Use(appmiddleware.CurrentUser(deps.UserRepo, deps.SessionStore, cfg.SessionTTL))

			r.Get("/notices", noticeH.List)
			r.Get("/notices/create", noticeH.Create)
			r.With(submitRL.Limit).Post("/notices/confirm", noticeH.Confirm)
			r.With(submitRL.Limit).Post("/notices", noticeH.Store)
			r.Get("/notices/{id}", noticeH.Show)
			r.Patch("/notices/{id}", noticeH.Update)
			r.Post("/notices/{id}", noticeH.Update)
		})
	})

	return r
}
