// Package adminhttp implements the Admin HTTP Gateway of SPEC_FULL.md's
// observability and back-office surface (port 8090, spec.md §6.3): health
// checks, Prometheus metrics, and read-only report/table/hours endpoints
// behind a bearer-JWT credential separate from the TCP terminal's LOGIN
// flow, grounded on the sibling project's chi router/response conventions.
package adminhttp

import (
	chiprometheus "github.com/766b/chi-prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	infraauth "bistro-server/internal/infrastructure/auth"
	bmw "bistro-server/internal/pkg/middleware"
	"bistro-server/pkg/server/router"
)

// Gateway bundles the dependencies the admin HTTP surface reads from.
type Gateway struct {
	reports *Reports
	jwt     *infraauth.JWTService
	logger  *zap.Logger
	checks  map[string]healthChecker
}

// New builds the chi.Mux for the admin gateway.
func New(reports *Reports, jwt *infraauth.JWTService, checks map[string]healthChecker, logger *zap.Logger) *chi.Mux {
	gw := &Gateway{reports: reports, jwt: jwt, logger: logger, checks: checks}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(router.LoggerWithSkips([]string{"/healthz", "/metrics"}))
	r.Use(bmw.ErrorHandler(logger))
	r.Use(middleware.CleanPath)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chiprometheus.NewMiddleware("bistro_admin"))

	r.Get("/healthz", gw.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/admin", func(api chi.Router) {
		api.Use(gw.requireBearer)
		api.Get("/reports/performance", gw.performanceReport)
		api.Get("/reports/subscription", gw.subscriptionReport)
		api.Get("/tables", gw.listTables)
		api.Get("/hours", gw.listHours)
	})

	return r
}
