package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/galley-erp/galley-erp/internal/identity"
	"github.com/galley-erp/galley-erp/internal/observability"
	"github.com/galley-erp/galley-erp/internal/orders"
	"github.com/galley-erp/galley-erp/internal/stockitems"
)

// RouterParams collects everything the router needs.
type RouterParams struct {
	Config     Config
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Identity   *identity.Middleware
	Orders     *orders.Handler
	StockItems *stockitems.Handler
	JobsHealth http.HandlerFunc
	JobsWarmup http.HandlerFunc
}

// NewRouter assembles the HTTP surface.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	baseMiddleware(r, p.Config)
	if p.Metrics != nil {
		r.Use(p.Metrics.Middleware)
	}

	r.Get("/healthz", healthz)
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(p.Identity.Authenticate)
		r.Mount("/orders", p.Orders.Routes())
		r.Mount("/stock-items", p.StockItems.Routes())
		if p.JobsHealth != nil {
			r.With(identity.RequireAny(identity.RoleAdmin)).Get("/jobs/health", p.JobsHealth)
		}
		if p.JobsWarmup != nil {
			r.With(identity.RequireAny(identity.RoleAdmin)).Post("/jobs/stats-warmup", p.JobsWarmup)
		}
	})

	return r
}
