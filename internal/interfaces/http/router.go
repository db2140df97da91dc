package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/auth/keycloak"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractKeeper/internal/interfaces/http/handlers"
	"github.com/turtacn/ContractKeeper/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the HTTP route tree.  Nil handlers leave their routes
// unmounted.
type RouterConfig struct {
	ContractHandler *handlers.ContractHandler
	TrashHandler    *handlers.TrashHandler
	CategoryHandler *handlers.CategoryHandler
	SettingsHandler *handlers.SettingsHandler
	HealthHandler   *handlers.HealthHandler

	AuthMiddleware  *keycloak.AuthMiddleware
	SubjectResolver middleware.SubjectResolver
	CORS            *middleware.CORSConfig

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter wires global middleware, the public probe and metrics endpoints
// and the authenticated /api/v1 tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	r.Use(middleware.Metrics(cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.Handler)
		}
		if cfg.SubjectResolver != nil {
			api.Use(middleware.Subject(cfg.SubjectResolver, cfg.Logger))
		}

		registerSettingsRoutes(api, cfg.SettingsHandler)

		api.Group(func(gated chi.Router) {
			gated.Use(middleware.RequireAccess)
			registerContractRoutes(gated, cfg.ContractHandler)
			registerTrashRoutes(gated, cfg.TrashHandler)
			registerCategoryRoutes(gated, cfg.CategoryHandler)
		})
	})

	return r
}

// NewProbeRouter serves only the health probes and, when collector is set,
// the metrics endpoint.  The worker exposes it on its health port.
func NewProbeRouter(health *handlers.HealthHandler, collector prometheus.MetricsCollector, metricsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	if collector != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Handle(metricsPath, collector.Handler())
	}
	return r
}

func registerContractRoutes(r chi.Router, h *handlers.ContractHandler) {
	if h == nil {
		return
	}
	r.Route("/contracts", func(cr chi.Router) {
		cr.Get("/", h.List)
		cr.Post("/", h.Create)

		cr.Route("/{id}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Put("/", h.Update)
			item.Delete("/", h.Delete)
			item.Post("/archive", h.Archive)
			item.Post("/unarchive", h.Unarchive)
			item.Get("/document", h.Document)
		})
	})
}

func registerTrashRoutes(r chi.Router, h *handlers.TrashHandler) {
	if h == nil {
		return
	}
	r.Route("/trash", func(tr chi.Router) {
		tr.Get("/", h.List)
		tr.Delete("/", h.Empty)
		tr.Post("/{id}/restore", h.Restore)
		tr.Delete("/{id}", h.Purge)
	})
}

func registerCategoryRoutes(r chi.Router, h *handlers.CategoryHandler) {
	if h == nil {
		return
	}
	r.Route("/categories", func(cr chi.Router) {
		cr.Get("/", h.List)
		cr.Post("/", h.Create)
		cr.Put("/{id}", h.Rename)
		cr.Delete("/{id}", h.Delete)
	})
}

// registerSettingsRoutes mounts endpoints reachable without a contract role.
func registerSettingsRoutes(r chi.Router, h *handlers.SettingsHandler) {
	if h == nil {
		return
	}
	r.Get("/permissions", h.Permissions)
	r.Get("/deadline", h.Deadline)
	r.Route("/settings", func(sr chi.Router) {
		sr.Get("/admin", h.GetAdmin)
		sr.Put("/admin", h.UpdateAdmin)
		sr.Get("/preferences", h.GetPreferences)
		sr.Put("/preferences", h.UpdatePreferences)
	})
}

//Personal.AI order the ending
