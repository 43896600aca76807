package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sharebridge/sharebridge-backend/api/controllers"
	"github.com/sharebridge/sharebridge-backend/api/middleware"
	"github.com/sharebridge/sharebridge-backend/internal/applications"
	"github.com/sharebridge/sharebridge-backend/internal/products"
	"github.com/sharebridge/sharebridge-backend/pkg/config"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
	pkgredis "github.com/sharebridge/sharebridge-backend/pkg/redis"
)

// Deps wires the HTTP surface to its services.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        controllers.Pinger
	Idempotency  pkgredis.IdempotencyStore
	Locker       pkgredis.Locker
	Gatherer     prometheus.Gatherer
	Applications applications.Service
	Products     products.Service
}

func NewRouter(deps Deps) (http.Handler, error) {
	cfg, logg := deps.Config, deps.Logger
	usdRate, err := cfg.Bridge.USDRate()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
		"db":    deps.DB,
		"redis": deps.Redis,
	}))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	idempotent := middleware.Idempotency(deps.Idempotency, cfg.Bridge.IdempotencyTTL, logg)
	receiverOnly := middleware.RequireRole(logg, enums.UserRoleReceiver)
	producerOrAdmin := middleware.RequireRole(logg, enums.UserRoleProducer, enums.UserRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/applications", func(r chi.Router) {
			r.With(receiverOnly, idempotent).Post("/", controllers.CreateApplication(deps.Applications, logg))
			r.With(receiverOnly).Get("/", controllers.ListMyApplications(deps.Applications, logg))
			r.With(receiverOnly).Get("/{applicationId}", controllers.GetApplication(deps.Applications, logg))
			r.With(receiverOnly).Delete("/{applicationId}", controllers.DeleteApplication(deps.Applications, logg))
			r.With(producerOrAdmin).Post("/{applicationId}/status", controllers.TransitionApplication(deps.Applications, logg))
		})

		r.Route("/products/{productId}", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleProducer))
			r.Get("/applications", controllers.ListProductApplications(deps.Applications, logg))
			r.Patch("/availability", controllers.SetProductAvailability(deps.Products, logg))
		})
	})

	r.Route("/api/bridge/v1", func(r chi.Router) {
		r.Use(middleware.BridgeKey(cfg.Bridge.APIKey, logg))
		r.With(idempotent).Post("/applications/{applicationId}/unit", controllers.BridgeLinkUnit(deps.Applications, logg))
		r.With(idempotent).Post("/units/{unitId}/confirm", controllers.BridgeConfirmUnit(deps.Applications, deps.Locker, usdRate, logg))
		r.With(idempotent).Post("/units/{unitId}/complete", controllers.BridgeCompleteUnit(deps.Applications, deps.Locker, logg))
	})

	return r, nil
}
