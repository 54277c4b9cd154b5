package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/hotelops/console/docs"
	"github.com/hotelops/console/internal/api/handler"
	"github.com/hotelops/console/internal/api/middleware"
	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
	"github.com/hotelops/console/internal/core/service"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Log           zerolog.Logger
	JWTSecret     string
	LookupTimeout time.Duration
	Sessions      *service.SessionRegistry
	Stores        *service.StoreFactory
	// Accounts is nil when no account store is configured.
	Accounts ports.RoleWriter
	Notifier ports.RoleChangePublisher
	Probes   []handler.Probe
	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	registerer := d.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "hotel_console",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/v1/session/events"
		},
	}))

	// --- Dependencies ---
	sessionHandler := handler.NewSessionHandler(d.Log)
	permissionHandler := handler.NewPermissionHandler()
	collectionHandler := handler.NewCollectionHandler(d.Stores, d.Log)
	accountHandler := handler.NewAccountHandler(d.Accounts, d.Notifier, d.Log)
	healthHandler := handler.NewHealthHandler(d.Probes...)

	// --- Session-scoped routes ---
	v1 := e.Group("/v1",
		middleware.Auth(d.JWTSecret),
		middleware.Session(d.Sessions, d.LookupTimeout, d.Log),
	)

	v1.GET("/session", sessionHandler.Get)
	v1.GET("/session/events", sessionHandler.Events)
	v1.GET("/session/guard", sessionHandler.Guard)

	v1.GET("/permissions/check", permissionHandler.Check)
	v1.GET("/modules", permissionHandler.Modules)

	collections := v1.Group("/collections/:collection")
	collections.GET("", collectionHandler.List, middleware.Permit(domain.ActionRead, handler.CollectionResource))
	collections.POST("", collectionHandler.Create, middleware.Permit(domain.ActionCreate, handler.CollectionResource))
	collections.PATCH("/:id", collectionHandler.Update, middleware.Permit(domain.ActionUpdate, handler.CollectionResource))
	collections.DELETE("/:id", collectionHandler.Delete, middleware.Permit(domain.ActionDelete, handler.CollectionResource))

	v1.PUT("/accounts/:identity/role", accountHandler.SetRole,
		middleware.Authenticated(),
		middleware.Permit(domain.ActionUpdate, middleware.Resource("accounts")),
	)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer(registerer)}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// gatherer returns the gatherer matching registerer, falling back to the
// global one.
func gatherer(r prometheus.Registerer) prometheus.Gatherer {
	if g, ok := r.(prometheus.Gatherer); ok {
		return g
	}
	return prometheus.DefaultGatherer
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
