package router

import (
	"github.com/erp/crmsync/internal/infrastructure/logger"
	"github.com/erp/crmsync/internal/infrastructure/telemetry"
	"github.com/erp/crmsync/internal/interfaces/http/handler"
	"github.com/erp/crmsync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineConfig configures the server engine
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	WebhookToken   string
	MaxBodySize    int64
	MeterProvider  *telemetry.MeterProvider
	Logger         *zap.Logger
}

// Handlers are the endpoint handlers mounted by NewEngine
type Handlers struct {
	Health   *handler.HealthHandler
	System   *handler.SystemHandler
	Order    *handler.OrderHandler
	Currency *handler.CurrencyHandler
}

// NewEngine builds the gin engine with the middleware chain and all routes.
// Write endpoints sit behind the webhook token check.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
		}),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.MeterProvider, log),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	r := NewRouter(engine)
	if h.System != nil {
		r.Register(NewDomainGroup("system", "/system").
			GET("/info", h.System.GetSystemInfo))
	}

	auth := middleware.WebhookAuth(cfg.WebhookToken)
	if h.Order != nil {
		r.Register(NewDomainGroup("orders", "/orders").
			Use(auth).
			POST("", h.Order.ReconcileOrder))
	}
	if h.Currency != nil {
		r.Register(NewDomainGroup("currencies", "/currencies").
			Use(auth).
			POST("/sync", h.Currency.SyncNow))
	}
	r.Setup()

	return engine
}
