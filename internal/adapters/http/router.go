package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotedeck/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotedeck/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotedeck/internal/platform/telemetry"
)

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger seeds every request's context logger.
	Logger *slog.Logger

	// ServiceName names the server spans.
	ServiceName string

	// HealthHandler serves the /-/ probe endpoints.
	HealthHandler *handlers.HealthHandler

	// QuoteHandler serves the /api/v1 endpoints.
	QuoteHandler *handlers.QuoteHandler

	// SkipLogPaths are API paths excluded from request logging.
	SkipLogPaths []string
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Context logger
//  3. Request ID
//  4. Correlation ID
//  5. OpenTelemetry
//  6. Logging - skips the /-/ probe endpoints
//
// Route groups:
//   - /-/ (internal): probes, build info and metrics
//   - /api/v1/: quotes, deck and collection endpoints
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine.Use(
		middleware.Recovery(nil),
		middleware.ContextLogger(logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cfg.ServiceName)...)
	engine.Use(middleware.Logging(cfg.SkipLogPaths...))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	if cfg.QuoteHandler != nil {
		cfg.QuoteHandler.RegisterQuoteRoutes(engine.Group("/api/v1"))
	}
}
