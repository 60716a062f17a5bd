package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paycom/internal/handler"
	"paycom/internal/middleware"
	"paycom/internal/paycom"
)

// Options describes the merchant endpoint routes.
type Options struct {
	Endpoint   string
	AllowedIPs []string
}

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	db *gorm.DB,
	app *paycom.Application,
	logger *zap.Logger,
	opts Options,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	paycomHandler := handler.NewPaycomHandler(app, logger)
	healthHandler := handler.NewHealthHandler(db)

	// Every HTTP method reaches the handler so non-POST calls get a
	// protocol error envelope instead of a 405.
	e.Any(opts.Endpoint, paycomHandler.Handle, middleware.PaycomIPCheck(opts.AllowedIPs, logger))

	e.GET("/health", healthHandler.Handle)
}
