// routes.go - Echo setup and route registration
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"docqa/internal/log"
)

// ServerOptions controls the middleware stack.
type ServerOptions struct {
	BodyLimit      string
	RequestLogging bool
}

// NewEcho returns an Echo instance with the error handler and middleware installed.
func NewEcho(logger *log.Logger, opts ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler

	if opts.RequestLogging && logger != nil {
		e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Output: logger.Writer(),
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/api/health"
			},
		}))
	}
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}
	return e
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api")
	g.GET("/health", h.HandleHealth)

	sessions := g.Group("/sessions")
	sessions.POST("", h.HandleCreateSession)
	sessions.DELETE("/:id", h.HandleDeleteSession)
	sessions.POST("/:id/files", h.HandleUploadFiles)
	sessions.GET("/:id/files", h.HandleListFiles)
	sessions.POST("/:id/ask", h.HandleAsk)
	sessions.GET("/:id/history", h.HandleHistory)
}
