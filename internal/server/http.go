// Package server exposes the dispatch engine and run store over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"promptrun/internal/core"
	"promptrun/internal/store"
)

// defaultBodySizeLimit caps request bodies at 10MB.
const defaultBodySizeLimit = int64(10 << 20)

// Config holds server configuration options
type Config struct {
	MasterKey      string // Optional: bearer key required on API routes when set
	MetricsEnabled bool   // Whether to expose the Prometheus metrics endpoint
	BodySizeLimit  int64  // Max request body size in bytes (default: 10MB)
}

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// New creates a new HTTP server around a generator and a run store.
func New(generator core.Generator, runs store.Store, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true

	handler := NewHandler(generator, runs)

	// Global middleware stack (order matters)
	e.Use(middleware.Recover())

	bodySizeLimit := defaultBodySizeLimit
	if cfg != nil && cfg.BodySizeLimit > 0 {
		bodySizeLimit = cfg.BodySizeLimit
	}
	e.Use(middleware.BodyLimit(strconv.FormatInt(bodySizeLimit, 10)))

	e.GET("/health", handler.Health)
	if cfg != nil && cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/v1")
	if cfg != nil && cfg.MasterKey != "" {
		api.Use(AuthMiddleware(cfg.MasterKey))
	}
	api.POST("/generate", handler.Generate)
	api.GET("/runs", handler.ListRuns)
	api.GET("/runs/:id", handler.GetRun)

	return &Server{echo: e, handler: handler}
}

// Start begins listening on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance (used by tests).
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// AuthMiddleware validates the master key on incoming requests.
// An empty masterKey disables authentication.
func AuthMiddleware(masterKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if masterKey == "" {
				return next(c)
			}

			const prefix = "Bearer "
			authHeader := c.Request().Header.Get("Authorization")
			if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"error": map[string]any{
						"type":    "authentication_error",
						"message": "missing or malformed authorization header, expected 'Bearer <token>'",
					},
				})
			}
			if authHeader[len(prefix):] != masterKey {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"error": map[string]any{
						"type":    "authentication_error",
						"message": "invalid master key",
					},
				})
			}
			return next(c)
		}
	}
}
