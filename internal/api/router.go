package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/api/handler"
	"github.com/99minutos/user-service/internal/api/middleware"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/infrastructure/http/handlers"
)

// Dependencies are the collaborators the router needs.
type Dependencies struct {
	AuthService ports.AuthService
	Log         zerolog.Logger
	// Readiness lists the dependencies pinged by /health/ready, keyed by name.
	Readiness map[string]handlers.Pinger
	// Metrics enables request instrumentation and GET /metrics.
	Metrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	// inside the logger so panics still get an access-log entry
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit("64K"))
	if deps.Metrics {
		e.Use(echoprometheus.NewMiddleware("user_service"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	// --- User routes ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	e.POST("/user", authHandler.CreateUser)
	e.POST("/user/token", authHandler.IssueToken)
	e.POST("/user/token/refresh", authHandler.RefreshToken)
	e.GET("/user/me", authHandler.Me, middleware.Auth(deps.AuthService))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
