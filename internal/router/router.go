package router

import (
	"context"

	"github.com/anonto42/nano-midea/notifier/internal/activity"
	"github.com/anonto42/nano-midea/notifier/internal/auth"
	"github.com/anonto42/nano-midea/notifier/internal/handlers"
	"github.com/anonto42/nano-midea/notifier/internal/middleware"
	"github.com/anonto42/nano-midea/notifier/internal/presence"
	"github.com/anonto42/nano-midea/notifier/internal/realtime"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/anonto42/nano-midea/notifier/pkg/ratelimit"
	"github.com/labstack/echo/v4"
)

// Dependencies are the lifecycle-owned objects the HTTP surface is built on.
type Dependencies struct {
	Store    repositories.Store
	Writer   *activity.Writer
	Registry *presence.Registry
	Verifier auth.Verifier
	Tokens   *auth.JWT
	Firebase *auth.Firebase // nil unless AUTH_PROVIDER=firebase
	Limiter  ratelimit.Limiter
	Push     realtime.Options
	Logger   *logger.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	limit := middleware.RateLimit(limiter, logg)

	health := handlers.NewHealthHandler(deps.Store, deps.Registry)
	e.GET("/health", health.HealthCheck)

	v1 := e.Group("/api/v1")

	// --- Unprotected routes for authentication ---
	authHandler := handlers.NewAuthHandler(deps.Store, deps.Tokens, nil)
	if deps.Firebase != nil {
		authHandler = handlers.NewAuthHandler(deps.Store, deps.Tokens, deps.Firebase)
	}
	authHandler.RegisterAuthRoutes(v1.Group("/auth", limit))

	// --- Live push; these authenticate from the header or ?token= themselves ---
	rt := realtime.NewHandler(deps.Verifier, deps.Registry, deps.Push, logg)
	v1.GET("/ws", rt.WebSocket)
	v1.GET("/notifications/stream", rt.Stream)

	// --- Protected routes ---
	api := v1.Group("", middleware.Authenticate(deps.Verifier, logg))

	handlers.NewUserHandler(deps.Store).RegisterUserRoutes(api)
	handlers.NewActivityHandler(deps.Writer, deps.Store).RegisterActivityRoutes(api, limit)
	handlers.NewNotificationHandler(deps.Store, deps.Store).RegisterNotificationRoutes(api)

	logg.Info(context.Background(), "routes configured")
}
