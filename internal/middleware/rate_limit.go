package middleware

import (
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/anonto42/nano-midea/notifier/pkg/ratelimit"
	"github.com/labstack/echo/v4"
)

// RateLimit throttles requests per authenticated user, falling back to the
// client IP. A failing limiter backend lets the request through.
func RateLimit(limiter ratelimit.Limiter, logg *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := CurrentUserID(c)
			if !ok {
				key = "ip:" + c.RealIP()
			}

			allowed, err := limiter.Allow(c.Request().Context(), key)
			if err != nil {
				if logg != nil {
					logg.Warn(c.Request().Context(), "rate limiter unavailable", err)
				}
				return next(c)
			}
			if !allowed {
				return pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, slow down")
			}
			return next(c)
		}
	}
}
