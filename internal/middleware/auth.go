package middleware

import (
	"github.com/anonto42/nano-midea/notifier/internal/auth"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

// Authenticate verifies the bearer token on every request and stores the
// resulting principal in the echo context.
func Authenticate(verifier auth.Verifier, logg *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "missing bearer token")
			}

			principal, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(principalKey, principal)
			if logg != nil {
				ctx := logg.WithUserID(c.Request().Context(), principal.UserID)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// Principal returns the identity Authenticate attached, or Anonymous.
func Principal(c echo.Context) auth.Principal {
	if p, ok := c.Get(principalKey).(auth.Principal); ok {
		return p
	}
	return auth.Anonymous{}
}

// CurrentUserID returns the authenticated user id for the request.
func CurrentUserID(c echo.Context) (string, bool) {
	return auth.UserID(Principal(c))
}
