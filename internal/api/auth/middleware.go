package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/debatetab/debatetab/internal/logger"
)

// Middleware rejects requests that are not from an administrator with a
// 403 JSON response.
func Middleware(a Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a == nil || !a.IsAdministrator(c) {
				GetLogger().Info("administrator access denied",
					logger.String("path", c.Request().URL.Path),
					logger.String("method", c.Request().Method),
					logger.String("ip", c.RealIP()))
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "You do not have permission to access this page.",
				})
			}
			return next(c)
		}
	}
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(c echo.Context) bool

// IsAdministrator calls f(c).
func (f AuthorizerFunc) IsAdministrator(c echo.Context) bool {
	return f(c)
}
