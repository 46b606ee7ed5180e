package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// adminCSP forbids the JSON admin API from being framed or loading anything.
const adminCSP = "default-src 'none'; frame-ancestors 'none'"

// NewCORS lets the tab frontend on origins call the admin API. The
// session cookie travels cross-origin only when origins are explicit;
// a wildcard origin gets anonymous access, which the admin check rejects.
func NewCORS(origins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: len(origins) > 0 && !slices.Contains(origins, "*"),
	})
}

// NewSecureHeaders sets the response headers of the admin API.
func NewSecureHeaders() echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: adminCSP,
	})
}

// NewBodyLimit caps request bodies, e.g. "1M" for composed emails.
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
