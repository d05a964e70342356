package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// DocumentsPrefix is where order documents are served. The dashboard shows
// them in an embedded viewer, so they may be framed by the allowed origins.
const DocumentsPrefix = "/documents/"

// SecurityHeaders sets the response hardening headers. API responses carry
// patient data and are never cached or framed.
func SecurityHeaders(frameOrigins []string) echo.MiddlewareFunc {
	docAncestors := "frame-ancestors 'self'"
	if len(frameOrigins) > 0 {
		docAncestors += " " + strings.Join(frameOrigins, " ")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			if strings.HasPrefix(c.Request().URL.Path, DocumentsPrefix) {
				h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; object-src 'self'; "+docAncestors)
				h.Set("Cache-Control", "private, max-age=300")
				return next(c)
			}

			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}
