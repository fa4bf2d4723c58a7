package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// jsonOnlyCSP forbids every resource type; responses are JSON and are never
// rendered as documents.
const jsonOnlyCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityConfig configures cross-origin access and response hardening
type SecurityConfig struct {
	// AllowedOrigins lists origins that may call the API from a browser.
	// Empty disables CORS handling.
	AllowedOrigins []string
	// HSTSMaxAge is only sent on TLS connections, 0 disables it
	HSTSMaxAge int
}

// DefaultSecurityConfig allows any origin and leaves HSTS to a TLS proxy
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{AllowedOrigins: []string{"*"}}
}

// NewCORS answers preflight requests for the prediction endpoints. The API
// is stateless, so credentials are never allowed.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestID,
			"X-Requested-With",
		},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	})
}

// NewSecureHeaders sets the hardening headers every JSON response carries
func NewSecureHeaders(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "no-referrer",
		HSTSMaxAge:            config.HSTSMaxAge,
		ContentSecurityPolicy: jsonOnlyCSP,
	})
}

// NewBodyLimit rejects request bodies larger than limit, e.g. "1M", with 413
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
