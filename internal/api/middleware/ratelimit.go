package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimitExpiry is how long an idle client's limiter is kept
const RateLimitExpiry = 3 * time.Minute

// RateLimitRecorder counts rejected requests
type RateLimitRecorder interface {
	RecordRateLimited(path string)
}

// DenyFunc writes the response for a rejected request
type DenyFunc func(c echo.Context, status int, message string) error

// RateLimitConfig configures the per-client limiter
type RateLimitConfig struct {
	Rate     float64 // requests per second per client
	Burst    int
	Recorder RateLimitRecorder // optional
	Deny     DenyFunc          // optional, defaults to a plain echo.HTTPError
	Skipper  middleware.Skipper
}

// NewRateLimiter limits each client IP to a token bucket.
// A zero rate returns a pass-through middleware.
func NewRateLimiter(config RateLimitConfig) echo.MiddlewareFunc {
	if config.Rate <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	burst := config.Burst
	if burst < 1 {
		burst = max(1, int(config.Rate))
	}

	deny := config.Deny
	if deny == nil {
		deny = func(_ echo.Context, status int, message string) error {
			return echo.NewHTTPError(status, message)
		}
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(config.Rate),
		Burst:     burst,
		ExpiresIn: RateLimitExpiry,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: config.Skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return deny(c, http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if config.Recorder != nil {
				config.Recorder.RecordRateLimited(routePath(c))
			}
			return deny(c, http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// routePath returns the matched route pattern, which keeps metric label
// cardinality bounded, or the raw path when no route matched.
func routePath(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}
