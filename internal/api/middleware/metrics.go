package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// ErrorTypeKey is the echo context key handlers set to label a failed
// request in metrics
const ErrorTypeKey = "error_type"

// HTTPRecorder receives per-request measurements
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
	RecordHTTPRequestError(method, path, errorType string)
	RecordHTTPResponseSize(method, path string, sizeBytes int64)
	RequestStarted()
	RequestFinished()
}

// NewMetrics records request counts, latency, response size and in-flight
// requests. Paths are labelled by route pattern.
func NewMetrics(recorder HTTPRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			recorder.RequestStarted()
			defer recorder.RequestFinished()

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the error so the recorded status is final
				c.Error(err)
			}

			method := c.Request().Method
			path := routePath(c)
			status := c.Response().Status

			recorder.RecordHTTPRequest(method, path, status, time.Since(start).Seconds())
			recorder.RecordHTTPResponseSize(method, path, c.Response().Size)
			if status >= 400 {
				errorType, ok := c.Get(ErrorTypeKey).(string)
				if !ok {
					errorType = strconv.Itoa(status)
				}
				recorder.RecordHTTPRequestError(method, path, errorType)
			}
			return nil
		}
	}
}
