package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	mw "github.com/aquapredict/aquapredict-go/internal/api/middleware"
	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/labels"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/market"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response. The correlation ID is
// the request ID when one is known so logs and responses line up.
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// StatusFor maps a domain error to an HTTP status code
func StatusFor(err error) int {
	var encErr *labels.EncodingError
	var priceErr *market.NoPriceDataError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &encErr):
		return http.StatusBadRequest
	case errors.As(err, &priceErr):
		return http.StatusNotFound
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// errorType labels a failure by its error category
func errorType(err error, code int) string {
	var catErr errors.CategorizedError
	if errors.As(err, &catErr) {
		return string(catErr.ErrorCategory())
	}
	var enhErr *errors.EnhancedError
	if errors.As(err, &enhErr) && enhErr.Category != "" {
		return string(enhErr.Category)
	}
	if code == http.StatusTooManyRequests {
		return "rate-limited"
	}
	return string(errors.CategoryHTTP)
}

// HandleError logs err and writes the JSON error payload
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code, mw.RequestID(ctx))

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("path", ctx.Request().URL.Path),
		logger.Int("code", code),
		logger.String("message", message),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	ctx.Set(mw.ErrorTypeKey, errorType(err, code))

	log := c.log.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API request failed", fields...)
	} else {
		log.Warn("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

// handleDomainError writes err with the status its type maps to
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, StatusFor(err))
}

// httpErrorHandler renders errors that escape handlers, such as unknown
// routes or rejected bodies, in the same payload as handler errors
func (c *Controller) httpErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	message := http.StatusText(http.StatusInternalServerError)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if m, ok := httpErr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(httpErr.Code)
		}
	}

	if werr := c.HandleError(ctx, err, message, StatusFor(err)); werr != nil {
		c.log.Warn("Failed to write error response", logger.Error(werr))
	}
}
