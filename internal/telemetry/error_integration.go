// Package telemetry - integration with the error handling system
package telemetry

import (
	"github.com/aquapredict/aquapredict-go/internal/errors"
)

// InitializeErrorIntegration sets up the error package to report to Sentry
// when enabled
func InitializeErrorIntegration(enabled bool) {
	errors.SetTelemetryReporter(errors.NewSentryReporter(enabled))
}
