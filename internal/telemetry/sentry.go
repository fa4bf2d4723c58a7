// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// sentryInitialized tracks whether Sentry has been initialized
var sentryInitialized atomic.Bool

// Options tune Sentry initialization
type Options struct {
	Release   string           // application version, reported as aquapredict@<release>
	Transport sentry.Transport // nil uses the SDK's HTTP transport
}

// InitSentry initializes the Sentry SDK and routes enhanced errors to it. It
// does nothing unless Sentry is explicitly enabled.
func InitSentry(settings *conf.SentrySettings, opts Options) error {
	log := GetLogger()
	if !settings.Enabled {
		log.Debug("Sentry telemetry is disabled (opt-in required)")
		InitializeErrorIntegration(false)
		return nil
	}
	if settings.DSN == "" && opts.Transport == nil {
		return fmt.Errorf("sentry enabled but no DSN configured")
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       settings.SampleRate,
		AttachStacktrace: false,
		Environment:      settings.Environment,
		ServerName:       "", // Explicitly clear server name to prevent hostname leakage
		Release:          fmt.Sprintf("aquapredict@%s", opts.Release),
		Transport:        opts.Transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	configureSentryScope(opts.Release)
	sentryInitialized.Store(true)
	InitializeErrorIntegration(true)

	log.Info("Sentry telemetry initialized",
		logger.String("environment", settings.Environment),
		logger.Float64("sample_rate", settings.SampleRate))
	return nil
}

// IsInitialized reports whether InitSentry enabled reporting
func IsInitialized() bool { return sentryInitialized.Load() }

// Flush waits for queued events to be sent
func Flush(timeout time.Duration) bool {
	if !sentryInitialized.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// applyPrivacyFilters strips host and user identifying data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// configureSentryScope tags every event with platform information
func configureSentryScope(release string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":       "AquaPredict",
			"version":    release,
			"go_version": runtime.Version(),
			"num_cpu":    runtime.NumCPU(),
		})
	})
}
