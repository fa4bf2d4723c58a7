// Package observability provides Prometheus metrics functionality for monitoring AquaPredict.
// Sentry error telemetry is handled in the telemetry package.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	metricspkg "github.com/aquapredict/aquapredict-go/internal/observability/metrics"
)

// Endpoint serves metrics on a listener separate from the API server
type Endpoint struct {
	server        *http.Server
	listenAddress string
	path          string
	metrics       *Metrics
}

// NewEndpoint creates a standalone metrics endpoint. It fails when metrics
// are disabled or no separate listen address is configured.
func NewEndpoint(settings *conf.MetricsSettings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Enabled {
		return nil, fmt.Errorf("metrics not enabled in settings")
	}
	if settings.Listen == "" {
		return nil, fmt.Errorf("metrics listen address not configured")
	}

	mux := http.NewServeMux()
	metrics.RegisterHandlers(mux, settings.Path)

	return &Endpoint{
		server: &http.Server{
			Addr:              settings.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listenAddress: settings.Listen,
		path:          settings.Path,
		metrics:       metrics,
	}, nil
}

// Run serves until ctx is canceled, then shuts the listener down
func (e *Endpoint) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return fmt.Errorf("metrics endpoint listen: %w", err)
	}
	return e.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled
func (e *Endpoint) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("Metrics endpoint starting",
			logger.String("address", ln.Addr().String()),
			logger.String("path", e.path))
		errCh <- e.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Stopping metrics endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics endpoint shutdown error", logger.Error(err))
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
