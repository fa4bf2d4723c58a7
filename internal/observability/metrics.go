// Package observability provides metrics and monitoring capabilities for AquaPredict.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry       *prometheus.Registry
	Prediction     *metrics.PredictionMetrics
	Normalizer     *metrics.NormalizerMetrics
	Recommendation *metrics.RecommendationMetrics
	Market         *metrics.MarketMetrics
	HTTP           *metrics.HTTPMetrics
}

// NewMetrics creates a new instance of Metrics on its own registry, with Go
// runtime and process collectors included.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	predictionMetrics, err := metrics.NewPredictionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction metrics: %w", err)
	}

	normalizerMetrics, err := metrics.NewNormalizerMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer metrics: %w", err)
	}

	recommendationMetrics, err := metrics.NewRecommendationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create recommendation metrics: %w", err)
	}

	marketMetrics, err := metrics.NewMarketMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create market metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	return &Metrics{
		registry:       registry,
		Prediction:     predictionMetrics,
		Normalizer:     normalizerMetrics,
		Recommendation: recommendationMetrics,
		Market:         marketMetrics,
		HTTP:           httpMetrics,
	}, nil
}

// Registry returns the registry all collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the HTTP handler serving the metrics in exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLog{},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux, path string) {
	mux.Handle(path, m.Handler())
}

// promErrorLog routes promhttp errors to the package logger
type promErrorLog struct{}

func (promErrorLog) Println(v ...any) {
	log.Error("metrics handler error", logger.String("error", fmt.Sprint(v...)))
}
