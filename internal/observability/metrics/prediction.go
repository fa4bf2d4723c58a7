package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aquapredict/aquapredict-go/internal/errors"
)

// PredictionMetrics tracks classifier calls and model loading
type PredictionMetrics struct {
	PredictionTotal    *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec
	PredictionDuration *prometheus.HistogramVec
	ModelLoadTotal     *prometheus.CounterVec
	ModelLoadedGauge   *prometheus.GaugeVec
}

// NewPredictionMetrics creates and registers prediction metrics
func NewPredictionMetrics(registry prometheus.Registerer) (*PredictionMetrics, error) {
	m := &PredictionMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register prediction metrics: %w", err)
	}
	return m, nil
}

func (m *PredictionMetrics) initMetrics() {
	m.PredictionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquapredict_predictions_total",
			Help: "Total number of classifier predictions",
		},
		[]string{"backend", "status"},
	)

	m.PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquapredict_prediction_errors_total",
			Help: "Total number of classifier prediction errors",
		},
		[]string{"backend", "error_type"},
	)

	m.PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aquapredict_prediction_duration_seconds",
			Help:    "Time taken to compute a species distribution",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount15), // 0.1ms to ~1.6s
		},
		[]string{"backend"},
	)

	m.ModelLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquapredict_model_load_total",
			Help: "Total number of model load attempts",
		},
		[]string{"backend", "status"},
	)

	m.ModelLoadedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aquapredict_model_loaded",
			Help: "Whether the model for a backend is loaded (1) or not (0)",
		},
		[]string{"backend"},
	)
}

// RecordPrediction records one classifier call
func (m *PredictionMetrics) RecordPrediction(backend string, duration time.Duration, err error) {
	if err != nil {
		m.PredictionTotal.WithLabelValues(backend, StatusError).Inc()
		m.PredictionErrors.WithLabelValues(backend, categorizeError(err)).Inc()
		return
	}
	m.PredictionTotal.WithLabelValues(backend, StatusSuccess).Inc()
	m.PredictionDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordModelLoad records a model load attempt
func (m *PredictionMetrics) RecordModelLoad(backend string, err error) {
	if err != nil {
		m.ModelLoadTotal.WithLabelValues(backend, StatusError).Inc()
		m.ModelLoadedGauge.WithLabelValues(backend).Set(0)
		return
	}
	m.ModelLoadTotal.WithLabelValues(backend, StatusSuccess).Inc()
	m.ModelLoadedGauge.WithLabelValues(backend).Set(1)
}

// categorizeError returns the error category label for err
func categorizeError(err error) string {
	var catErr errors.CategorizedError
	if errors.As(err, &catErr) {
		return string(catErr.ErrorCategory())
	}
	var enhErr *errors.EnhancedError
	if errors.As(err, &enhErr) && enhErr.Category != "" {
		return string(enhErr.Category)
	}
	return string(errors.CategoryGeneric)
}

// Describe implements the prometheus.Collector interface.
func (m *PredictionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.PredictionTotal.Describe(ch)
	m.PredictionErrors.Describe(ch)
	m.PredictionDuration.Describe(ch)
	m.ModelLoadTotal.Describe(ch)
	m.ModelLoadedGauge.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PredictionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.PredictionTotal.Collect(ch)
	m.PredictionErrors.Collect(ch)
	m.PredictionDuration.Collect(ch)
	m.ModelLoadTotal.Collect(ch)
	m.ModelLoadedGauge.Collect(ch)
}
