package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// MarketMetrics tracks loading of the price table
type MarketMetrics struct {
	records      prometheus.Gauge
	loadDuration *prometheus.HistogramVec
	loadTotal    *prometheus.CounterVec
}

// NewMarketMetrics creates and registers price table metrics
func NewMarketMetrics(registry prometheus.Registerer) (*MarketMetrics, error) {
	m := &MarketMetrics{
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aquapredict_price_records",
			Help: "Number of rows in the loaded price table",
		}),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aquapredict_price_table_load_duration_seconds",
				Help:    "Time taken to load the price table",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
			},
			[]string{"source"},
		),
		loadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquapredict_price_table_loads_total",
				Help: "Price table load attempts",
			},
			[]string{"source", "status"},
		),
	}
	for _, c := range []prometheus.Collector{m.records, m.loadDuration, m.loadTotal} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register market metrics: %w", err)
		}
	}
	return m, nil
}

// RecordLoad records a price table load from source
func (m *MarketMetrics) RecordLoad(source string, records int, duration time.Duration, err error) {
	if err != nil {
		m.loadTotal.WithLabelValues(source, StatusError).Inc()
		return
	}
	m.loadTotal.WithLabelValues(source, StatusSuccess).Inc()
	m.loadDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.records.Set(float64(records))
}

// Records returns the row count of the last successful load
func (m *MarketMetrics) Records() float64 {
	metric := &dto.Metric{}
	if err := m.records.Write(metric); err != nil {
		log.Warn("Failed to write price records metric", logger.Error(err))
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}
