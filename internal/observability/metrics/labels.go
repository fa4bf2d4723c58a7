package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NormalizerMetrics counts region normalizations by the rule that resolved them
type NormalizerMetrics struct {
	normalizations *prometheus.CounterVec
}

// NewNormalizerMetrics creates and registers normalizer metrics
func NewNormalizerMetrics(registry prometheus.Registerer) (*NormalizerMetrics, error) {
	m := &NormalizerMetrics{
		normalizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquapredict_region_normalizations_total",
				Help: "Region normalizations partitioned by resolving rule (exact, alias, substring, fallback, empty)",
			},
			[]string{"source"},
		),
	}
	if err := registry.Register(m.normalizations); err != nil {
		return nil, fmt.Errorf("failed to register normalizer metrics: %w", err)
	}
	return m, nil
}

// ObserveNormalization counts one normalization
func (m *NormalizerMetrics) ObserveNormalization(source string) {
	m.normalizations.WithLabelValues(source).Inc()
}

// RecommendationMetrics counts recommendations and neutral price fallbacks
type RecommendationMetrics struct {
	recommendations *prometheus.CounterVec
	unpriced        prometheus.Counter
}

// NewRecommendationMetrics creates and registers recommendation metrics
func NewRecommendationMetrics(registry prometheus.Registerer) (*RecommendationMetrics, error) {
	m := &RecommendationMetrics{
		recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquapredict_recommendations_total",
				Help: "Recommendations partitioned by recommended species",
			},
			[]string{"species"},
		),
		unpriced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aquapredict_unpriced_species_total",
				Help: "Species scored with the neutral price because the region had no price for them",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.recommendations, m.unpriced} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register recommendation metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveRecommendation counts one recommendation
func (m *RecommendationMetrics) ObserveRecommendation(species string, unpriced int) {
	m.recommendations.WithLabelValues(species).Inc()
	m.unpriced.Add(float64(unpriced))
}
