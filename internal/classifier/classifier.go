// Package classifier runs the trained species model. Several backends share
// one interface: a JSON random forest (default), TensorFlow Lite, ONNX
// Runtime and a remote model server.
package classifier

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
)

// NumFeatures is the width of the model input
const NumFeatures = 5

// sumTolerance bounds how far a distribution may drift from 1
const sumTolerance = 1e-6

// FeatureVector is one model input row, in training column order
type FeatureVector struct {
	Region      int     `json:"region"`
	Month       int     `json:"month"`
	Temperature float64 `json:"temperature"`
	Salinity    float64 `json:"salinity"`
	Oxygen      float64 `json:"oxygen"`
}

// Float64s returns the vector as region, month, temperature, salinity, oxygen
func (f FeatureVector) Float64s() []float64 {
	return []float64{float64(f.Region), float64(f.Month), f.Temperature, f.Salinity, f.Oxygen}
}

// Float32s returns the vector in model precision
func (f FeatureVector) Float32s() []float32 {
	out := make([]float32, NumFeatures)
	for i, v := range f.Float64s() {
		out[i] = float32(v)
	}
	return out
}

// SpeciesProbability is one class of a distribution
type SpeciesProbability struct {
	Species     string  `json:"species"`
	Probability float64 `json:"probability"`
}

// Distribution is a probability per species in class order
type Distribution []SpeciesProbability

// Top returns the most probable species. The first strict maximum in class
// order wins ties.
func (d Distribution) Top() (SpeciesProbability, bool) {
	if len(d) == 0 {
		return SpeciesProbability{}, false
	}
	best := d[0]
	for _, sp := range d[1:] {
		if sp.Probability > best.Probability {
			best = sp
		}
	}
	return best, true
}

// Sum returns the total probability mass
func (d Distribution) Sum() float64 {
	var total float64
	for _, sp := range d {
		total += sp.Probability
	}
	return total
}

// Ranked returns a copy sorted by probability, highest first. Equal
// probabilities keep class order.
func (d Distribution) Ranked() Distribution {
	out := slices.Clone(d)
	slices.SortStableFunc(out, func(a, b SpeciesProbability) int {
		return cmp.Compare(b.Probability, a.Probability)
	})
	return out
}

// Classifier predicts fish species from environmental features. Implementations
// are safe for concurrent use.
type Classifier interface {
	// Backend names the implementation, e.g. "forest"
	Backend() string
	// Classes returns species labels in class order
	Classes() []string
	Predict(ctx context.Context, fv FeatureVector) (string, error)
	PredictProba(ctx context.Context, fv FeatureVector) (Distribution, error)
	Close() error
}

// newDistribution pairs raw scores with class labels and renormalizes them.
// Negative or non-finite scores are rejected.
func newDistribution(classes []string, scores []float64) (Distribution, error) {
	if len(scores) != len(classes) {
		return nil, fmt.Errorf("model returned %d scores for %d classes", len(scores), len(classes))
	}

	var total float64
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return nil, fmt.Errorf("invalid probability %v for class %q", s, classes[i])
		}
		total += s
	}
	if total <= 0 {
		return nil, fmt.Errorf("model returned an all-zero distribution")
	}

	d := make(Distribution, len(classes))
	for i, s := range scores {
		d[i] = SpeciesProbability{Species: classes[i], Probability: s / total}
	}
	return d, nil
}

// float32Scores widens tensor output
func float32Scores(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// predictTop implements Predict on top of PredictProba
func predictTop(ctx context.Context, c Classifier, fv FeatureVector) (string, error) {
	d, err := c.PredictProba(ctx, fv)
	if err != nil {
		return "", err
	}
	top, ok := d.Top()
	if !ok {
		return "", fmt.Errorf("empty distribution")
	}
	return top.Species, nil
}
