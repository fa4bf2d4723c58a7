// Package recommend combines region normalization, the species classifier and
// the price table into predictions and market-weighted recommendations.
package recommend

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aquapredict/aquapredict-go/internal/advisory"
	"github.com/aquapredict/aquapredict-go/internal/classifier"
	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/labels"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/market"
	"github.com/aquapredict/aquapredict-go/internal/suncalc"
)

// Request is one prediction query. Numeric defaults are applied by the
// caller; the engine uses the values as given.
type Request struct {
	Region        string  `json:"region"`
	Month         string  `json:"month"`
	Temperature   float64 `json:"temperature"`
	Salinity      float64 `json:"salinity"`
	Oxygen        float64 `json:"oxygen"`
	FishingEffort float64 `json:"fishingEffort"`
}

// NormalizedInput is a request after region normalization and encoding
type NormalizedInput struct {
	RawRegion string                   `json:"raw_region"`
	Region    string                   `json:"region"`
	Source    labels.Source            `json:"source"`
	Month     string                   `json:"month"`
	Features  classifier.FeatureVector `json:"features"`
}

// Observer is notified of each recommendation, e.g. to count neutral price
// fallbacks
type Observer interface {
	ObserveRecommendation(species string, unpriced int)
}

// Config holds the dependencies of an Engine
type Config struct {
	Codec      *labels.Codec
	Normalizer *labels.Normalizer
	Classifier classifier.Classifier
	Prices     *market.Table
	Advisor    *advisory.Advisor // optional, seeded from the clock when nil
	SunCalc    *suncalc.SunCalc  // optional, UTC when nil
	Clock      func() time.Time  // optional, time.Now when nil
	Observer   Observer          // optional
	Logger     logger.Logger     // optional
}

// Engine is the application context shared by all request handlers. It is
// read-only after construction and safe for concurrent use.
type Engine struct {
	codec      *labels.Codec
	normalizer *labels.Normalizer
	classifier classifier.Classifier
	prices     *market.Table
	advisor    *advisory.Advisor
	sun        *suncalc.SunCalc
	now        func() time.Time
	observer   Observer
	log        logger.Logger
}

// New validates cfg and builds an Engine
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Codec == nil:
		return nil, fmt.Errorf("recommend: codec is required")
	case cfg.Normalizer == nil:
		return nil, fmt.Errorf("recommend: normalizer is required")
	case cfg.Classifier == nil:
		return nil, fmt.Errorf("recommend: classifier is required")
	case cfg.Prices == nil:
		return nil, fmt.Errorf("recommend: price table is required")
	}

	if classes, species := cfg.Classifier.Classes(), cfg.Codec.Species(); !slices.Equal(classes, species) {
		return nil, errors.Newf("classifier classes %v do not match codec species %v", classes, species).
			Component("recommend").
			Category(errors.CategoryModelInit).
			Build()
	}

	e := &Engine{
		codec:      cfg.Codec,
		normalizer: cfg.Normalizer,
		classifier: cfg.Classifier,
		prices:     cfg.Prices,
		advisor:    cfg.Advisor,
		sun:        cfg.SunCalc,
		now:        cfg.Clock,
		observer:   cfg.Observer,
		log:        cfg.Logger,
	}
	if e.advisor == nil {
		e.advisor = advisory.New(nil)
	}
	if e.sun == nil {
		e.sun = suncalc.NewSunCalc(time.UTC)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = GetLogger()
	}
	return e, nil
}

// Regions returns the canonical regions in codec order
func (e *Engine) Regions() []string { return e.normalizer.Regions() }

// Codec returns the label codec
func (e *Engine) Codec() *labels.Codec { return e.codec }

// Normalizer returns the region normalizer
func (e *Engine) Normalizer() *labels.Normalizer { return e.normalizer }

// Backend names the classifier backend in use
func (e *Engine) Backend() string { return e.classifier.Backend() }

// PriceRecords returns the number of rows in the price table
func (e *Engine) PriceRecords() int { return e.prices.Len() }

// Normalize resolves the region and encodes region and month
func (e *Engine) Normalize(req Request) (NormalizedInput, error) {
	match := e.normalizer.Resolve(req.Region)
	in := NormalizedInput{
		RawRegion: req.Region,
		Region:    match.Region,
		Source:    match.Source,
		Month:     req.Month,
	}

	regionCode, monthCode, err := e.codec.Encode(req.Region, match.Region, req.Month)
	if err != nil {
		return in, errors.New(err).
			Component("recommend").
			Category(errors.CategoryEncoding).
			Context("region", req.Region).
			Context("normalized_region", match.Region).
			Context("month", req.Month).
			Build()
	}

	in.Features = classifier.FeatureVector{
		Region:      regionCode,
		Month:       monthCode,
		Temperature: req.Temperature,
		Salinity:    req.Salinity,
		Oxygen:      req.Oxygen,
	}
	return in, nil
}

// distribution normalizes req and runs the classifier
func (e *Engine) distribution(ctx context.Context, req Request) (NormalizedInput, classifier.Distribution, error) {
	in, err := e.Normalize(req)
	if err != nil {
		return in, nil, err
	}

	start := time.Now()
	dist, err := e.classifier.PredictProba(ctx, in.Features)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return in, nil, err
		}
		return in, nil, errors.New(err).
			Component("recommend").
			Category(errors.CategoryInference).
			Context("backend", e.classifier.Backend()).
			Timing("predict_proba", time.Since(start)).
			Build()
	}
	return in, dist, nil
}

// Predict returns the most probable species for req
func (e *Engine) Predict(ctx context.Context, req Request) (string, NormalizedInput, error) {
	in, dist, err := e.distribution(ctx, req)
	if err != nil {
		return "", in, err
	}
	top, ok := dist.Top()
	if !ok {
		return "", in, errors.Newf("classifier returned an empty distribution").
			Component("recommend").
			Category(errors.CategoryInference).
			Build()
	}
	return top.Species, in, nil
}

// PredictProba returns the species distribution for req sorted by
// probability, highest first. Equal probabilities keep class order.
func (e *Engine) PredictProba(ctx context.Context, req Request) ([]classifier.SpeciesProbability, error) {
	_, dist, err := e.distribution(ctx, req)
	if err != nil {
		return nil, err
	}
	return dist.Ranked(), nil
}
