package recommend

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aquapredict/aquapredict-go/internal/advisory"
	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/market"
)

// Defaults for advanced prediction and region lookups
const (
	DefaultRegion    = "Kerala Coast"
	DefaultMonth     = "January"
	DefaultLatitude  = 13.05
	DefaultLongitude = 80.27
	TrendDays        = 7

	// UnknownSpecies is reported by market prediction when the model fails
	UnknownSpecies = "Unknown"
)

// Advanced is a prediction enriched with advisory fields
type Advanced struct {
	Species     string        `json:"species"`
	Probability float64       `json:"probability"`
	Price       Price         `json:"price"`
	BestTime    string        `json:"best_time"`
	Risk        advisory.Risk `json:"risk"`
	WaveHeight  float64       `json:"wave_height"`
	Sunrise     string        `json:"sunrise,omitempty"`
	Sunset      string        `json:"sunset,omitempty"`
	Message     string        `json:"message"`
}

// MarketForecast is the expected catch and price outlook for a trip
type MarketForecast struct {
	PredictedSpecies     string  `json:"predicted_species"`
	ExpectedCatchKg      float64 `json:"expected_catch_kg"`
	PriceForecast        Price   `json:"price_forecast"`
	MarketRecommendation string  `json:"market_recommendation"`
	Confidence           float64 `json:"confidence"`
}

// AdvancedPredict predicts the top species and attaches best time, sea
// state risk, regional price and sun times. Empty region and month default
// to Kerala Coast in January.
func (e *Engine) AdvancedPredict(ctx context.Context, req Request) (Advanced, error) {
	if req.Region == "" {
		req.Region = DefaultRegion
	}
	if req.Month == "" {
		req.Month = DefaultMonth
	}

	in, dist, err := e.distribution(ctx, req)
	if err != nil {
		return Advanced{}, err
	}
	top, _ := dist.Top()

	wave := e.advisor.SampleWave()
	out := Advanced{
		Species:     top.Species,
		Probability: advisory.Round(top.Probability, 2),
		BestTime:    advisory.BestTime(top.Probability),
		Risk:        advisory.RiskFor(wave),
		WaveHeight:  advisory.Round(wave, 2),
		Message:     fmt.Sprintf("Best chance to catch %s today near %s!", top.Species, in.Region),
	}
	if price, ok := e.prices.SpeciesMaxPrice(in.Region, top.Species); ok {
		out.Price = KnownPrice(advisory.Round(price, 2))
	}

	lat, lon := e.coordinates(in.Region)
	if sun, err := e.sun.GetSunEventTimes(lat, lon, e.now()); err != nil {
		e.log.Warn("sun times unavailable",
			logger.String("region", in.Region),
			logger.Error(err))
	} else {
		out.Sunrise = sun.Sunrise.Format(time.Kitchen)
		out.Sunset = sun.Sunset.Format(time.Kitchen)
	}
	return out, nil
}

// PredictMarket forecasts catch and price for a trip. An empty month uses
// the current month. A failing model degrades to species Unknown with zero
// confidence; encoding errors are still returned.
func (e *Engine) PredictMarket(ctx context.Context, req Request) (MarketForecast, error) {
	if req.Month == "" {
		req.Month = e.now().Month().String()
	}

	in, dist, err := e.distribution(ctx, req)
	species, confidence := UnknownSpecies, 0.0
	switch {
	case errors.IsCategory(err, errors.CategoryEncoding):
		return MarketForecast{}, err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return MarketForecast{}, err
	case err != nil:
		e.log.Warn("model prediction failed, reporting unknown species",
			logger.String("region", in.Region),
			logger.Error(err))
	default:
		top, _ := dist.Top()
		species, confidence = top.Species, top.Probability
	}

	base := advisory.BaseCatch(e.prices.RegionCatchProbability(in.Region))
	expected := e.advisor.ExpectedCatch(base, confidence, req.FishingEffort)

	var forecast Price
	if minAvg, maxAvg, ok := e.prices.PriceForSpecies(species); ok {
		forecast = KnownPrice((minAvg + maxAvg) / 2)
	}

	return MarketForecast{
		PredictedSpecies:     species,
		ExpectedCatchKg:      expected,
		PriceForecast:        forecast,
		MarketRecommendation: advisory.MarketRecommendation(confidence, forecast.Value, forecast.Known),
		Confidence:           advisory.Round(confidence, 3),
	}, nil
}

// Trend simulates a week of prices for species starting today
func (e *Engine) Trend(species string) market.TrendSeries {
	var ts market.TrendSeries
	now := e.now()
	e.advisor.Draw(func(r *rand.Rand) {
		ts = e.prices.Trend(species, TrendDays, now, r)
	})
	if ts.Estimated {
		e.log.Debug("no price rows for species, trend base is random",
			logger.String("species", species))
	}
	return ts
}

// Heatmap returns per-location catch and price aggregates
func (e *Engine) Heatmap() []market.HeatPoint { return e.prices.Heatmap() }

// Conditions simulates sea conditions at a position
func (e *Engine) Conditions(lat, lng float64) advisory.Conditions {
	return e.advisor.Conditions(lat, lng)
}

// coordinates returns the mean position of the region's price rows, or the
// default position when the region has none
func (e *Engine) coordinates(region string) (lat, lon float64) {
	if lat, lon, ok := e.prices.RegionCoordinates(region); ok {
		return lat, lon
	}
	return DefaultLatitude, DefaultLongitude
}
