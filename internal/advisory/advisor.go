// Package advisory produces the heuristic fishing advice attached to
// predictions: best time window, sea state risk, expected catch and a market
// recommendation. None of it is learned; the constants are fixed heuristics.
package advisory

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// Best time windows
const (
	EarlyWindow = "4:30 AM – 7:00 AM"
	LateWindow  = "6:00 AM – 9:00 AM"
)

// Risk is the sea state risk bucket for a wave height
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

// Heuristic constants
const (
	waveMin          = 0.5
	waveMax          = 2.5
	mediumWaveHeight = 1.0
	highWaveHeight   = 1.8

	DefaultBaseCatch = 20.0
	catchScale       = 50.0
	BaselineEffort   = 5.0
	jitterMin        = 0.9
	jitterSpan       = 0.2
)

// Market recommendation phrases
const (
	recHighAndPricey = "High chance & attractive price — consider selling at peak."
	recHigh          = "High catch probability — good time to fish."
	recModerate      = "Moderate chance — monitor conditions and effort."
	recLow           = "Low probability — avoid high fuel/effort trips."
	recPriceStrong   = "Price strong in local markets."
	recPriceWeak     = "Local price weak — consider storing inventory."

	DefaultTide = "High tide in 3 hours"
)

// Conditions is a simulated snapshot of sea conditions at a position
type Conditions struct {
	Temperature float64 `json:"temperature"`
	Salinity    float64 `json:"salinity"`
	Oxygen      float64 `json:"oxygen"`
	WaveHeight  float64 `json:"wave_height"`
	Wind        string  `json:"wind"`
	Tide        string  `json:"tide"`
}

// Advisor draws the random parts of the heuristics from one source. The
// source is guarded by a mutex so an Advisor can be shared across requests.
type Advisor struct {
	mu  sync.Mutex
	rng *rand.Rand
	log logger.Logger
}

// New returns an advisor drawing from src. A nil src is seeded from the clock.
func New(src rand.Source) *Advisor {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>17|1)
	}
	return &Advisor{rng: rand.New(src), log: GetLogger()}
}

// NewSeeded returns an advisor with a reproducible PCG source. Seed 0 seeds
// from the clock.
func NewSeeded(seed uint64) *Advisor {
	if seed == 0 {
		return New(nil)
	}
	return New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Draw runs fn with exclusive access to the advisor's random source
func (a *Advisor) Draw(fn func(r *rand.Rand)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.rng)
}

// uniform returns a value in [lo, hi)
func (a *Advisor) uniform(lo, hi float64) float64 {
	var v float64
	a.Draw(func(r *rand.Rand) { v = lo + r.Float64()*(hi-lo) })
	// The largest Float64 draw can round up to hi
	if v >= hi {
		v = math.Nextafter(hi, lo)
	}
	return v
}

// BestTime picks the fishing window for a catch probability
func BestTime(probability float64) string {
	if probability > 0.5 {
		return EarlyWindow
	}
	return LateWindow
}

// RiskFor buckets a wave height. Thresholds belong to the higher bucket.
func RiskFor(wave float64) Risk {
	switch {
	case wave < mediumWaveHeight:
		return RiskLow
	case wave < highWaveHeight:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// SampleWave draws a wave height in metres, uniform in [0.5, 2.5)
func (a *Advisor) SampleWave() float64 {
	return a.uniform(waveMin, waveMax)
}

// BaseCatch turns a region's mean catch probability into a baseline catch in
// kilograms. Regions without rows get the default.
func BaseCatch(meanCatchProbability float64, ok bool) float64 {
	if !ok {
		return DefaultBaseCatch
	}
	return math.Max(1, meanCatchProbability*catchScale)
}

// ExpectedCatch scales the base catch by confidence and effort with ±10%
// jitter, rounded to two decimals. Non-positive effort counts as baseline.
func (a *Advisor) ExpectedCatch(base, confidence, effort float64) float64 {
	if effort <= 0 {
		a.log.Debug("non-positive fishing effort, using baseline",
			logger.Float64("effort", effort),
			logger.Float64("baseline", BaselineEffort))
		effort = BaselineEffort
	}
	jitter := a.uniform(jitterMin, jitterMin+jitterSpan)
	return Round(base*(0.5+confidence)*(effort/BaselineEffort)*jitter, 2)
}

// MarketRecommendation phrases the sell/fish advice for a confidence and an
// optional price forecast
func MarketRecommendation(confidence, price float64, priceKnown bool) string {
	parts := make([]string, 0, 2)
	switch {
	case confidence > 0.7 && priceKnown && price > 300:
		parts = append(parts, recHighAndPricey)
	case confidence > 0.7:
		parts = append(parts, recHigh)
	case confidence > 0.4:
		parts = append(parts, recModerate)
	default:
		parts = append(parts, recLow)
	}

	if priceKnown {
		switch {
		case price >= 500:
			parts = append(parts, recPriceStrong)
		case price < 200:
			parts = append(parts, recPriceWeak)
		}
	}
	return strings.Join(parts, " ")
}

// Conditions simulates sea conditions around a position
func (a *Advisor) Conditions(lat, lng float64) Conditions {
	var c Conditions
	a.Draw(func(r *rand.Rand) {
		c = Conditions{
			Temperature: Round(27+math.Sin(lat/5)+noise(r, 0.3), 2),
			Salinity:    Round(34+math.Cos(lng/10)+noise(r, 0.2), 2),
			Oxygen:      Round(6.5+math.Sin(lat/10)+noise(r, 0.3), 2),
			WaveHeight:  Round(0.5+r.Float64(), 2),
			Wind:        fmt.Sprintf("%d km/h W", 5+int(r.Float64()*11)),
			Tide:        DefaultTide,
		}
	})
	return c
}

// noise returns a value in [-span, span)
func noise(r *rand.Rand, span float64) float64 {
	return -span + r.Float64()*2*span
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
