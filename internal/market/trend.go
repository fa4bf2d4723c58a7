package market

import (
	"math"
	"math/rand/v2"
	"time"
)

// Trend shape constants
const (
	trendAmplitude   = 10.0
	trendNoise       = 3.0
	trendFallbackMin = 100.0
	trendFallbackMax = 300.0
)

// TrendPoint is one day of a simulated price series
type TrendPoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// TrendSeries is a simulated short-term price outlook for a species
type TrendSeries struct {
	Species string       `json:"species"`
	Series  []TrendPoint `json:"series"`
	// Estimated is true when no rows matched and the base price is random
	Estimated bool `json:"-"`
}

// Trend simulates days of prices starting at now. The base is the species
// mid price, or uniform in [100,300) when the table has no rows for it.
func (t *Table) Trend(species string, days int, now time.Time, rng *rand.Rand) TrendSeries {
	ts := TrendSeries{Species: species, Series: make([]TrendPoint, 0, max(days, 0))}

	minAvg, maxAvg, ok := t.PriceForSpecies(species)
	base := (minAvg + maxAvg) / 2
	if !ok {
		base = trendFallbackMin + rng.Float64()*(trendFallbackMax-trendFallbackMin)
		ts.Estimated = true
	}

	year, month, day := now.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	for i := range days {
		noise := -trendNoise + rng.Float64()*2*trendNoise
		price := base + math.Sin(float64(i)/2)*trendAmplitude + noise
		ts.Series = append(ts.Series, TrendPoint{
			Date:  start.AddDate(0, 0, i).Format(time.DateOnly),
			Price: math.Round(price*100) / 100,
		})
	}
	return ts
}
