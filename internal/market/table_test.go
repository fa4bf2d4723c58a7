package market

import (
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestTable(t *testing.T) *Table {
	t.Helper()
	records, err := LoadCSV(filepath.Join("testdata", "prices.csv"))
	require.NoError(t, err)
	return NewTable(records)
}

func TestPricesForRegionMatchesFirstWord(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)
	prices := table.PricesForRegion("Kerala Coast")

	require.Len(t, prices, 2)
	// mean of (100+140)/2 and (120+160)/2
	assert.InDelta(t, 130.0, prices["Sardine"], 1e-9)
	assert.InDelta(t, 750.0, prices["Seer Fish"], 1e-9)

	chennai := table.PricesForRegion("chennai coast")
	assert.InDelta(t, 300.0, chennai["Tuna"], 1e-9)
}

func TestPricesForRegionEmpty(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)
	assert.Empty(t, table.PricesForRegion("Visakhapatnam"))
	assert.Empty(t, table.PricesForRegion(""))
	assert.NotNil(t, table.PricesForRegion("Rameswaram"))
}

func TestPricesForRegionIsIdempotent(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)
	first := table.PricesForRegion("Kerala Coast")
	first["Sardine"] = 0
	delete(first, "Seer Fish")

	second := table.PricesForRegion("Kerala Coast")
	third := table.PricesForRegion("Kerala Coast")
	assert.Equal(t, second, third)
	assert.InDelta(t, 130.0, second["Sardine"], 1e-9)
	assert.Contains(t, second, "Seer Fish")
}

func TestPricesForRegionConcurrent(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)
	var wg sync.WaitGroup
	results := make([]map[string]float64, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = table.PricesForRegion("Kerala Coast")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestPriceForSpecies(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)

	minAvg, maxAvg, ok := table.PriceForSpecies("tuna")
	require.True(t, ok)
	assert.InDelta(t, 225.0, minAvg, 1e-9)
	assert.InDelta(t, 425.0, maxAvg, 1e-9)

	// substring match
	_, maxAvg, ok = table.PriceForSpecies("Seer")
	require.True(t, ok)
	assert.InDelta(t, 900.0, maxAvg, 1e-9)

	_, _, ok = table.PriceForSpecies("Hilsa")
	assert.False(t, ok)
	_, _, ok = table.PriceForSpecies("")
	assert.False(t, ok)
}

func TestSpeciesMaxPriceAndCatch(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)

	p, ok := table.SpeciesMaxPrice("Kerala Coast", "Sardine")
	require.True(t, ok)
	assert.InDelta(t, 150.0, p, 1e-9)

	_, ok = table.SpeciesMaxPrice("Kerala Coast", "sardine")
	assert.False(t, ok, "species must match exactly")

	c, ok := table.RegionCatchProbability("Kerala Coast")
	require.True(t, ok)
	assert.InDelta(t, 0.6, c, 1e-9)

	_, ok = table.RegionCatchProbability("Visakhapatnam")
	assert.False(t, ok)

	lat, lon, ok := table.RegionCoordinates("Goa Coast")
	require.True(t, ok)
	assert.InDelta(t, 15.49, lat, 1e-9)
	assert.InDelta(t, 73.82, lon, 1e-9)
}

func TestHeatmap(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)
	points := table.Heatmap()
	require.Len(t, points, 4)

	states := make([]string, len(points))
	for i, p := range points {
		states[i] = p.State
	}
	assert.Equal(t, []string{"Andaman and Nicobar Islands", "Goa", "Kerala", "Tamil Nadu - Chennai"}, states)

	// Kerala: catch 0.6, min 273.33, max 400, largest grouped max is 450
	kerala := points[2]
	assert.InDelta(t, 0.6, kerala.CatchProbability, 1e-9)
	wantScore := 0.6*0.6 + ((820.0/3+400.0)/2)/450.0*0.4
	assert.InDelta(t, wantScore, kerala.Score, 1e-9)
}

func TestTrendWithData(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)
	now := time.Date(2026, time.February, 27, 15, 4, 5, 0, time.UTC)
	ts := table.Trend("Tuna", 7, now, rand.New(rand.NewPCG(1, 2)))

	assert.Equal(t, "Tuna", ts.Species)
	assert.False(t, ts.Estimated)
	require.Len(t, ts.Series, 7)

	wantDates := []string{"2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"}
	for i, p := range ts.Series {
		assert.Equal(t, wantDates[i], p.Date)
		// base 325, sine swing 10, noise 3
		assert.InDelta(t, 325.0, p.Price, 13.01)
	}
}

func TestTrendFallsBackToRandomBase(t *testing.T) {
	t.Parallel()

	table := NewTable(nil)
	ts := table.Trend("Tuna", 7, time.Now(), rand.New(rand.NewPCG(3, 4)))

	assert.True(t, ts.Estimated)
	require.Len(t, ts.Series, 7)
	for _, p := range ts.Series {
		assert.GreaterOrEqual(t, p.Price, 100.0-13.01)
		assert.LessOrEqual(t, p.Price, 300.0+13.01)
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	t.Parallel()

	table := loadTestTable(t)
	records := table.Records()
	records[0].MaxPrice = 1e9
	assert.NotEqual(t, 1e9, table.Records()[0].MaxPrice)
	assert.Equal(t, 6, table.Len())
}
