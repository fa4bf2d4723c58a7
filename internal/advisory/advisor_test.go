package advisory

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource always yields the same value, pinning every draw to one end of
// its range: 0 gives the minimum, max uint64 gives just under the maximum.
type constSource uint64

func (s constSource) Uint64() uint64 { return uint64(s) }

func TestRiskThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wave float64
		want Risk
	}{
		{0.5, RiskLow},
		{0.99, RiskLow},
		{1.0, RiskMedium},
		{1.79, RiskMedium},
		{1.8, RiskHigh},
		{2.49, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskFor(tt.wave), "wave %v", tt.wave)
	}
}

func TestBestTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LateWindow, BestTime(0.5))
	assert.Equal(t, EarlyWindow, BestTime(0.51))
	assert.Equal(t, LateWindow, BestTime(0))
}

func TestSampleWaveRange(t *testing.T) {
	t.Parallel()

	a := NewSeeded(42)
	for range 1000 {
		w := a.SampleWave()
		assert.GreaterOrEqual(t, w, 0.5)
		assert.Less(t, w, 2.5)
	}

	assert.InDelta(t, 0.5, New(constSource(0)).SampleWave(), 1e-12)
	assert.Less(t, New(constSource(^uint64(0))).SampleWave(), 2.5)
}

func TestUniformStaysBelowUpperBound(t *testing.T) {
	t.Parallel()

	a := New(constSource(^uint64(0)))
	for _, r := range [][2]float64{{0.5, 2.5}, {0, 1}, {-0.3, 0.3}, {100, 300}} {
		v := a.uniform(r[0], r[1])
		assert.GreaterOrEqual(t, v, r[0])
		assert.Less(t, v, r[1], "range %v", r)
	}
	assert.Equal(t, math.Nextafter(2.5, 0.5), a.SampleWave())
}

func TestSeededAdvisorsAreReproducible(t *testing.T) {
	t.Parallel()

	a, b := NewSeeded(7), NewSeeded(7)
	for range 10 {
		assert.Equal(t, a.SampleWave(), b.SampleWave())
	}
}

func TestBaseCatch(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 20.0, BaseCatch(0, false), 1e-12)
	assert.InDelta(t, 40.0, BaseCatch(0.8, true), 1e-12)
	assert.InDelta(t, 1.0, BaseCatch(0.01, true), 1e-12, "floor at one kilogram")
}

func TestExpectedCatch(t *testing.T) {
	t.Parallel()

	low := New(constSource(0)) // jitter 0.9

	assert.InDelta(t, 18.0, low.ExpectedCatch(20, 0.5, 5), 1e-9)
	assert.InDelta(t, 36.0, low.ExpectedCatch(20, 0.5, 10), 1e-9)
	assert.InDelta(t, 18.0, low.ExpectedCatch(20, 0.5, 0), 1e-9, "zero effort is baseline")
	assert.InDelta(t, 18.0, low.ExpectedCatch(20, 0.5, -3), 1e-9, "negative effort is baseline")

	high := New(constSource(^uint64(0))) // jitter just under 1.1
	assert.InDelta(t, 22.0, high.ExpectedCatch(20, 0.5, 5), 0.01)

	a := NewSeeded(3)
	for range 200 {
		got := a.ExpectedCatch(20, 0.5, 5)
		assert.GreaterOrEqual(t, got, 18.0)
		assert.LessOrEqual(t, got, 22.0)
	}
}

func TestMarketRecommendation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		confidence float64
		price      float64
		known      bool
		want       string
	}{
		{"high and pricey", 0.8, 350, true, recHighAndPricey},
		{"high and strong price", 0.9, 600, true, recHighAndPricey + " " + recPriceStrong},
		{"high without price", 0.8, 0, false, recHigh},
		{"high and cheap", 0.8, 150, true, recHigh + " " + recPriceWeak},
		{"moderate", 0.5, 250, true, recModerate},
		{"moderate boundary is low", 0.4, 250, true, recLow},
		{"high boundary is moderate", 0.7, 400, true, recModerate},
		{"low and strong", 0.1, 500, true, recLow + " " + recPriceStrong},
		{"price exactly 200 is neutral", 0.1, 200, true, recLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MarketRecommendation(tt.confidence, tt.price, tt.known))
		})
	}
}

func TestConditions(t *testing.T) {
	t.Parallel()

	c := New(constSource(0)).Conditions(0, 0)
	assert.InDelta(t, 26.7, c.Temperature, 1e-9)
	assert.InDelta(t, 34.8, c.Salinity, 1e-9)
	assert.InDelta(t, 6.2, c.Oxygen, 1e-9)
	assert.InDelta(t, 0.5, c.WaveHeight, 1e-9)
	assert.Equal(t, "5 km/h W", c.Wind)
	assert.Equal(t, DefaultTide, c.Tide)

	seeded := NewSeeded(11)
	for range 100 {
		c := seeded.Conditions(13.05, 80.27)
		assert.GreaterOrEqual(t, c.WaveHeight, 0.5)
		assert.LessOrEqual(t, c.WaveHeight, 1.5)
		assert.Regexp(t, `^(\d|1[0-5]) km/h W$`, c.Wind)
	}
}

func TestAdvisorConcurrentUse(t *testing.T) {
	t.Parallel()

	a := NewSeeded(99)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = a.SampleWave()
				_ = a.ExpectedCatch(20, 0.6, 5)
				a.Draw(func(r *rand.Rand) { _ = r.Float64() })
			}
		}()
	}
	wg.Wait()
}

func TestRound(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 1.24, Round(1.235001, 2), 1e-12)
	require.InDelta(t, 0.667, Round(2.0/3, 3), 1e-12)
}
