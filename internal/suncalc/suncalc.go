// Package suncalc computes sunrise and sunset for fishing grounds. Results
// are cached per position and day.
package suncalc

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// SunEventTimes holds the sun events of one day in the calculator's zone
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

type cacheKey struct {
	lat, lon float64
	date     string
}

// SunCalc calculates sun events for any position. Safe for concurrent use.
type SunCalc struct {
	loc   *time.Location
	lock  sync.RWMutex
	cache map[cacheKey]SunEventTimes
}

// NewSunCalc returns a calculator reporting times in loc. A nil loc means UTC.
func NewSunCalc(loc *time.Location) *SunCalc {
	if loc == nil {
		loc = time.UTC
	}
	return &SunCalc{loc: loc, cache: make(map[cacheKey]SunEventTimes)}
}

// Location returns the zone results are reported in
func (sc *SunCalc) Location() *time.Location { return sc.loc }

// GetSunEventTimes returns the sun events at lat/lon on the calendar day of
// date in the calculator's zone
func (sc *SunCalc) GetSunEventTimes(lat, lon float64, date time.Time) (SunEventTimes, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return SunEventTimes{}, fmt.Errorf("coordinates out of range: %.4f, %.4f", lat, lon)
	}

	local := date.In(sc.loc)
	key := cacheKey{lat: lat, lon: lon, date: local.Format(time.DateOnly)}

	sc.lock.RLock()
	times, ok := sc.cache[key]
	sc.lock.RUnlock()
	if ok {
		return times, nil
	}

	times, err := sc.calculate(astral.Observer{Latitude: lat, Longitude: lon}, local)
	if err != nil {
		return SunEventTimes{}, err
	}

	sc.lock.Lock()
	// Old days are never asked for again
	if len(sc.cache) > 1024 {
		clear(sc.cache)
	}
	sc.cache[key] = times
	sc.lock.Unlock()
	return times, nil
}

func (sc *SunCalc) calculate(obs astral.Observer, day time.Time) (SunEventTimes, error) {
	var out SunEventTimes
	events := []struct {
		name string
		dst  *time.Time
		fn   func() (time.Time, error)
	}{
		{"civil dawn", &out.CivilDawn, func() (time.Time, error) { return astral.Dawn(obs, day, astral.DepressionCivil) }},
		{"sunrise", &out.Sunrise, func() (time.Time, error) { return astral.Sunrise(obs, day) }},
		{"sunset", &out.Sunset, func() (time.Time, error) { return astral.Sunset(obs, day) }},
		{"civil dusk", &out.CivilDusk, func() (time.Time, error) { return astral.Dusk(obs, day, astral.DepressionCivil) }},
	}

	for _, e := range events {
		t, err := e.fn()
		if err != nil {
			return SunEventTimes{}, fmt.Errorf("failed to calculate %s: %w", e.name, err)
		}
		*e.dst = t.In(sc.loc)
	}
	return out, nil
}
