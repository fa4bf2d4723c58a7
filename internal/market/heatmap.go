package market

import (
	"cmp"
	"slices"
)

const (
	heatCatchWeight = 0.6
	heatPriceWeight = 0.4
)

// HeatPoint aggregates the rows sharing one state and position
type HeatPoint struct {
	State            string  `json:"state"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	CatchProbability float64 `json:"catch_probability"`
	MinPrice         float64 `json:"min_price"`
	MaxPrice         float64 `json:"max_price"`
	Score            float64 `json:"score"`
}

type heatKey struct {
	state    string
	lat, lon float64
}

// Heatmap groups rows by (state, lat, lon) and scores each group as
// catch*0.6 + midPrice/maxGroupedMax*0.4. Points are ordered by state,
// then lat, then lon.
func (t *Table) Heatmap() []HeatPoint {
	type acc struct {
		catch, minP, maxP float64
		n                 int
	}
	groups := make(map[heatKey]*acc)
	for _, r := range t.records {
		k := heatKey{r.State, r.Lat, r.Lon}
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}
		a.catch += r.CatchProbability
		a.minP += r.MinPrice
		a.maxP += r.MaxPrice
		a.n++
	}

	points := make([]HeatPoint, 0, len(groups))
	var maxOfMax float64
	for k, a := range groups {
		n := float64(a.n)
		p := HeatPoint{
			State:            k.state,
			Lat:              k.lat,
			Lon:              k.lon,
			CatchProbability: a.catch / n,
			MinPrice:         a.minP / n,
			MaxPrice:         a.maxP / n,
		}
		maxOfMax = max(maxOfMax, p.MaxPrice)
		points = append(points, p)
	}

	for i := range points {
		p := &points[i]
		p.Score = p.CatchProbability * heatCatchWeight
		if maxOfMax > 0 {
			p.Score += (p.MaxPrice + p.MinPrice) / 2 / maxOfMax * heatPriceWeight
		}
	}

	slices.SortFunc(points, func(a, b HeatPoint) int {
		return cmp.Or(
			cmp.Compare(a.State, b.State),
			cmp.Compare(a.Lat, b.Lat),
			cmp.Compare(a.Lon, b.Lon),
		)
	})
	return points
}
