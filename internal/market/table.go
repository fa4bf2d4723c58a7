// Package market holds the read-only fish price table and the aggregate
// lookups used by recommendations and advisories.
package market

import (
	"fmt"
	"slices"
	"strings"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
)

// Record is one row of the price dataset
type Record struct {
	State            string  `json:"state" gorm:"column:state"`
	Species          string  `json:"species" gorm:"column:species"`
	MinPrice         float64 `json:"min_price" gorm:"column:min_price_rs_per_kg"`
	MaxPrice         float64 `json:"max_price" gorm:"column:max_price_rs_per_kg"`
	CatchProbability float64 `json:"catch_probability" gorm:"column:catch_probability"`
	SST              float64 `json:"sst" gorm:"column:sst_c"`
	Chlorophyll      float64 `json:"chlorophyll" gorm:"column:chlorophyll_mg_m3"`
	Lat              float64 `json:"lat" gorm:"column:lat"`
	Lon              float64 `json:"lon" gorm:"column:lon"`
}

// Table is the immutable price dataset. Region aggregates are computed on
// first use and cached for the life of the table. Safe for concurrent use.
type Table struct {
	records []Record
	folded  []foldedKeys

	regionPrices *cache.Cache
	group        singleflight.Group
}

type foldedKeys struct {
	state   string
	species string
}

// NewTable builds a table over a copy of records
func NewTable(records []Record) *Table {
	fold := cases.Fold()
	t := &Table{
		records:      slices.Clone(records),
		folded:       make([]foldedKeys, len(records)),
		regionPrices: cache.New(cache.NoExpiration, 0),
	}
	for i, r := range t.records {
		t.folded[i] = foldedKeys{state: fold.String(r.State), species: fold.String(r.Species)}
	}
	return t
}

// Len returns the number of records
func (t *Table) Len() int { return len(t.records) }

// Records returns a copy of all rows
func (t *Table) Records() []Record { return slices.Clone(t.records) }

// regionKey is the case-folded first word of region, the part matched
// against state names
func regionKey(region string) string {
	fields := strings.Fields(region)
	if len(fields) == 0 {
		return ""
	}
	return cases.Fold().String(fields[0])
}

// regionRows returns indexes of rows whose state contains the first word of
// region. An empty region matches nothing.
func (t *Table) regionRows(region string) []int {
	key := regionKey(region)
	if key == "" {
		return nil
	}
	var idx []int
	for i := range t.folded {
		if strings.Contains(t.folded[i].state, key) {
			idx = append(idx, i)
		}
	}
	return idx
}

// PricesForRegion returns the mean of (min+max)/2 per species over rows
// matching region. The result is empty, not an error, when nothing matches.
// Callers receive their own copy.
func (t *Table) PricesForRegion(region string) map[string]float64 {
	key := regionKey(region)
	if cached, ok := t.regionPrices.Get(key); ok {
		return copyPrices(cached.(map[string]float64))
	}

	v, _, _ := t.group.Do(key, func() (any, error) {
		if cached, ok := t.regionPrices.Get(key); ok {
			return cached, nil
		}
		prices := t.aggregateRegion(region)
		t.regionPrices.Set(key, prices, cache.NoExpiration)
		return prices, nil
	})
	return copyPrices(v.(map[string]float64))
}

func (t *Table) aggregateRegion(region string) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, i := range t.regionRows(region) {
		r := t.records[i]
		sums[r.Species] += (r.MinPrice + r.MaxPrice) / 2
		counts[r.Species]++
	}
	for species, n := range counts {
		sums[species] /= float64(n)
	}
	return sums
}

func copyPrices(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// PriceForSpecies returns the mean min and mean max price over rows whose
// species contains the query, case-insensitively
func (t *Table) PriceForSpecies(species string) (minAvg, maxAvg float64, ok bool) {
	query := cases.Fold().String(species)
	if query == "" {
		return 0, 0, false
	}
	var n int
	for i := range t.folded {
		if strings.Contains(t.folded[i].species, query) {
			minAvg += t.records[i].MinPrice
			maxAvg += t.records[i].MaxPrice
			n++
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	return minAvg / float64(n), maxAvg / float64(n), true
}

// SpeciesMaxPrice returns the mean max price of species within region.
// Species must match exactly.
func (t *Table) SpeciesMaxPrice(region, species string) (float64, bool) {
	var sum float64
	var n int
	for _, i := range t.regionRows(region) {
		if t.records[i].Species == species {
			sum += t.records[i].MaxPrice
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// RegionCatchProbability returns the mean catch probability over region rows
func (t *Table) RegionCatchProbability(region string) (float64, bool) {
	idx := t.regionRows(region)
	if len(idx) == 0 {
		return 0, false
	}
	var sum float64
	for _, i := range idx {
		sum += t.records[i].CatchProbability
	}
	return sum / float64(len(idx)), true
}

// RegionCoordinates returns the mean position of region rows
func (t *Table) RegionCoordinates(region string) (lat, lon float64, ok bool) {
	idx := t.regionRows(region)
	if len(idx) == 0 {
		return 0, 0, false
	}
	for _, i := range idx {
		lat += t.records[i].Lat
		lon += t.records[i].Lon
	}
	n := float64(len(idx))
	return lat / n, lon / n, true
}

// validate checks a single record loaded from an external source
func (r *Record) validate() error {
	switch {
	case strings.TrimSpace(r.State) == "":
		return fmt.Errorf("state is empty")
	case strings.TrimSpace(r.Species) == "":
		return fmt.Errorf("species is empty")
	case r.MinPrice < 0 || r.MaxPrice < 0:
		return fmt.Errorf("negative price")
	case r.CatchProbability < 0 || r.CatchProbability > 1:
		return fmt.Errorf("catch probability %.3f outside [0,1]", r.CatchProbability)
	case r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180:
		return fmt.Errorf("coordinates %.4f, %.4f out of range", r.Lat, r.Lon)
	}
	return nil
}
