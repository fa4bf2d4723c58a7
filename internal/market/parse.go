package market

import (
	"fmt"
	"strconv"
	"strings"
)

// Dataset column names
const (
	colState       = "state"
	colSpecies     = "species"
	colMinPrice    = "min_price_rs_per_kg"
	colMaxPrice    = "max_price_rs_per_kg"
	colCatchProb   = "catch_probability"
	colSST         = "sst_c"
	colChlorophyll = "chlorophyll_mg_m3"
	colLat         = "lat"
	colLon         = "lon"
)

// requiredColumns must be present in every tabular source. SST and
// chlorophyll are informational and may be absent.
var requiredColumns = []string{
	colState, colSpecies, colMinPrice, colMaxPrice, colCatchProb, colLat, colLon,
}

// columnIndex maps lower-cased header names to positions. Unknown columns
// are ignored.
type columnIndex map[string]int

func newColumnIndex(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (ci columnIndex) text(row []string, col string) string {
	i, ok := ci[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (ci columnIndex) number(row []string, col string, required bool) (float64, error) {
	s := ci.text(row, col)
	if s == "" {
		if required {
			return 0, fmt.Errorf("%s is empty", col)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	return v, nil
}

// record converts one data row
func (ci columnIndex) record(row []string) (Record, error) {
	r := Record{
		State:   ci.text(row, colState),
		Species: ci.text(row, colSpecies),
	}

	numbers := []struct {
		col      string
		dst      *float64
		required bool
	}{
		{colMinPrice, &r.MinPrice, true},
		{colMaxPrice, &r.MaxPrice, true},
		{colCatchProb, &r.CatchProbability, true},
		{colSST, &r.SST, false},
		{colChlorophyll, &r.Chlorophyll, false},
		{colLat, &r.Lat, true},
		{colLon, &r.Lon, true},
	}
	for _, n := range numbers {
		v, err := ci.number(row, n.col, n.required)
		if err != nil {
			return Record{}, err
		}
		*n.dst = v
	}

	if err := r.validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// parseRows converts a header and data rows into records. Blank rows are
// skipped; line numbers in errors are 1-based and count the header.
func parseRows(header []string, rows [][]string) ([]Record, error) {
	ci, err := newColumnIndex(header)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		r, err := ci.record(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
