package market

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads a price dataset from a workbook. An empty sheet name
// selects the first sheet.
func ParseXLSX(r io.Reader, sheet string) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return parseRows(rows[0], rows[1:])
}

// LoadXLSX reads a price dataset from an .xlsx file
func LoadXLSX(path, sheet string) ([]Record, error) {
	f, err := os.Open(path) //nolint:gosec // path from config
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseXLSX(f, sheet)
}

// WriteXLSX writes records as a workbook with the dataset headers, the
// inverse of ParseXLSX
func WriteXLSX(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	header := []string{
		"state", "species", "min_price_Rs_per_kg", "max_price_Rs_per_kg",
		"catch_probability", "sst_C", "chlorophyll_mg_m3", "lat", "lon",
	}
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for row, r := range records {
		values := []any{r.State, r.Species, r.MinPrice, r.MaxPrice, r.CatchProbability, r.SST, r.Chlorophyll, r.Lat, r.Lon}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
