package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ParseCSV reads a price dataset in CSV form
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("csv is empty")
	}
	return parseRows(all[0], all[1:])
}

// LoadCSV reads a price dataset from a CSV file
func LoadCSV(path string) ([]Record, error) {
	f, err := os.Open(path) //nolint:gosec // path from config
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseCSV(f)
}
