// Package labels holds the label codec shared with the trained classifier and
// the normalizer that maps free-form region names onto it.
package labels

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// Label sets of the bundled model. Codes are list positions, and lists are
// sorted the way the training encoder sorted them.
var (
	defaultRegions = []string{
		"Andaman Sea",
		"Chennai Coast",
		"Goa Coast",
		"Kerala Coast",
		"Rameswaram",
		"Visakhapatnam",
	}
	defaultMonths = []string{
		"April", "August", "December", "February", "January", "July",
		"June", "March", "May", "November", "October", "September",
	}
	defaultSpecies = []string{
		"Anchovy",
		"Mackerel",
		"Pomfret",
		"Sardine",
		"Seer Fish",
		"Snapper",
		"Tuna",
	}
)

// Codec is the bijection between region, month and species labels and the
// integer codes the classifier was trained with. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	regions []string
	months  []string
	species []string

	regionIndex map[string]int
	monthIndex  map[string]int
}

// codecFile is the on-disk representation written next to a trained model
type codecFile struct {
	Regions []string `json:"regions" yaml:"regions"`
	Months  []string `json:"months" yaml:"months"`
	Species []string `json:"species" yaml:"species"`
}

// NewCodec builds a codec from ordered label lists.
func NewCodec(regions, months, species []string) (*Codec, error) {
	for _, set := range []struct {
		name   string
		labels []string
	}{
		{"region", regions},
		{"month", months},
		{"species", species},
	} {
		if err := validateLabelSet(set.name, set.labels); err != nil {
			return nil, err
		}
	}

	return &Codec{
		regions:     slices.Clone(regions),
		months:      slices.Clone(months),
		species:     slices.Clone(species),
		regionIndex: indexOf(regions),
		monthIndex:  indexOf(months),
	}, nil
}

// DefaultCodec returns the codec matching the bundled model
func DefaultCodec() *Codec {
	c, err := NewCodec(defaultRegions, defaultMonths, defaultSpecies)
	if err != nil {
		panic(fmt.Sprintf("built-in label codec is invalid: %v", err))
	}
	return c
}

// LoadCodec reads a codec from a JSON or YAML file
func LoadCodec(path string) (*Codec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from config
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryLabelLoad).
			FileContext(path).
			Build()
	}

	var cf codecFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cf)
	default:
		err = json.Unmarshal(data, &cf)
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("parse label codec: %w", err)).
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}

	c, err := NewCodec(cf.Regions, cf.Months, cf.Species)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryLabelLoad).
			FileContext(path).
			Build()
	}

	GetLogger().Info("label codec loaded",
		logger.String("path", path),
		logger.Int("regions", len(c.regions)),
		logger.Int("months", len(c.months)),
		logger.Int("species", len(c.species)))

	return c, nil
}

func validateLabelSet(name string, labels []string) error {
	if len(labels) == 0 {
		return fmt.Errorf("%s labels must not be empty", name)
	}

	fold := cases.Fold()
	seen := make(map[string]string, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			return fmt.Errorf("%s labels must not contain blank entries", name)
		}
		key := fold.String(l)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%s labels %q and %q differ only by case", name, prev, l)
		}
		seen[key] = l
	}
	return nil
}

func indexOf(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}

// Regions returns the canonical regions in code order
func (c *Codec) Regions() []string { return slices.Clone(c.regions) }

// Months returns the month labels in code order
func (c *Codec) Months() []string { return slices.Clone(c.months) }

// Species returns the species labels in code order
func (c *Codec) Species() []string { return slices.Clone(c.species) }

// EncodeRegion returns the code for a canonical region
func (c *Codec) EncodeRegion(region string) (int, error) {
	code, ok := c.regionIndex[region]
	if !ok {
		return 0, &EncodingError{Field: FieldRegion, Raw: region, Normalized: region}
	}
	return code, nil
}

// EncodeMonth returns the code for a month label. Matching is exact.
func (c *Codec) EncodeMonth(month string) (int, error) {
	code, ok := c.monthIndex[month]
	if !ok {
		return 0, &EncodingError{Field: FieldMonth, Month: month}
	}
	return code, nil
}

// Encode encodes a normalized region and a month. raw is the caller's
// original region string and is only used in the error.
func (c *Codec) Encode(raw, normalized, month string) (regionCode, monthCode int, err error) {
	regionCode, ok := c.regionIndex[normalized]
	if !ok {
		return 0, 0, &EncodingError{Field: FieldRegion, Raw: raw, Normalized: normalized, Month: month}
	}
	monthCode, ok = c.monthIndex[month]
	if !ok {
		return 0, 0, &EncodingError{Field: FieldMonth, Raw: raw, Normalized: normalized, Month: month}
	}
	return regionCode, monthCode, nil
}

// DecodeSpecies maps a class code back to its species label
func (c *Codec) DecodeSpecies(code int) (string, error) {
	if code < 0 || code >= len(c.species) {
		return "", fmt.Errorf("species code %d out of range [0,%d)", code, len(c.species))
	}
	return c.species[code], nil
}
