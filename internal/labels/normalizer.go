package labels

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// Source records which rule resolved a region name
type Source string

const (
	SourceExact     Source = "exact"
	SourceAlias     Source = "alias"
	SourceSubstring Source = "substring"
	SourceFallback  Source = "fallback"
	SourceEmpty     Source = "empty"
)

// Match is the outcome of normalizing one region name
type Match struct {
	Input  string `json:"input"`
	Region string `json:"region"`
	Source Source `json:"source"`
}

// Observer is notified of every normalization, e.g. to count fallbacks
type Observer interface {
	ObserveNormalization(source string)
}

// DefaultAliases returns the built-in friendly name table
func DefaultAliases() map[string]string {
	return map[string]string{
		"Kochi Backwaters": "Kerala Coast",
		"Kochi":            "Kerala Coast",
		"Ernakulam":        "Kerala Coast",
		"Goa Bay":          "Goa Coast",
		"Panaji":           "Goa Coast",
		"Chennai Marina":   "Chennai Coast",
		"Marina Beach":     "Chennai Coast",
		"Mumbai Harbor":    "Visakhapatnam",
	}
}

// Normalizer maps free-form region names onto the canonical region set.
// It holds no mutable state after construction.
type Normalizer struct {
	canonical []string
	exact     map[string]struct{}
	aliases   map[string]string // case-folded alias -> canonical region
	names     map[string]string // case-folded alias -> alias as configured
	observer  Observer
	log       logger.Logger
}

// Option configures a Normalizer
type Option func(*Normalizer) error

// WithAliases adds aliases on top of the built-in table. Every target must
// be a canonical region.
func WithAliases(aliases map[string]string) Option {
	return func(n *Normalizer) error {
		fold := cases.Fold()
		for name, region := range aliases {
			if _, ok := n.exact[region]; !ok {
				return fmt.Errorf("alias %q targets unknown region %q", name, region)
			}
			key := fold.String(strings.TrimSpace(name))
			n.aliases[key] = region
			n.names[key] = name
		}
		return nil
	}
}

// WithObserver registers an observer for normalization outcomes
func WithObserver(o Observer) Option {
	return func(n *Normalizer) error {
		n.observer = o
		return nil
	}
}

// WithLogger overrides the package logger
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) error {
		n.log = l
		return nil
	}
}

// NewNormalizer builds a normalizer over the codec's regions with the
// built-in aliases and any options applied.
func NewNormalizer(codec *Codec, opts ...Option) (*Normalizer, error) {
	regions := codec.Regions()
	n := &Normalizer{
		canonical: regions,
		exact:     make(map[string]struct{}, len(regions)),
		aliases:   make(map[string]string),
		names:     make(map[string]string),
		log:       GetLogger(),
	}
	for _, r := range regions {
		n.exact[r] = struct{}{}
	}

	// Built-in aliases whose target a custom codec lacks are skipped
	builtin := make(map[string]string)
	for name, region := range DefaultAliases() {
		if _, ok := n.exact[region]; ok {
			builtin[name] = region
		}
	}
	all := append([]Option{WithAliases(builtin)}, opts...)
	for _, opt := range all {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Normalize returns the canonical region for raw. It never fails; empty
// input is returned unchanged.
func (n *Normalizer) Normalize(raw string) string {
	return n.Resolve(raw).Region
}

// Resolve normalizes raw and reports which rule matched
func (n *Normalizer) Resolve(raw string) Match {
	m := n.resolve(raw)
	if n.observer != nil {
		n.observer.ObserveNormalization(string(m.Source))
	}
	switch m.Source {
	case SourceFallback:
		n.log.Warn("region not recognized, using fallback",
			logger.String("input", raw),
			logger.String("region", m.Region))
	case SourceAlias, SourceSubstring:
		n.log.Debug("region normalized",
			logger.String("input", raw),
			logger.String("region", m.Region),
			logger.String("source", string(m.Source)))
	}
	return m
}

func (n *Normalizer) resolve(raw string) Match {
	if raw == "" {
		return Match{Input: raw, Region: raw, Source: SourceEmpty}
	}
	if _, ok := n.exact[raw]; ok {
		return Match{Input: raw, Region: raw, Source: SourceExact}
	}

	// Caser is not safe for concurrent use, one per call
	fold := cases.Fold()
	key := fold.String(strings.TrimSpace(raw))
	if region, ok := n.aliases[key]; ok {
		return Match{Input: raw, Region: region, Source: SourceAlias}
	}

	for _, region := range n.canonical {
		r := fold.String(region)
		if strings.Contains(r, key) || strings.Contains(key, r) {
			return Match{Input: raw, Region: region, Source: SourceSubstring}
		}
	}

	return Match{Input: raw, Region: n.canonical[0], Source: SourceFallback}
}

// Regions returns the canonical regions in codec order
func (n *Normalizer) Regions() []string {
	return slices.Clone(n.canonical)
}

// Aliases returns the alias table keyed by alias name as configured
func (n *Normalizer) Aliases() map[string]string {
	out := make(map[string]string, len(n.aliases))
	for key, region := range n.aliases {
		out[n.names[key]] = region
	}
	return out
}
