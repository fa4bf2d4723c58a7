package labels

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveNormalization(source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[source]++
}

func newTestNormalizer(t *testing.T, opts ...Option) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(DefaultCodec(), opts...)
	require.NoError(t, err)
	return n
}

func TestNormalizeCanonicalIsIdentity(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	for _, region := range DefaultCodec().Regions() {
		m := n.Resolve(region)
		assert.Equal(t, region, m.Region)
		assert.Equal(t, SourceExact, m.Source)
	}
}

func TestNormalizeAliases(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	for alias, want := range DefaultAliases() {
		m := n.Resolve(alias)
		assert.Equal(t, want, m.Region, alias)
		assert.Equal(t, SourceAlias, m.Source, alias)
	}

	assert.Equal(t, "Kerala Coast", n.Normalize("kochi backwaters"))

	// Built-in aliases fold case and surrounding space
	for _, raw := range []string{"kochi", "KOCHI", "  Kochi "} {
		m := n.Resolve(raw)
		assert.Equal(t, "Kerala Coast", m.Region, raw)
		assert.Equal(t, SourceAlias, m.Source, raw)
	}

	// Canonical labels still match exactly
	assert.Equal(t, SourceExact, n.Resolve("Goa Coast").Source)
	assert.NotEqual(t, SourceExact, n.Resolve("goa coast").Source)
}

func TestNormalizeRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		want   string
		source Source
	}{
		{"", "", SourceEmpty},
		{"Kerala Coast", "Kerala Coast", SourceExact},
		{"Kochi Backwaters", "Kerala Coast", SourceAlias},
		{"kerala", "Kerala Coast", SourceSubstring},
		{"GOA", "Goa Coast", SourceSubstring},
		{"Rameswaram Island Harbour", "Rameswaram", SourceSubstring},
		{"xyz-unknown", "Andaman Sea", SourceFallback},
		{"Atlantis", "Andaman Sea", SourceFallback},
	}

	n := newTestNormalizer(t)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			t.Parallel()
			m := n.Resolve(tt.input)
			assert.Equal(t, tt.want, m.Region)
			assert.Equal(t, tt.source, m.Source)
			assert.Equal(t, tt.input, m.Input)
		})
	}
}

func TestNormalizeGarbageLandsInCanonicalSet(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	canonical := DefaultCodec().Regions()
	for _, input := range []string{"!!!", "12345", "Mumbai", "ocean", "ñandú"} {
		assert.Contains(t, canonical, n.Normalize(input), input)
	}
}

func TestConfiguredAliases(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t, WithAliases(map[string]string{"Vizag": "Visakhapatnam"}))
	assert.Equal(t, "Visakhapatnam", n.Normalize("Vizag"))
	assert.Equal(t, "Visakhapatnam", n.Aliases()["Vizag"])
	assert.Equal(t, "Kerala Coast", n.Aliases()["Kochi"])

	_, err := NewNormalizer(DefaultCodec(), WithAliases(map[string]string{"Lost": "Atlantis"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown region")
}

func TestBuiltinAliasesSkippedForCustomCodec(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec([]string{"Bay of Bengal", "Palk Strait"}, []string{"May"}, []string{"Tuna"})
	require.NoError(t, err)

	n, err := NewNormalizer(codec)
	require.NoError(t, err)
	assert.Empty(t, n.Aliases())
	assert.Equal(t, "Bay of Bengal", n.Normalize("Kochi"))
}

func TestFallbackIsLoggedAndObserved(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	obs := &countingObserver{}
	n := newTestNormalizer(t,
		WithLogger(logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)),
		WithObserver(obs))

	n.Normalize("Kerala Coast")
	n.Normalize("nowhere")
	n.Normalize("")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "input=nowhere")
	assert.Equal(t, 1, obs.counts["fallback"])
	assert.Equal(t, 1, obs.counts["exact"])
	assert.Equal(t, 1, obs.counts["empty"])
}

func TestNormalizeConcurrent(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 100 {
				if i%2 == 0 {
					assert.Equal(t, "Kerala Coast", n.Normalize("Kochi"))
				} else {
					assert.Equal(t, "Goa Coast", n.Normalize("goa"))
				}
			}
		}(i)
	}
	wg.Wait()
}
