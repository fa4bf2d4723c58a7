package recommend

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquapredict/aquapredict-go/internal/advisory"
	"github.com/aquapredict/aquapredict-go/internal/classifier"
	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/labels"
	"github.com/aquapredict/aquapredict-go/internal/market"
)

var testNow = time.Date(2026, time.May, 14, 9, 0, 0, 0, time.UTC)

// fixedClassifier returns the same distribution for every input
type fixedClassifier struct {
	classes []string
	probs   []float64
	err     error
	seen    []classifier.FeatureVector
}

func (f *fixedClassifier) Backend() string   { return "fixed" }
func (f *fixedClassifier) Classes() []string { return f.classes }
func (f *fixedClassifier) Close() error      { return nil }

func (f *fixedClassifier) PredictProba(_ context.Context, fv classifier.FeatureVector) (classifier.Distribution, error) {
	f.seen = append(f.seen, fv)
	if f.err != nil {
		return nil, f.err
	}
	d := make(classifier.Distribution, len(f.classes))
	for i, c := range f.classes {
		d[i] = classifier.SpeciesProbability{Species: c, Probability: f.probs[i]}
	}
	return d, nil
}

func (f *fixedClassifier) Predict(ctx context.Context, fv classifier.FeatureVector) (string, error) {
	d, err := f.PredictProba(ctx, fv)
	if err != nil {
		return "", err
	}
	top, _ := d.Top()
	return top.Species, nil
}

// constSource pins every random draw to the low end of its range
type constSource uint64

func (s constSource) Uint64() uint64 { return uint64(s) }

// Anchovy, Mackerel, Pomfret, Sardine, Seer Fish, Snapper, Tuna
var testProbs = []float64{0.1, 0.2, 0.1, 0.3, 0.2, 0.05, 0.05}

var testRecords = []market.Record{
	{State: "Kerala", Species: "Sardine", MinPrice: 100, MaxPrice: 160, CatchProbability: 0.6, Lat: 9.93, Lon: 76.26},
	{State: "Kerala", Species: "Seer Fish", MinPrice: 700, MaxPrice: 800, CatchProbability: 0.6, Lat: 9.93, Lon: 76.26},
	{State: "Kerala", Species: "Mackerel", MinPrice: 150, MaxPrice: 250, CatchProbability: 0.6, Lat: 9.93, Lon: 76.26},
	{State: "Goa", Species: "Pomfret", MinPrice: 400, MaxPrice: 600, CatchProbability: 0.4, Lat: 15.49, Lon: 73.82},
}

type recordingObserver struct {
	species  []string
	unpriced []int
}

func (o *recordingObserver) ObserveRecommendation(species string, unpriced int) {
	o.species = append(o.species, species)
	o.unpriced = append(o.unpriced, unpriced)
}

func newTestEngine(t *testing.T, clf classifier.Classifier, records []market.Record) *Engine {
	t.Helper()
	codec := labels.DefaultCodec()
	norm, err := labels.NewNormalizer(codec)
	require.NoError(t, err)
	if clf == nil {
		clf = &fixedClassifier{classes: codec.Species(), probs: testProbs}
	}
	e, err := New(Config{
		Codec:      codec,
		Normalizer: norm,
		Classifier: clf,
		Prices:     market.NewTable(records),
		Advisor:    advisory.New(constSource(0)),
		Clock:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return e
}

func TestNewValidatesDependencies(t *testing.T) {
	t.Parallel()

	codec := labels.DefaultCodec()
	norm, err := labels.NewNormalizer(codec)
	require.NoError(t, err)

	_, err = New(Config{Normalizer: norm})
	require.Error(t, err)

	_, err = New(Config{
		Codec:      codec,
		Normalizer: norm,
		Classifier: &fixedClassifier{classes: []string{"A", "B"}, probs: []float64{0.5, 0.5}},
		Prices:     market.NewTable(nil),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelInit))
}

func TestNormalizeAliasScenario(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil, testRecords)
	in, err := e.Normalize(Request{Region: "Kochi Backwaters", Month: "May", Temperature: 28})
	require.NoError(t, err)

	assert.Equal(t, "Kerala Coast", in.Region)
	assert.Equal(t, labels.SourceAlias, in.Source)
	assert.Equal(t, 3, in.Features.Region)
	assert.Equal(t, 8, in.Features.Month)
	assert.InDelta(t, 28.0, in.Features.Temperature, 1e-12)
}

func TestEncodingErrorNamesRegionAndMonth(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil, testRecords)
	_, err := e.Recommend(context.Background(), Request{Region: "Kochi", Month: "Mayy"})
	require.Error(t, err)

	var encErr *labels.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, labels.FieldMonth, encErr.Field)
	assert.Equal(t, "encoding failed for region/month - region:Kochi -> Kerala Coast, month:Mayy", err.Error())
	assert.True(t, errors.IsCategory(err, errors.CategoryEncoding))
}

func TestEmptyRegionFailsToEncode(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil, testRecords)
	_, _, err := e.Predict(context.Background(), Request{Month: "May"})

	var encErr *labels.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, labels.FieldRegion, encErr.Field)
}

func TestPredictWithBundledForest(t *testing.T) {
	t.Parallel()

	codec := labels.DefaultCodec()
	forest, err := classifier.LoadForest("", codec.Species())
	require.NoError(t, err)

	e := newTestEngine(t, forest, testRecords)
	req := Request{Region: "Chennai Marina", Month: "May", Temperature: 28, Salinity: 34, Oxygen: 6}

	species, in, err := e.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, codec.Species(), species)
	assert.Equal(t, "Chennai Coast", in.Region)

	ranked, err := e.PredictProba(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, ranked, len(codec.Species()))

	sum := 0.0
	for i, sp := range ranked {
		sum += sp.Probability
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].Probability, sp.Probability)
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Equal(t, species, ranked[0].Species)
}

func TestRecommend(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil, testRecords)
	obs := &recordingObserver{}
	e.observer = obs

	rec, err := e.Recommend(context.Background(), Request{Region: "Kochi Backwaters", Month: "May"})
	require.NoError(t, err)

	assert.Equal(t, "Kerala Coast", rec.Region)
	assert.Equal(t, "Seer Fish", rec.Recommended)
	assert.InDelta(t, 0.2, rec.Confidence, 1e-12)
	assert.Equal(t, KnownPrice(750), rec.Price)
	assert.Equal(t, "Seer Fish has high abundance and strong market price in Kerala Coast", rec.Reason)
	assert.Equal(t, []string{"Anchovy", "Pomfret", "Snapper", "Tuna"}, rec.Unpriced)
	require.Len(t, rec.Scores, 7)
	assert.Equal(t, "Seer Fish", rec.Ranked()[0].Species)

	assert.Equal(t, []string{"Seer Fish"}, obs.species)
	assert.Equal(t, []int{4}, obs.unpriced)
}

func TestRecommendWithoutPriceRows(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil, testRecords)
	_, err := e.Recommend(context.Background(), Request{Region: "Andaman Sea", Month: "May"})
	require.Error(t, err)

	var noPrice *market.NoPriceDataError
	require.ErrorAs(t, err, &noPrice)
	assert.Equal(t, "Andaman Sea", noPrice.Region)
	assert.True(t, errors.IsNotFound(err))
}

func TestRecommendPropagatesModelErrors(t *testing.T) {
	t.Parallel()

	codec := labels.DefaultCodec()
	e := newTestEngine(t, &fixedClassifier{classes: codec.Species(), err: fmt.Errorf("boom")}, testRecords)
	_, err := e.Recommend(context.Background(), Request{Region: "Kerala Coast", Month: "May"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInference))
}

func TestScoreSpeciesTieBreaksInClassOrder(t *testing.T) {
	t.Parallel()

	dist := classifier.Distribution{
		{Species: "A", Probability: 0.25},
		{Species: "B", Probability: 0.5},
		{Species: "C", Probability: 0.25},
	}
	scores, unpriced, err := ScoreSpecies(dist, map[string]float64{"A": 100, "B": 50, "C": 100})
	require.NoError(t, err)
	assert.Empty(t, unpriced)

	best := bestScore(scores)
	assert.Equal(t, "A", best.Species)
	assert.InDelta(t, 0.25, best.Score, 1e-12)
}

func TestScoreSpeciesRejectsDegeneratePrices(t *testing.T) {
	t.Parallel()

	dist := classifier.Distribution{{Species: "A", Probability: 1}}
	_, _, err := ScoreSpecies(dist, map[string]float64{"A": 0})
	require.Error(t, err)
	_, _, err = ScoreSpecies(dist, nil)
	require.Error(t, err)
	_, _, err = ScoreSpecies(nil, map[string]float64{"A": 1})
	require.Error(t, err)
}

func TestScoreIsMonotonicInPrice(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	species := []string{"A", "B", "C", "D"}
	for range 500 {
		dist := make(classifier.Distribution, len(species))
		prices := make(map[string]float64)
		for i, s := range species {
			dist[i] = classifier.SpeciesProbability{Species: s, Probability: rng.Float64()}
			if rng.IntN(4) > 0 {
				prices[s] = 1 + rng.Float64()*900
			}
		}
		prices["A"] = 1 + rng.Float64()*900

		target := species[rng.IntN(len(species))]
		before, _, err := ScoreSpecies(dist, prices)
		require.NoError(t, err)

		raised := make(map[string]float64, len(prices))
		for k, v := range prices {
			raised[k] = v
		}
		current, ok := raised[target]
		if !ok {
			current = neutralPrice
		}
		raised[target] = current + rng.Float64()*500

		after, _, err := ScoreSpecies(dist, raised)
		require.NoError(t, err)

		idx := indexOfSpecies(before, target)
		assert.GreaterOrEqual(t, after[idx].Score, before[idx].Score-1e-12,
			"raising %s from %v to %v lowered its score", target, current, raised[target])
	}
}

func indexOfSpecies(scores []Score, species string) int {
	for i, s := range scores {
		if s.Species == species {
			return i
		}
	}
	return -1
}
