package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aquapredict/aquapredict-go/internal/advisory"
	"github.com/aquapredict/aquapredict-go/internal/classifier"
	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/labels"
	"github.com/aquapredict/aquapredict-go/internal/market"
	"github.com/aquapredict/aquapredict-go/internal/observability"
	"github.com/aquapredict/aquapredict-go/internal/recommend"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2026, time.May, 14, 9, 0, 0, 0, time.UTC)

// stubClassifier returns the same distribution for every input
type stubClassifier struct {
	classes []string
	probs   []float64
	err     error
	seen    chan classifier.FeatureVector
}

func (s *stubClassifier) Backend() string   { return "stub" }
func (s *stubClassifier) Classes() []string { return s.classes }
func (s *stubClassifier) Close() error      { return nil }

func (s *stubClassifier) PredictProba(_ context.Context, fv classifier.FeatureVector) (classifier.Distribution, error) {
	select {
	case s.seen <- fv:
	default:
	}
	if s.err != nil {
		return nil, s.err
	}
	d := make(classifier.Distribution, len(s.classes))
	for i, c := range s.classes {
		d[i] = classifier.SpeciesProbability{Species: c, Probability: s.probs[i]}
	}
	return d, nil
}

func (s *stubClassifier) Predict(ctx context.Context, fv classifier.FeatureVector) (string, error) {
	d, err := s.PredictProba(ctx, fv)
	if err != nil {
		return "", err
	}
	top, _ := d.Top()
	return top.Species, nil
}

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

func testSettings() *conf.Settings {
	return &conf.Settings{
		Server: conf.ServerSettings{
			BodyLimit:       "1M",
			CORSOrigins:     []string{"*"},
			LegacyRoutes:    true,
			ShutdownTimeout: 2 * time.Second,
		},
		Metrics: conf.MetricsSettings{Enabled: true, Path: "/metrics"},
	}
}

type testServer struct {
	*Server
	clf     *stubClassifier
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, clf *stubClassifier, mutate func(*conf.Settings)) *testServer {
	t.Helper()

	codec := labels.DefaultCodec()
	norm, err := labels.NewNormalizer(codec)
	require.NoError(t, err)

	if clf == nil {
		clf = &stubClassifier{classes: codec.Species(), probs: testProbs}
	}
	clf.seen = make(chan classifier.FeatureVector, 1)

	engine, err := recommend.New(recommend.Config{
		Codec:      codec,
		Normalizer: norm,
		Classifier: clf,
		Prices:     market.NewTable(testRecords),
		Advisor:    advisory.New(constSource(0)),
		Clock:      func() time.Time { return testNow },
	})
	require.NoError(t, err)

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	settings := testSettings()
	if mutate != nil {
		mutate(settings)
	}

	s, err := New(settings, engine, WithMetrics(metrics), WithVersion("test"))
	require.NoError(t, err)
	return &testServer{Server: s, clf: clf, metrics: metrics}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.Echo().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRegionsServedOnBothPrefixes(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	for _, path := range []string{"/api/v2/regions", "/regions"} {
		rec := ts.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)

		resp := decode[RegionsResponse](t, rec)
		assert.Equal(t, labels.DefaultCodec().Regions(), resp.Regions, path)
	}
}

func TestLegacyRoutesCanBeDisabled(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, func(s *conf.Settings) { s.Server.LegacyRoutes = false })

	rec := ts.do(t, http.MethodGet, "/regions", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NotEmpty(t, resp.CorrelationID)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v2/regions", "").Code)
}

func TestPredictAppliesDefaults(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/api/v2/predict", `{"region":"Kochi Backwaters","month":"May","temperature":28}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[PredictResponse](t, rec)
	assert.Equal(t, "Sardine", resp.PredictedSpecies)

	fv := <-ts.clf.seen
	assert.Equal(t, 3, fv.Region)
	assert.Equal(t, 8, fv.Month)
	assert.InDelta(t, 28.0, fv.Temperature, 1e-12)
	assert.Zero(t, fv.Salinity)
	assert.Zero(t, fv.Oxygen)
}

func TestPredictProbaIsRanked(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/predict_proba", `{"region":"Kerala Coast","month":"May"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ranked := decode[[]classifier.SpeciesProbability](t, rec)
	require.Len(t, ranked, 7)
	assert.Equal(t, "Sardine", ranked[0].Species)
	assert.Equal(t, "Mackerel", ranked[1].Species)
	assert.Equal(t, "Seer Fish", ranked[2].Species)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Probability, ranked[i].Probability)
	}
}

func TestRecommendation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/api/v2/recommendation", `{"region":"Kochi Backwaters","month":"May"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Kerala Coast", resp["region"])
	assert.Equal(t, "Seer Fish", resp["recommended"])
	assert.InDelta(t, 0.2, resp["confidence"], 1e-12)
	assert.InDelta(t, 750.0, resp["price"], 1e-12)
	assert.Equal(t, "Seer Fish has high abundance and strong market price in Kerala Coast", resp["reason"])
	assert.NotContains(t, resp, "scores")
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		body     string
		failing  bool
		want     int
		contains string
	}{
		{
			name:     "unknown month",
			path:     "/api/v2/recommendation",
			body:     `{"region":"Kochi","month":"Mayy"}`,
			want:     http.StatusBadRequest,
			contains: "encoding failed for region/month - region:Kochi -> Kerala Coast, month:Mayy",
		},
		{
			name:     "empty region",
			path:     "/api/v2/predict",
			body:     `{"month":"May"}`,
			want:     http.StatusBadRequest,
			contains: "encoding failed",
		},
		{
			name:     "no price rows",
			path:     "/api/v2/recommendation",
			body:     `{"region":"Andaman Sea","month":"May"}`,
			want:     http.StatusNotFound,
			contains: "no price data",
		},
		{
			name:     "malformed body",
			path:     "/api/v2/predict",
			body:     `{"region":`,
			want:     http.StatusBadRequest,
			contains: "code=400",
		},
		{
			name:     "wrong type",
			path:     "/api/v2/predict",
			body:     `{"region":"Goa Coast","month":"May","temperature":"warm"}`,
			want:     http.StatusBadRequest,
			contains: "code=400",
		},
		{
			name:     "model failure",
			path:     "/api/v2/predict",
			body:     `{"region":"Goa Coast","month":"May"}`,
			failing:  true,
			want:     http.StatusInternalServerError,
			contains: "model crashed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var clf *stubClassifier
			if tt.failing {
				clf = &stubClassifier{classes: labels.DefaultCodec().Species(), err: fmt.Errorf("model crashed")}
			}
			ts := newTestServer(t, clf, nil)

			rec := ts.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.want, resp.Code)
			assert.Contains(t, resp.Error, tt.contains)
			assert.NotEmpty(t, resp.Message)
			assert.NotEmpty(t, resp.CorrelationID)
		})
	}
}

func TestCorrelationIDFollowsRequestID(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/api/v2/recommendation", `{"region":"Andaman Sea","month":"May"}`,
		"X-Request-ID", "req-42")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", decode[ErrorResponse](t, rec).CorrelationID)
}

func TestAdvancedPredictWithoutPrice(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/advanced_predict", `{"region":"Andaman Sea","month":"May"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "N/A", resp["price"])
	assert.Equal(t, "Sardine", resp["species"])
	assert.Equal(t, string(advisory.RiskLow), resp["risk"])
	assert.Equal(t, "Best chance to catch Sardine today near Andaman Sea!", resp["message"])
}

func TestPredictMarketDefaultsOxygen(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/api/v2/predict_market", `{"region":"Kochi"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fv := <-ts.clf.seen
	assert.InDelta(t, DefaultMarketOxygen, fv.Oxygen, 1e-12)

	resp := decode[recommend.MarketForecast](t, rec)
	assert.Equal(t, "Sardine", resp.PredictedSpecies)
	assert.InDelta(t, 21.6, resp.ExpectedCatchKg, 1e-9)
	assert.Equal(t, recommend.KnownPrice(130), resp.PriceForecast)
	assert.InDelta(t, 0.3, resp.Confidence, 1e-12)
}

func TestTrends(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/api/v2/trends7d", "")
	require.Equal(t, http.StatusOK, rec.Code)
	series := decode[market.TrendSeries](t, rec)
	assert.Equal(t, DefaultTrendSpecies, series.Species)
	assert.Len(t, series.Series, 7)

	rec = ts.do(t, http.MethodGet, "/trends7d?species=Sardine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	series = decode[market.TrendSeries](t, rec)
	assert.Equal(t, "Sardine", series.Species)
	assert.Equal(t, "2026-05-14", series.Series[0].Date)
}

func TestHeatmap(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/api/v2/heatmap", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HeatmapResponse](t, rec)
	require.Len(t, resp.Locations, 2)
	assert.Equal(t, "Goa", resp.Locations[0].State)
	assert.Equal(t, "Kerala", resp.Locations[1].State)
}

func TestConditions(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/api/v2/region/conditions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cond := decode[advisory.Conditions](t, rec)
	assert.Equal(t, "5 km/h W", cond.Wind)
	assert.Equal(t, advisory.DefaultTide, cond.Tide)
	assert.InDelta(t, 0.5, cond.WaveHeight, 1e-12)

	rec = ts.do(t, http.MethodGet, "/region/conditions?lat=0&lng=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cond = decode[advisory.Conditions](t, rec)
	assert.InDelta(t, 26.7, cond.Temperature, 1e-9)
	assert.InDelta(t, 34.8, cond.Salinity, 1e-9)

	rec = ts.do(t, http.MethodGet, "/region/conditions?lat=north", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "stub", resp.Model.Backend)
	assert.Equal(t, 7, resp.Model.Classes)
	assert.Equal(t, len(testRecords), resp.Prices.Records)
	assert.Positive(t, resp.System.Goroutines)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	ts.do(t, http.MethodPost, "/api/v2/recommendation", `{"region":"Andaman Sea","month":"May"}`)

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="POST",path="/api/v2/recommendation",status_code="404"} 1`)
	assert.Contains(t, body, `http_request_errors_total{error_type="not-found",method="POST",path="/api/v2/recommendation"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsMoveToSeparateListener(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, func(s *conf.Settings) { s.Metrics.Listen = "127.0.0.1:0" })

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/metrics", "").Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, func(s *conf.Settings) {
		s.Server.RateLimit = 1
		s.Server.RateBurst = 1
	})

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/regions", "").Code)

	rec := ts.do(t, http.MethodGet, "/regions", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "rate limit exceeded", resp.Message)

	// Metrics stay reachable while a client is throttled
	metrics := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `http_rate_limited_total{path="/regions"} 1`)
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/api/v2/regions", "", "Origin", "https://example.com")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil, func(s *conf.Settings) { s.Server.BodyLimit = "64B" })

	body := fmt.Sprintf(`{"region":%q,"month":"May"}`, strings.Repeat("x", 200))
	rec := ts.do(t, http.MethodPost, "/api/v2/predict", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(testSettings(), nil)
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.BodyLimit = "lots"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RateLimit = -1
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ReadTimeout = 0
	require.Error(t, cfg.Validate())

	require.NoError(t, DefaultConfig().Validate())
}

func TestServeStopsOnCancel(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
