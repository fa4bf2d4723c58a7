// Package app wires settings into a ready recommendation engine. Both the
// server and the one-shot CLI commands start here.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sync/errgroup"

	"github.com/aquapredict/aquapredict-go/internal/advisory"
	"github.com/aquapredict/aquapredict-go/internal/classifier"
	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/cpuspec"
	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/httpclient"
	"github.com/aquapredict/aquapredict-go/internal/labels"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/market"
	"github.com/aquapredict/aquapredict-go/internal/observability"
	"github.com/aquapredict/aquapredict-go/internal/recommend"
	"github.com/aquapredict/aquapredict-go/internal/suncalc"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the app package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("app")
	})
	return serviceLogger
}

// App holds the loaded engine and the resources behind it
type App struct {
	Settings *conf.Settings
	Engine   *recommend.Engine
	Metrics  *observability.Metrics // nil when metrics are disabled

	classifier classifier.Classifier
	client     *httpclient.Client
}

// Option configures New
type Option func(*options)

type options struct {
	metrics    *observability.Metrics
	httpClient *httpclient.Client
	clock      func() time.Time
}

// WithMetrics records loading, normalization, prediction and
// recommendation outcomes on m
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHTTPClient sets the client used by the remote model backend
func WithHTTPClient(c *httpclient.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock overrides the engine clock
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New loads the label codec, then the model and price table concurrently,
// and builds the engine. Any load failure aborts startup.
func New(ctx context.Context, settings *conf.Settings, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := GetLogger()

	codec, err := loadCodec(settings.Model.CodecPath)
	if err != nil {
		return nil, err
	}

	var normalizerOpts []labels.Option
	if o.metrics != nil {
		normalizerOpts = append(normalizerOpts, labels.WithObserver(o.metrics.Normalizer))
	}
	normalizer, err := NewNormalizer(settings, codec, normalizerOpts...)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(settings.Advisory.Timezone)
	if err != nil {
		return nil, errors.New(err).
			Component("advisory").
			Category(errors.CategoryConfiguration).
			Context("timezone", settings.Advisory.Timezone).
			Build()
	}

	client := o.httpClient
	ownClient := false
	if client == nil && settings.Model.Backend == conf.BackendRemote {
		cfg := httpclient.DefaultConfig()
		if settings.Model.Timeout > 0 {
			cfg.DefaultTimeout = settings.Model.Timeout
		}
		client = httpclient.New(&cfg)
		ownClient = true
	}

	var (
		clf    classifier.Classifier
		prices *market.Table
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		c, err := classifier.Load(&settings.Model, codec.Species(), client)
		if o.metrics != nil {
			o.metrics.Prediction.RecordModelLoad(settings.Model.Backend, err)
		}
		if err != nil {
			return err
		}
		clf = c
		log.Info("model loaded",
			logger.String("backend", c.Backend()),
			logger.Int("classes", len(c.Classes())),
			logger.Duration("load_time", time.Since(start)))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		t, err := market.Load(gctx, &settings.Prices)
		if o.metrics != nil {
			records := 0
			if t != nil {
				records = t.Len()
			}
			o.metrics.Market.RecordLoad(settings.Prices.Source, records, time.Since(start), err)
		}
		if err != nil {
			return err
		}
		prices = t
		return nil
	})

	if err := g.Wait(); err != nil {
		if clf != nil {
			_ = clf.Close()
		}
		if ownClient {
			client.Close()
		}
		return nil, err
	}

	if o.metrics != nil {
		clf = classifier.WithRecorder(clf, o.metrics.Prediction)
	}

	cfg := recommend.Config{
		Codec:      codec,
		Normalizer: normalizer,
		Classifier: clf,
		Prices:     prices,
		Advisor:    advisory.NewSeeded(settings.Advisory.Seed),
		SunCalc:    suncalc.NewSunCalc(loc),
		Clock:      o.clock,
	}
	if o.metrics != nil {
		cfg.Observer = o.metrics.Recommendation
	}

	engine, err := recommend.New(cfg)
	if err != nil {
		_ = clf.Close()
		if ownClient {
			client.Close()
		}
		return nil, err
	}

	a := &App{
		Settings:   settings,
		Engine:     engine,
		Metrics:    o.metrics,
		classifier: clf,
	}
	if ownClient {
		a.client = client
	}
	return a, nil
}

// Close releases the model and any HTTP client the app created
func (a *App) Close() error {
	if a.client != nil {
		a.client.Close()
	}
	if err := a.classifier.Close(); err != nil {
		return fmt.Errorf("close classifier: %w", err)
	}
	return nil
}

// LoadCodec returns the codec at path, or the built-in codec when path is empty
func LoadCodec(path string) (*labels.Codec, error) {
	return loadCodec(path)
}

func loadCodec(path string) (*labels.Codec, error) {
	if path == "" {
		return labels.DefaultCodec(), nil
	}
	return labels.LoadCodec(path)
}

// NewNormalizer builds the region normalizer for codec with the aliases
// from settings
func NewNormalizer(settings *conf.Settings, codec *labels.Codec, opts ...labels.Option) (*labels.Normalizer, error) {
	opts = append([]labels.Option{labels.WithAliases(aliasMap(settings.Labels.Aliases))}, opts...)
	normalizer, err := labels.NewNormalizer(codec, opts...)
	if err != nil {
		return nil, errors.New(err).
			Component("labels").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return normalizer, nil
}

// aliasMap flattens configured aliases
func aliasMap(aliases []conf.AliasSetting) map[string]string {
	out := make(map[string]string, len(aliases))
	for _, a := range aliases {
		out[a.Name] = a.Region
	}
	return out
}

// LogSystemInfo logs host and CPU details once at startup
func LogSystemInfo(settings *conf.Settings) {
	log := GetLogger()

	spec := cpuspec.GetCPUSpec()
	fields := []logger.Field{
		logger.String("cpu", spec.BrandName),
		logger.Int("logical_cores", spec.LogicalCores),
		logger.Int("inference_threads", cpuspec.ThreadCount(settings.Model.Threads)),
	}

	info, err := host.Info()
	if err != nil {
		log.Warn("failed to read host info", logger.Error(err))
	} else {
		fields = append(fields,
			logger.String("os", info.OS),
			logger.String("platform", info.Platform),
			logger.String("platform_version", info.PlatformVersion),
			logger.String("arch", info.KernelArch))
	}

	log.Info("system details", fields...)
}
