package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aquapredict/aquapredict-go/internal/api"
	"github.com/aquapredict/aquapredict-go/internal/app"
	"github.com/aquapredict/aquapredict-go/internal/buildinfo"
	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/observability"
	"github.com/aquapredict/aquapredict-go/internal/telemetry"
)

// sentryFlushTimeout bounds how long shutdown waits for queued error reports
const sentryFlushTimeout = 2 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  "Load the model and price table, then serve predictions and recommendations over HTTP until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				settings.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Server.Port = port
			}
			return Run(cmd.Context(), settings, build)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen address, empty for all interfaces")
	cmd.Flags().IntVarP(&port, "port", "p", 5000, "Listen port")

	return cmd
}

// Run starts the service and blocks until SIGINT or SIGTERM
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Global().Module("serve")
	defer func() {
		if err := logger.Global().Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()

	if err := telemetry.InitSentry(&settings.Sentry, telemetry.Options{Release: build.Version()}); err != nil {
		return fmt.Errorf("error initializing sentry: %w", err)
	}
	defer telemetry.Flush(sentryFlushTimeout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting AquaPredict",
		logger.String("version", build.Version()),
		logger.String("commit", build.Commit()),
		logger.String("backend", settings.Model.Backend),
		logger.String("prices", settings.Prices.Source))
	app.LogSystemInfo(settings)

	var metrics *observability.Metrics
	if settings.Metrics.Enabled {
		var err error
		metrics, err = observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("error initializing metrics: %w", err)
		}
	}

	a, err := app.New(ctx, settings, app.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to release model", logger.Error(err))
		}
	}()

	server, err := api.New(settings, a.Engine,
		api.WithMetrics(metrics),
		api.WithVersion(build.Version()))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })

	if metrics != nil && settings.Metrics.Listen != "" {
		endpoint, err := observability.NewEndpoint(&settings.Metrics, metrics)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error { return endpoint.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("AquaPredict stopped")
	return nil
}
