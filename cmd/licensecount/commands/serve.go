package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/licensecount/pkg/config"
	"github.com/Sumatoshi-tech/licensecount/pkg/observability"
	"github.com/Sumatoshi-tech/licensecount/pkg/server"
)

const (
	flagHost = "host"
	flagPort = "port"
)

// ServeCommand holds flags for the serve command.
type ServeCommand struct {
	logFlags

	host string
	port int
}

// NewServeCommand creates the HTTP server command.
func NewServeCommand() *cobra.Command {
	sc := &ServeCommand{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve license calculations over HTTP",
		Long: `Start an HTTP server exposing:
  POST /v1/licenses?app=<id>&format=<json|yaml|text>  calculate from a CSV body
  GET  /healthz                                       liveness probe
  GET  /metrics                                       Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: sc.run,
	}

	sc.register(cmd)

	cmd.Flags().StringVar(&sc.host, flagHost, "", "Listen host (overrides server.host)")
	cmd.Flags().IntVar(&sc.port, flagPort, 0, "Listen port (overrides server.port)")

	return cmd
}

func (sc *ServeCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := sc.load(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed(flagHost) {
		cfg.Server.Host = sc.host
	}

	if cmd.Flags().Changed(flagPort) {
		cfg.Server.Port = sc.port
	}

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, providers, err := buildServer(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer shutdownProviders(ctx, providers)

	err = srv.Start(ctx)
	if err != nil {
		return err
	}

	<-ctx.Done()

	providers.Logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.WriteTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// buildServer initializes telemetry with a Prometheus reader and assembles the HTTP server.
func buildServer(ctx context.Context, cfg *config.Config, logWriter io.Writer) (*server.Server, observability.Providers, error) {
	maxBody, err := cfg.Server.MaxBodyBytes()
	if err != nil {
		return nil, observability.Providers{}, err
	}

	reader, metricsHandler, err := observability.NewPrometheusReader()
	if err != nil {
		return nil, observability.Providers{}, err
	}

	obsCfg, err := observabilityConfig(cfg, observability.ModeServe, logWriter)
	if err != nil {
		return nil, observability.Providers{}, err
	}

	obsCfg.MetricReaders = append(obsCfg.MetricReaders, reader)

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	srv, err := assembleServer(cfg, providers, maxBody, metricsHandler)
	if err != nil {
		shutdownProviders(ctx, providers)

		return nil, observability.Providers{}, err
	}

	return srv, providers, nil
}

func assembleServer(
	cfg *config.Config,
	providers observability.Providers,
	maxBody int64,
	metricsHandler http.Handler,
) (*server.Server, error) {
	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	runner, err := newRunner(cfg, providers)
	if err != nil {
		return nil, err
	}

	return server.New(
		server.Options{
			Addr:         cfg.Server.Addr(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			MaxBodyBytes: maxBody,
		},
		server.Deps{
			Runner:         runner,
			Logger:         providers.Logger,
			Tracer:         providers.Tracer,
			Metrics:        red,
			MetricsHandler: metricsHandler,
		},
	)
}
