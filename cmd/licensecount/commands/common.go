// Package commands implements CLI command handlers for licensecount.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/licensecount/pkg/config"
	"github.com/Sumatoshi-tech/licensecount/pkg/observability"
	"github.com/Sumatoshi-tech/licensecount/pkg/pipeline"
	"github.com/Sumatoshi-tech/licensecount/pkg/version"
)

// Flag names shared by several commands.
const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagLogJSON  = "log-json"
)

// logFlags holds the logging overrides every long-running command accepts.
type logFlags struct {
	configPath string
	level      string
	json       bool
}

func (lf *logFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.configPath, flagConfig, "", "Config file path (default: ./.licensecount.yaml or ~/.licensecount.yaml)")
	cmd.Flags().StringVar(&lf.level, flagLogLevel, "", "Log level: debug, info, warn, error (overrides logging.level)")
	cmd.Flags().BoolVar(&lf.json, flagLogJSON, false, "Emit JSON logs (overrides logging.format)")
}

// load reads the configuration and applies the logging flags that were set.
func (lf *logFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(lf.configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed(flagLogLevel) {
		cfg.Logging.Level = lf.level
	}

	if cmd.Flags().Changed(flagLogJSON) && lf.json {
		cfg.Logging.Format = config.FormatJSON
	}

	return cfg, nil
}

// observabilityConfig maps application settings onto the telemetry setup.
func observabilityConfig(cfg *config.Config, mode observability.AppMode, logWriter io.Writer) (observability.Config, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.DebugTrace = cfg.Logging.Level == "debug"
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.Format == config.FormatJSON
	obsCfg.LogWriter = logWriter

	return obsCfg, nil
}

// newRunner wires a pipeline runner to the initialized providers.
func newRunner(cfg *config.Config, providers observability.Providers) (*pipeline.Runner, error) {
	metrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create pipeline metrics: %w", err)
	}

	return pipeline.NewRunner(
		pipeline.Deps{Logger: providers.Logger, Tracer: providers.Tracer, Metrics: metrics},
		pipeline.Settings{
			ApplicationID:     cfg.License.TargetApplicationID,
			Workers:           cfg.License.Workers,
			ParallelThreshold: cfg.License.ParallelThreshold,
		},
	)
}

// shutdownProviders flushes telemetry and logs a failure instead of masking the command error.
func shutdownProviders(ctx context.Context, providers observability.Providers) {
	err := providers.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}
