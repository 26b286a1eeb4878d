package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/licensecount/pkg/config"
	"github.com/Sumatoshi-tech/licensecount/pkg/mcp"
	"github.com/Sumatoshi-tech/licensecount/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		lf    logFlags
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes licensecount as tools that AI agents can discover and invoke:
  - licensecount_calculate: calculate licenses for a CSV file on disk
  - licensecount_calculate_inline: calculate licenses for CSV text passed in the call`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := lf.load(cobraCmd)
			if err != nil {
				return err
			}

			if debug {
				cfg.Logging.Level = "debug"
			}

			providers, err := initMCPObservability(cfg, cobraCmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer shutdownProviders(cobraCmd.Context(), providers)

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			runner, err := newRunner(cfg, providers)
			if err != nil {
				return err
			}

			srv, err := mcp.NewServer(mcp.ServerDeps{
				Runner:  runner,
				Logger:  providers.Logger,
				Metrics: red,
				Tracer:  providers.Tracer,
			})
			if err != nil {
				return err
			}

			return srv.Run(cobraCmd.Context())
		},
	}

	lf.register(cmd)
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

// initMCPObservability forces JSON logs on stderr; stdout carries the protocol.
func initMCPObservability(cfg *config.Config, stderr io.Writer) (observability.Providers, error) {
	obsCfg, err := observabilityConfig(cfg, observability.ModeMCP, stderr)
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg.LogJSON = true

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}
