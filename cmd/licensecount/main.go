// Package main provides the entry point for the licensecount CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/licensecount/cmd/licensecount/commands"
	"github.com/Sumatoshi-tech/licensecount/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "licensecount",
		Short: "Minimum application license calculator",
		Long: `licensecount reads an installation export and reports the minimum number
of application copies an organisation must purchase.

Commands:
  run       Calculate licenses for a CSV file
  serve     Serve calculations over HTTP
  mcp       Serve calculations as MCP tools on stdio
  config    Inspect and validate configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "licensecount %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
