package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/licensecount/pkg/config"
	"github.com/Sumatoshi-tech/licensecount/pkg/license"
	"github.com/Sumatoshi-tech/licensecount/pkg/loader"
	"github.com/Sumatoshi-tech/licensecount/pkg/observability"
	"github.com/Sumatoshi-tech/licensecount/pkg/pipeline"
	"github.com/Sumatoshi-tech/licensecount/pkg/report"
)

// Messages shown on the interactive path.
const (
	PromptPath         = "Please enter a valid path to the CSV file :"
	MessageUnsupported = "The utility only supports CSV format. Please rerun the utility with a CSV file."
)

const (
	flagApp     = "app"
	flagFormat  = "format"
	flagOutput  = "output"
	flagWorkers = "workers"
	flagNoColor = "no-color"
)

// RunOptions is everything one calculation needs once flags are resolved.
type RunOptions struct {
	Config *config.Config
	Path   string
	Output string
}

type runExecutor func(ctx context.Context, opts RunOptions, stdout, stderr io.Writer) error

// RunCommand holds flags and dependencies for the run command.
type RunCommand struct {
	logFlags

	app     int
	format  string
	output  string
	workers int
	noColor bool

	exec runExecutor
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(executeRun)
}

func newRunCommandWithDeps(exec runExecutor) *cobra.Command {
	rc := &RunCommand{exec: exec}

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Calculate the minimum number of licenses for a CSV file",
		Long: `Read an installation export and print the minimum number of application
copies required. Without a file argument the path is read from stdin.
Files ending in .csv.lz4 are decompressed on the fly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	rc.register(cmd)

	cmd.Flags().IntVar(&rc.app, flagApp, 0, "Target application id (overrides license.target_application_id)")
	cmd.Flags().StringVar(&rc.format, flagFormat, "", "Output format: text, json, yaml, plot (overrides output.format)")
	cmd.Flags().StringVarP(&rc.output, flagOutput, "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().IntVar(&rc.workers, flagWorkers, 0, "Calculator workers for large inputs (0 = use CPU count)")
	cmd.Flags().BoolVar(&rc.noColor, flagNoColor, false, "Disable colored text output")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	path, err := rc.resolvePath(cmd, args)
	if err != nil {
		return err
	}

	if !loader.HasCSVExtension(path) {
		fmt.Fprintln(cmd.OutOrStdout(), MessageUnsupported)

		return nil
	}

	cfg, err := rc.load(cmd)
	if err != nil {
		return err
	}

	rc.applyFlags(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}

	return rc.exec(cmd.Context(), RunOptions{Config: cfg, Path: path, Output: rc.output}, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func (rc *RunCommand) resolvePath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), PromptPath)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read path: %w", err)
	}

	return strings.TrimSpace(line), nil
}

func (rc *RunCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed(flagApp) {
		cfg.License.TargetApplicationID = rc.app
	}

	if flags.Changed(flagWorkers) {
		cfg.License.Workers = rc.workers
	}

	if flags.Changed(flagFormat) {
		cfg.Output.Format = rc.format
	}

	if rc.noColor || rc.output != "" {
		cfg.Output.Color = false
	}
}

func executeRun(ctx context.Context, opts RunOptions, stdout, stderr io.Writer) (err error) {
	obsCfg, err := observabilityConfig(opts.Config, observability.ModeCLI, stderr)
	if err != nil {
		return err
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(ctx)))
	}()

	runner, err := newRunner(opts.Config, providers)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, pipeline.Source{Path: opts.Path})
	if err != nil {
		return err
	}

	return writeReport(opts, res, stdout)
}

func writeReport(opts RunOptions, res *license.Result, stdout io.Writer) (err error) {
	writer := stdout

	if opts.Output != "" {
		file, createErr := os.Create(opts.Output)
		if createErr != nil {
			return fmt.Errorf("create output %s: %w", opts.Output, createErr)
		}

		defer func() {
			err = errors.Join(err, file.Close())
		}()

		writer = file
	}

	return report.Render(writer, opts.Config.Output.Format, res, report.Options{
		Color:  opts.Config.Output.Color,
		Source: opts.Path,
	})
}
