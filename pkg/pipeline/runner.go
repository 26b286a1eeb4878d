// Package pipeline runs the load-then-calculate sequence behind every
// licensecount entry point, wrapping each stage in a span and recording
// pipeline metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/licensecount/pkg/installation"
	"github.com/Sumatoshi-tech/licensecount/pkg/license"
	"github.com/Sumatoshi-tech/licensecount/pkg/loader"
	"github.com/Sumatoshi-tech/licensecount/pkg/observability"
)

const tracerName = "licensecount"

// ErrInvalidArgument indicates a missing dependency or an empty source.
var ErrInvalidArgument = errors.New("invalid argument")

// Deps holds injectable dependencies for a Runner.
// Zero-value fields other than Logger use production defaults.
type Deps struct {
	// Logger is required.
	Logger *slog.Logger

	// Tracer creates the run and stage spans. Nil uses the global provider.
	Tracer trace.Tracer

	// Metrics records load and calculation statistics. Nil disables them.
	Metrics *observability.PipelineMetrics
}

// Settings are the calculator knobs shared by every run.
type Settings struct {
	// ApplicationID is the default target application.
	ApplicationID int
	// Workers is the partition count for large inputs; below one means GOMAXPROCS.
	Workers int
	// ParallelThreshold is the distinct-user count that enables partitioning.
	ParallelThreshold int
}

// Source names the input of one run. Exactly one of Path or Reader is used,
// Reader taking precedence.
type Source struct {
	// Path is a file on disk, optionally lz4-compressed.
	Path string
	// Reader is an already-open delimited stream.
	Reader io.Reader
	// Name labels Reader in logs and errors.
	Name string
	// ApplicationID overrides the default target when positive.
	ApplicationID int
}

func (s Source) label() string {
	if s.Reader != nil {
		return s.Name
	}

	return s.Path
}

// Runner loads installation records and computes the license total.
type Runner struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.PipelineMetrics
	loader   *loader.Loader
	settings Settings
}

// NewRunner creates a Runner.
func NewRunner(deps Deps, settings Settings) (*Runner, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("%w: logger is nil", ErrInvalidArgument)
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	ld, err := loader.NewLoader(deps.Logger, loader.WithObserver(loadObserver{metrics: deps.Metrics}))
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}

	return &Runner{
		logger:   deps.Logger,
		tracer:   tracer,
		metrics:  deps.Metrics,
		loader:   ld,
		settings: settings,
	}, nil
}

// ApplicationID returns the default target application.
func (r *Runner) ApplicationID() int {
	return r.settings.ApplicationID
}

// Run loads src and calculates the license demand of its target application.
// Load and calculation run strictly in sequence; loader and calculator errors
// are returned with their class intact.
func (r *Runner) Run(ctx context.Context, src Source) (*license.Result, error) {
	appID := r.settings.ApplicationID
	if src.ApplicationID > 0 {
		appID = src.ApplicationID
	}

	ctx, span := r.tracer.Start(ctx, "licensecount.run",
		trace.WithAttributes(
			attribute.String("run.source", src.label()),
			attribute.Int("run.application_id", appID),
		))
	defer span.End()

	records, err := r.load(ctx, src)
	if err != nil {
		recordSpanError(span, err)

		return nil, err
	}

	res, err := r.calculate(ctx, appID, records)
	if err != nil {
		recordSpanError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.Int("run.licenses", res.Total))

	return res, nil
}

func (r *Runner) load(ctx context.Context, src Source) ([]installation.Record, error) {
	ctx, span := r.tracer.Start(ctx, "licensecount.load")
	defer span.End()

	var (
		records []installation.Record
		err     error
	)

	if src.Reader != nil {
		records, err = r.loader.LoadUniqueFrom(ctx, src.Reader, src.Name)
	} else {
		records, err = r.loader.LoadUnique(ctx, src.Path)
	}

	if err != nil {
		recordSpanError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.Int("load.records", len(records)))

	return records, nil
}

func (r *Runner) calculate(ctx context.Context, appID int, records []installation.Record) (*license.Result, error) {
	ctx, span := r.tracer.Start(ctx, "licensecount.calculate",
		trace.WithAttributes(attribute.Int("calc.records", len(records))))
	defer span.End()

	calc, err := license.NewCalculator(r.logger, appID,
		license.WithWorkers(r.settings.Workers),
		license.WithParallelThreshold(r.settings.ParallelThreshold),
	)
	if err != nil {
		recordSpanError(span, err)

		return nil, fmt.Errorf("create calculator: %w", err)
	}

	res, err := calc.Calculate(ctx, records)
	if err != nil {
		recordSpanError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("calc.matched", res.Matched),
		attribute.Int("calc.users", len(res.Users)),
		attribute.Int("calc.licenses", res.Total),
	)

	r.metrics.RecordCalculation(ctx, observability.CalcStats{
		ApplicationID: appID,
		Matched:       res.Matched,
		Licenses:      res.Total,
	})

	return res, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// loadObserver forwards loader statistics to the pipeline metrics.
type loadObserver struct {
	metrics *observability.PipelineMetrics
}

func (o loadObserver) ObserveLoad(ctx context.Context, stats loader.Stats) {
	o.metrics.RecordLoad(ctx, observability.LoadStats{
		Rows:       stats.Rows,
		Duplicates: stats.Duplicates,
		Bytes:      stats.Bytes,
	})
}
