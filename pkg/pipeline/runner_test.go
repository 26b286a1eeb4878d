package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
	"github.com/Sumatoshi-tech/licensecount/pkg/loader"
	"github.com/Sumatoshi-tech/licensecount/pkg/observability"
	"github.com/Sumatoshi-tech/licensecount/pkg/pipeline"
)

const sample = `ComputerID,UserID,ApplicationID,ComputerType,Comment
1,1,374,LAPTOP,Exported from System A
2,1,374,DESKTOP,Exported from System A
3,2,374,DESKTOP,Exported from System A
4,2,374,DESKTOP,Exported from System A
4,2,374,desktop,Exported from System B
5,3,375,LAPTOP,Exported from System A
`

type harness struct {
	runner *pipeline.Runner
	spans  *tracetest.InMemoryExporter
	reader *sdkmetric.ManualReader
}

func newHarness(t *testing.T, settings pipeline.Settings) harness {
	t.Helper()

	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(context.Background()))
		require.NoError(t, mp.Shutdown(context.Background()))
	})

	metrics, err := observability.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	runner, err := pipeline.NewRunner(pipeline.Deps{
		Logger:  observability.DiscardLogger(),
		Tracer:  tp.Tracer("test"),
		Metrics: metrics,
	}, settings)
	require.NoError(t, err)

	return harness{runner: runner, spans: spans, reader: reader}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func spanNames(exporter *tracetest.InMemoryExporter) []string {
	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}

	return names
}

func counter(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}

			return total
		}
	}

	return 0
}

func TestNewRunner_NilLogger(t *testing.T) {
	t.Parallel()

	runner, err := pipeline.NewRunner(pipeline.Deps{}, pipeline.Settings{ApplicationID: 374})
	require.ErrorIs(t, err, pipeline.ErrInvalidArgument)
	assert.Nil(t, runner)
}

func TestRun_File(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.Settings{ApplicationID: 374})

	res, err := h.runner.Run(context.Background(), pipeline.Source{Path: writeFile(t, "installs.csv", sample)})
	require.NoError(t, err)

	assert.Equal(t, 374, res.ApplicationID)
	assert.Equal(t, 5, res.Records)
	assert.Equal(t, 4, res.Matched)
	assert.Equal(t, 3, res.Total)

	assert.ElementsMatch(t,
		[]string{"licensecount.load", "licensecount.calculate", "licensecount.run"},
		spanNames(h.spans))

	assert.Equal(t, int64(6), counter(t, h.reader, "licensecount.load.rows.total"))
	assert.Equal(t, int64(1), counter(t, h.reader, "licensecount.load.duplicates.total"))
	assert.Equal(t, int64(4), counter(t, h.reader, "licensecount.calc.matched.total"))
}

func TestRun_ReaderWithApplicationOverride(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.Settings{ApplicationID: 374})

	res, err := h.runner.Run(context.Background(), pipeline.Source{
		Reader:        strings.NewReader(sample),
		Name:          "upload",
		ApplicationID: 375,
	})
	require.NoError(t, err)

	assert.Equal(t, 375, res.ApplicationID)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 374, h.runner.ApplicationID())
}

func TestRun_LoadFailureSkipsCalculation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.Settings{ApplicationID: 374})

	_, err := h.runner.Run(context.Background(), pipeline.Source{
		Path: writeFile(t, "bad.csv", "Computer,User\n1,2\n"),
	})
	require.ErrorIs(t, err, loader.ErrFormat)

	names := spanNames(h.spans)
	assert.NotContains(t, names, "licensecount.calculate")

	for _, s := range h.spans.GetSpans() {
		assert.Equal(t, codes.Error, s.Status.Code, s.Name)
	}

	assert.Zero(t, counter(t, h.reader, "licensecount.calc.matched.total"))
}

func TestRun_ErrorClassesPropagate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.Settings{ApplicationID: 374})

	_, err := h.runner.Run(context.Background(), pipeline.Source{})
	require.ErrorIs(t, err, loader.ErrInvalidArgument)

	_, err = h.runner.Run(context.Background(), pipeline.Source{Path: filepath.Join(t.TempDir(), "missing.csv")})
	require.ErrorIs(t, err, loader.ErrNotFound)

	_, err = h.runner.Run(context.Background(), pipeline.Source{
		Path: writeFile(t, "broken.csv", "ComputerID,UserID,ApplicationID,ComputerType,Comment\nx,1,374,LAPTOP,\n"),
	})
	require.ErrorIs(t, err, loader.ErrIO)
}

func TestRun_PartitionedSettingsAgree(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "installs.csv", sample)

	sequential, err := newHarness(t, pipeline.Settings{ApplicationID: 374}).runner.
		Run(context.Background(), pipeline.Source{Path: path})
	require.NoError(t, err)

	partitioned, err := newHarness(t, pipeline.Settings{ApplicationID: 374, Workers: 4, ParallelThreshold: 1}).runner.
		Run(context.Background(), pipeline.Source{Path: path})
	require.NoError(t, err)

	assert.Equal(t, sequential, partitioned)
	assert.IsType(t, &license.Result{}, partitioned)
}
