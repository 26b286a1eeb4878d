package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/licensecount/pkg/observability"
)

func newManualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "POST /v1/licenses", observability.StatusOK, 20*time.Millisecond)
	red.RecordRequest(context.Background(), "POST /v1/licenses", observability.StatusError, time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "licensecount.requests.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "licensecount.errors.total")))
	assert.NotNil(t, findMetric(rm, "licensecount.request.duration.seconds"))
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "run")
	assert.Equal(t, int64(1), sumOf(t, findMetric(collectMetrics(t, reader), "licensecount.inflight.requests")))

	done()
	assert.Equal(t, int64(0), sumOf(t, findMetric(collectMetrics(t, reader), "licensecount.inflight.requests")))
}

func TestREDMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var red *observability.REDMetrics

	assert.NotPanics(t, func() {
		red.RecordRequest(context.Background(), "run", observability.StatusOK, time.Second)
		red.TrackInflight(context.Background(), "run")()
	})
}

func TestPipelineMetrics_RecordLoadAndCalculation(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	pm, err := observability.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	pm.RecordLoad(ctx, observability.LoadStats{Rows: 10, Duplicates: 3, Bytes: 512})
	pm.RecordLoad(ctx, observability.LoadStats{Rows: 5, Duplicates: 0, Bytes: 256})
	pm.RecordCalculation(ctx, observability.CalcStats{ApplicationID: 374, Matched: 7, Licenses: 4})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(15), sumOf(t, findMetric(rm, "licensecount.load.rows.total")))
	assert.Equal(t, int64(3), sumOf(t, findMetric(rm, "licensecount.load.duplicates.total")))
	assert.Equal(t, int64(768), sumOf(t, findMetric(rm, "licensecount.load.bytes.total")))
	assert.Equal(t, int64(7), sumOf(t, findMetric(rm, "licensecount.calc.matched.total")))

	hist := findMetric(rm, "licensecount.calc.licenses")
	require.NotNil(t, hist)

	data, ok := hist.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, int64(4), data.DataPoints[0].Sum)
}

func TestPipelineMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var pm *observability.PipelineMetrics

	assert.NotPanics(t, func() {
		pm.RecordLoad(context.Background(), observability.LoadStats{Rows: 1})
		pm.RecordCalculation(context.Background(), observability.CalcStats{Licenses: 1})
	})
}
