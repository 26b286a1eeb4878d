package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRowsTotal       = "licensecount.load.rows.total"
	metricDuplicatesTotal = "licensecount.load.duplicates.total"
	metricLoadBytesTotal  = "licensecount.load.bytes.total"
	metricMatchedTotal    = "licensecount.calc.matched.total"
	metricLicenses        = "licensecount.calc.licenses"

	attrApplication = "application_id"
)

// licenseBucketBoundaries spans single-user files to organisation-wide exports.
var licenseBucketBoundaries = []float64{0, 1, 10, 100, 1000, 10000, 100000, 1000000}

// PipelineMetrics holds OTel instruments for load and calculation statistics.
type PipelineMetrics struct {
	rowsTotal       metric.Int64Counter
	duplicatesTotal metric.Int64Counter
	bytesTotal      metric.Int64Counter
	matchedTotal    metric.Int64Counter
	licenses        metric.Int64Histogram
}

// LoadStats holds the statistics of one load, decoupled from loader types.
type LoadStats struct {
	Rows       int
	Duplicates int
	Bytes      int64
}

// CalcStats holds the statistics of one calculation.
type CalcStats struct {
	ApplicationID int
	Matched       int
	Licenses      int
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	rows, err := mt.Int64Counter(metricRowsTotal,
		metric.WithDescription("Total data rows read, duplicates included"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRowsTotal, err)
	}

	dups, err := mt.Int64Counter(metricDuplicatesTotal,
		metric.WithDescription("Total duplicate rows dropped"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDuplicatesTotal, err)
	}

	bytesTotal, err := mt.Int64Counter(metricLoadBytesTotal,
		metric.WithDescription("Total raw bytes consumed from sources"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLoadBytesTotal, err)
	}

	matched, err := mt.Int64Counter(metricMatchedTotal,
		metric.WithDescription("Total records matching the target application"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMatchedTotal, err)
	}

	licenses, err := mt.Int64Histogram(metricLicenses,
		metric.WithDescription("Minimum licenses per calculation"),
		metric.WithUnit("{license}"),
		metric.WithExplicitBucketBoundaries(licenseBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLicenses, err)
	}

	return &PipelineMetrics{
		rowsTotal:       rows,
		duplicatesTotal: dups,
		bytesTotal:      bytesTotal,
		matchedTotal:    matched,
		licenses:        licenses,
	}, nil
}

// RecordLoad records the statistics of a completed load.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordLoad(ctx context.Context, stats LoadStats) {
	if pm == nil {
		return
	}

	pm.rowsTotal.Add(ctx, int64(stats.Rows))
	pm.duplicatesTotal.Add(ctx, int64(stats.Duplicates))
	pm.bytesTotal.Add(ctx, stats.Bytes)
}

// RecordCalculation records the outcome of a completed calculation.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordCalculation(ctx context.Context, stats CalcStats) {
	if pm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Int(attrApplication, stats.ApplicationID))

	pm.matchedTotal.Add(ctx, int64(stats.Matched), attrs)
	pm.licenses.Record(ctx, int64(stats.Licenses), attrs)
}
