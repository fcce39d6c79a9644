// Package observe holds runledger's OpenTelemetry metric instruments and
// the Prometheus bridge the daemon serves on /metrics.
//
// Tests should build their own [Metrics] with [NewMetrics] over a
// ManualReader-backed provider; [DefaultMetrics] uses the global provider.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/theirongolddev/runledger"

// Metrics holds every instrument runledger records. Safe for concurrent use.
type Metrics struct {
	// FilesAnalyzed counts chat log files by outcome: "found", "empty",
	// "skipped" or "failed".
	FilesAnalyzed metric.Int64Counter

	// RecordsProduced counts finalized run records that survived dedup.
	RecordsProduced metric.Int64Counter

	// Duplicates counts records dropped by the ledger or the in-run set.
	Duplicates metric.Int64Counter

	// MalformedLines counts lines whose numbers failed to parse.
	MalformedLines metric.Int64Counter

	// FileDuration tracks per-file read plus analysis time.
	FileDuration metric.Float64Histogram

	// BatchDuration tracks whole-batch time.
	BatchDuration metric.Float64Histogram

	// Commits counts records committed to the store.
	Commits metric.Int64Counter

	// PendingRecords is the size of the daemon's pending set.
	PendingRecords metric.Int64UpDownCounter

	// HTTPRequestDuration tracks daemon request time by method and path.
	HTTPRequestDuration metric.Float64Histogram
}

var durationBuckets = []float64{
	0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FilesAnalyzed, err = m.Int64Counter("runledger.files.analyzed",
		metric.WithDescription("Chat log files processed, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.RecordsProduced, err = m.Int64Counter("runledger.records.produced",
		metric.WithDescription("Run records produced after deduplication."),
	); err != nil {
		return nil, err
	}
	if met.Duplicates, err = m.Int64Counter("runledger.records.duplicates",
		metric.WithDescription("Run records dropped as already seen or filled."),
	); err != nil {
		return nil, err
	}
	if met.MalformedLines, err = m.Int64Counter("runledger.lines.malformed",
		metric.WithDescription("Recognized lines whose amounts could not be parsed."),
	); err != nil {
		return nil, err
	}
	if met.FileDuration, err = m.Float64Histogram("runledger.file.duration",
		metric.WithDescription("Time to read and analyze one chat log."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BatchDuration, err = m.Float64Histogram("runledger.batch.duration",
		metric.WithDescription("Time to run one analysis batch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Commits, err = m.Int64Counter("runledger.records.committed",
		metric.WithDescription("Run records committed to the store."),
	); err != nil {
		return nil, err
	}
	if met.PendingRecords, err = m.Int64UpDownCounter("runledger.records.pending",
		metric.WithDescription("Records analyzed but not yet committed."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("runledger.http.request.duration",
		metric.WithDescription("Daemon HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on the global
// meter provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFile records one processed file.
func (m *Metrics) RecordFile(ctx context.Context, outcome string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.FilesAnalyzed.Add(ctx, 1, attrs)
	m.FileDuration.Record(ctx, seconds, attrs)
}
