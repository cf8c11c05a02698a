package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AnalysisMetrics holds the instruments recorded by analysis runs and the
// HTTP API. A nil *AnalysisMetrics records nothing.
type AnalysisMetrics struct {
	AnalysesTotal    metric.Int64Counter
	AnalysisFailures metric.Int64Counter
	AnalysisDuration metric.Float64Histogram
	StageDuration    metric.Float64Histogram
	ActiveAnalyses   metric.Int64UpDownCounter
	WellsProcessed   metric.Int64Counter
	RowsDropped      metric.Int64Counter
	OutliersRemoved  metric.Int64Counter

	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter
}

// AnalysisObservation is what one finished analysis reports to metrics.
type AnalysisObservation struct {
	Source          string // cli, batch, http
	Duration        time.Duration
	Wells           int
	RowsDropped     int
	OutliersRemoved int
	ErrorCode       string // empty on success
}

// NewAnalysisMetrics creates the analysis instruments on meter.
func NewAnalysisMetrics(meter metric.Meter) (*AnalysisMetrics, error) {
	m := &AnalysisMetrics{}
	var err error

	if m.AnalysesTotal, err = meter.Int64Counter("ddct.analyses",
		metric.WithDescription("Analyses run, by source and status")); err != nil {
		return nil, fmt.Errorf("analyses counter: %w", err)
	}
	if m.AnalysisFailures, err = meter.Int64Counter("ddct.analysis.failures",
		metric.WithDescription("Failed analyses, by error code")); err != nil {
		return nil, fmt.Errorf("failures counter: %w", err)
	}
	if m.AnalysisDuration, err = meter.Float64Histogram("ddct.analysis.duration",
		metric.WithDescription("End-to-end analysis duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10)); err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}
	if m.StageDuration, err = meter.Float64Histogram("ddct.stage.duration",
		metric.WithDescription("Duration of one pipeline stage"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("stage histogram: %w", err)
	}
	if m.ActiveAnalyses, err = meter.Int64UpDownCounter("ddct.analyses.active",
		metric.WithDescription("Analyses currently running")); err != nil {
		return nil, fmt.Errorf("active counter: %w", err)
	}
	if m.WellsProcessed, err = meter.Int64Counter("ddct.wells.processed",
		metric.WithDescription("Wells that reached the output tables")); err != nil {
		return nil, fmt.Errorf("wells counter: %w", err)
	}
	if m.RowsDropped, err = meter.Int64Counter("ddct.rows.dropped",
		metric.WithDescription("Input rows dropped for unparseable Cq")); err != nil {
		return nil, fmt.Errorf("rows counter: %w", err)
	}
	if m.OutliersRemoved, err = meter.Int64Counter("ddct.outliers.removed",
		metric.WithDescription("Wells removed by the outlier filter")); err != nil {
		return nil, fmt.Errorf("outliers counter: %w", err)
	}

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests, by method, route and status")); err != nil {
		return nil, fmt.Errorf("http counter: %w", err)
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("http histogram: %w", err)
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("In-flight HTTP requests")); err != nil {
		return nil, fmt.Errorf("http active counter: %w", err)
	}

	return m, nil
}

// RecordAnalysis records one finished analysis.
func (m *AnalysisMetrics) RecordAnalysis(ctx context.Context, obs AnalysisObservation) {
	if m == nil {
		return
	}

	status := "success"
	if obs.ErrorCode != "" {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("source", obs.Source),
		attribute.String("status", status),
	)
	m.AnalysesTotal.Add(ctx, 1, attrs)
	m.AnalysisDuration.Record(ctx, obs.Duration.Seconds(), attrs)

	if obs.ErrorCode != "" {
		m.AnalysisFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", obs.Source),
			attribute.String("error_code", obs.ErrorCode),
		))
		return
	}

	src := metric.WithAttributes(attribute.String("source", obs.Source))
	m.WellsProcessed.Add(ctx, int64(obs.Wells), src)
	m.RowsDropped.Add(ctx, int64(obs.RowsDropped), src)
	m.OutliersRemoved.Add(ctx, int64(obs.OutliersRemoved), src)
}

// RecordStage records the duration of one pipeline stage.
func (m *AnalysisMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// TrackActive adjusts the running-analyses gauge.
func (m *AnalysisMetrics) TrackActive(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActiveAnalyses.Add(ctx, delta)
}

// RecordHTTPRequest records one served request.
func (m *AnalysisMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), attrs)
}

// TrackHTTPActive adjusts the in-flight request gauge.
func (m *AnalysisMetrics) TrackHTTPActive(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.HTTPActiveRequests.Add(ctx, delta)
}
