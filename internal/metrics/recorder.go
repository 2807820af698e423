// Package metrics instruments replicate runs with OpenTelemetry.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/nvandessel/drsim/internal/models"
)

const meterName = "github.com/nvandessel/drsim"

// Metric names.
const (
	ReplicatesTotal   = "drsim_replicates_total"
	DivisionRiskTotal = "drsim_division_risk_total"
	EstimateValue     = "drsim_estimate_value"
)

// Recorder records per-replicate outcomes. A nil *Recorder is a no-op.
type Recorder struct {
	replicates metric.Int64Counter
	risks      metric.Int64Counter
	estimates  metric.Float64Histogram
}

// NewRecorder creates the instruments on the given provider.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(meterName)

	replicates, err := meter.Int64Counter(
		ReplicatesTotal,
		metric.WithDescription("Replicates evaluated, by status"),
		metric.WithUnit("{replicate}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating replicates counter: %w", err)
	}

	risks, err := meter.Int64Counter(
		DivisionRiskTotal,
		metric.WithDescription("Estimates flagged for propensities outside the safe band, by estimator"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating division risk counter: %w", err)
	}

	estimates, err := meter.Float64Histogram(
		EstimateValue,
		metric.WithDescription("Average treatment effect estimates, by estimator"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating estimate histogram: %w", err)
	}

	return &Recorder{replicates: replicates, risks: risks, estimates: estimates}, nil
}

// Noop returns a recorder backed by the no-op provider.
func Noop() *Recorder {
	r, _ := NewRecorder(noop.NewMeterProvider())
	return r
}

// RecordReplicate records one finished replicate.
func (r *Recorder) RecordReplicate(ctx context.Context, res models.ReplicateResult) {
	if r == nil {
		return
	}

	if res.Failed() {
		r.replicates.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "failed")))
		return
	}
	r.replicates.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))

	for kind, est := range res.Estimates {
		attrs := metric.WithAttributes(attribute.String("estimator", string(kind)))
		r.estimates.Record(ctx, est.Value, attrs)
		if est.Flagged() {
			r.risks.Add(ctx, 1, attrs)
		}
	}
}
