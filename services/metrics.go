package services

import (
	"context"
	"time"
)

// MetricsRecorder is satisfied by aws_pkg.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// NopMetrics discards every data point.
type NopMetrics struct{}

func (NopMetrics) RecordCount(context.Context, string, map[string]string) error { return nil }

func (NopMetrics) RecordValue(context.Context, string, float64, map[string]string) error {
	return nil
}

func (NopMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

type asyncMetrics struct {
	next MetricsRecorder
}

// NewAsyncMetrics sends every data point from its own goroutine with a short
// deadline, so CloudWatch latency never reaches the request path. Errors are dropped.
func NewAsyncMetrics(next MetricsRecorder) MetricsRecorder {
	return &asyncMetrics{next: next}
}

func (m *asyncMetrics) run(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = fn(ctx)
	}()
}

func (m *asyncMetrics) RecordCount(_ context.Context, metricName string, dimensions map[string]string) error {
	m.run(func(ctx context.Context) error { return m.next.RecordCount(ctx, metricName, dimensions) })
	return nil
}

func (m *asyncMetrics) RecordValue(_ context.Context, metricName string, value float64, dimensions map[string]string) error {
	m.run(func(ctx context.Context) error { return m.next.RecordValue(ctx, metricName, value, dimensions) })
	return nil
}

func (m *asyncMetrics) RecordLatency(_ context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	m.run(func(ctx context.Context) error { return m.next.RecordLatency(ctx, metricName, duration, dimensions) })
	return nil
}
