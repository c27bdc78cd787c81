// Package telemetry records spans and metrics for stage calls through the
// global OpenTelemetry providers installed by Init.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/HiranMayiNathi23/ai-reading-companion"

var (
	instrumentsOnce sync.Once
	stageCalls      metric.Int64Counter
	stageFailures   metric.Int64Counter
	cacheHits       metric.Int64Counter
	stageLatency    metric.Float64Histogram
)

func instruments() {
	instrumentsOnce.Do(func() {
		m := otel.Meter(instrumentation)
		stageCalls, _ = m.Int64Counter("reader.stage.calls",
			metric.WithDescription("Adapter invocations per stage"))
		stageFailures, _ = m.Int64Counter("reader.stage.failures",
			metric.WithDescription("Failed adapter invocations per stage"))
		cacheHits, _ = m.Int64Counter("reader.cache.hits",
			metric.WithDescription("Stage requests answered from the session cache"))
		stageLatency, _ = m.Float64Histogram("reader.stage.latency_ms",
			metric.WithDescription("Adapter latency (ms)"))
	})
}

// StageRecorder tracks one adapter invocation.
type StageRecorder struct {
	start time.Time
	span  trace.Span
	attrs []attribute.KeyValue
}

// StartStage opens a span for an adapter call and counts it.
func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, *StageRecorder) {
	instruments()
	attrs = append([]attribute.KeyValue{attribute.String("reader.stage", stage)}, attrs...)

	ctx, span := otel.Tracer(instrumentation).Start(ctx, "stage."+stage, trace.WithAttributes(attrs...))
	if stageCalls != nil {
		stageCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	return ctx, &StageRecorder{start: time.Now(), span: span, attrs: attrs}
}

// End closes the span, recording err when the call failed.
func (r *StageRecorder) End(err error) {
	if r == nil {
		return
	}
	ctx := context.Background()
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
		if stageFailures != nil {
			stageFailures.Add(ctx, 1, metric.WithAttributes(r.attrs...))
		}
	}
	if stageLatency != nil {
		ms := float64(time.Since(r.start).Microseconds()) / 1000
		stageLatency.Record(ctx, ms, metric.WithAttributes(r.attrs...))
	}
	r.span.End()
}

// CacheHit counts a stage request served without calling the adapter.
func CacheHit(ctx context.Context, stage string) {
	instruments()
	if cacheHits != nil {
		cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("reader.stage", stage)))
	}
}
