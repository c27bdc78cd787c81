package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted by Init.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

type Options struct {
	ServiceName string
	// Exporter is ExporterNone or ExporterStdout. With none, spans and
	// metrics are still recorded in process but never written out.
	Exporter       string
	Writer         io.Writer
	MetricInterval time.Duration
}

type noopSpanExporter struct{}

func (noopSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }

func (noopSpanExporter) Shutdown(context.Context) error { return nil }

// Init installs global tracer and meter providers and returns a function
// that flushes and stops them.
func Init(ctx context.Context, opts Options) (func(context.Context) error, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "reading-companion"
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.MetricInterval <= 0 {
		opts.MetricInterval = time.Minute
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", opts.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	var (
		spanExporter sdktrace.SpanExporter
		meterOpts    = []sdkmetric.Option{sdkmetric.WithResource(res)}
	)
	switch opts.Exporter {
	case ExporterNone, "":
		spanExporter = noopSpanExporter{}
	case ExporterStdout:
		spanExporter, err = stdouttrace.New(stdouttrace.WithWriter(opts.Writer))
		if err != nil {
			return nil, fmt.Errorf("build span exporter: %w", err)
		}
		metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.Writer))
		if err != nil {
			return nil, fmt.Errorf("build metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(opts.MetricInterval))))
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	meterProvider := sdkmetric.NewMeterProvider(meterOpts...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			meterProvider.Shutdown(ctx),
			tracerProvider.Shutdown(ctx),
		)
	}
	return shutdown, nil
}
