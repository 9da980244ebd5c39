package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "sicreport"
	ServiceVersion = "1.0.0"
	meterName      = "sicreport"
)

// OTelProviders holds the configured OpenTelemetry providers plus the
// Prometheus handler the HTTP server mounts at /metrics.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Metrics        *PipelineMetrics
}

// PipelineMetrics are the counters recorded per pipeline run.
type PipelineMetrics struct {
	CodesProcessed   metric.Int64Counter
	FetchFailures    metric.Int64Counter
	ReportsGenerated metric.Int64Counter
	RowsAggregated   metric.Int64Counter
}

// InitializeOTel sets up tracing (stdout exporter) and metrics
// (Prometheus exporter) for the process.
func InitializeOTel(logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(metricExporter),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter(meterName, metric.WithInstrumentationVersion(ServiceVersion))
	metrics, err := createPipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	logger.InfoContext(ctx, "observability initialized",
		slog.String("trace_exporter", "stdout"),
		slog.String("metric_exporter", "prometheus"))

	return &OTelProviders{
		TracerProvider: tp,
		MeterProvider:  mp,
		Tracer:         tp.Tracer(meterName, trace.WithInstrumentationVersion(ServiceVersion)),
		Meter:          meter,
		PrometheusHTTP: promhttp.Handler(),
		Metrics:        metrics,
	}, nil
}

func createPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	codesProcessed, err := meter.Int64Counter("sicreport_codes_processed_total",
		metric.WithDescription("SIC codes processed by the pipeline"))
	if err != nil {
		return nil, err
	}
	fetchFailures, err := meter.Int64Counter("sicreport_fetch_failures_total",
		metric.WithDescription("Registry fetches that failed"))
	if err != nil {
		return nil, err
	}
	reportsGenerated, err := meter.Int64Counter("sicreport_reports_generated_total",
		metric.WithDescription("Workbook reports generated"))
	if err != nil {
		return nil, err
	}
	rowsAggregated, err := meter.Int64Counter("sicreport_rows_aggregated_total",
		metric.WithDescription("Rows merged into unified tables"))
	if err != nil {
		return nil, err
	}
	return &PipelineMetrics{
		CodesProcessed:   codesProcessed,
		FetchFailures:    fetchFailures,
		ReportsGenerated: reportsGenerated,
		RowsAggregated:   rowsAggregated,
	}, nil
}

// RecordCodeProcessed increments the per-code counter with a success tag.
func (m *PipelineMetrics) RecordCodeProcessed(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.CodesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	if !success {
		m.FetchFailures.Add(ctx, 1)
	}
}

// RecordReport records a generated report and its row count.
func (m *PipelineMetrics) RecordReport(ctx context.Context, rows int) {
	if m == nil {
		return
	}
	m.ReportsGenerated.Add(ctx, 1)
	m.RowsAggregated.Add(ctx, int64(rows))
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var firstErr error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
