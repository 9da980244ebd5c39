// Package pipeline orchestrates one report run: sequential per-code
// fetch, dissolution-date filtering, cross-code aggregation, stats and
// artifact generation. Codes are processed strictly in input order; a
// failed fetch contributes an empty table and a warning while the
// remaining codes continue.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"sicreport/internal/dataprocessing"
	apperrors "sicreport/internal/errors"
	"sicreport/internal/exporter"
	"sicreport/internal/infrastructure"
	"sicreport/internal/registry"
	"sicreport/pkg/contracts/domain"
)

// Progress reports one completed code to the caller's hook.
type Progress struct {
	RunID   string      `json:"run_id"`
	Index   int         `json:"index"`
	Total   int         `json:"total"`
	Code    domain.Code `json:"code"`
	Rows    int         `json:"rows"`
	Warning string      `json:"warning,omitempty"`
}

// ProgressFunc receives per-code progress. It is invoked synchronously
// from the run loop; slow hooks slow the pipeline.
type ProgressFunc func(Progress)

// Result holds everything a completed run produced.
type Result struct {
	Report     domain.RunReport
	CodeSheets []exporter.CodeSheet
	Unified    *domain.RecordTable
	Extract    *domain.RecordTable
	Stats      *domain.Stats
	Workbook   []byte
	AddressCSV []byte
}

// Runner executes report runs. One Runner may serve many runs; each run
// owns its own aggregation state.
type Runner struct {
	fetch      registry.Fetcher
	builder    *exporter.WorkbookBuilder
	summarizer *dataprocessing.Summarizer
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *infrastructure.PipelineMetrics
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTracer attaches a tracer; spans wrap the run and each fetch.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) { r.tracer = tracer }
}

// WithMetrics attaches pipeline counters.
func WithMetrics(m *infrastructure.PipelineMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a pipeline runner around the given fetcher.
func NewRunner(fetch registry.Fetcher, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		fetch:      fetch,
		builder:    exporter.NewWorkbookBuilder(logger),
		summarizer: dataprocessing.NewSummarizer(logger),
		logger:     logger.With(slog.String("component", "pipeline")),
		tracer:     noop.NewTracerProvider().Tracer("pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes the codes in order and produces the report artifacts.
// It returns ErrNoData (as an EMPTY_RESULT error) when no rows survive
// across all codes; the workbook is never built in that case.
func (r *Runner) Run(ctx context.Context, inputCodes []domain.Code, onProgress ProgressFunc) (*Result, error) {
	if len(inputCodes) == 0 {
		return nil, apperrors.NewValidationError("no codes to process", nil)
	}

	runID := uuid.NewString()
	logger := r.logger.With(slog.String("run_id", runID))

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.Int("code_count", len(inputCodes))))
	defer span.End()

	logger.Info("starting report run", slog.Int("codes", len(inputCodes)))

	agg := dataprocessing.NewAggregator(logger)
	result := &Result{
		Report: domain.RunReport{
			ID:    runID,
			Codes: inputCodes,
		},
	}

	for i, code := range inputCodes {
		// The only cancellation point is between codes; an in-flight
		// fetch is bounded by the fetcher's own timeout.
		if err := ctx.Err(); err != nil {
			span.SetStatus(otelcodes.Error, "cancelled")
			return nil, fmt.Errorf("run cancelled after %d of %d codes: %w", i, len(inputCodes), err)
		}

		table, warning := r.fetchCode(ctx, code, logger)
		filtered := dataprocessing.FilterTable(table)

		if filtered != nil {
			result.CodeSheets = append(result.CodeSheets, exporter.CodeSheet{Code: code, Table: filtered})
			agg.Append(filtered)
		}

		codeResult := domain.CodeResult{Code: code, Rows: filtered.Len(), Warning: warning}
		result.Report.CodeResults = append(result.Report.CodeResults, codeResult)
		if warning != "" {
			result.Report.Warnings = append(result.Report.Warnings, warning)
		}
		r.metrics.RecordCodeProcessed(ctx, warning == "")

		if onProgress != nil {
			onProgress(Progress{
				RunID:   runID,
				Index:   i + 1,
				Total:   len(inputCodes),
				Code:    code,
				Rows:    filtered.Len(),
				Warning: warning,
			})
		}
	}

	unified := agg.Unified()
	if unified.IsEmpty() {
		logger.Warn("run produced no rows; skipping report generation")
		span.SetStatus(otelcodes.Error, "no data")
		return nil, apperrors.ErrNoData
	}

	result.Unified = unified
	result.Extract = agg.AddressExtract()
	result.Stats = r.summarizer.Summarize(unified)
	result.Report.Stats = result.Stats
	result.Report.TotalRows = unified.Len()
	result.Report.ActiveRows = result.Extract.Len()
	result.Report.GeneratedAt = time.Now().UTC()

	workbook, err := r.builder.Build(result.CodeSheets, unified, result.Extract, result.Stats)
	if err != nil {
		span.SetStatus(otelcodes.Error, "workbook build failed")
		return nil, err
	}
	result.Workbook = workbook

	addressCSV, err := exporter.AddressCSV(result.Extract)
	if err != nil {
		return nil, apperrors.NewExportError("failed to render address CSV", err)
	}
	result.AddressCSV = addressCSV

	r.metrics.RecordReport(ctx, unified.Len())
	logger.Info("report run complete",
		slog.Int("total_rows", unified.Len()),
		slog.Int("active_addresses", result.Extract.Len()),
		slog.Int("warnings", len(result.Report.Warnings)))
	return result, nil
}

// fetchCode retrieves one code's table, downgrading failure to a warning
// plus a nil table.
func (r *Runner) fetchCode(ctx context.Context, code domain.Code, logger *slog.Logger) (*domain.RecordTable, string) {
	ctx, span := r.tracer.Start(ctx, "pipeline.fetch",
		trace.WithAttributes(attribute.String("code", code.String())))
	defer span.End()

	table, err := r.fetch(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "fetch failed")
		logger.Warn("fetch failed, continuing with remaining codes",
			slog.String("code", code.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Sprintf("failed to fetch data for code %s: %v", code, err)
	}
	span.SetAttributes(attribute.Int("rows", table.Len()))
	return table, ""
}
