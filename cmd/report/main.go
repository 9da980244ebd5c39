// Command report runs the SIC-code company report pipeline from the
// command line: fetch, filter, aggregate and write the workbook plus the
// active-address CSV into the reports directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"sicreport/internal/config"
	apperrors "sicreport/internal/errors"
	"sicreport/internal/exporter"
	"sicreport/internal/infrastructure"
	"sicreport/internal/pipeline"
	"sicreport/internal/registry"
	"sicreport/internal/sic"
	"sicreport/internal/validation"
	"sicreport/pkg/contracts"
	"sicreport/pkg/contracts/domain"
)

func main() {
	codesFlag := flag.String("codes", "", "comma-separated SIC codes (strict validation)")
	fileFlag := flag.String("file", "", "path to a one-column CSV of SIC codes (lenient validation)")
	outDir := flag.String("out", "", "output directory for the report files (defaults to the configured reports dir)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	paths := config.NewPaths(cfg.Paths)
	if *outDir != "" {
		paths.ReportsDir = *outDir
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("failed to create output directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fileValidator := validation.NewFileValidator(logger)
	if err := fileValidator.ValidateOutputDirectory(paths.ReportsDir); err != nil {
		logger.Error("output directory check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	codes, err := parseInput(logger, fileValidator, *codesFlag, *fileFlag)
	if err != nil {
		logger.Error("code validation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	clientOpts := []registry.ClientOption{
		registry.WithRateLimit(cfg.Registry.RateLimitRPS, cfg.Registry.RateLimitBurst),
		registry.WithHTTPClient(&http.Client{Timeout: cfg.Registry.RequestTimeout}),
	}
	if cfg.Registry.BaseURL != "" {
		clientOpts = append(clientOpts, registry.WithBaseURL(cfg.Registry.BaseURL))
	}
	client := registry.NewClient(logger, clientOpts...)

	runner := pipeline.NewRunner(client.Fetch, logger)
	result, err := runner.Run(context.Background(), codes, func(p pipeline.Progress) {
		fmt.Printf("[%d/%d] code %s: %d rows", p.Index, p.Total, p.Code, p.Rows)
		if p.Warning != "" {
			fmt.Printf(" (%s)", p.Warning)
		}
		fmt.Println()
	})
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeEmptyResult) {
			logger.Warn("no company data retrieved; no report generated")
			fmt.Println("No data found for the given codes.")
			os.Exit(0)
		}
		logger.Error("report run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	workbookPath := paths.GetReportPath(config.WorkbookFileName)
	if err := os.WriteFile(workbookPath, result.Workbook, 0644); err != nil {
		logger.Error("failed to write workbook", slog.String("error", err.Error()))
		os.Exit(1)
	}

	csvWriter := exporter.NewCSVWriter(paths, logger)
	if err := csvWriter.WriteTable(config.AddressCSVFileName, result.Extract); err != nil {
		logger.Error("failed to write address CSV", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, warning := range result.Report.Warnings {
		fmt.Println("warning:", warning)
	}
	fmt.Printf("Report written: %s (%d rows, %d active addresses)\n",
		workbookPath, result.Report.TotalRows, result.Report.ActiveRows)
}

// parseInput resolves codes from either flag, preferring the strict
// manual path when both are given.
func parseInput(logger *slog.Logger, fileValidator *validation.FileValidator, codesText, filePath string) ([]domain.Code, error) {
	validator := sic.NewValidator(logger)

	if codesText != "" {
		return validator.ParseCodes(codesText)
	}
	if filePath != "" {
		if err := fileValidator.ValidateCodeFile(filePath); err != nil {
			return nil, err
		}
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open code file: %w", err)
		}
		defer f.Close()

		codes, warnings, err := validator.ParseCodeFile(f)
		for _, w := range warnings {
			fmt.Println("warning:", w)
		}
		return codes, err
	}
	return nil, fmt.Errorf("either -codes or -file is required")
}
