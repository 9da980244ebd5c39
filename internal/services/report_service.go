// Package services hosts the application service between the HTTP layer
// and the pipeline: input validation, run execution, progress broadcast
// and an in-memory store of completed runs for artifact downloads.
package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"sicreport/internal/errors"
	"sicreport/internal/files"
	"sicreport/internal/pipeline"
	"sicreport/internal/sic"
	"sicreport/pkg/contracts/domain"
	"sicreport/pkg/contracts/events"
)

// previewRows is how many leading rows the submit response previews.
const previewRows = 5

// Broadcaster pushes progress events to connected clients. Satisfied by
// the websocket hub; nil-safe via NopBroadcaster.
type Broadcaster interface {
	Broadcast(msgType string, data interface{})
}

// NopBroadcaster drops all events.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(string, interface{}) {}

// Runner abstracts the pipeline for testing.
type Runner interface {
	Run(ctx context.Context, codes []domain.Code, onProgress pipeline.ProgressFunc) (*pipeline.Result, error)
}

// ArtifactStore persists run outputs to disk. Satisfied by files.Store;
// may be nil, in which case runs live only in memory.
type ArtifactStore interface {
	SaveRun(runID string, workbook, addressCSV []byte) error
	ListRuns() ([]files.RunArtifacts, error)
}

// RunResponse is what a successful submission returns: the run report
// plus small previews of the generated tables.
type RunResponse struct {
	Report         domain.RunReport `json:"report"`
	MasterPreview  [][]string       `json:"master_preview,omitempty"`
	AddressPreview [][]string       `json:"address_preview,omitempty"`
	WorkbookURL    string           `json:"workbook_url"`
	AddressCSVURL  string           `json:"address_csv_url"`
}

// ReportService validates input, runs the pipeline and retains completed
// runs for download.
type ReportService struct {
	runner    Runner
	validator *sic.Validator
	hub       Broadcaster
	store     ArtifactStore
	logger    *slog.Logger

	mu   sync.RWMutex
	runs map[string]*pipeline.Result
}

// NewReportService creates a report service.
func NewReportService(runner Runner, validator *sic.Validator, hub Broadcaster, store ArtifactStore, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NopBroadcaster{}
	}
	return &ReportService{
		runner:    runner,
		validator: validator,
		hub:       hub,
		store:     store,
		logger:    logger.With(slog.String("component", "report_service")),
		runs:      make(map[string]*pipeline.Result),
	}
}

// CreateFromText runs a report for manually entered codes. This is the
// strict validation path: any invalid token rejects the submission.
func (s *ReportService) CreateFromText(ctx context.Context, text string) (*RunResponse, error) {
	codes, err := s.validator.ParseCodes(text)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, codes, nil)
}

// CreateFromFile runs a report for an uploaded code CSV. This is the
// lenient path: invalid tokens become warnings on the response.
func (s *ReportService) CreateFromFile(ctx context.Context, file io.Reader) (*RunResponse, error) {
	codes, warnings, err := s.validator.ParseCodeFile(file)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, codes, warnings)
}

func (s *ReportService) run(ctx context.Context, codes []domain.Code, inputWarnings []string) (*RunResponse, error) {
	result, err := s.runner.Run(ctx, codes, func(p pipeline.Progress) {
		s.hub.Broadcast(events.TypeProgress, p)
	})
	if err != nil {
		s.hub.Broadcast(events.TypeRunFailed, events.RunFailedPayload{Error: err.Error()})
		return nil, err
	}

	// Input validation warnings come before the run's fetch warnings.
	if len(inputWarnings) > 0 {
		result.Report.Warnings = append(inputWarnings, result.Report.Warnings...)
	}

	s.mu.Lock()
	s.runs[result.Report.ID] = result
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveRun(result.Report.ID, result.Workbook, result.AddressCSV); err != nil {
			// Downloads are served from memory, so a persistence failure
			// degrades history listing but not the run itself.
			s.logger.Warn("failed to persist run artifacts",
				slog.String("run_id", result.Report.ID),
				slog.String("error", err.Error()))
		}
	}

	s.hub.Broadcast(events.TypeRunComplete, result.Report)
	s.logger.Info("run stored",
		slog.String("run_id", result.Report.ID),
		slog.Int("total_rows", result.Report.TotalRows))

	return &RunResponse{
		Report:         result.Report,
		MasterPreview:  result.Unified.Head(previewRows),
		AddressPreview: result.Extract.Head(previewRows),
		WorkbookURL:    "/api/reports/" + result.Report.ID + "/workbook",
		AddressCSVURL:  "/api/reports/" + result.Report.ID + "/csv",
	}, nil
}

// Get returns a stored run.
func (s *ReportService) Get(id string) (*pipeline.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.runs[id]
	if !ok {
		return nil, errors.NewNotFoundError("run "+id+" not found", nil)
	}
	return result, nil
}

// Workbook returns a stored run's workbook bytes.
func (s *ReportService) Workbook(id string) ([]byte, error) {
	result, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return result.Workbook, nil
}

// AddressCSV returns a stored run's CSV extract bytes.
func (s *ReportService) AddressCSV(id string) ([]byte, error) {
	result, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return result.AddressCSV, nil
}

// Artifacts lists the report files persisted by earlier runs, including
// runs from before the last restart.
func (s *ReportService) Artifacts() ([]files.RunArtifacts, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRuns()
}
