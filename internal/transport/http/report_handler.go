// Package http exposes the report pipeline over REST: submit codes,
// poll stored runs and download the generated artifacts.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "sicreport/internal/errors"
	"sicreport/internal/exporter"
	"sicreport/internal/services"
	"sicreport/internal/validation"
)

// CreateReportRequest is the JSON body of a manual code submission.
type CreateReportRequest struct {
	Codes string `json:"codes" validate:"required"`
}

// Bind implements render.Binder.
func (req *CreateReportRequest) Bind(r *http.Request) error {
	return nil
}

// ReportHandler handles report submission and artifact downloads.
type ReportHandler struct {
	service        *services.ReportService
	logger         *slog.Logger
	errorHandler   *apperrors.ErrorHandler
	validate       *validator.Validate
	files          *validation.FileValidator
	maxUploadBytes int64
}

// NewReportHandler creates a report handler.
func NewReportHandler(service *services.ReportService, logger *slog.Logger, errorHandler *apperrors.ErrorHandler, maxUploadBytes int64) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 1 << 20
	}
	return &ReportHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "report_handler")),
		errorHandler:   errorHandler,
		validate:       validator.New(),
		files:          validation.NewFileValidator(logger),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the report routes.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateReport)
	r.Post("/upload", h.CreateReportFromUpload)
	r.Get("/artifacts", h.ListArtifacts)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetRun)
		r.Get("/workbook", h.DownloadWorkbook)
		r.Get("/csv", h.DownloadAddressCSV)
	})

	return r
}

// CreateReport handles POST /api/reports: manually entered codes, strict
// validation.
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("invalid request body", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("codes field is required", err))
		return
	}

	resp, err := h.service.CreateFromText(r.Context(), req.Codes)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// CreateReportFromUpload handles POST /api/reports/upload: a one-column
// CSV of codes, lenient validation.
func (h *ReportHandler) CreateReportFromUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("invalid multipart form", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("file field is required", err))
		return
	}
	defer file.Close()

	if err := h.files.ValidateCodeFileName(header.Filename); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError(err.Error(), err))
		return
	}

	resp, err := h.service.CreateFromFile(r.Context(), file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// ListArtifacts handles GET /api/reports/artifacts: report files
// persisted by earlier runs.
func (h *ReportHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.Artifacts()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"runs": runs})
}

// GetRun handles GET /api/reports/{id}.
func (h *ReportHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result.Report)
}

// DownloadWorkbook handles GET /api/reports/{id}/workbook.
func (h *ReportHandler) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Workbook(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", exporter.MIMEWorkbook)
	w.Header().Set("Content-Disposition", `attachment; filename="Company_Data.xlsx"`)
	w.Write(data)
}

// DownloadAddressCSV handles GET /api/reports/{id}/csv.
func (h *ReportHandler) DownloadAddressCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.AddressCSV(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", exporter.MIMECSV+"; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="Active_Addresses.csv"`)
	w.Write(data)
}
