package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sicreport/internal/errors"
	"sicreport/internal/exporter"
	"sicreport/internal/files"
	custommw "sicreport/internal/middleware"
	"sicreport/internal/pipeline"
	"sicreport/internal/services"
	"sicreport/internal/sic"
	"sicreport/pkg/contracts/domain"
)

type stubRunner struct {
	result *pipeline.Result
}

func (s *stubRunner) Run(ctx context.Context, codes []domain.Code, onProgress pipeline.ProgressFunc) (*pipeline.Result, error) {
	return s.result, nil
}

func stubResult() *pipeline.Result {
	return &pipeline.Result{
		Report: domain.RunReport{
			ID:          "22222222-2222-2222-2222-222222222222",
			Codes:       []domain.Code{"62012"},
			TotalRows:   1,
			ActiveRows:  1,
			GeneratedAt: time.Now().UTC(),
		},
		Unified: &domain.RecordTable{
			Columns: []string{domain.ColumnCompanyName, domain.ColumnCompanyStatus},
			Rows:    [][]string{{"ACME LTD", domain.StatusActive}},
		},
		Extract: &domain.RecordTable{
			Columns: []string{"company_name", "registered_office_address"},
			Rows:    [][]string{{"ACME LTD", "1 Main St"}},
		},
		Workbook:   []byte("workbook-bytes"),
		AddressCSV: []byte("csv-bytes"),
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := files.NewStore(t.TempDir(), nil)
	service := services.NewReportService(&stubRunner{result: stubResult()}, sic.NewValidator(nil), nil, store, nil)
	handler := NewReportHandler(service, nil, apperrors.NewErrorHandler(nil), 1<<20)

	srv := httptest.NewServer(custommw.RequestID(handler.Routes()))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateReport(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"codes":"62012"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Report        domain.RunReport `json:"report"`
		WorkbookURL   string           `json:"workbook_url"`
		MasterPreview [][]string       `json:"master_preview"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", body.Report.ID)
	assert.Equal(t, "/api/reports/"+body.Report.ID+"/workbook", body.WorkbookURL)
	assert.Len(t, body.MasterPreview, 1)
}

func TestCreateReportInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "codes=62012"},
		{name: "missing codes", body: `{}`},
		{name: "invalid code token", body: `{"codes":"62012,abc"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/problem+json")

			// Problem bodies carry the request ID for log correlation.
			var problem map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
			traceID, _ := problem["trace_id"].(string)
			assert.NotEmpty(t, traceID)
			assert.Equal(t, resp.Header.Get("X-Request-ID"), traceID)
		})
	}
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreateReportFromUpload(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "codes.csv", "62012\n")
	resp, err := http.Post(srv.URL+"/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateReportFromUploadRejectsExtension(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, "codes.xlsx", "62012\n")
	resp, err := http.Post(srv.URL+"/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDownloadArtifacts(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"codes":"62012"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id := "22222222-2222-2222-2222-222222222222"

	workbook, err := http.Get(srv.URL + "/" + id + "/workbook")
	require.NoError(t, err)
	defer workbook.Body.Close()
	assert.Equal(t, http.StatusOK, workbook.StatusCode)
	assert.Equal(t, exporter.MIMEWorkbook, workbook.Header.Get("Content-Type"))
	assert.Contains(t, workbook.Header.Get("Content-Disposition"), "Company_Data.xlsx")

	csv, err := http.Get(srv.URL + "/" + id + "/csv")
	require.NoError(t, err)
	defer csv.Body.Close()
	assert.Equal(t, http.StatusOK, csv.StatusCode)
	assert.Contains(t, csv.Header.Get("Content-Disposition"), "Active_Addresses.csv")
}

func TestDownloadUnknownRun(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/missing/workbook")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListArtifacts(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"codes":"62012"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	list, err := http.Get(srv.URL + "/artifacts")
	require.NoError(t, err)
	defer list.Body.Close()
	require.Equal(t, http.StatusOK, list.StatusCode)

	var body struct {
		Runs []files.RunArtifacts `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", body.Runs[0].RunID)
}
