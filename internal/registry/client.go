// Package registry retrieves per-code company data from the Companies
// House advanced-search CSV download endpoint. The pipeline only depends
// on the Fetcher function type; this client is the production
// implementation behind it.
package registry

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	apperrors "sicreport/internal/errors"
	"sicreport/pkg/contracts/domain"
)

// DefaultBaseURL is the public advanced-search download endpoint.
const DefaultBaseURL = "https://find-and-update.company-information.service.gov.uk/advanced-search/download"

// Fetcher retrieves the raw record table for one code. Implementations
// must return an error rather than a partial table on failure; the
// pipeline downgrades errors to warnings and continues with the
// remaining codes.
type Fetcher func(ctx context.Context, code domain.Code) (*domain.RecordTable, error)

// requiredColumns must be present in every download for the pipeline's
// filter, extract and stats stages to work.
var requiredColumns = []string{
	domain.ColumnCompanyName,
	domain.ColumnOfficeAddress,
	domain.ColumnCompanyStatus,
	domain.ColumnDissolutionDate,
}

// Client downloads company data over HTTP with a courtesy rate limit
// toward the registry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the download endpoint, mainly for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient creates a registry client with sane defaults: 30s request
// timeout and 2 requests per second toward the registry.
func NewClient(logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		logger:     logger.With(slog.String("component", "registry_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads and parses the company CSV for one SIC code.
func (c *Client) Fetch(ctx context.Context, code domain.Code) (*domain.RecordTable, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewFetchError("rate limiter wait cancelled", err)
	}

	reqURL := c.downloadURL(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.NewFetchError("failed to build registry request", err)
	}
	req.Header.Set("Accept", "text/csv")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError(
			fmt.Sprintf("registry request for code %s failed", code), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewFetchError(
			fmt.Sprintf("registry returned status %d for code %s", resp.StatusCode, code), nil).
			WithContext("status_code", resp.StatusCode)
	}

	table, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, apperrors.NewFetchError(
			fmt.Sprintf("failed to parse registry CSV for code %s", code), err)
	}

	c.logger.Info("fetched registry data",
		slog.String("code", code.String()),
		slog.Int("rows", table.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return table, nil
}

// downloadURL builds the advanced-search download URL for a code.
func (c *Client) downloadURL(code domain.Code) string {
	query := url.Values{}
	query.Set("sicCodes", code.String())
	return c.baseURL + "?" + query.Encode()
}

// ParseCSV reads a registry CSV download into a record table. The first
// row is the header schema; short data rows are padded so every row has
// the full column count.
func ParseCSV(r io.Reader) (*domain.RecordTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty response body")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	table := domain.NewRecordTable(header)
	for _, col := range requiredColumns {
		if table.ColumnIndex(col) < 0 {
			return nil, fmt.Errorf("response missing required column %q", col)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read data row: %w", err)
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		table.Rows = append(table.Rows, record[:len(header)])
	}
	return table, nil
}
