// Package sic validates user-supplied SIC classification codes.
//
// Two input paths exist and deliberately differ in strictness: free-text
// entry rejects the whole batch on any bad token, while file upload drops
// bad tokens with warnings so one typo does not abort a long list.
package sic

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	apperrors "sicreport/internal/errors"
	"sicreport/pkg/contracts/domain"
)

// Validator parses raw code input into validated domain codes.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a code validator.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		logger: logger.With(slog.String("component", "sic_validator")),
	}
}

// ParseCodes validates free-text input: codes separated by commas or
// whitespace. This is the strict path; any invalid token fails the whole
// batch. Duplicates are preserved in input order since deduplication
// happens downstream at the row level.
func (v *Validator) ParseCodes(text string) ([]domain.Code, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("empty input", nil)
	}

	for _, r := range trimmed {
		if !isAllowedRune(r) {
			return nil, apperrors.NewValidationError("disallowed characters in input", nil).
				WithContext("character", string(r))
		}
	}

	tokens := splitTokens(trimmed)
	codes := make([]domain.Code, 0, len(tokens))
	var invalid []string
	for _, tok := range tokens {
		code := domain.Code(tok)
		if !code.Valid() {
			invalid = append(invalid, tok)
			continue
		}
		codes = append(codes, code)
	}

	if len(invalid) > 0 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("invalid code %s", strings.Join(invalid, ", ")), nil).
			WithContext("invalid_codes", invalid)
	}
	if len(codes) == 0 {
		return nil, apperrors.NewValidationError("empty input", nil)
	}

	v.logger.Debug("parsed manual code input",
		slog.Int("code_count", len(codes)))
	return codes, nil
}

// ParseCodeFile validates a one-column CSV of code tokens, header row
// optional. This is the lenient path: invalid tokens are dropped and
// returned as warnings rather than aborting the batch.
func (v *Validator) ParseCodeFile(r io.Reader) ([]domain.Code, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var codes []domain.Code
	var warnings []string
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, apperrors.NewValidationError("failed to read code file", err)
		}
		rowNum++
		if len(record) == 0 {
			continue
		}

		tok := strings.TrimSpace(record[0])
		if tok == "" {
			continue
		}

		code := domain.Code(tok)
		if !code.Valid() {
			// A non-numeric first row is a header, not a bad code.
			if rowNum == 1 && len(codes) == 0 {
				continue
			}
			warning := fmt.Sprintf("invalid code %s", tok)
			warnings = append(warnings, warning)
			v.logger.Warn("dropping invalid code from uploaded file",
				slog.String("token", tok),
				slog.Int("row", rowNum))
			continue
		}
		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return nil, warnings, apperrors.NewValidationError("no valid codes found in file", nil)
	}

	v.logger.Debug("parsed code file",
		slog.Int("code_count", len(codes)),
		slog.Int("warning_count", len(warnings)))
	return codes, warnings, nil
}

func isAllowedRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == ',':
		return true
	case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		return true
	}
	return false
}

func splitTokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
