package exporter

import (
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/xuri/excelize/v2"

	apperrors "sicreport/internal/errors"
	"sicreport/pkg/contracts/domain"
)

// Fixed sheet names of the report workbook.
const (
	SheetMaster          = "Master_Data"
	SheetStats           = "Stats"
	SheetActiveAddresses = "Active_Addresses"
)

// MIME types of the two artifacts.
const (
	MIMEWorkbook = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMECSV      = "text/csv"
)

// maxSheetNameLen is the xlsx format's sheet name limit.
const maxSheetNameLen = 31

// highlightFill is the fill applied to dissolved rows.
const highlightFill = "FFCCCB"

// CodeSheet pairs a code with its filtered table for per-code sheets.
type CodeSheet struct {
	Code  domain.Code
	Table *domain.RecordTable
}

// WorkbookBuilder assembles the report workbook. Sheets are described as
// (name, table, highlight) and rendered in one pass so styling stays out
// of the aggregation stages.
type WorkbookBuilder struct {
	logger *slog.Logger
}

// NewWorkbookBuilder creates a workbook builder.
func NewWorkbookBuilder(logger *slog.Logger) *WorkbookBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookBuilder{
		logger: logger.With(slog.String("component", "workbook_builder")),
	}
}

// sheetSpec is one rendered sheet: a named table plus whether dissolved
// rows get the highlight fill.
type sheetSpec struct {
	name      string
	table     *domain.RecordTable
	highlight bool
}

// Build renders the full report workbook: one sheet per input code, the
// master sheet, the stats sheet and the active-address sheet. Callers
// must not invoke it with an empty unified table; runs without data skip
// report generation entirely.
func (b *WorkbookBuilder) Build(codeSheets []CodeSheet, unified, extract *domain.RecordTable, stats *domain.Stats) ([]byte, error) {
	if unified.IsEmpty() {
		return nil, apperrors.NewEmptyResultError("refusing to build workbook from empty unified table", nil)
	}

	specs := make([]sheetSpec, 0, len(codeSheets)+3)
	used := make(map[string]bool)
	for _, cs := range codeSheets {
		name := SanitizeSheetName(cs.Code)
		if used[name] {
			// Duplicate input codes share one sheet; the data is the same.
			continue
		}
		used[name] = true
		specs = append(specs, sheetSpec{name: name, table: cs.Table, highlight: true})
	}
	specs = append(specs,
		sheetSpec{name: SheetMaster, table: unified, highlight: true},
		sheetSpec{name: SheetStats, table: statsTable(stats)},
		sheetSpec{name: SheetActiveAddresses, table: extract},
	)

	f := excelize.NewFile()
	defer f.Close()

	highlightStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{highlightFill}},
	})
	if err != nil {
		return nil, apperrors.NewExportError("failed to create highlight style", err)
	}

	for i, spec := range specs {
		if i == 0 {
			// Rename the default sheet instead of leaving an empty Sheet1.
			if err := f.SetSheetName(f.GetSheetName(0), spec.name); err != nil {
				return nil, apperrors.NewExportError("failed to rename default sheet", err)
			}
		} else {
			if _, err := f.NewSheet(spec.name); err != nil {
				return nil, apperrors.NewExportError(
					fmt.Sprintf("failed to create sheet %s", spec.name), err)
			}
		}
		if err := b.writeSheet(f, spec, highlightStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.NewExportError("failed to serialize workbook", err)
	}

	b.logger.Info("workbook built",
		slog.Int("sheets", len(specs)),
		slog.Int("master_rows", unified.Len()),
		slog.Int("size_bytes", buf.Len()))
	return buf.Bytes(), nil
}

// writeSheet writes one table onto a sheet and highlights dissolved rows.
func (b *WorkbookBuilder) writeSheet(f *excelize.File, spec sheetSpec, highlightStyle int) error {
	t := spec.table
	if t == nil {
		return nil
	}

	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(spec.name, "A1", &header); err != nil {
		return apperrors.NewExportError(
			fmt.Sprintf("failed to write header on sheet %s", spec.name), err)
	}

	// Status column lookup is by name; absent column means no highlighting
	// rather than guessing a position.
	statusIdx := t.ColumnIndex(domain.ColumnCompanyStatus)

	for rowIdx, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
		}
		cellRef := fmt.Sprintf("A%d", rowIdx+2)
		if err := f.SetSheetRow(spec.name, cellRef, &cells); err != nil {
			return apperrors.NewExportError(
				fmt.Sprintf("failed to write row %d on sheet %s", rowIdx+2, spec.name), err)
		}

		if !spec.highlight || statusIdx < 0 || statusIdx >= len(row) {
			continue
		}
		if row[statusIdx] != domain.StatusDissolved {
			continue
		}
		endCol, err := excelize.ColumnNumberToName(len(t.Columns))
		if err != nil {
			return apperrors.NewExportError("failed to resolve column name", err)
		}
		endRef := fmt.Sprintf("%s%d", endCol, rowIdx+2)
		if err := f.SetCellStyle(spec.name, cellRef, endRef, highlightStyle); err != nil {
			return apperrors.NewExportError(
				fmt.Sprintf("failed to highlight row %d on sheet %s", rowIdx+2, spec.name), err)
		}
	}
	return nil
}

// statsTable lays the stats out as key/value rows for the stats sheet.
func statsTable(stats *domain.Stats) *domain.RecordTable {
	t := domain.NewRecordTable([]string{"Statistic", "Count"})
	if stats == nil {
		return t
	}
	for _, entry := range stats.Entries() {
		t.Rows = append(t.Rows, []string{entry.Key, fmt.Sprintf("%d", entry.Value)})
	}
	return t
}

// SanitizeSheetName maps a code to a valid xlsx sheet name: truncated to
// the format limit, restricted to alphanumerics, spaces and underscores.
// If nothing survives the stripping the name falls back to a synthetic
// one derived from the code.
func SanitizeSheetName(code domain.Code) string {
	raw := code.String()
	if len(raw) > maxSheetNameLen {
		raw = raw[:maxSheetNameLen]
	}
	var clean []rune
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == ' ', r == '_':
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		h := fnv.New32a()
		h.Write([]byte(code.String()))
		name := fmt.Sprintf("SIC_%08x", h.Sum32())
		if len(name) > maxSheetNameLen {
			name = name[:maxSheetNameLen]
		}
		return name
	}
	return string(clean)
}
