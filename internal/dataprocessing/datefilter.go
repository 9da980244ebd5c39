package dataprocessing

import (
	"strings"
	"time"

	"sicreport/pkg/contracts/domain"
)

// Registry exports write dissolution dates as DD/MM/YYYY; older extracts
// use ISO. Both are accepted, anything else degrades to "no date".
var dissolutionDateLayouts = []string{"02/01/2006", "2006-01-02"}

// dissolutionCutoff is the fixed reporting boundary: rows dissolved on or
// before this date are excluded. The comparison is exclusive.
var dissolutionCutoff = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseDissolutionDate parses a raw dissolution-date value. The second
// return is false when the value is empty or unparseable; that is not an
// error, it means the company has no recorded dissolution.
func ParseDissolutionDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dissolutionDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// KeepRecord is the row filter predicate: keep rows with no dissolution
// date, or a dissolution date strictly after the cutoff.
func KeepRecord(dissolutionDate string) bool {
	parsed, ok := ParseDissolutionDate(dissolutionDate)
	if !ok {
		return true
	}
	return parsed.After(dissolutionCutoff)
}

// FilterTable returns a new table containing only the rows that pass the
// dissolution-date filter. The input table is not mutated. Filtering an
// already-filtered table yields the same rows.
func FilterTable(t *domain.RecordTable) *domain.RecordTable {
	if t == nil {
		return nil
	}
	filtered := domain.NewRecordTable(t.Columns)
	for _, row := range t.Rows {
		if KeepRecord(t.Field(row, domain.ColumnDissolutionDate)) {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered
}
