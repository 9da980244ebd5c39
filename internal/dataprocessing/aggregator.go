package dataprocessing

import (
	"log/slog"
	"strconv"
	"strings"

	"sicreport/pkg/contracts/domain"
)

// Aggregator merges per-code filtered tables into the unified table and
// derives the active-address extract. One aggregator serves exactly one
// pipeline run; it is not safe for concurrent use.
type Aggregator struct {
	logger  *slog.Logger
	unified *domain.RecordTable
	seen    map[string]struct{}
}

// NewAggregator creates an empty aggregator.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		logger: logger.With(slog.String("component", "aggregator")),
		seen:   make(map[string]struct{}),
	}
}

// Append merges a filtered per-code table into the unified table, keeping
// rows in arrival order and dropping full-row duplicates. The input table
// is not mutated. The unified schema is the column order of the first
// nonempty table appended.
func (a *Aggregator) Append(t *domain.RecordTable) {
	if t.IsEmpty() {
		return
	}
	if a.unified == nil {
		a.unified = domain.NewRecordTable(t.Columns)
	}

	added := 0
	for _, row := range t.Rows {
		key := rowKey(row)
		if _, dup := a.seen[key]; dup {
			continue
		}
		a.seen[key] = struct{}{}
		a.unified.Rows = append(a.unified.Rows, row)
		added++
	}

	a.logger.Debug("appended table to unified data",
		slog.Int("rows_in", t.Len()),
		slog.Int("rows_added", added),
		slog.Int("unified_total", a.unified.Len()))
}

// Unified returns the deduplicated union of all appended tables, or nil
// when nothing nonempty was appended.
func (a *Aggregator) Unified() *domain.RecordTable {
	return a.unified
}

// AddressExtract projects the unified table's Active rows to company name
// and registered office address, deduplicated by full-row equality. It is
// derived from the merged table so its deduplication reflects the
// already-deduplicated state, not the per-code inputs.
func (a *Aggregator) AddressExtract() *domain.RecordTable {
	extract := domain.NewRecordTable([]string{
		domain.ColumnCompanyName,
		domain.ColumnOfficeAddress,
	})
	if a.unified == nil {
		return extract
	}

	seen := make(map[string]struct{})
	for _, row := range a.unified.Rows {
		if a.unified.Field(row, domain.ColumnCompanyStatus) != domain.StatusActive {
			continue
		}
		projected := []string{
			a.unified.Field(row, domain.ColumnCompanyName),
			a.unified.Field(row, domain.ColumnOfficeAddress),
		}
		key := rowKey(projected)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		extract.Rows = append(extract.Rows, projected)
	}
	return extract
}

// rowKey builds a dedup key over all columns. Cells are length-prefixed
// so no field content can fake a cell boundary.
func rowKey(row []string) string {
	var b strings.Builder
	for _, cell := range row {
		b.WriteString(strconv.Itoa(len(cell)))
		b.WriteByte(':')
		b.WriteString(cell)
	}
	return b.String()
}
