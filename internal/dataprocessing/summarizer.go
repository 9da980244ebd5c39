package dataprocessing

import (
	"log/slog"

	"sicreport/pkg/contracts/domain"
)

// Summarizer computes status counts and the dissolution-year histogram
// from the unified table.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		logger: logger.With(slog.String("component", "summarizer")),
	}
}

// Summarize derives stats from the unified table without mutating it.
// Status values other than Active, Dissolved and Liquidation are counted
// in no bucket. Rows whose dissolution date does not parse are left out
// of the year histogram.
func (s *Summarizer) Summarize(t *domain.RecordTable) *domain.Stats {
	stats := &domain.Stats{
		DissolutionByYear: make(map[int]int),
	}
	if t.IsEmpty() {
		return stats
	}

	for _, row := range t.Rows {
		switch t.Field(row, domain.ColumnCompanyStatus) {
		case domain.StatusActive:
			stats.Active++
		case domain.StatusDissolved:
			stats.Dissolved++
		case domain.StatusLiquidation:
			stats.Liquidation++
		}

		if parsed, ok := ParseDissolutionDate(t.Field(row, domain.ColumnDissolutionDate)); ok {
			stats.DissolutionByYear[parsed.Year()]++
		}
	}

	s.logger.Debug("computed company stats",
		slog.Int("active", stats.Active),
		slog.Int("dissolved", stats.Dissolved),
		slog.Int("liquidation", stats.Liquidation),
		slog.Int("dissolution_years", len(stats.DissolutionByYear)))
	return stats
}
