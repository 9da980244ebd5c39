package domain

import (
	"fmt"
	"sort"
	"time"
)

// Stats holds the aggregate counts derived from the unified table. It is
// always recomputed from the current table, never updated incrementally.
type Stats struct {
	Active            int         `json:"active" validate:"min=0"`
	Dissolved         int         `json:"dissolved" validate:"min=0"`
	Liquidation       int         `json:"liquidation" validate:"min=0"`
	DissolutionByYear map[int]int `json:"dissolution_by_year"`
}

// StatEntry is one key/value row on the report's stats sheet.
type StatEntry struct {
	Key   string `json:"key"`
	Value int    `json:"value"`
}

// Entries flattens the stats into report rows: the three status counts
// first, then the year histogram in ascending year order.
func (s *Stats) Entries() []StatEntry {
	entries := []StatEntry{
		{Key: "Active Companies", Value: s.Active},
		{Key: "Dissolved Companies", Value: s.Dissolved},
		{Key: "Companies in Liquidation", Value: s.Liquidation},
	}
	years := make([]int, 0, len(s.DissolutionByYear))
	for year := range s.DissolutionByYear {
		years = append(years, year)
	}
	sort.Ints(years)
	for _, year := range years {
		entries = append(entries, StatEntry{
			Key:   fmt.Sprintf("Dissolved in %d", year),
			Value: s.DissolutionByYear[year],
		})
	}
	return entries
}

// CodeResult records the per-code outcome of one pipeline run.
type CodeResult struct {
	Code    Code   `json:"code"`
	Rows    int    `json:"rows" validate:"min=0"`
	Warning string `json:"warning,omitempty"`
}

// RunReport summarizes a completed pipeline run for callers and the API
// layer. Artifact bytes live alongside it in the pipeline result; this
// struct is the JSON-safe part.
type RunReport struct {
	ID          string       `json:"id" validate:"required,uuid"`
	Codes       []Code       `json:"codes" validate:"required,min=1"`
	CodeResults []CodeResult `json:"code_results"`
	TotalRows   int          `json:"total_rows" validate:"min=0"`
	ActiveRows  int          `json:"active_rows" validate:"min=0"`
	Stats       *Stats       `json:"stats,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}
