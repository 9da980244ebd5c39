package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sicreport/pkg/contracts/domain"
)

func TestSummarize(t *testing.T) {
	table := companyTable(
		[]string{"Alpha Ltd", "1 High St", "Active", ""},
		[]string{"Beta Ltd", "2 Low Rd", "Dissolved", "20/06/2021"},
		[]string{"Gamma Ltd", "3 Mid Ln", "Dissolved", "01/02/2021"},
		[]string{"Delta Ltd", "4 End Way", "Liquidation", "2022-03-10"},
		[]string{"Epsilon Ltd", "5 Side St", "Receivership", ""},
	)

	stats := NewSummarizer(nil).Summarize(table)

	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 2, stats.Dissolved)
	assert.Equal(t, 1, stats.Liquidation)
	// Receivership lands in no bucket.
	assert.LessOrEqual(t, stats.Active+stats.Dissolved+stats.Liquidation, table.Len())

	assert.Equal(t, map[int]int{2021: 2, 2022: 1}, stats.DissolutionByYear)

	// Source table untouched.
	assert.Len(t, table.Columns, 4)
	assert.Len(t, table.Rows, 5)
}

func TestSummarize_UnparseableDatesExcludedFromHistogram(t *testing.T) {
	table := companyTable(
		[]string{"Alpha Ltd", "1 High St", "Dissolved", "sometime in 2020"},
	)

	stats := NewSummarizer(nil).Summarize(table)
	assert.Equal(t, 1, stats.Dissolved)
	assert.Empty(t, stats.DissolutionByYear)
}

func TestSummarize_EmptyTable(t *testing.T) {
	stats := NewSummarizer(nil).Summarize(nil)
	require.NotNil(t, stats)
	assert.Zero(t, stats.Active)
	assert.Empty(t, stats.DissolutionByYear)
}

func TestStatsEntries(t *testing.T) {
	stats := &domain.Stats{
		Active:      3,
		Dissolved:   2,
		Liquidation: 1,
		DissolutionByYear: map[int]int{
			2022: 1,
			2020: 1,
		},
	}

	entries := stats.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, domain.StatEntry{Key: "Active Companies", Value: 3}, entries[0])
	assert.Equal(t, domain.StatEntry{Key: "Dissolved Companies", Value: 2}, entries[1])
	assert.Equal(t, domain.StatEntry{Key: "Companies in Liquidation", Value: 1}, entries[2])
	// Histogram entries in ascending year order.
	assert.Equal(t, domain.StatEntry{Key: "Dissolved in 2020", Value: 1}, entries[3])
	assert.Equal(t, domain.StatEntry{Key: "Dissolved in 2022", Value: 1}, entries[4])
}
