package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "sicreport/internal/errors"
	"sicreport/pkg/contracts/domain"
)

func testUnified() *domain.RecordTable {
	return &domain.RecordTable{
		Columns: []string{
			domain.ColumnCompanyName,
			domain.ColumnOfficeAddress,
			domain.ColumnCompanyStatus,
			domain.ColumnDissolutionDate,
		},
		Rows: [][]string{
			{"Alpha Ltd", "1 High St", "Active", ""},
			{"Beta Ltd", "2 Low Rd", "Dissolved", "20/06/2021"},
		},
	}
}

func testExtract() *domain.RecordTable {
	return &domain.RecordTable{
		Columns: []string{domain.ColumnCompanyName, domain.ColumnOfficeAddress},
		Rows:    [][]string{{"Alpha Ltd", "1 High St"}},
	}
}

func testStats() *domain.Stats {
	return &domain.Stats{
		Active:            1,
		Dissolved:         1,
		DissolutionByYear: map[int]int{2021: 1},
	}
}

func buildTestWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	unified := testUnified()
	codeSheets := []CodeSheet{{Code: "62012", Table: unified}}

	data, err := NewWorkbookBuilder(nil).Build(codeSheets, unified, testExtract(), testStats())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBuild_SheetLayout(t *testing.T) {
	f := buildTestWorkbook(t)

	assert.Equal(t, []string{"62012", SheetMaster, SheetStats, SheetActiveAddresses}, f.GetSheetList())

	rows, err := f.GetRows(SheetMaster)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.ColumnCompanyName, rows[0][0])
	assert.Equal(t, "Alpha Ltd", rows[1][0])
	assert.Equal(t, "Beta Ltd", rows[2][0])
}

func TestBuild_StatsSheet(t *testing.T) {
	f := buildTestWorkbook(t)

	rows, err := f.GetRows(SheetStats)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Statistic", "Count"}, rows[0])
	assert.Equal(t, []string{"Active Companies", "1"}, rows[1])
	assert.Equal(t, []string{"Dissolved Companies", "1"}, rows[2])
	assert.Equal(t, []string{"Companies in Liquidation", "0"}, rows[3])
	assert.Equal(t, []string{"Dissolved in 2021", "1"}, rows[4])
}

func TestBuild_ActiveAddressSheet(t *testing.T) {
	f := buildTestWorkbook(t)

	rows, err := f.GetRows(SheetActiveAddresses)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alpha Ltd", rows[1][0])
	assert.Equal(t, "1 High St", rows[1][1])
}

func TestBuild_DissolvedRowsHighlighted(t *testing.T) {
	f := buildTestWorkbook(t)

	// Row 3 on Master_Data is the dissolved company; row 2 is active.
	dissolvedStyle, err := f.GetCellStyle(SheetMaster, "A3")
	require.NoError(t, err)
	activeStyle, err := f.GetCellStyle(SheetMaster, "A2")
	require.NoError(t, err)
	assert.NotEqual(t, activeStyle, dissolvedStyle)

	fill, err := f.GetStyle(dissolvedStyle)
	require.NoError(t, err)
	require.NotEmpty(t, fill.Fill.Color)
	assert.Equal(t, "FFCCCB", fill.Fill.Color[0])

	// The whole dissolved row is filled, not just the first cell.
	lastCellStyle, err := f.GetCellStyle(SheetMaster, "D3")
	require.NoError(t, err)
	assert.Equal(t, dissolvedStyle, lastCellStyle)
}

func TestBuild_NoStatusColumnNoHighlight(t *testing.T) {
	unified := &domain.RecordTable{
		Columns: []string{domain.ColumnCompanyName, domain.ColumnOfficeAddress, domain.ColumnDissolutionDate},
		Rows:    [][]string{{"Alpha Ltd", "1 High St", ""}},
	}
	data, err := NewWorkbookBuilder(nil).Build(nil, unified, testExtract(), testStats())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetMaster)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBuild_DuplicateCodesShareSheet(t *testing.T) {
	unified := testUnified()
	codeSheets := []CodeSheet{
		{Code: "62012", Table: unified},
		{Code: "62012", Table: unified},
	}
	data, err := NewWorkbookBuilder(nil).Build(codeSheets, unified, testExtract(), testStats())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Len(t, f.GetSheetList(), 4)
}

func TestBuild_EmptyUnifiedRejected(t *testing.T) {
	_, err := NewWorkbookBuilder(nil).Build(nil, nil, testExtract(), testStats())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyResult))
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name string
		code domain.Code
		want string
	}{
		{name: "plain code", code: "62012", want: "62012"},
		{name: "single digit", code: "7", want: "7"},
		{
			name: "long name truncated",
			code: domain.Code("123456789012345678901234567890123"),
			want: "1234567890123456789012345678901",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSheetName(tt.code))
		})
	}

	t.Run("stripped-empty falls back to synthetic name", func(t *testing.T) {
		got := SanitizeSheetName(domain.Code("***"))
		assert.True(t, len(got) > 4 && got[:4] == "SIC_", "got %q", got)
		assert.LessOrEqual(t, len(got), 31)
		// Deterministic for the same code.
		assert.Equal(t, got, SanitizeSheetName(domain.Code("***")))
	})
}
