package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sicreport/internal/config"
	"sicreport/pkg/contracts/domain"
)

func TestAddressCSV(t *testing.T) {
	data, err := AddressCSV(testExtract())
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, []string{domain.ColumnCompanyName, domain.ColumnOfficeAddress}, records[0])
	assert.Equal(t, []string{"Alpha Ltd", "1 High St"}, records[1])
}

func TestAddressCSV_QuotesCommaFields(t *testing.T) {
	extract := &domain.RecordTable{
		Columns: []string{domain.ColumnCompanyName, domain.ColumnOfficeAddress},
		Rows:    [][]string{{"Alpha Ltd", "1 High St, Leicester, LE5"}},
	}
	data, err := AddressCSV(extract)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "1 High St, Leicester, LE5", records[1][1])
}

func TestCSVWriter_WriteTable(t *testing.T) {
	tempDir := t.TempDir()
	paths := config.NewPaths(config.PathsConfig{DataDir: tempDir, LogsDir: filepath.Join(tempDir, "logs")})

	writer := NewCSVWriter(paths, nil)
	require.NoError(t, writer.WriteTable(config.AddressCSVFileName, testExtract()))

	raw, err := os.ReadFile(paths.GetReportPath(config.AddressCSVFileName))
	require.NoError(t, err)

	// BOM prefix for Excel, then regular CSV.
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alpha Ltd", records[1][0])
}
