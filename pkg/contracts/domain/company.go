package domain

import (
	"regexp"
)

// Column names of the registry download that the pipeline depends on.
// The registry returns more columns than these; extra columns are carried
// through to the report untouched.
const (
	ColumnCompanyName     = "company_name"
	ColumnOfficeAddress   = "registered_office_address"
	ColumnCompanyStatus   = "company_status"
	ColumnDissolutionDate = "dissolution_date"
)

// Company status values the summarizer buckets on. The registry emits other
// values too (e.g. "Receivership"); those fall into no bucket.
const (
	StatusActive      = "Active"
	StatusDissolved   = "Dissolved"
	StatusLiquidation = "Liquidation"
)

var codePattern = regexp.MustCompile(`^[0-9]{1,5}$`)

// Code is a SIC classification code: the query key against the company
// registry and the naming key for per-code report sheets.
type Code string

// Valid reports whether the code is 1-5 digits.
func (c Code) Valid() bool {
	return codePattern.MatchString(string(c))
}

func (c Code) String() string {
	return string(c)
}

// RecordTable is an ordered set of registry rows sharing one header schema.
// Tables are built per code, filtered, then merged into the unified table.
type RecordTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewRecordTable creates an empty table with the given column schema.
func NewRecordTable(columns []string) *RecordTable {
	return &RecordTable{Columns: columns}
}

// ColumnIndex returns the position of the named column, or -1 when the
// schema does not carry it.
func (t *RecordTable) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Field returns the value of the named column in the given row, or "" when
// the column is absent or the row is short.
func (t *RecordTable) Field(row []string, name string) string {
	idx := t.ColumnIndex(name)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// IsEmpty reports whether the table holds no data rows.
func (t *RecordTable) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// Len returns the number of data rows.
func (t *RecordTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Head returns up to n leading rows. The slice aliases the table's backing
// storage; callers must not mutate it.
func (t *RecordTable) Head(n int) [][]string {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}
