// Package exporter renders pipeline results into their delivery formats:
// the multi-sheet company workbook and the active-address CSV extract.
// Aggregation logic never leaks in here; the builder receives finished
// tables and stats and only deals with spreadsheet mechanics.
package exporter
