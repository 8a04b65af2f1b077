// Package exporter renders the visible transaction view as CSV or XLSX.
//
// A view is first flattened into a Table: one header row plus string
// records, using the flat columns for all/buys/sells and the round-trip
// columns for good/bad. The table is then written by WriteCSV or
// WriteXLSX.
//
// Example usage:
//
//	table := exporter.TransactionTable(view)
//	err := exporter.Write(w, exporter.FormatXLSX, "momentum", table)
package exporter
