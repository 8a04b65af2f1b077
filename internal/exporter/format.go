package exporter

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported formats
var Formats = []string{string(FormatCSV), string(FormatXLSX)}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds the attachment name for an export, e.g.
// momentum-good-transactions.xlsx.
func Filename(backtest, category string, f Format) string {
	parts := make([]string, 0, 3)
	if backtest != "" {
		parts = append(parts, sanitize(backtest))
	}
	if category != "" {
		parts = append(parts, sanitize(category))
	}
	parts = append(parts, "transactions")
	return fmt.Sprintf("%s.%s", strings.Join(parts, "-"), f)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

// formatFloat renders f in its shortest exact form, without trailing zeros
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
