package exporter

import (
	"fmt"
	"io"
)

// Write renders t in format f. name titles the workbook sheet.
func Write(w io.Writer, f Format, name string, t Table) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t, WriteOptions{BOMPrefix: true})
	case FormatXLSX:
		return WriteXLSX(w, name, t)
	}
	return fmt.Errorf("unsupported export format %q", f)
}
