package domain

import (
	"fmt"
	"strings"
)

// BarSeries is a pandas "split" frame: column names plus rows aligned to them.
// The trading process formats the date column as "2006/01/02 15:04:05".
type BarSeries struct {
	Index   []any    `json:"index"`
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// BarState maps symbol to its bar series
type BarState map[string]BarSeries

// IdentityColumn returns the position of the date column, or -1.
func (b BarSeries) IdentityColumn() int {
	for i, c := range b.Columns {
		if strings.EqualFold(c, "date") {
			return i
		}
	}
	return -1
}

// RowKey renders a cell as an anchor key.
func RowKey(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone copies the series so the rows slice can be reordered safely.
// Individual rows are shared.
func (b BarSeries) Clone() BarSeries {
	out := BarSeries{
		Index:   append([]any(nil), b.Index...),
		Columns: append([]string(nil), b.Columns...),
		Data:    make([][]any, len(b.Data)),
	}
	copy(out.Data, b.Data)
	return out
}
