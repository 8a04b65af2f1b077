// Package views derives display-ready data from the application state.
//
// Every function here is pure: it reads snapshots, never mutates them, and
// keeps no state between calls.
package views

import (
	"koidash/pkg/contracts/domain"
)

const (
	minHistoryRows     = 5
	previewHistoryRows = 30

	// rows kept on each side of a range anchor
	rangeMargin = 3
)

// SelectBars returns the rows of symbol's series visible under the given
// direction and history selection. ok is false when there is nothing to
// show, which is different from a series with zero visible rows.
func SelectBars(bars domain.BarState, symbol string, dir domain.Direction, history domain.HistorySelection) (domain.BarSeries, bool) {
	if symbol == "" {
		return domain.BarSeries{}, false
	}
	series, ok := bars[symbol]
	if !ok || series.Data == nil {
		return domain.BarSeries{}, false
	}

	visible := series.Clone()
	if dir == domain.DirectionDesc {
		reverseRows(visible.Data)
	}

	switch h := history.(type) {
	case domain.HistoryRange:
		visible.Data = rangeRows(visible, h, dir)
	case domain.HistoryMode:
		visible.Data = modeRows(visible.Data, h)
	default:
		visible.Data = modeRows(visible.Data, domain.HistoryMin)
	}
	return visible, true
}

func reverseRows(rows [][]any) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

func modeRows(rows [][]any, mode domain.HistoryMode) [][]any {
	switch mode {
	case domain.HistoryNone:
		return [][]any{}
	case domain.HistoryMin:
		return rows[:min(minHistoryRows, len(rows))]
	case domain.HistoryPreview:
		return rows[:min(previewHistoryRows, len(rows))]
	default:
		return rows
	}
}

// rangeRows slices the rows between the buy and sell anchors, widened by
// rangeMargin. In ascending order the buy anchor bounds the start and the
// sell anchor the end; descending order swaps their roles. A start anchor
// within rangeMargin of the first row clamps to 0, and an end anchor that
// would pass the last row clamps to the series length.
func rangeRows(series domain.BarSeries, r domain.HistoryRange, dir domain.Direction) [][]any {
	rows := series.Data
	n := len(rows)

	col := series.IdentityColumn()
	if col < 0 {
		return [][]any{}
	}

	buy := findRow(rows, col, r.Buy)
	sell := findRow(rows, col, r.Sell)
	if buy < 0 || sell < 0 {
		return [][]any{}
	}

	first, last := buy, sell
	if dir == domain.DirectionDesc {
		first, last = sell, buy
	}

	lo := 0
	if first > rangeMargin {
		lo = first - rangeMargin
	}
	hi := n
	if last+rangeMargin < n {
		hi = last + rangeMargin
	}

	if lo >= hi {
		return [][]any{}
	}
	return rows[lo:hi]
}

func findRow(rows [][]any, col int, key string) int {
	for i, row := range rows {
		if col < len(row) && domain.RowKey(row[col]) == key {
			return i
		}
	}
	return -1
}
