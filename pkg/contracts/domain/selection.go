package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Page is a dashboard page
type Page string

const (
	PageTrade    Page = "trade"
	PageBacktest Page = "backtest"
	PageAnalysis Page = "analysis"
)

// Valid reports whether p names a known page.
func (p Page) Valid() bool {
	switch p {
	case PageTrade, PageBacktest, PageAnalysis:
		return true
	}
	return false
}

// TickTab selects which half of the tick state is shown
type TickTab string

const (
	TickTabMarket TickTab = "market"
	TickTabCrypto TickTab = "crypto"
)

// Valid reports whether t names a known tab.
func (t TickTab) Valid() bool {
	return t == TickTabMarket || t == TickTabCrypto
}

// Direction is the display order of bar rows
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Valid reports whether d is asc or desc.
func (d Direction) Valid() bool {
	return d == DirectionAsc || d == DirectionDesc
}

// TransactionCategory selects the transaction view
type TransactionCategory string

const (
	CategoryAll   TransactionCategory = "all"
	CategoryBuys  TransactionCategory = "buys"
	CategorySells TransactionCategory = "sells"
	CategoryGood  TransactionCategory = "good"
	CategoryBad   TransactionCategory = "bad"
)

// Valid reports whether c is a known category.
func (c TransactionCategory) Valid() bool {
	switch c {
	case CategoryAll, CategoryBuys, CategorySells, CategoryGood, CategoryBad:
		return true
	}
	return false
}

// Paired reports whether the category is shown as buy/sell pairs.
func (c TransactionCategory) Paired() bool {
	return c == CategoryGood || c == CategoryBad
}

// HistorySelection chooses which bar rows are visible. It is either a
// HistoryMode or a HistoryRange.
type HistorySelection interface {
	isHistorySelection()
}

// HistoryMode is a fixed-size history selection
type HistoryMode string

const (
	HistoryNone    HistoryMode = "none"
	HistoryMin     HistoryMode = "min"
	HistoryPreview HistoryMode = "preview"
	HistoryFull    HistoryMode = "full"
)

func (HistoryMode) isHistorySelection() {}

// Valid reports whether m is a known mode.
func (m HistoryMode) Valid() bool {
	switch m {
	case HistoryNone, HistoryMin, HistoryPreview, HistoryFull:
		return true
	}
	return false
}

// HistoryRange selects the rows around a round trip, identified by the
// date keys of its buy and sell bars.
type HistoryRange struct {
	Buy  string `json:"buy" validate:"required"`
	Sell string `json:"sell" validate:"required"`
}

func (HistoryRange) isHistorySelection() {}

// ErrInvalidHistory is returned when a history selection cannot be parsed
var ErrInvalidHistory = errors.New("invalid history selection")

// ParseHistorySelection decodes either a mode string or a {"buy","sell"} object.
func ParseHistorySelection(data []byte) (HistorySelection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrInvalidHistory
	}

	switch data[0] {
	case '"':
		var mode HistoryMode
		if err := json.Unmarshal(data, &mode); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
		}
		if !mode.Valid() {
			return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidHistory, mode)
		}
		return mode, nil
	case '{':
		var r HistoryRange
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
		}
		if r.Buy == "" || r.Sell == "" {
			return nil, fmt.Errorf("%w: range needs both buy and sell", ErrInvalidHistory)
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: expected string or object", ErrInvalidHistory)
}

// History wraps a HistorySelection for JSON encoding
type History struct {
	HistorySelection
}

// MarshalJSON encodes a mode as a string and a range as an object.
func (h History) MarshalJSON() ([]byte, error) {
	if h.HistorySelection == nil {
		return json.Marshal(HistoryMin)
	}
	return json.Marshal(h.HistorySelection)
}

// UnmarshalJSON accepts the forms ParseHistorySelection does.
func (h *History) UnmarshalJSON(data []byte) error {
	sel, err := ParseHistorySelection(data)
	if err != nil {
		return err
	}
	h.HistorySelection = sel
	return nil
}
