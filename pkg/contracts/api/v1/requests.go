// Package api contains the request and response bodies of the dashboard
// HTTP API. Version v1 is the current stable API version.
package api

import (
	"koidash/pkg/contracts/domain"
)

// Selection requests, sent as PUT /api/selection/{field}

// PageRequest selects the active page
type PageRequest struct {
	Page domain.Page `json:"page" validate:"required,oneof=trade backtest analysis"`
}

// TickTabRequest selects the tick tab
type TickTabRequest struct {
	Tab domain.TickTab `json:"tab" validate:"required,oneof=market crypto"`
}

// StrategyRequest selects a strategy by its position
type StrategyRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

// NameRequest selects a backtest or analysis by name
type NameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SizeRequest selects an analysis window or extremes size
type SizeRequest struct {
	Size int `json:"size" validate:"gt=0"`
}

// SymbolRequest selects a symbol
type SymbolRequest struct {
	Symbol string `json:"symbol" validate:"required,symbol"`
}

// HistoryRequest selects the visible bar rows: a mode string or a
// {"buy","sell"} range
type HistoryRequest struct {
	History domain.History `json:"history"`
}

// DirectionRequest sets the bar row order
type DirectionRequest struct {
	Direction domain.Direction `json:"direction" validate:"required,oneof=asc desc"`
}

// CategoryRequest selects the transaction view
type CategoryRequest struct {
	Category domain.TransactionCategory `json:"category" validate:"required,oneof=all buys sells good bad"`
}

// DarkModeRequest switches the theme
type DarkModeRequest struct {
	DarkMode bool `json:"dark_mode"`
}

// FocusRequest shows the bars around a transaction
type FocusRequest struct {
	Symbol  string `json:"symbol" validate:"required,symbol"`
	Date    string `json:"date" validate:"required"`
	BuyDate string `json:"buy_date,omitempty"`
}

// Command requests, sent as POST /api/commands/...

// ActiveRequest activates or deactivates a strategy
type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// CapitalRequest sets a strategy's capital
type CapitalRequest struct {
	Capital float64 `json:"capital" validate:"gt=0"`
}

// CommandResponse acknowledges a forwarded command
type CommandResponse struct {
	Status   string `json:"status"`
	Command  string `json:"command"`
	Strategy string `json:"strategy,omitempty"`
}

// LogRequest is a browser log entry posted to /api/logs
type LogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=2000"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty" validate:"max=200"`
}
