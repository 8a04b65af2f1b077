package store

import (
	"koidash/pkg/contracts/domain"
)

// Selection is the operator's current view of the dashboard
type Selection struct {
	Page           domain.Page                `json:"active_page"`
	TickTab        domain.TickTab             `json:"tick_tab"`
	StrategyIndex  int                        `json:"selected_strategy_index"`
	Backtest       string                     `json:"selected_backtest,omitempty"`
	Analysis       string                     `json:"selected_analysis,omitempty"`
	Window         int                        `json:"analysis_window,omitempty"`
	Extremes       int                        `json:"extremes_size,omitempty"`
	AnalysisSymbol string                     `json:"analysis_symbol,omitempty"`
	BarsSymbol     string                     `json:"bars_symbol,omitempty"`
	History        domain.History             `json:"history"`
	Direction      domain.Direction           `json:"direction"`
	Category       domain.TransactionCategory `json:"transaction_category"`
	DarkMode       bool                       `json:"dark_mode"`
}

// DefaultSelection returns the selection a new session starts with
func DefaultSelection() Selection {
	return Selection{
		Page:      domain.PageTrade,
		TickTab:   domain.TickTabMarket,
		History:   domain.History{HistorySelection: domain.HistoryMin},
		Direction: domain.DirectionAsc,
		Category:  domain.CategoryAll,
	}
}

// AppState is every snapshot received from the trading process plus the
// operator's selection. Snapshot fields are replaced wholesale and never
// mutated in place, so copies of AppState may share them.
type AppState struct {
	Koi       domain.KoiState       `json:"koi"`
	Ticks     domain.TickState      `json:"ticks"`
	Bars      domain.BarState       `json:"bars"`
	Backtests domain.BacktestsState `json:"backtests"`
	Analyses  domain.AnalysisState  `json:"analyses"`
	Selection Selection             `json:"selection"`
	Version   uint64                `json:"version"`
}

// NewAppState returns the empty state of a new session
func NewAppState() AppState {
	return AppState{
		Koi:       domain.KoiState{Strategies: []domain.StrategyInfo{}},
		Ticks:     domain.TickState{Market: domain.Ticks{}, Crypto: domain.Ticks{}},
		Bars:      domain.BarState{},
		Backtests: domain.BacktestsState{},
		Selection: DefaultSelection(),
	}
}

// SelectedStrategy returns the strategy at the selected index, if in range.
func (s AppState) SelectedStrategy() (domain.StrategyInfo, bool) {
	i := s.Selection.StrategyIndex
	if i < 0 || i >= len(s.Koi.Strategies) {
		return domain.StrategyInfo{}, false
	}
	return s.Koi.Strategies[i], true
}

// SelectedBacktest returns the selected backtest, if it has been received.
func (s AppState) SelectedBacktest() (domain.Backtest, bool) {
	if s.Selection.Backtest == "" {
		return domain.Backtest{}, false
	}
	bt, ok := s.Backtests[s.Selection.Backtest]
	return bt, ok
}

// SelectedAnalysisName returns the selected analysis, falling back to the
// first one received.
func (s AppState) SelectedAnalysisName() string {
	if s.Selection.Analysis != "" {
		return s.Selection.Analysis
	}
	name, _ := s.Analyses.First()
	return name
}

// SelectedAnalysis returns the analysis named by SelectedAnalysisName.
func (s AppState) SelectedAnalysis() (domain.Analysis, bool) {
	name := s.SelectedAnalysisName()
	if name == "" {
		return domain.Analysis{}, false
	}
	return s.Analyses.Get(name)
}

// TickStreamingActive reports whether the trading process streams ticks for
// the selected tab.
func (s AppState) TickStreamingActive() bool {
	if s.Selection.TickTab == domain.TickTabCrypto {
		return s.Koi.CryptoTicksStreaming
	}
	return s.Koi.MarketTicksStreaming
}
