package store

import (
	"koidash/pkg/contracts/domain"
)

// Kind names the part of the state an update replaces
type Kind string

const (
	KindKoi       Kind = "koi"
	KindTicks     Kind = "ticks"
	KindBars      Kind = "bars"
	KindBacktests Kind = "backtests"
	KindAnalyses  Kind = "analyses"
	KindSelection Kind = "selection"
)

// Update is one atomic change to the application state
type Update struct {
	Kind  Kind
	apply func(*AppState)
}

// ReplaceKoi replaces the strategy and connection snapshot.
func ReplaceKoi(koi domain.KoiState) Update {
	return Update{Kind: KindKoi, apply: func(s *AppState) {
		s.Koi = koi
	}}
}

// ReplaceTicks replaces the half of the tick state belonging to tab,
// leaving the other half untouched.
func ReplaceTicks(tab domain.TickTab, ticks domain.Ticks) Update {
	if ticks == nil {
		ticks = domain.Ticks{}
	}
	return Update{Kind: KindTicks, apply: func(s *AppState) {
		if tab == domain.TickTabCrypto {
			s.Ticks = domain.TickState{Market: s.Ticks.Market, Crypto: ticks}
			return
		}
		s.Ticks = domain.TickState{Market: ticks, Crypto: s.Ticks.Crypto}
	}}
}

// ReplaceBars replaces the bar snapshot.
func ReplaceBars(bars domain.BarState) Update {
	if bars == nil {
		bars = domain.BarState{}
	}
	return Update{Kind: KindBars, apply: func(s *AppState) {
		s.Bars = bars
	}}
}

// ReplaceBacktests replaces the backtest reports.
func ReplaceBacktests(backtests domain.BacktestsState) Update {
	if backtests == nil {
		backtests = domain.BacktestsState{}
	}
	return Update{Kind: KindBacktests, apply: func(s *AppState) {
		s.Backtests = backtests
	}}
}

// ReplaceAnalyses replaces the analyses and seeds any empty analysis
// selection from the first available option.
func ReplaceAnalyses(analyses domain.AnalysisState) Update {
	return Update{Kind: KindAnalyses, apply: func(s *AppState) {
		s.Analyses = analyses
		seedAnalysisSelection(&s.Selection, analyses)
	}}
}

func seedAnalysisSelection(sel *Selection, analyses domain.AnalysisState) {
	if analyses.Len() == 0 {
		return
	}

	if sel.Analysis == "" {
		sel.Analysis, _ = analyses.First()
	}

	a, ok := analyses.Get(sel.Analysis)
	if !ok {
		return
	}
	if sel.Window == 0 && len(a.WindowSizes) > 0 {
		sel.Window = a.WindowSizes[0]
	}
	if sel.Extremes == 0 && len(a.ExtremesSizes) > 0 {
		sel.Extremes = a.ExtremesSizes[0]
	}
	if sel.AnalysisSymbol == "" {
		if symbol, ok := a.AnalysisData.First(); ok {
			sel.AnalysisSymbol = symbol
		}
	}
}

// Select applies fn to the selection.
func Select(fn func(*Selection)) Update {
	return Update{Kind: KindSelection, apply: func(s *AppState) {
		fn(&s.Selection)
	}}
}

// Empty reports whether u carries no change.
func (u Update) Empty() bool {
	return u.apply == nil
}

// SelectAnalysis switches to the named analysis and reseeds its window,
// extremes and symbol from the analysis' own options.
func SelectAnalysis(name string) Update {
	return Update{Kind: KindSelection, apply: func(s *AppState) {
		s.Selection.Analysis = name
		s.Selection.Window = 0
		s.Selection.Extremes = 0
		s.Selection.AnalysisSymbol = ""
		seedAnalysisSelection(&s.Selection, s.Analyses)
	}}
}
