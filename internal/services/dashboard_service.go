package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"koidash/internal/bridge"
	"koidash/internal/config"
	apierrors "koidash/internal/errors"
	"koidash/internal/infrastructure"
	"koidash/internal/store"
	"koidash/internal/views"
	"koidash/pkg/contracts/domain"
)

// StateStore is the part of the store the dashboard reads and writes
type StateStore interface {
	Snapshot() store.AppState
	Do(ctx context.Context, u store.Update) error
}

// DashboardService serves the derived views over the current state and
// forwards operator commands to the trading process.
type DashboardService struct {
	store     StateStore
	commander bridge.Commander
	pairing   config.DashboardConfig
	logger    *slog.Logger
}

// StateView is the shell of the dashboard
type StateView struct {
	Version          uint64               `json:"version"`
	Selection        store.Selection      `json:"selection"`
	Koi              domain.KoiState      `json:"koi"`
	SelectedStrategy *domain.StrategyInfo `json:"selected_strategy,omitempty"`
	SelectedAnalysis string               `json:"selected_analysis,omitempty"`
	Backtests        []string             `json:"backtests"`
	Analyses         []string             `json:"analyses"`
}

// BarsView is the visible bar window of the selected symbol
type BarsView struct {
	Symbol    string           `json:"symbol"`
	Symbols   []string         `json:"symbols"`
	Direction domain.Direction `json:"direction"`
	History   domain.History   `json:"history"`
	Present   bool             `json:"present"`
	Series    domain.BarSeries `json:"series"`
}

// AnalysisView is the extremes-size aggregation of the selected analysis
type AnalysisView struct {
	Analysis string                 `json:"analysis"`
	Symbol   string                 `json:"symbol"`
	Window   int                    `json:"window"`
	Extremes int                    `json:"extremes"`
	Present  bool                   `json:"present"`
	Sizes    views.ExtremesSizeData `json:"sizes"`
}

// TransactionsExport is the visible transaction view with its origin
type TransactionsExport struct {
	Backtest string
	View     views.TransactionView
}

// NewDashboardService creates the service
func NewDashboardService(st StateStore, commander bridge.Commander, cfg config.DashboardConfig, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &DashboardService{
		store:     st,
		commander: commander,
		pairing:   cfg,
		logger:    logger.With(slog.String("component", "dashboard_service")),
	}
}

// State returns the selection, the strategy snapshot and the names of the
// available backtests and analyses.
func (s *DashboardService) State(ctx context.Context) StateView {
	state := s.store.Snapshot()

	view := StateView{
		Version:          state.Version,
		Selection:        state.Selection,
		Koi:              state.Koi,
		SelectedAnalysis: state.SelectedAnalysisName(),
		Backtests:        sortedKeys(state.Backtests),
		Analyses:         append([]string{}, state.Analyses.Keys()...),
	}
	if strategy, ok := state.SelectedStrategy(); ok {
		view.SelectedStrategy = &strategy
	}
	return view
}

// Bars returns the bar window for the selected symbol.
func (s *DashboardService) Bars(ctx context.Context) BarsView {
	state := s.store.Snapshot()
	sel := state.Selection

	series, ok := views.SelectBars(state.Bars, sel.BarsSymbol, sel.Direction, sel.History.HistorySelection)
	return BarsView{
		Symbol:    sel.BarsSymbol,
		Symbols:   sortedKeys(state.Bars),
		Direction: sel.Direction,
		History:   sel.History,
		Present:   ok,
		Series:    series,
	}
}

// Transactions returns the selected backtest's transactions for the
// selected category. No selected backtest yields an empty view.
func (s *DashboardService) Transactions(ctx context.Context) views.TransactionView {
	return s.transactions(s.store.Snapshot()).View
}

// ExportTransactions returns the visible transactions with the backtest
// they belong to.
func (s *DashboardService) ExportTransactions(ctx context.Context) TransactionsExport {
	return s.transactions(s.store.Snapshot())
}

func (s *DashboardService) transactions(state store.AppState) TransactionsExport {
	bt, _ := state.SelectedBacktest()
	opts := views.PairingOptions{
		Tracked:        views.TrackedSymbols(bt),
		OpenOnFirstBuy: s.pairing.OpenOnFirstBuy,
	}
	return TransactionsExport{
		Backtest: state.Selection.Backtest,
		View:     views.VisibleTransactions(bt, state.Selection.Category, opts, s.logger),
	}
}

// Tickers returns the display rows of the selected tick tab.
func (s *DashboardService) Tickers(ctx context.Context) []domain.TickerRow {
	state := s.store.Snapshot()
	return views.TickerRows(state.Ticks.For(state.Selection.TickTab))
}

// Stats returns every strategy's performance against holding.
func (s *DashboardService) Stats(ctx context.Context) map[string]domain.StrategyStats {
	state := s.store.Snapshot()
	return views.StrategyStats(state.Koi.Strategies, state.Ticks)
}

// Holdings returns the open positions of the selected strategy.
func (s *DashboardService) Holdings(ctx context.Context) []domain.Holding {
	state := s.store.Snapshot()
	strategy, ok := state.SelectedStrategy()
	if !ok {
		return []domain.Holding{}
	}
	return views.Holdings(strategy, state.Ticks)
}

// Analysis returns the extremes-size aggregation for the current analysis
// selection.
func (s *DashboardService) Analysis(ctx context.Context) AnalysisView {
	state := s.store.Snapshot()
	sel := state.Selection

	view := AnalysisView{
		Analysis: state.SelectedAnalysisName(),
		Symbol:   sel.AnalysisSymbol,
		Window:   sel.Window,
		Extremes: sel.Extremes,
	}
	if analysis, ok := state.SelectedAnalysis(); ok {
		view.Sizes, view.Present = views.SelectExtremesSizeData(analysis, sel.AnalysisSymbol, sel.Window, sel.Extremes)
	}
	return view
}

// Highlights returns the classified tables for the current analysis
// selection.
func (s *DashboardService) Highlights(ctx context.Context) []views.HighlightTable {
	return views.BuildHighlightTables(s.Analysis(ctx).Sizes)
}

// Selection setters

// SetPage switches the active page.
func (s *DashboardService) SetPage(ctx context.Context, page domain.Page) error {
	if !page.Valid() {
		return apierrors.ErrValidation("page", fmt.Sprintf("unknown page %q", page))
	}
	return s.selectWith(ctx, func(sel *store.Selection) { sel.Page = page })
}

// SetTickTab switches between market and crypto ticks.
func (s *DashboardService) SetTickTab(ctx context.Context, tab domain.TickTab) error {
	if !tab.Valid() {
		return apierrors.ErrValidation("tab", fmt.Sprintf("unknown tick tab %q", tab))
	}
	return s.selectWith(ctx, func(sel *store.Selection) { sel.TickTab = tab })
}

// SelectStrategy selects the strategy at index.
func (s *DashboardService) SelectStrategy(ctx context.Context, index int) error {
	strategies := s.store.Snapshot().Koi.Strategies
	if index < 0 || index >= len(strategies) {
		return fmt.Errorf("%w: index %d", ErrUnknownStrategy, index)
	}
	return s.selectWith(ctx, func(sel *store.Selection) { sel.StrategyIndex = index })
}

// SelectBacktest selects a backtest by strategy name. The backtest need not
// have been received yet.
func (s *DashboardService) SelectBacktest(ctx context.Context, name string) error {
	return s.selectWith(ctx, func(sel *store.Selection) { sel.Backtest = name })
}

// SelectAnalysis selects an analysis and reseeds its window, extremes and
// symbol.
func (s *DashboardService) SelectAnalysis(ctx context.Context, name string) error {
	if _, ok := s.store.Snapshot().Analyses.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAnalysis, name)
	}
	return s.do(ctx, store.SelectAnalysis(name))
}

// SetWindow selects one of the analysis' window sizes.
func (s *DashboardService) SetWindow(ctx context.Context, window int) error {
	if err := s.checkAnalysisOption("window", window, func(a domain.Analysis) []int { return a.WindowSizes }); err != nil {
		return err
	}
	return s.selectWith(ctx, func(sel *store.Selection) { sel.Window = window })
}

// SetExtremes selects one of the analysis' extremes sizes.
func (s *DashboardService) SetExtremes(ctx context.Context, extremes int) error {
	if err := s.checkAnalysisOption("extremes", extremes, func(a domain.Analysis) []int { return a.ExtremesSizes }); err != nil {
		return err
	}
	return s.selectWith(ctx, func(sel *store.Selection) { sel.Extremes = extremes })
}

// SetAnalysisSymbol selects the analysed symbol.
func (s *DashboardService) SetAnalysisSymbol(ctx context.Context, symbol string) error {
	return s.selectWith(ctx, func(sel *store.Selection) { sel.AnalysisSymbol = symbol })
}

// SetBarsSymbol selects the symbol whose bars are shown.
func (s *DashboardService) SetBarsSymbol(ctx context.Context, symbol string) error {
	return s.selectWith(ctx, func(sel *store.Selection) { sel.BarsSymbol = symbol })
}

// SetHistory selects which bar rows are visible.
func (s *DashboardService) SetHistory(ctx context.Context, history domain.HistorySelection) error {
	if history == nil {
		return apierrors.ErrValidation("history", "history is required")
	}
	return s.selectWith(ctx, func(sel *store.Selection) { sel.History = domain.History{HistorySelection: history} })
}

// SetDirection sets the display order of bar rows.
func (s *DashboardService) SetDirection(ctx context.Context, dir domain.Direction) error {
	if !dir.Valid() {
		return apierrors.ErrValidation("direction", fmt.Sprintf("unknown direction %q", dir))
	}
	return s.selectWith(ctx, func(sel *store.Selection) { sel.Direction = dir })
}

// SetCategory selects the transaction view.
func (s *DashboardService) SetCategory(ctx context.Context, category domain.TransactionCategory) error {
	if !category.Valid() {
		return apierrors.ErrValidation("category", fmt.Sprintf("unknown category %q", category))
	}
	return s.selectWith(ctx, func(sel *store.Selection) { sel.Category = category })
}

// SetDarkMode switches the dashboard theme.
func (s *DashboardService) SetDarkMode(ctx context.Context, dark bool) error {
	return s.selectWith(ctx, func(sel *store.Selection) { sel.DarkMode = dark })
}

// FocusTransaction shows the bars around a transaction: the round trip's
// range when buyDate is set, the full history otherwise.
func (s *DashboardService) FocusTransaction(ctx context.Context, symbol, date, buyDate string) error {
	var history domain.HistorySelection = domain.HistoryFull
	if buyDate != "" {
		history = domain.HistoryRange{Buy: buyDate, Sell: date}
	}
	return s.selectWith(ctx, func(sel *store.Selection) {
		sel.BarsSymbol = symbol
		sel.History = domain.History{HistorySelection: history}
	})
}

func (s *DashboardService) checkAnalysisOption(field string, value int, options func(domain.Analysis) []int) error {
	state := s.store.Snapshot()
	analysis, ok := state.SelectedAnalysis()
	if !ok {
		return fmt.Errorf("%w: none selected", ErrUnknownAnalysis)
	}
	for _, o := range options(analysis) {
		if o == value {
			return nil
		}
	}
	return apierrors.ErrValidation(field, fmt.Sprintf("%d is not offered by analysis %s", value, state.SelectedAnalysisName()))
}

func (s *DashboardService) selectWith(ctx context.Context, fn func(*store.Selection)) error {
	return s.do(ctx, store.Select(fn))
}

func (s *DashboardService) do(ctx context.Context, u store.Update) error {
	if err := s.store.Do(ctx, u); err != nil {
		return fmt.Errorf("failed to apply selection: %w", err)
	}
	return nil
}

// Commands

// ToggleMarketStreaming starts or stops market tick streaming.
func (s *DashboardService) ToggleMarketStreaming(ctx context.Context) error {
	return s.command(ctx, "toggle_market_streaming", "", s.commander.ToggleMarketStreaming)
}

// ToggleCryptoStreaming starts or stops crypto tick streaming.
func (s *DashboardService) ToggleCryptoStreaming(ctx context.Context) error {
	return s.command(ctx, "toggle_crypto_streaming", "", s.commander.ToggleCryptoStreaming)
}

// SetStrategyActive activates or deactivates a strategy.
func (s *DashboardService) SetStrategyActive(ctx context.Context, name string, active bool) error {
	return s.strategyCommand(ctx, "set_strategy_active_state", name, func(ctx context.Context) error {
		return s.commander.SetStrategyActiveState(ctx, name, active)
	})
}

// SetStrategyCapital sets a strategy's capital.
func (s *DashboardService) SetStrategyCapital(ctx context.Context, name string, capital float64) error {
	if capital <= 0 {
		return apierrors.ErrValidation("capital", "capital must be greater than 0")
	}
	return s.strategyCommand(ctx, "set_strategy_capital", name, func(ctx context.Context) error {
		return s.commander.SetStrategyCapital(ctx, name, capital)
	})
}

// BacktestStrategy starts a backtest of a strategy.
func (s *DashboardService) BacktestStrategy(ctx context.Context, name string) error {
	return s.strategyCommand(ctx, "backtest_strategy", name, func(ctx context.Context) error {
		return s.commander.BacktestStrategy(ctx, name)
	})
}

// AnalyzeStrategy starts an analysis of a strategy.
func (s *DashboardService) AnalyzeStrategy(ctx context.Context, name string) error {
	return s.strategyCommand(ctx, "analyze_strategy", name, func(ctx context.Context) error {
		return s.commander.AnalyzeStrategy(ctx, name)
	})
}

// ToggleStrategy starts or stops a strategy.
func (s *DashboardService) ToggleStrategy(ctx context.Context, name string) error {
	return s.strategyCommand(ctx, "toggle_strategy", name, func(ctx context.Context) error {
		return s.commander.ToggleStrategy(ctx, name)
	})
}

func (s *DashboardService) strategyCommand(ctx context.Context, command, name string, fn func(context.Context) error) error {
	if !s.hasStrategy(name) {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return s.command(ctx, command, name, fn)
}

func (s *DashboardService) hasStrategy(name string) bool {
	for _, strategy := range s.store.Snapshot().Koi.Strategies {
		if strategy.Name == name {
			return true
		}
	}
	return false
}

func (s *DashboardService) command(ctx context.Context, command, strategy string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		s.logger.InfoContext(ctx, "command sent",
			slog.String("command", command),
			slog.String("strategy", strategy))
		return nil
	}

	s.logger.WarnContext(ctx, "command failed",
		slog.String("command", command),
		slog.String("strategy", strategy),
		slog.String("error", err.Error()))

	switch {
	case errors.Is(err, bridge.ErrNotConnected):
		return apierrors.ErrBridgeUnavailable
	case errors.Is(err, bridge.ErrRateLimited):
		return apierrors.ErrRateLimitExceeded
	case errors.Is(err, bridge.ErrRemote):
		return apierrors.BridgeCallError(err)
	}
	return fmt.Errorf("%s failed: %w", command, err)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
