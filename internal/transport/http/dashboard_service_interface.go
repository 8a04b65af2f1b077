package http

import (
	"context"

	"koidash/internal/services"
	"koidash/internal/views"
	"koidash/pkg/contracts/domain"
)

// DashboardServiceInterface is the service behind the dashboard handlers
type DashboardServiceInterface interface {
	State(ctx context.Context) services.StateView
	Bars(ctx context.Context) services.BarsView
	Transactions(ctx context.Context) views.TransactionView
	ExportTransactions(ctx context.Context) services.TransactionsExport
	Tickers(ctx context.Context) []domain.TickerRow
	Stats(ctx context.Context) map[string]domain.StrategyStats
	Holdings(ctx context.Context) []domain.Holding
	Analysis(ctx context.Context) services.AnalysisView
	Highlights(ctx context.Context) []views.HighlightTable

	SetPage(ctx context.Context, page domain.Page) error
	SetTickTab(ctx context.Context, tab domain.TickTab) error
	SelectStrategy(ctx context.Context, index int) error
	SelectBacktest(ctx context.Context, name string) error
	SelectAnalysis(ctx context.Context, name string) error
	SetWindow(ctx context.Context, window int) error
	SetExtremes(ctx context.Context, extremes int) error
	SetAnalysisSymbol(ctx context.Context, symbol string) error
	SetBarsSymbol(ctx context.Context, symbol string) error
	SetHistory(ctx context.Context, history domain.HistorySelection) error
	SetDirection(ctx context.Context, dir domain.Direction) error
	SetCategory(ctx context.Context, category domain.TransactionCategory) error
	SetDarkMode(ctx context.Context, dark bool) error
	FocusTransaction(ctx context.Context, symbol, date, buyDate string) error

	ToggleMarketStreaming(ctx context.Context) error
	ToggleCryptoStreaming(ctx context.Context) error
	SetStrategyActive(ctx context.Context, name string, active bool) error
	SetStrategyCapital(ctx context.Context, name string, capital float64) error
	BacktestStrategy(ctx context.Context, name string) error
	AnalyzeStrategy(ctx context.Context, name string) error
	ToggleStrategy(ctx context.Context, name string) error
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
