package scheduler

import (
	"context"
	"log/slog"
	"time"

	"koidash/internal/bridge"
	"koidash/internal/config"
	"koidash/internal/store"
	"koidash/pkg/contracts/domain"
)

// Task is one periodic snapshot refresh.
type Task struct {
	Name     string
	Interval time.Duration

	// Due reports whether the current state needs this snapshot.
	// A nil Due is always due.
	Due func(state store.AppState) bool

	// Key identifies the request for de-duplication. A nil Key uses Name.
	Key func(state store.AppState) string

	// Fetch requests the snapshot. An empty update leaves the store alone.
	Fetch func(ctx context.Context, b bridge.Fetcher, state store.AppState) (store.Update, error)
}

func (t Task) due(state store.AppState) bool {
	return t.Due == nil || t.Due(state)
}

func (t Task) key(state store.AppState) string {
	if t.Key == nil {
		return t.Name
	}
	return t.Name + ":" + t.Key(state)
}

func onPage(page domain.Page) func(store.AppState) bool {
	return func(s store.AppState) bool {
		return s.Selection.Page == page
	}
}

func selectedStrategyName(s store.AppState) string {
	strategy, _ := s.SelectedStrategy()
	return strategy.Name
}

// DefaultTasks returns the dashboard's refresh tasks at the configured
// cadences.
func DefaultTasks(cfg config.PollingConfig, logger *slog.Logger) []Task {
	return []Task{
		{
			Name:     "koi",
			Interval: cfg.Koi,
			Fetch: func(ctx context.Context, b bridge.Fetcher, _ store.AppState) (store.Update, error) {
				koi, err := b.FetchState(ctx)
				if err != nil {
					return store.Update{}, err
				}
				return store.ReplaceKoi(koi), nil
			},
		},
		{
			Name:     "heartbeat",
			Interval: cfg.Heartbeat,
			Fetch: func(ctx context.Context, b bridge.Fetcher, _ store.AppState) (store.Update, error) {
				ts, err := b.Heartbeat(ctx)
				if err != nil {
					return store.Update{}, err
				}
				logger.DebugContext(ctx, "heartbeat", slog.Float64("remote_time", ts))
				return store.Update{}, nil
			},
		},
		{
			Name:     "ticks",
			Interval: cfg.Ticks,
			Due: func(s store.AppState) bool {
				return s.Selection.Page == domain.PageTrade && s.TickStreamingActive()
			},
			Key: func(s store.AppState) string {
				return string(s.Selection.TickTab)
			},
			Fetch: func(ctx context.Context, b bridge.Fetcher, s store.AppState) (store.Update, error) {
				tab := s.Selection.TickTab
				fetch := b.FetchMarketTicks
				if tab == domain.TickTabCrypto {
					fetch = b.FetchCryptoTicks
				}
				ticks, err := fetch(ctx)
				if err != nil {
					return store.Update{}, err
				}
				return store.ReplaceTicks(tab, ticks), nil
			},
		},
		{
			Name:     "trader_bars",
			Interval: cfg.TraderBars,
			Due: func(s store.AppState) bool {
				_, ok := s.SelectedStrategy()
				return ok && s.Selection.Page == domain.PageTrade
			},
			Key: selectedStrategyName,
			Fetch: func(ctx context.Context, b bridge.Fetcher, s store.AppState) (store.Update, error) {
				bars, err := b.FetchTraderBars(ctx, selectedStrategyName(s))
				if err != nil {
					return store.Update{}, err
				}
				return store.ReplaceBars(bars), nil
			},
		},
		{
			Name:     "backtests",
			Interval: cfg.Backtests,
			Due:      onPage(domain.PageBacktest),
			Fetch: func(ctx context.Context, b bridge.Fetcher, _ store.AppState) (store.Update, error) {
				backtests, err := b.FetchBacktestPerformances(ctx)
				if err != nil {
					return store.Update{}, err
				}
				return store.ReplaceBacktests(backtests), nil
			},
		},
		{
			Name:     "backtest_bars",
			Interval: cfg.BacktestBars,
			Due: func(s store.AppState) bool {
				_, ok := s.SelectedStrategy()
				return ok && s.Selection.Backtest != "" && s.Selection.Page == domain.PageBacktest
			},
			Key: func(s store.AppState) string {
				return s.Selection.Backtest
			},
			Fetch: func(ctx context.Context, b bridge.Fetcher, s store.AppState) (store.Update, error) {
				bars, err := b.FetchBacktestBars(ctx, s.Selection.Backtest)
				if err != nil {
					return store.Update{}, err
				}
				return store.ReplaceBars(bars), nil
			},
		},
		{
			Name:     "analyses",
			Interval: cfg.Analyses,
			Due:      onPage(domain.PageAnalysis),
			Fetch: func(ctx context.Context, b bridge.Fetcher, _ store.AppState) (store.Update, error) {
				analyses, err := b.FetchAnalyses(ctx)
				if err != nil {
					return store.Update{}, err
				}
				return store.ReplaceAnalyses(analyses), nil
			},
		},
	}
}
