package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koidash/internal/bridge"
	"koidash/internal/config"
	"koidash/internal/shared/testutil"
	"koidash/internal/store"
	"koidash/pkg/contracts/domain"
)

// fakeBridge records every call and answers from its fields
type fakeBridge struct {
	connected atomic.Bool

	mu    sync.Mutex
	calls map[string]int
	args  map[string]string
	err   error
	gate  chan struct{}

	koi      domain.KoiState
	market   domain.Ticks
	crypto   domain.Ticks
	bars     domain.BarState
	analyses domain.AnalysisState
}

var _ bridge.Bridge = (*fakeBridge)(nil)

func newFakeBridge() *fakeBridge {
	f := &fakeBridge{
		calls: map[string]int{},
		args:  map[string]string{},
		koi: domain.KoiState{
			Strategies:           []domain.StrategyInfo{{Name: "momentum"}},
			MarketTicksStreaming: true,
			CryptoTicksStreaming: true,
		},
		market: domain.Ticks{"AAPL": {Ask: "101"}},
		crypto: domain.Ticks{"BTC-USD": {Ask: "60000"}},
		bars:   domain.BarState{"AAPL": {Columns: []string{"date"}, Data: [][]any{{"2024/01/02 00:00:00"}}}},
	}
	f.connected.Store(true)
	return f
}

func (f *fakeBridge) record(ctx context.Context, name, arg string) error {
	f.mu.Lock()
	f.calls[name]++
	f.args[name] = arg
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeBridge) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBridge) lastArg(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.args[name]
}

func (f *fakeBridge) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeBridge) Connected() bool { return f.connected.Load() }

func (f *fakeBridge) FetchState(ctx context.Context) (domain.KoiState, error) {
	return f.koi, f.record(ctx, "fetch_state", "")
}

func (f *fakeBridge) FetchMarketTicks(ctx context.Context) (domain.Ticks, error) {
	return f.market, f.record(ctx, "fetch_market_tick_data", "")
}

func (f *fakeBridge) FetchCryptoTicks(ctx context.Context) (domain.Ticks, error) {
	return f.crypto, f.record(ctx, "fetch_crypto_tick_data", "")
}

func (f *fakeBridge) FetchTraderBars(ctx context.Context, strategy string) (domain.BarState, error) {
	return f.bars, f.record(ctx, "fetch_trader_bars", strategy)
}

func (f *fakeBridge) FetchBacktestBars(ctx context.Context, backtest string) (domain.BarState, error) {
	return f.bars, f.record(ctx, "fetch_backtest_bars", backtest)
}

func (f *fakeBridge) FetchBacktestPerformances(ctx context.Context) (domain.BacktestsState, error) {
	return domain.BacktestsState{"momentum": {}}, f.record(ctx, "fetch_backtest_performances", "")
}

func (f *fakeBridge) FetchAnalyses(ctx context.Context) (domain.AnalysisState, error) {
	return f.analyses, f.record(ctx, "fetch_analyses", "")
}

func (f *fakeBridge) Heartbeat(ctx context.Context) (float64, error) {
	return 1700000000, f.record(ctx, "heartbeat", "")
}

func (f *fakeBridge) ToggleMarketStreaming(ctx context.Context) error {
	return f.record(ctx, "toggle_market_streaming", "")
}

func (f *fakeBridge) ToggleCryptoStreaming(ctx context.Context) error {
	return f.record(ctx, "toggle_crypto_streaming", "")
}

func (f *fakeBridge) SetStrategyActiveState(ctx context.Context, name string, active bool) error {
	return f.record(ctx, "set_strategy_active_state", fmt.Sprintf("%s:%t", name, active))
}

func (f *fakeBridge) SetStrategyCapital(ctx context.Context, name string, capital float64) error {
	return f.record(ctx, "set_strategy_capital", fmt.Sprintf("%s:%g", name, capital))
}

func (f *fakeBridge) BacktestStrategy(ctx context.Context, name string) error {
	return f.record(ctx, "backtest_strategy", name)
}

func (f *fakeBridge) AnalyzeStrategy(ctx context.Context, name string) error {
	return f.record(ctx, "analyze_strategy", name)
}

func (f *fakeBridge) ToggleStrategy(ctx context.Context, name string) error {
	return f.record(ctx, "toggle_strategy", name)
}

type fixture struct {
	bridge *fakeBridge
	store  *store.Store
	sched  *Scheduler
	logs   *testutil.BufferedSlogHandler
	tasks  map[string]Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)

	st := store.New(nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		st.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	b := newFakeBridge()
	tasks := DefaultTasks(config.Default().Polling, logger)
	byName := make(map[string]Task, len(tasks))
	for _, task := range tasks {
		byName[task.Name] = task
	}

	return &fixture{
		bridge: b,
		store:  st,
		sched:  New(b, st, tasks, nil, logger),
		logs:   logs,
		tasks:  byName,
	}
}

// settle waits for dispatched fetches and for the store to apply what they sent
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	f.sched.Wait()
	require.NoError(t, f.store.Do(context.Background(), store.Select(func(*store.Selection) {})))
}

func (f *fixture) selectState(t *testing.T, fn func(*store.Selection)) {
	t.Helper()
	require.NoError(t, f.store.Do(context.Background(), store.Select(fn)))
}

func (f *fixture) loadKoi(t *testing.T) {
	t.Helper()
	require.True(t, f.sched.tick(context.Background(), f.tasks["koi"]))
	f.settle(t)
}

func (f *fixture) tick(t *testing.T, name string) bool {
	t.Helper()
	task, ok := f.tasks[name]
	require.True(t, ok, "unknown task %s", name)
	return f.sched.tick(context.Background(), task)
}

func TestDefaultTaskCadences(t *testing.T) {
	tasks := DefaultTasks(config.Default().Polling, slog.Default())

	got := map[string]time.Duration{}
	for _, task := range tasks {
		got[task.Name] = task.Interval
	}
	assert.Equal(t, map[string]time.Duration{
		"koi":           time.Second,
		"heartbeat":     5 * time.Second,
		"ticks":         time.Second,
		"trader_bars":   time.Second,
		"backtests":     500 * time.Millisecond,
		"backtest_bars": time.Second,
		"analyses":      5 * time.Second,
	}, got)
}

func TestTickSkipsWhileDisconnected(t *testing.T) {
	f := newFixture(t)
	f.bridge.connected.Store(false)

	for name := range f.tasks {
		assert.False(t, f.tick(t, name), name)
	}
	f.settle(t)
	assert.Zero(t, f.bridge.callCount("fetch_state"))
	assert.Zero(t, f.bridge.callCount("heartbeat"))
}

func TestKoiReplacesState(t *testing.T) {
	f := newFixture(t)
	f.loadKoi(t)

	state := f.store.Snapshot()
	require.Len(t, state.Koi.Strategies, 1)
	assert.Equal(t, "momentum", state.Koi.Strategies[0].Name)
	assert.True(t, state.Koi.MarketTicksStreaming)
}

func TestTradeFetchesOnlyOnTradePage(t *testing.T) {
	f := newFixture(t)
	f.loadKoi(t)

	for _, page := range []domain.Page{domain.PageBacktest, domain.PageAnalysis} {
		f.selectState(t, func(s *store.Selection) { s.Page = page })
		assert.False(t, f.tick(t, "ticks"), page)
		assert.False(t, f.tick(t, "trader_bars"), page)
	}
	f.settle(t)
	assert.Zero(t, f.bridge.callCount("fetch_market_tick_data"))
	assert.Zero(t, f.bridge.callCount("fetch_trader_bars"))

	f.selectState(t, func(s *store.Selection) { s.Page = domain.PageTrade })
	assert.True(t, f.tick(t, "ticks"))
	assert.True(t, f.tick(t, "trader_bars"))
	f.settle(t)

	assert.Equal(t, 1, f.bridge.callCount("fetch_market_tick_data"))
	assert.Equal(t, "momentum", f.bridge.lastArg("fetch_trader_bars"))

	state := f.store.Snapshot()
	assert.Contains(t, state.Ticks.Market, "AAPL")
	assert.Contains(t, state.Bars, "AAPL")
}

func TestTicksRequireStreaming(t *testing.T) {
	f := newFixture(t)
	f.bridge.koi.MarketTicksStreaming = false
	f.loadKoi(t)

	assert.False(t, f.tick(t, "ticks"))

	f.selectState(t, func(s *store.Selection) { s.TickTab = domain.TickTabCrypto })
	assert.True(t, f.tick(t, "ticks"), "crypto streaming is still on")
}

func TestTicksReplaceOnlyActiveTab(t *testing.T) {
	f := newFixture(t)
	f.loadKoi(t)

	require.True(t, f.tick(t, "ticks"))
	f.settle(t)

	f.selectState(t, func(s *store.Selection) { s.TickTab = domain.TickTabCrypto })
	f.bridge.market = domain.Ticks{"MSFT": {Ask: "1"}}
	require.True(t, f.tick(t, "ticks"))
	f.settle(t)

	assert.Equal(t, 1, f.bridge.callCount("fetch_crypto_tick_data"))
	assert.Equal(t, 1, f.bridge.callCount("fetch_market_tick_data"))

	state := f.store.Snapshot()
	assert.Contains(t, state.Ticks.Crypto, "BTC-USD")
	assert.Contains(t, state.Ticks.Market, "AAPL", "market half keeps its last value")
	assert.NotContains(t, state.Ticks.Market, "MSFT")
}

func TestTraderBarsRequireStrategy(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.tick(t, "trader_bars"), "no strategies received yet")

	f.loadKoi(t)
	f.selectState(t, func(s *store.Selection) { s.StrategyIndex = 3 })
	assert.False(t, f.tick(t, "trader_bars"), "index out of range")
}

func TestBacktestTasks(t *testing.T) {
	f := newFixture(t)
	f.loadKoi(t)

	assert.False(t, f.tick(t, "backtests"))

	f.selectState(t, func(s *store.Selection) { s.Page = domain.PageBacktest })
	assert.True(t, f.tick(t, "backtests"))
	assert.False(t, f.tick(t, "backtest_bars"), "no backtest selected")

	f.selectState(t, func(s *store.Selection) { s.Backtest = "momentum" })
	assert.True(t, f.tick(t, "backtest_bars"))
	f.settle(t)

	assert.Equal(t, "momentum", f.bridge.lastArg("fetch_backtest_bars"))
	state := f.store.Snapshot()
	assert.Contains(t, state.Backtests, "momentum")
	assert.Contains(t, state.Bars, "AAPL")
}

func TestAnalysesSeedSelection(t *testing.T) {
	f := newFixture(t)
	var a domain.Analysis
	a.WindowSizes = []int{10}
	a.ExtremesSizes = []int{5}
	a.AnalysisData.Set("TSLA", domain.SymbolAnalysis{})
	f.bridge.analyses.Set("momentum", a)

	assert.False(t, f.tick(t, "analyses"))

	f.selectState(t, func(s *store.Selection) { s.Page = domain.PageAnalysis })
	require.True(t, f.tick(t, "analyses"))
	f.settle(t)

	sel := f.store.Snapshot().Selection
	assert.Equal(t, "momentum", sel.Analysis)
	assert.Equal(t, 10, sel.Window)
	assert.Equal(t, 5, sel.Extremes)
	assert.Equal(t, "TSLA", sel.AnalysisSymbol)
}

func TestHeartbeatDoesNotTouchStore(t *testing.T) {
	f := newFixture(t)
	before := f.store.Snapshot().Version

	require.True(t, f.tick(t, "heartbeat"))
	f.sched.Wait()

	assert.Equal(t, before, f.store.Snapshot().Version)
	assert.Equal(t, 1, f.bridge.callCount("heartbeat"))
	testutil.AssertLogContains(t, f.logs, slog.LevelDebug, "heartbeat")
}

func TestFailedFetchLeavesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.loadKoi(t)
	before := f.store.Snapshot()

	f.bridge.fail(fmt.Errorf("%w: connection reset", bridge.ErrNotConnected))
	require.True(t, f.tick(t, "koi"))
	f.sched.Wait()

	after := f.store.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Koi, after.Koi)
	testutil.AssertLogContains(t, f.logs, slog.LevelWarn, "snapshot fetch failed")
	testutil.AssertLogAttr(t, f.logs, "task", "koi")
}

func TestMalformedFetchLogsReason(t *testing.T) {
	f := newFixture(t)
	f.bridge.fail(fmt.Errorf("%w: fetch_state: missing strategies", bridge.ErrMalformed))

	require.True(t, f.tick(t, "koi"))
	f.sched.Wait()

	assert.Zero(t, f.store.Snapshot().Version)
	testutil.AssertLogContains(t, f.logs, slog.LevelWarn, "discarding malformed snapshot")
	assert.True(t, f.logs.ContainsAttr("reason", "bridge: malformed response: fetch_state: missing strategies"))
}

func TestInFlightRequestsAreJoined(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.bridge.mu.Lock()
	f.bridge.gate = gate
	f.bridge.mu.Unlock()

	require.True(t, f.tick(t, "koi"))
	require.Eventually(t, func() bool {
		return f.bridge.callCount("fetch_state") == 1
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < 3; i++ {
		require.True(t, f.tick(t, "koi"))
	}
	close(gate)
	f.settle(t)

	assert.Equal(t, 1, f.bridge.callCount("fetch_state"))
	assert.Equal(t, uint64(2), f.store.Snapshot().Version, "one koi update plus the settle barrier")
}

func TestSlowTaskDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	defer close(gate)

	slow := Task{
		Name:     "slow",
		Interval: time.Second,
		Fetch: func(ctx context.Context, _ bridge.Fetcher, _ store.AppState) (store.Update, error) {
			<-gate
			return store.Update{}, nil
		},
	}
	require.True(t, f.sched.tick(context.Background(), slow))

	require.True(t, f.tick(t, "heartbeat"))
	require.Eventually(t, func() bool {
		return f.bridge.callCount("heartbeat") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRunPollsUntilCancelled(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	st := store.New(nil, logger)
	storeCtx, stopStore := context.WithCancel(context.Background())
	defer stopStore()
	go st.Run(storeCtx)

	b := newFakeBridge()
	tasks := []Task{{
		Name:     "koi",
		Interval: 10 * time.Millisecond,
		Fetch: func(ctx context.Context, fb bridge.Fetcher, _ store.AppState) (store.Update, error) {
			koi, err := fb.FetchState(ctx)
			return store.ReplaceKoi(koi), err
		},
	}, {Name: "unscheduled"}}
	s := New(b, st, tasks, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return b.callCount("fetch_state") >= 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.NotEmpty(t, st.Snapshot().Koi.Strategies)
}
