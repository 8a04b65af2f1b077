package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koidash/internal/config"
	"koidash/internal/shared/testutil"
)

// handlerFunc answers one call with a status and a raw JSON value
type handlerFunc func(args []json.RawMessage) (status string, value string)

// fakeProcess is a websocket server speaking the trading process protocol
type fakeProcess struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	handlers map[string]handlerFunc
	calls    []string
	args     map[string][]json.RawMessage
	conns    []*websocket.Conn
}

func newFakeProcess(t *testing.T) *fakeProcess {
	p := &fakeProcess{
		t:        t,
		handlers: make(map[string]handlerFunc),
		args:     make(map[string][]json.RawMessage),
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProcess) url() string {
	return "ws" + strings.TrimPrefix(p.server.URL, "http") + "/eel"
}

func (p *fakeProcess) handle(name string, h handlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[name] = h
}

func (p *fakeProcess) respond(name, value string) {
	p.handle(name, func([]json.RawMessage) (string, string) { return "ok", value })
}

func (p *fakeProcess) callCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (p *fakeProcess) lastArgs(name string) []json.RawMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.args[name]
}

// dropConnections closes every open session from the server side.
func (p *fakeProcess) dropConnections() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		c.Close()
	}
	p.conns = nil
}

func (p *fakeProcess) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.conns = append(p.conns, conn)
	p.mu.Unlock()

	var writeMu sync.Mutex
	for {
		var req struct {
			Call uint64            `json:"call"`
			Name string            `json:"name"`
			Args []json.RawMessage `json:"args"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		p.mu.Lock()
		p.calls = append(p.calls, req.Name)
		p.args[req.Name] = req.Args
		h, ok := p.handlers[req.Name]
		p.mu.Unlock()

		if !ok {
			continue
		}

		go func(id uint64) {
			status, value := h(req.Args)
			frame := `{"return":` + jsonNumber(id) + `,"status":"` + status + `","value":` + value + `}`
			writeMu.Lock()
			defer writeMu.Unlock()
			conn.WriteMessage(websocket.TextMessage, []byte(frame))
		}(req.Call)
	}
}

func jsonNumber(id uint64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func testBridgeConfig(url string) config.BridgeConfig {
	return config.BridgeConfig{
		URL:               url,
		DialTimeout:       time.Second,
		CallTimeout:       200 * time.Millisecond,
		ReconnectInterval: 20 * time.Millisecond,
		CommandRPS:        100,
		CommandBurst:      100,
	}
}

// startClient runs a client against p and waits for its session.
func startClient(t *testing.T, p *fakeProcess, cfg config.BridgeConfig) *Client {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	client := NewClient(cfg, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, client.Connected, 2*time.Second, 5*time.Millisecond)
	return client
}

func TestClientFetchState(t *testing.T) {
	p := newFakeProcess(t)
	p.respond("fetch_state", `"{\"strategies\": [{\"name\": \"momentum\", \"equity\": NaN, \"crypto\": false}], \"ib_connected\": true, \"market_ticks_streaming\": true, \"crypto_ticks_streaming\": false}"`)
	client := startClient(t, p, testBridgeConfig(p.url()))

	state, err := client.FetchState(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Strategies, 1)
	assert.Equal(t, "momentum", state.Strategies[0].Name)
	assert.Zero(t, state.Strategies[0].Equity)
	assert.True(t, state.IBConnected)
	assert.True(t, state.MarketTicksStreaming)
	assert.False(t, state.CryptoTicksStreaming)
}

func TestClientFetchStateMalformed(t *testing.T) {
	p := newFakeProcess(t)
	p.respond("fetch_state", `{}`)
	client := startClient(t, p, testBridgeConfig(p.url()))

	_, err := client.FetchState(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestClientFetchSnapshots(t *testing.T) {
	p := newFakeProcess(t)
	p.respond("fetch_market_tick_data", `{"AAPL":{"ask":"101.5","prevAsk":"101.25","open":"100"}}`)
	p.respond("fetch_trader_bars", `{"AAPL":{"index":[0,1],"columns":["date","close"],"data":[["2023/01/02 09:30:00",NaN],["2023/01/02 09:31:00",1.5]]}}`)
	p.respond("fetch_analyses", `{"zeta":{"stage":"complete","window_sizes":[5]},"alpha":{"stage":"data"}}`)
	client := startClient(t, p, testBridgeConfig(p.url()))
	ctx := context.Background()

	ticks, err := client.FetchMarketTicks(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 101.5, ticks["AAPL"].Ask.Float(), 1e-9)

	bars, err := client.FetchTraderBars(ctx, "momentum")
	require.NoError(t, err)
	require.Len(t, bars["AAPL"].Data, 2)
	assert.Nil(t, bars["AAPL"].Data[0][1])
	assert.Equal(t, []json.RawMessage{json.RawMessage(`"momentum"`)}, p.lastArgs("fetch_trader_bars"))

	analyses, err := client.FetchAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, analyses.Keys())
}

func TestClientNotConnected(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	client := NewClient(testBridgeConfig("ws://127.0.0.1:1/eel"), nil, logger)

	assert.False(t, client.Connected())
	_, err := client.FetchState(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, client.ToggleStrategy(context.Background(), "momentum"), ErrNotConnected)
}

func TestClientRemoteError(t *testing.T) {
	p := newFakeProcess(t)
	p.handle("fetch_backtest_performances", func([]json.RawMessage) (string, string) {
		return "error", `"KeyError: 'momentum'"`
	})
	client := startClient(t, p, testBridgeConfig(p.url()))

	_, err := client.FetchBacktestPerformances(context.Background())
	assert.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "KeyError")
}

func TestClientCallTimeout(t *testing.T) {
	p := newFakeProcess(t)
	client := startClient(t, p, testBridgeConfig(p.url()))

	// no handler registered, so the call is never answered
	_, err := client.FetchCryptoTicks(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, client.Connected())
}

func TestClientCommands(t *testing.T) {
	p := newFakeProcess(t)
	for _, name := range []string{"set_strategy_capital", "set_strategy_active_state", "toggle_market_streaming"} {
		p.respond(name, `null`)
	}
	client := startClient(t, p, testBridgeConfig(p.url()))
	ctx := context.Background()

	require.NoError(t, client.SetStrategyCapital(ctx, "momentum", 2500))
	assert.Equal(t, []json.RawMessage{json.RawMessage(`"momentum"`), json.RawMessage(`2500`)}, p.lastArgs("set_strategy_capital"))

	require.NoError(t, client.SetStrategyActiveState(ctx, "momentum", true))
	assert.Equal(t, []json.RawMessage{json.RawMessage(`"momentum"`), json.RawMessage(`true`)}, p.lastArgs("set_strategy_active_state"))

	require.NoError(t, client.ToggleMarketStreaming(ctx))
	assert.Equal(t, []json.RawMessage{}, p.lastArgs("toggle_market_streaming"))
}

func TestClientCommandRateLimit(t *testing.T) {
	p := newFakeProcess(t)
	p.respond("toggle_strategy", `null`)
	cfg := testBridgeConfig(p.url())
	cfg.CommandRPS = 0.001
	cfg.CommandBurst = 2
	client := startClient(t, p, cfg)
	ctx := context.Background()

	require.NoError(t, client.ToggleStrategy(ctx, "a"))
	require.NoError(t, client.ToggleStrategy(ctx, "a"))
	err := client.ToggleStrategy(ctx, "a")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, 2, p.callCount("toggle_strategy"))
}

func TestClientReconnects(t *testing.T) {
	p := newFakeProcess(t)
	p.respond("heartbeat", `1700000000.5`)
	cfg := testBridgeConfig(p.url())
	cfg.ReconnectInterval = 150 * time.Millisecond
	client := startClient(t, p, cfg)

	p.dropConnections()
	require.Eventually(t, func() bool { return !client.Connected() }, time.Second, 5*time.Millisecond)
	require.Eventually(t, client.Connected, 2*time.Second, 5*time.Millisecond)

	ts, err := client.Heartbeat(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1700000000.5, ts, 1e-6)
}
