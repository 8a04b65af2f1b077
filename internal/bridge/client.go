package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"koidash/internal/config"
	"koidash/internal/infrastructure"
	"koidash/pkg/contracts/domain"
)

const (
	// Time allowed to write a request to the trading process
	writeWait = 5 * time.Second

	// Maximum response size; bar and analysis snapshots are large
	maxMessageSize = 64 << 20
)

type request struct {
	Call uint64 `json:"call"`
	Name string `json:"name"`
	Args []any  `json:"args"`
}

type response struct {
	Return *uint64          `json:"return"`
	Status string           `json:"status"`
	Value  json.RawMessage  `json:"value"`
	Error  *json.RawMessage `json:"error,omitempty"`
}

// Client is a websocket RPC client for the trading process
type Client struct {
	url               string
	dialer            *websocket.Dialer
	callTimeout       time.Duration
	reconnectInterval time.Duration
	limiter           *rate.Limiter
	metrics           *infrastructure.Metrics
	logger            *slog.Logger

	nextID    atomic.Uint64
	connected atomic.Bool

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]chan response

	writeMu sync.Mutex
}

// NewClient creates a client for the trading process. Run must be called
// to establish the session.
func NewClient(cfg config.BridgeConfig, metrics *infrastructure.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics = infrastructure.NoopMetrics()
	}

	return &Client{
		url: cfg.URL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		},
		callTimeout:       cfg.CallTimeout,
		reconnectInterval: cfg.ReconnectInterval,
		limiter:           rate.NewLimiter(rate.Limit(cfg.CommandRPS), cfg.CommandBurst),
		metrics:           metrics,
		logger:            logger.With(slog.String("component", "bridge"), slog.String("url", cfg.URL)),
		pending:           make(map[uint64]chan response),
	}
}

// Connected reports whether a session is established.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Run keeps a session open until ctx is cancelled, redialing after every
// failure.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.WarnContext(ctx, "failed to connect to trading process",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", c.reconnectInterval))
		} else {
			c.serve(ctx, conn)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectInterval):
		}
	}
}

// serve reads responses from conn until it fails or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.metrics.BridgeConnected.Add(ctx, 1)
	c.logger.InfoContext(ctx, "connected to trading process")

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.WarnContext(ctx, "lost connection to trading process",
					slog.String("error", err.Error()))
			}
			break
		}
		c.dispatch(ctx, message)
	}

	close(done)
	conn.Close()
	c.connected.Store(false)
	c.metrics.BridgeConnected.Add(context.WithoutCancel(ctx), -1)

	c.mu.Lock()
	c.conn = nil
	pending := c.pending
	c.pending = make(map[uint64]chan response)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// dispatch routes one frame to the call waiting for it. Frames that are not
// responses, such as calls the process makes into the page, are ignored.
func (c *Client) dispatch(ctx context.Context, message []byte) {
	var resp response
	if err := json.Unmarshal(sanitize(message), &resp); err != nil {
		c.logger.WarnContext(ctx, "discarding undecodable frame",
			slog.String("reason", err.Error()))
		return
	}
	if resp.Return == nil {
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[*resp.Return]
	delete(c.pending, *resp.Return)
	c.mu.Unlock()

	if ok {
		ch <- resp
	}
}

// call invokes name on the trading process and returns the raw value.
func (c *Client) call(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	id := c.nextID.Add(1)
	ch := make(chan response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteJSON(request{Call: id, Name: name, Args: args})
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("bridge: send %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrNotConnected)
		}
		if resp.Status != "ok" {
			detail := string(resp.Value)
			if resp.Error != nil {
				detail = string(*resp.Error)
			}
			return nil, fmt.Errorf("%w: %s: %s", ErrRemote, name, detail)
		}
		return resp.Value, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, fmt.Errorf("bridge: %s: %w", name, ctx.Err())
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// command sends a user-initiated call, subject to the command rate limit.
func (c *Client) command(ctx context.Context, name string, args ...any) error {
	if !c.limiter.Allow() {
		c.recordCommand(ctx, name, "rate_limited")
		return ErrRateLimited
	}
	if !c.Connected() {
		c.recordCommand(ctx, name, "not_connected")
		return ErrNotConnected
	}

	_, err := c.call(ctx, name, args...)
	if err != nil {
		c.recordCommand(ctx, name, "failure")
		c.logger.WarnContext(ctx, "command failed",
			slog.String("command", name),
			slog.String("error", err.Error()))
		return err
	}

	c.recordCommand(ctx, name, "success")
	c.logger.InfoContext(ctx, "command sent", slog.String("command", name))
	return nil
}

func (c *Client) recordCommand(ctx context.Context, name, outcome string) {
	c.metrics.BridgeCommandsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("outcome", outcome),
	))
}

// FetchState retrieves the strategy and connection snapshot.
func (c *Client) FetchState(ctx context.Context) (domain.KoiState, error) {
	var state domain.KoiState
	value, err := c.call(ctx, "fetch_state")
	if err != nil {
		return state, err
	}

	data := unwrap(value)
	if err := checkKoiState(data); err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("%w: fetch_state: %v", ErrMalformed, err)
	}
	return state, nil
}

// FetchMarketTicks retrieves the latest market quotes.
func (c *Client) FetchMarketTicks(ctx context.Context) (domain.Ticks, error) {
	return fetchObject[domain.Ticks](ctx, c, "fetch_market_tick_data")
}

// FetchCryptoTicks retrieves the latest crypto quotes.
func (c *Client) FetchCryptoTicks(ctx context.Context) (domain.Ticks, error) {
	return fetchObject[domain.Ticks](ctx, c, "fetch_crypto_tick_data")
}

// FetchTraderBars retrieves the recent bars of a running strategy.
func (c *Client) FetchTraderBars(ctx context.Context, strategy string) (domain.BarState, error) {
	return fetchObject[domain.BarState](ctx, c, "fetch_trader_bars", strategy)
}

// FetchBacktestBars retrieves the bars a backtest has consumed so far.
func (c *Client) FetchBacktestBars(ctx context.Context, backtest string) (domain.BarState, error) {
	return fetchObject[domain.BarState](ctx, c, "fetch_backtest_bars", backtest)
}

// FetchBacktestPerformances retrieves every backtest's report.
func (c *Client) FetchBacktestPerformances(ctx context.Context) (domain.BacktestsState, error) {
	return fetchObject[domain.BacktestsState](ctx, c, "fetch_backtest_performances")
}

// FetchAnalyses retrieves every analysis, in the order the process lists them.
func (c *Client) FetchAnalyses(ctx context.Context) (domain.AnalysisState, error) {
	return fetchObject[domain.AnalysisState](ctx, c, "fetch_analyses")
}

// Heartbeat returns the trading process clock as a unix timestamp.
func (c *Client) Heartbeat(ctx context.Context) (float64, error) {
	value, err := c.call(ctx, "heartbeat")
	if err != nil {
		return 0, err
	}
	var ts float64
	if err := json.Unmarshal(unwrap(value), &ts); err != nil {
		return 0, fmt.Errorf("%w: heartbeat: %v", ErrMalformed, err)
	}
	return ts, nil
}

// ToggleMarketStreaming starts or pauses market tick streaming.
func (c *Client) ToggleMarketStreaming(ctx context.Context) error {
	return c.command(ctx, "toggle_market_streaming")
}

// ToggleCryptoStreaming starts or pauses crypto tick streaming.
func (c *Client) ToggleCryptoStreaming(ctx context.Context) error {
	return c.command(ctx, "toggle_crypto_streaming")
}

// SetStrategyActiveState enables or disables trading for a strategy.
func (c *Client) SetStrategyActiveState(ctx context.Context, name string, active bool) error {
	return c.command(ctx, "set_strategy_active_state", name, active)
}

// SetStrategyCapital updates the capital allocated to a strategy.
func (c *Client) SetStrategyCapital(ctx context.Context, name string, capital float64) error {
	return c.command(ctx, "set_strategy_capital", name, capital)
}

// BacktestStrategy starts a backtest of a strategy.
func (c *Client) BacktestStrategy(ctx context.Context, name string) error {
	return c.command(ctx, "backtest_strategy", name)
}

// AnalyzeStrategy starts an analysis of a strategy.
func (c *Client) AnalyzeStrategy(ctx context.Context, name string) error {
	return c.command(ctx, "analyze_strategy", name)
}

// ToggleStrategy flips a strategy between active and inactive.
func (c *Client) ToggleStrategy(ctx context.Context, name string) error {
	return c.command(ctx, "toggle_strategy", name)
}

func fetchObject[T any](ctx context.Context, c *Client, name string, args ...any) (T, error) {
	var out T
	value, err := c.call(ctx, name, args...)
	if err != nil {
		return out, err
	}
	if err := decodeObject(name, value, &out); err != nil {
		return out, err
	}
	return out, nil
}
