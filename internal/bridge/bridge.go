// Package bridge talks to the trading process.
//
// The trading process exposes its functions over a websocket RPC: the
// dashboard sends {"call": id, "name": fn, "args": [...]} and the process
// answers with {"return": id, "status": "ok"|"error", "value": ...}. Client
// keeps one session open, reconnecting in the background, and decodes each
// response into the typed snapshots of pkg/contracts/domain.
package bridge

import (
	"context"
	"errors"

	"koidash/pkg/contracts/domain"
)

var (
	// ErrNotConnected is returned while no session is established
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrRemote is returned when the trading process reports a failed call
	ErrRemote = errors.New("bridge: remote call failed")

	// ErrMalformed is returned when a response fails its shape check
	ErrMalformed = errors.New("bridge: malformed response")

	// ErrRateLimited is returned when commands arrive faster than allowed
	ErrRateLimited = errors.New("bridge: command rate limit exceeded")
)

// Fetcher retrieves snapshots from the trading process
type Fetcher interface {
	Connected() bool
	FetchState(ctx context.Context) (domain.KoiState, error)
	FetchMarketTicks(ctx context.Context) (domain.Ticks, error)
	FetchCryptoTicks(ctx context.Context) (domain.Ticks, error)
	FetchTraderBars(ctx context.Context, strategy string) (domain.BarState, error)
	FetchBacktestBars(ctx context.Context, backtest string) (domain.BarState, error)
	FetchBacktestPerformances(ctx context.Context) (domain.BacktestsState, error)
	FetchAnalyses(ctx context.Context) (domain.AnalysisState, error)
	Heartbeat(ctx context.Context) (float64, error)
}

// Commander sends user-initiated commands to the trading process
type Commander interface {
	ToggleMarketStreaming(ctx context.Context) error
	ToggleCryptoStreaming(ctx context.Context) error
	SetStrategyActiveState(ctx context.Context, name string, active bool) error
	SetStrategyCapital(ctx context.Context, name string, capital float64) error
	BacktestStrategy(ctx context.Context, name string) error
	AnalyzeStrategy(ctx context.Context, name string) error
	ToggleStrategy(ctx context.Context, name string) error
}

// Bridge is the full surface of the trading process
type Bridge interface {
	Fetcher
	Commander
}

var _ Bridge = (*Client)(nil)
