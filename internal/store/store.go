// Package store owns the dashboard's application state.
//
// Every change goes through a single goroutine (Run) that applies updates in
// arrival order, so readers always observe either the old or the new value of
// a snapshot, never a mix.
package store

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"koidash/internal/infrastructure"
)

// Listener is notified after every applied update
type Listener func(kind Kind, version uint64)

type updateRequest struct {
	update Update
	done   chan struct{}
}

// Store is the single authority for the application state
type Store struct {
	mu        sync.RWMutex
	state     AppState
	listeners []Listener

	updates chan updateRequest
	stopped chan struct{}

	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// New creates a store holding the empty state of a new session
func New(metrics *infrastructure.Metrics, logger *slog.Logger) *Store {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics = infrastructure.NoopMetrics()
	}

	return &Store{
		state:   NewAppState(),
		updates: make(chan updateRequest, 100),
		stopped: make(chan struct{}),
		metrics: metrics,
		logger:  logger.With(slog.String("component", "store")),
	}
}

// Subscribe registers l. It must be called before Run.
func (s *Store) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Snapshot returns the current state.
func (s *Store) Snapshot() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Run applies updates until ctx is cancelled.
func (s *Store) Run(ctx context.Context) error {
	defer close(s.stopped)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.updates:
			s.handleUpdate(ctx, req)
		}
	}
}

func (s *Store) handleUpdate(ctx context.Context, req updateRequest) {
	if req.done != nil {
		defer close(req.done)
	}

	s.mu.Lock()
	req.update.apply(&s.state)
	s.state.Version++
	version := s.state.Version
	s.mu.Unlock()

	s.metrics.SnapshotUpdatesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(req.update.Kind))))
	s.logger.Debug("applied update",
		slog.String("kind", string(req.update.Kind)),
		slog.Uint64("version", version))

	for _, l := range s.listeners {
		l(req.update.Kind, version)
	}
}

// Dispatch queues u without waiting for it to be applied. Updates sent
// after Run has returned are dropped.
func (s *Store) Dispatch(u Update) {
	select {
	case s.updates <- updateRequest{update: u}:
	case <-s.stopped:
	}
}

// Do queues u and waits until it has been applied.
func (s *Store) Do(ctx context.Context, u Update) error {
	req := updateRequest{update: u, done: make(chan struct{})}

	select {
	case s.updates <- req:
	case <-s.stopped:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-s.stopped:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Version returns the number of updates applied so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}
