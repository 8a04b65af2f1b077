// Package scheduler keeps the dashboard's snapshots fresh.
//
// Each task runs on its own ticker. A tick that finds the bridge
// disconnected, or the task not needed by the current selection, does
// nothing. Otherwise the fetch runs in the background so a slow response
// never delays another task, and identical requests already in flight are
// joined instead of repeated. Results replace the store's snapshot in
// completion order; failures leave it untouched.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"koidash/internal/bridge"
	"koidash/internal/infrastructure"
	"koidash/internal/store"
)

// StateStore is the part of the store the scheduler reads and writes
type StateStore interface {
	Snapshot() store.AppState
	Dispatch(u store.Update)
}

// Scheduler runs the refresh tasks against one bridge
type Scheduler struct {
	bridge bridge.Fetcher
	store  StateStore
	tasks  []Task

	flight   singleflight.Group
	inflight sync.WaitGroup

	metrics *infrastructure.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// New creates a scheduler for tasks.
func New(b bridge.Fetcher, st StateStore, tasks []Task, metrics *infrastructure.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics = infrastructure.NoopMetrics()
	}

	return &Scheduler{
		bridge:  b,
		store:   st,
		tasks:   tasks,
		metrics: metrics,
		tracer:  otel.Tracer("koidash.scheduler"),
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// Run starts every task and blocks until ctx is done and all fetches
// already dispatched have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, task := range s.tasks {
		if task.Interval <= 0 {
			s.logger.Warn("task has no interval, not scheduled", slog.String("task", task.Name))
			continue
		}
		g.Go(func() error {
			s.loop(ctx, task)
			return nil
		})
	}

	s.logger.Info("scheduler started", slog.Int("tasks", len(s.tasks)))
	err := g.Wait()
	s.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, task)
		}
	}
}

// Wait blocks until every dispatched fetch has completed.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// tick evaluates task once and reports whether a fetch was dispatched.
func (s *Scheduler) tick(ctx context.Context, task Task) bool {
	if !s.bridge.Connected() {
		s.recordSkip(ctx, task.Name, "disconnected")
		return false
	}

	state := s.store.Snapshot()
	if !task.due(state) {
		s.recordSkip(ctx, task.Name, "not_due")
		return false
	}

	// DoChan joins an identical request before tick returns
	s.inflight.Add(1)
	result := s.flight.DoChan(task.key(state), func() (any, error) {
		s.fetch(ctx, task, state)
		return nil, nil
	})
	go func() {
		defer s.inflight.Done()
		<-result
	}()
	return true
}

func (s *Scheduler) fetch(ctx context.Context, task Task, state store.AppState) {
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := s.tracer.Start(ctx, "poll."+task.Name,
		trace.WithAttributes(attribute.String("poll.task", task.Name)))
	defer span.End()

	start := time.Now()
	update, err := task.Fetch(ctx, s.bridge, state)
	infrastructure.RecordPollMetrics(ctx, s.metrics, task.Name, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logFailure(ctx, task.Name, err)
		return
	}

	if !update.Empty() {
		s.store.Dispatch(update)
	}
}

func (s *Scheduler) logFailure(ctx context.Context, task string, err error) {
	switch {
	case errors.Is(err, bridge.ErrMalformed):
		s.logger.WarnContext(ctx, "discarding malformed snapshot",
			slog.String("task", task),
			slog.String("reason", err.Error()))
	case errors.Is(err, context.Canceled):
		s.logger.DebugContext(ctx, "snapshot fetch cancelled", slog.String("task", task))
	default:
		s.logger.WarnContext(ctx, "snapshot fetch failed",
			slog.String("task", task),
			slog.String("error", err.Error()))
	}
}

func (s *Scheduler) recordSkip(ctx context.Context, task, reason string) {
	s.metrics.PollSkipsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("reason", reason),
	))
}
