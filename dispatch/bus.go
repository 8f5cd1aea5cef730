// Package dispatch drains the shared inbound event queue and fans events
// out to per-tenant pipeline schedulers, one concurrent execution per event.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/parleybot/parley/internal/metrics"
	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/platform"
	"github.com/parleybot/parley/profile"
)

// Router maps a unified message origin to the tenant that owns it.
type Router interface {
	Resolve(origin string) (profile.Ref, error)
}

type Options struct {
	// Queue is the shared inbound queue, created and owned externally and
	// handed to the bus at construction.
	Queue   chan *platform.Event
	Router  Router
	Logger  *slog.Logger
	Metrics *metrics.Set
}

// Bus is the single logical dispatcher. Its loop dequeues strictly FIFO and
// never waits for a pipeline execution: each event runs in its own
// goroutine. There is deliberately no backpressure between the loop and the
// executions; the in-flight gauge makes the gap observable.
type Bus struct {
	queue   chan *platform.Event
	router  Router
	logger  *slog.Logger
	metrics *metrics.Set

	mu         sync.RWMutex
	schedulers map[string]*pipeline.Scheduler

	wg sync.WaitGroup
}

func New(opts Options) (*Bus, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("event queue is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("router is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		queue:      opts.Queue,
		router:     opts.Router,
		logger:     logger,
		metrics:    opts.Metrics,
		schedulers: make(map[string]*pipeline.Scheduler),
	}, nil
}

// SetScheduler installs or replaces the scheduler for one tenant. In-flight
// executions keep the instance they started with; only subsequently
// dispatched events see the replacement.
func (b *Bus) SetScheduler(tenantID string, s *pipeline.Scheduler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.schedulers[tenantID] = s
}

func (b *Bus) Scheduler(tenantID string) (*pipeline.Scheduler, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.schedulers[tenantID]
	return s, ok
}

// Enqueue offers an event to the shared queue, honoring ctx cancellation.
func (b *Bus) Enqueue(ctx context.Context, ev *platform.Event) error {
	if ev == nil {
		return fmt.Errorf("event is required")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.queue <- ev:
		return nil
	}
}

// Run drains the queue until ctx is cancelled or the queue is closed. Every
// iteration is fault-isolated: resolution failures drop the single event and
// the loop keeps going.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.queue:
			if !ok {
				return
			}
			b.dispatch(ctx, ev)
		}
	}
}

// Drain blocks until all in-flight pipeline executions finish or ctx ends.
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (b *Bus) dispatch(ctx context.Context, ev *platform.Event) {
	ref, err := b.router.Resolve(ev.Origin)
	if err != nil {
		b.logger.Error("event_dropped_unrouted", "origin", ev.Origin, "error", err.Error())
		b.dropped(metrics.ReasonUnrouted)
		return
	}
	scheduler, ok := b.Scheduler(ref.ID)
	if !ok {
		b.logger.Error("event_dropped_no_scheduler",
			"origin", ev.Origin, "tenant_id", ref.ID, "tenant_name", ref.Name)
		b.dropped(metrics.ReasonNoScheduler)
		return
	}

	b.logger.Info("event_dispatch",
		"tenant_name", ref.Name,
		"platform", string(ev.Platform),
		"origin", ev.Origin,
		"sender_id", ev.Sender.ID,
		"sender_name", ev.Sender.Name,
		"outline", ev.Outline(),
	)
	if b.metrics != nil {
		b.metrics.EventsDispatched.Inc()
		b.metrics.PipelinesInFlight.Inc()
	}
	b.wg.Add(1)
	go b.runPipeline(ctx, ref, scheduler, ev)
}

// runPipeline is the task wrapper around one pipeline execution. It owns
// the single logging/recovery policy for stage failures and guarantees the
// adapter's turn-end signal even when a stage fails or panics.
func (b *Bus) runPipeline(ctx context.Context, ref profile.Ref, scheduler *pipeline.Scheduler, ev *platform.Event) {
	defer func() {
		b.wg.Done()
		if b.metrics != nil {
			b.metrics.PipelinesInFlight.Dec()
		}
	}()
	defer func() {
		if err := ev.SendTurnEnd(ctx); err != nil {
			b.logger.Warn("turn_end_send_failed", "origin", ev.Origin, "error", err.Error())
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("pipeline_panic",
				"tenant_id", ref.ID, "origin", ev.Origin, "event_id", ev.ID, "panic", fmt.Sprint(r))
			b.failed()
		}
	}()

	outcome, err := scheduler.Execute(ctx, ev)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			b.logger.Debug("pipeline_cancelled", "tenant_id", ref.ID, "event_id", ev.ID)
			return
		}
		b.logger.Error("pipeline_failed",
			"tenant_id", ref.ID, "origin", ev.Origin, "event_id", ev.ID, "error", err.Error())
		b.failed()
		return
	}
	b.logger.Debug("pipeline_done",
		"tenant_id", ref.ID, "event_id", ev.ID, "outcome", outcome.String())
}

func (b *Bus) dropped(reason string) {
	if b.metrics != nil {
		b.metrics.EventsDropped.WithLabelValues(reason).Inc()
	}
}

func (b *Bus) failed() {
	if b.metrics != nil {
		b.metrics.PipelineFailures.Inc()
	}
}
