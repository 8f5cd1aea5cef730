package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/parleybot/parley/platform"
)

// Outcome is the terminal state of one pipeline run.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeStoppedEarly
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeStoppedEarly:
		return "stopped_early"
	default:
		return "unknown"
	}
}

// stageError names the stage a failure originated in. The name is attached
// once, at the failing stage; wrapping stages that propagate a continuation
// error pass it through untouched.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("stage %q: %v", e.stage, e.err) }

func (e *stageError) Unwrap() error { return e.err }

func stageFailure(name string, err error) error {
	var se *stageError
	if errors.As(err, &se) {
		return err
	}
	return &stageError{stage: name, err: err}
}

type SchedulerOptions struct {
	Context *Context
	Stages  []Factory
	Logger  *slog.Logger
}

// Scheduler holds the ordered, initialized stage list for one tenant and
// executes events against it. It carries no per-event state, so Execute is
// safe for any number of concurrent events.
type Scheduler struct {
	tenantID   string
	tenantName string
	stages     []Stage
	logger     *slog.Logger
}

// NewScheduler instantiates every stage factory in order and initializes
// each against the tenant context. Any initialization failure aborts the
// whole scheduler; a partially-initialized scheduler never executes events.
func NewScheduler(ctx context.Context, opts SchedulerOptions) (*Scheduler, error) {
	if opts.Context == nil {
		return nil, fmt.Errorf("pipeline context is required")
	}
	if len(opts.Stages) == 0 {
		return nil, fmt.Errorf("at least one stage is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		tenantID:   opts.Context.TenantID,
		tenantName: opts.Context.TenantName,
		logger:     logger,
	}
	seen := make(map[string]bool, len(opts.Stages))
	for _, factory := range opts.Stages {
		stage := factory()
		if stage == nil {
			return nil, fmt.Errorf("stage factory returned nil")
		}
		name := stage.Name()
		if seen[name] {
			return nil, fmt.Errorf("stage %q is registered twice", name)
		}
		seen[name] = true
		switch stage.(type) {
		case PlainStage, WrappingStage:
		default:
			return nil, fmt.Errorf("stage %q implements neither plain nor wrapping form", name)
		}
		if err := stage.Initialize(ctx, opts.Context); err != nil {
			return nil, fmt.Errorf("initialize stage %q for tenant %q: %w", name, s.tenantID, err)
		}
		s.stages = append(s.stages, stage)
	}
	return s, nil
}

func (s *Scheduler) TenantID() string { return s.tenantID }

// StageNames returns the execution order, mostly for logs and tests.
func (s *Scheduler) StageNames() []string {
	names := make([]string, len(s.stages))
	for i, stage := range s.stages {
		names[i] = stage.Name()
	}
	return names
}

// Execute runs the event through the stage list. Stage errors are not
// swallowed here; they bubble to the caller's task wrapper where one
// consistent logging policy applies. The returned Outcome reflects the stop
// flag regardless of error.
func (s *Scheduler) Execute(ctx context.Context, ev *platform.Event) (Outcome, error) {
	err := s.run(ctx, 0, ev)
	outcome := OutcomeCompleted
	if ev.Stopped() {
		outcome = OutcomeStoppedEarly
	}
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

// run executes stages[index:]. Wrapping stages receive a continuation that
// recurses into the remainder; the stop flag is consulted before every
// not-yet-started stage, so a stop set deep in the recursion halts forward
// progress at every level while already-entered wrapping stages still finish
// their after-phase.
func (s *Scheduler) run(ctx context.Context, index int, ev *platform.Event) error {
	for i := index; i < len(s.stages); i++ {
		if ev.Stopped() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		stage := s.stages[i]
		switch st := stage.(type) {
		case WrappingStage:
			resumeAt := i + 1
			next := func(ctx context.Context) error {
				return s.run(ctx, resumeAt, ev)
			}
			if err := st.Process(ctx, ev, next); err != nil {
				return stageFailure(stage.Name(), err)
			}
			// The continuation already covered the remainder.
			return nil
		case PlainStage:
			if err := st.Process(ctx, ev); err != nil {
				return stageFailure(stage.Name(), err)
			}
		}
	}
	return nil
}
