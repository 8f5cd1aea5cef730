package pipeline

import (
	"context"

	"github.com/parleybot/parley/platform"
)

// Next resumes the pipeline at the stage after the current one. A wrapping
// stage calls it exactly where its before-phase ends; everything after the
// call is its after-phase.
type Next func(ctx context.Context) error

// Stage is one ordered unit of pipeline work. Implementations must also
// satisfy exactly one of PlainStage or WrappingStage.
//
// Stage instances are shared across all events of one tenant and must not
// keep per-event mutable state; that state belongs on the Event.
type Stage interface {
	// Name is the stable identifier used for ordering and logging.
	Name() string

	// Initialize performs one-time setup against the tenant's pipeline
	// context. A failure aborts construction of the whole scheduler.
	Initialize(ctx context.Context, pc *Context) error
}

// PlainStage runs to completion and lets the scheduler advance.
type PlainStage interface {
	Stage
	Process(ctx context.Context, ev *platform.Event) error
}

// WrappingStage wraps all downstream stages: work before next(ctx) runs
// first, work after it runs once the rest of the pipeline has returned.
type WrappingStage interface {
	Stage
	Process(ctx context.Context, ev *platform.Event, next Next) error
}

// Factory constructs a fresh stage instance for one scheduler.
type Factory func() Stage
