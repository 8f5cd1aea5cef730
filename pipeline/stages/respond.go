package stages

import (
	"context"

	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/platform"
)

// Respond wraps the rest of the pipeline as the delivery boundary: once
// downstream stages return, it drains the event's reply buffer and pushes
// the collected segments through the adapter in a single send.
type Respond struct{}

func NewRespond() *Respond {
	return &Respond{}
}

func (s *Respond) Name() string { return NameRespond }

func (s *Respond) Initialize(context.Context, *pipeline.Context) error { return nil }

func (s *Respond) Process(ctx context.Context, ev *platform.Event, next pipeline.Next) error {
	if err := next(ctx); err != nil {
		return err
	}
	replies := ev.DrainReplies()
	if len(replies) == 0 {
		return nil
	}
	return ev.Send(ctx, replies)
}
