package platform

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced an inbound message.
type Sender struct {
	ID   string
	Name string
}

// Event is one inbound message occurrence flowing through exactly one
// pipeline run. Stages mutate it in place: parsed text, annotations, the
// reply buffer and the stop flag all live here, never on stage instances.
type Event struct {
	ID         string
	Origin     string
	Platform   Platform
	Sender     Sender
	Text       string
	Segments   []Segment
	ReceivedAt time.Time

	adapter Adapter
	stopped atomic.Bool

	mu      sync.Mutex
	replies []Segment
	sent    int
	notes   map[string]any
}

type EventOptions struct {
	ID         string
	Origin     string
	Sender     Sender
	Segments   []Segment
	Adapter    Adapter
	ReceivedAt time.Time
}

func NewEvent(opts EventOptions) (*Event, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}
	p, _, err := SplitOrigin(opts.Origin)
	if err != nil {
		return nil, err
	}
	if len(opts.Segments) == 0 {
		return nil, fmt.Errorf("at least one segment is required")
	}
	for _, seg := range opts.Segments {
		if err := seg.Validate(); err != nil {
			return nil, err
		}
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		msgUUID, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		id = msgUUID.String()
	}
	receivedAt := opts.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	return &Event{
		ID:         id,
		Origin:     opts.Origin,
		Platform:   p,
		Sender:     opts.Sender,
		Text:       PlainText(opts.Segments),
		Segments:   opts.Segments,
		ReceivedAt: receivedAt,
		adapter:    opts.Adapter,
		notes:      make(map[string]any),
	}, nil
}

func (e *Event) Adapter() Adapter { return e.adapter }

// Stop sets the short-circuit flag. Stages positioned after the current one
// will not run for this event; already-entered wrapping stages still finish
// their after-phase.
func (e *Event) Stop() { e.stopped.Store(true) }

func (e *Event) Stopped() bool { return e.stopped.Load() }

// PushReply appends segments to the reply buffer without delivering them.
// A delivery stage (or the task wrapper) drains the buffer later.
func (e *Event) PushReply(segments ...Segment) {
	if len(segments) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replies = append(e.replies, segments...)
}

// Replies returns a copy of the buffered reply segments.
func (e *Event) Replies() []Segment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Segment, len(e.replies))
	copy(out, e.replies)
	return out
}

// DrainReplies returns the buffered reply segments and clears the buffer.
func (e *Event) DrainReplies() []Segment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.replies
	e.replies = nil
	return out
}

// Send delivers segments through the originating adapter immediately.
func (e *Event) Send(ctx context.Context, segments []Segment) error {
	if err := e.adapter.Send(ctx, e, segments); err != nil {
		return err
	}
	if len(segments) > 0 {
		e.mu.Lock()
		e.sent++
		e.mu.Unlock()
	}
	return nil
}

// Replied reports whether any non-empty Send happened during this run.
func (e *Event) Replied() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sent > 0
}

// SendTurnEnd releases a waiting client on platforms that require an
// explicit end-of-turn signal. It is a no-op everywhere else, and a no-op
// when the run already produced a reply.
func (e *Event) SendTurnEnd(ctx context.Context) error {
	if !e.adapter.RequiresTurnEnd() || e.Replied() {
		return nil
	}
	return e.adapter.Send(ctx, e, nil)
}

// SetNote attaches a per-run annotation under key. Notes are how stages pass
// derived data (parsed command, loaded history) to later stages.
func (e *Event) SetNote(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes[key] = value
}

func (e *Event) Note(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.notes[key]
	return v, ok
}

// Outline renders the short content summary used in dispatch log lines.
func (e *Event) Outline() string {
	return Outline(e.Segments)
}
