// Package console is the local chat adapter: one stdin/stdout conversation
// for trying a deployment without any platform wiring.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/parleybot/parley/platform"
)

// Sink receives the events this adapter produces, normally the dispatch bus.
type Sink interface {
	Enqueue(ctx context.Context, ev *platform.Event) error
}

type Options struct {
	Sink   Sink
	Logger *slog.Logger

	// In and Out default to the process stdio when the caller leaves them
	// nil; tests substitute buffers.
	In  io.Reader
	Out io.Writer

	// SessionID names the single console conversation; defaults to "local".
	SessionID  string
	SenderName string
}

// Adapter reads lines as messages and prints replies. A console user sees
// the prompt again after every run, so no explicit turn-end is needed.
type Adapter struct {
	sink      Sink
	logger    *slog.Logger
	in        io.Reader
	sessionID string
	sender    platform.Sender
	origin    string

	mu  sync.Mutex
	out io.Writer
}

func New(opts Options) (*Adapter, error) {
	if opts.Sink == nil {
		return nil, fmt.Errorf("event sink is required")
	}
	if opts.In == nil || opts.Out == nil {
		return nil, fmt.Errorf("input and output streams are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := strings.TrimSpace(opts.SessionID)
	if sessionID == "" {
		sessionID = "local"
	}
	origin, err := platform.BuildOrigin(platform.PlatformConsole, sessionID)
	if err != nil {
		return nil, err
	}
	senderName := strings.TrimSpace(opts.SenderName)
	if senderName == "" {
		senderName = "console"
	}
	return &Adapter{
		sink:      opts.Sink,
		logger:    logger,
		in:        opts.In,
		out:       opts.Out,
		sessionID: sessionID,
		sender:    platform.Sender{ID: sessionID, Name: senderName},
		origin:    origin,
	}, nil
}

func (a *Adapter) Meta() platform.AdapterMeta {
	return platform.AdapterMeta{ID: "console", Platform: platform.PlatformConsole, Name: "console"}
}

func (a *Adapter) RequiresTurnEnd() bool { return false }

// Origin is the single conversation origin this adapter produces, exposed so
// a profile route can be pointed at it.
func (a *Adapter) Origin() string { return a.origin }

// Send prints the reply segments' plain text. The empty turn-end call never
// reaches a console adapter, but printing nothing is the right behavior
// anyway.
func (a *Adapter) Send(_ context.Context, _ *platform.Event, segments []platform.Segment) error {
	text := platform.PlainText(segments)
	if text == "" {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := fmt.Fprintln(a.out, text); err != nil {
		return fmt.Errorf("write console reply: %w", err)
	}
	return nil
}

// Run reads input lines until EOF or ctx cancellation, turning each
// non-blank line into one pipeline event.
func (a *Adapter) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := platform.NewEvent(platform.EventOptions{
			Origin:   a.origin,
			Sender:   a.sender,
			Segments: []platform.Segment{platform.Text(line)},
			Adapter:  a,
		})
		if err != nil {
			a.logger.Warn("console_event_rejected", "error", err.Error())
			continue
		}
		if err := a.sink.Enqueue(ctx, ev); err != nil {
			return fmt.Errorf("enqueue console event: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read console input: %w", err)
	}
	return nil
}
