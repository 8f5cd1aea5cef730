package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/parleybot/parley/platform"
)

type captureSink struct {
	events []*platform.Event
}

func (s *captureSink) Enqueue(_ context.Context, ev *platform.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func TestRunTurnsLinesIntoEvents(t *testing.T) {
	sink := &captureSink{}
	adapter, err := New(Options{
		Sink:       sink,
		In:         strings.NewReader("hello\n\n  \nsecond line\n"),
		Out:        &bytes.Buffer{},
		SessionID:  "dev",
		SenderName: "alice",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := adapter.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("events = %d, want 2 (blank lines skipped)", len(sink.events))
	}
	first := sink.events[0]
	if first.Origin != "console:dev" {
		t.Fatalf("Origin = %q", first.Origin)
	}
	if first.Text != "hello" {
		t.Fatalf("Text = %q", first.Text)
	}
	if first.Sender.Name != "alice" {
		t.Fatalf("Sender.Name = %q", first.Sender.Name)
	}
	if sink.events[1].Text != "second line" {
		t.Fatalf("second Text = %q", sink.events[1].Text)
	}
	if first.Adapter().RequiresTurnEnd() {
		t.Fatal("console must not require the turn-end signal")
	}
}

func TestSendPrintsPlainText(t *testing.T) {
	var out bytes.Buffer
	sink := &captureSink{}
	adapter, err := New(Options{Sink: sink, In: strings.NewReader(""), Out: &out})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	segments := []platform.Segment{platform.Text("hi "), platform.Text("there")}
	if err := adapter.Send(context.Background(), nil, segments); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := out.String(); got != "hi there\n" {
		t.Fatalf("output = %q", got)
	}

	out.Reset()
	if err := adapter.Send(context.Background(), nil, nil); err != nil {
		t.Fatalf("Send(empty) error = %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("empty send wrote %q", out.String())
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{In: strings.NewReader(""), Out: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for missing sink")
	}
	if _, err := New(Options{Sink: &captureSink{}}); err == nil {
		t.Fatal("expected error for missing streams")
	}
}
