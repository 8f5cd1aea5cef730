package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/parleybot/parley/platform"
	"github.com/parleybot/parley/plugins"
)

type fakeAdapter struct{}

func (fakeAdapter) Meta() platform.AdapterMeta {
	return platform.AdapterMeta{ID: "fake", Platform: platform.PlatformConsole, Name: "fake"}
}
func (fakeAdapter) Send(context.Context, *platform.Event, []platform.Segment) error { return nil }
func (fakeAdapter) RequiresTurnEnd() bool                                           { return false }

func newEvent(t *testing.T) *platform.Event {
	t.Helper()
	ev, err := platform.NewEvent(platform.EventOptions{
		Origin:   "console:local",
		Segments: []platform.Segment{platform.Text("hi")},
		Adapter:  fakeAdapter{},
	})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	return ev
}

func TestRegisterInstallsCommands(t *testing.T) {
	m := plugins.NewManager()
	if err := Register(m, "test"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for _, name := range []string{"ping", "echo", "help"} {
		if _, ok := m.Command(name); !ok {
			t.Fatalf("command %q missing", name)
		}
	}
	stars := m.Stars()
	if len(stars) != 1 || stars[0].Name != "builtin" {
		t.Fatalf("Stars() = %+v", stars)
	}

	// Double registration must fail cleanly.
	if err := Register(m, "test"); err == nil {
		t.Fatal("expected error on duplicate Register")
	}
}

func TestPing(t *testing.T) {
	m := plugins.NewManager()
	if err := Register(m, "test"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	handler, _ := m.Command("ping")

	ev := newEvent(t)
	if err := handler(context.Background(), ev, nil); err != nil {
		t.Fatalf("ping error = %v", err)
	}
	replies := ev.Replies()
	if len(replies) != 1 || replies[0].Text != "pong" {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestEcho(t *testing.T) {
	m := plugins.NewManager()
	if err := Register(m, "test"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	handler, _ := m.Command("echo")

	ev := newEvent(t)
	if err := handler(context.Background(), ev, []string{"hello", "world"}); err != nil {
		t.Fatalf("echo error = %v", err)
	}
	if got := ev.Replies()[0].Text; got != "hello world" {
		t.Fatalf("echo reply = %q", got)
	}

	empty := newEvent(t)
	if err := handler(context.Background(), empty, nil); err != nil {
		t.Fatalf("echo error = %v", err)
	}
	if got := empty.Replies()[0].Text; got != "nothing to echo" {
		t.Fatalf("empty echo reply = %q", got)
	}
}

func TestHelpListsCommands(t *testing.T) {
	m := plugins.NewManager()
	if err := Register(m, "test"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	handler, _ := m.Command("help")

	ev := newEvent(t)
	if err := handler(context.Background(), ev, nil); err != nil {
		t.Fatalf("help error = %v", err)
	}
	text := ev.Replies()[0].Text
	for _, name := range []string{"ping", "echo", "help"} {
		if !strings.Contains(text, name) {
			t.Fatalf("help output %q missing %q", text, name)
		}
	}
}
