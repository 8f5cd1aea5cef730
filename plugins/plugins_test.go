package plugins

import (
	"context"
	"strings"
	"testing"

	"github.com/parleybot/parley/platform"
)

func TestRegisterStar_RejectsDuplicate(t *testing.T) {
	m := NewManager()
	if err := m.RegisterStar(Star{Name: "echo", Version: "1.0.0", Enabled: true}); err != nil {
		t.Fatalf("RegisterStar() error = %v", err)
	}
	if err := m.RegisterStar(Star{Name: "echo"}); err == nil {
		t.Fatal("expected duplicate star error")
	}
	if len(m.Stars()) != 1 {
		t.Fatalf("Stars() len = %d", len(m.Stars()))
	}
}

func TestCommandLookup_IsCaseInsensitive(t *testing.T) {
	m := NewManager()
	called := false
	err := m.RegisterCommand("Ping", func(_ context.Context, _ *platform.Event, _ []string) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}
	h, ok := m.Command("PING")
	if !ok {
		t.Fatal("Command() ok = false")
	}
	if err := h(context.Background(), nil, nil); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !called {
		t.Fatal("handler was not invoked")
	}
}

func TestRegisterCommand_Validation(t *testing.T) {
	m := NewManager()
	if err := m.RegisterCommand("  ", func(context.Context, *platform.Event, []string) error { return nil }); err == nil {
		t.Fatal("expected error for blank name")
	}
	if err := m.RegisterCommand("x", nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

type staticTool struct {
	name, desc, schema string
}

func (t staticTool) Name() string            { return t.name }
func (t staticTool) Description() string     { return t.desc }
func (t staticTool) ParameterSchema() string { return t.schema }
func (t staticTool) Execute(context.Context, map[string]any) (string, error) {
	return "", nil
}

func TestToolRegistry_SortedAndFormatted(t *testing.T) {
	r := NewToolRegistry()
	r.Register(staticTool{name: "weather", desc: "current weather", schema: "{}"})
	r.Register(staticTool{name: "calc", desc: "arithmetic", schema: "{}"})

	all := r.All()
	if len(all) != 2 || all[0].Name() != "calc" || all[1].Name() != "weather" {
		t.Fatalf("All() order = %v", []string{all[0].Name(), all[1].Name()})
	}

	formatted := r.FormatToolDescriptions()
	if !strings.Contains(formatted, "### calc") || !strings.Contains(formatted, "### weather") {
		t.Fatalf("FormatToolDescriptions() = %q", formatted)
	}
}
