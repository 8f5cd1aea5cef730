// Package builtin registers the commands every deployment gets without any
// plugin configuration.
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleybot/parley/platform"
	"github.com/parleybot/parley/plugins"
)

const starName = "builtin"

// Register installs the builtin star and its commands on the manager.
func Register(m *plugins.Manager, version string) error {
	if m == nil {
		return fmt.Errorf("plugin manager is required")
	}
	if err := m.RegisterStar(plugins.Star{
		Name:    starName,
		Author:  "parley",
		Version: version,
		Enabled: true,
	}); err != nil {
		return err
	}
	commands := map[string]plugins.CommandHandler{
		"ping": pingHandler,
		"echo": echoHandler,
		"help": helpHandler(m),
	}
	for name, handler := range commands {
		if err := m.RegisterCommand(name, handler); err != nil {
			return err
		}
	}
	return nil
}

func pingHandler(_ context.Context, ev *platform.Event, _ []string) error {
	ev.PushReply(platform.Text("pong"))
	return nil
}

func echoHandler(_ context.Context, ev *platform.Event, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		text = "nothing to echo"
	}
	ev.PushReply(platform.Text(text))
	return nil
}

func helpHandler(m *plugins.Manager) plugins.CommandHandler {
	return func(_ context.Context, ev *platform.Event, _ []string) error {
		names := m.CommandNames()
		var b strings.Builder
		b.WriteString("available commands: ")
		b.WriteString(strings.Join(names, ", "))
		ev.PushReply(platform.Text(b.String()))
		return nil
	}
}
