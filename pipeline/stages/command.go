package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/platform"
	"github.com/parleybot/parley/plugins"
)

// NoteCommand records the name of the command a run resolved, if any.
const NoteCommand = "command.name"

// Command parses prefixed user commands and dispatches them to handlers in
// the plugin registry. A handled command stops the pipeline so the LLM
// stage never sees it; unknown commands fall through unchanged.
type Command struct {
	prefixes      []string
	plugins       *plugins.Manager
	stopOnHandled bool
}

func NewCommand() *Command {
	return &Command{}
}

func (s *Command) Name() string { return NameCommand }

func (s *Command) Initialize(_ context.Context, pc *pipeline.Context) error {
	s.prefixes = pc.Config.GetStringSlice("command.prefixes")
	if len(s.prefixes) == 0 {
		s.prefixes = []string{"/"}
	}
	for _, prefix := range s.prefixes {
		if strings.TrimSpace(prefix) == "" {
			return fmt.Errorf("command prefix must not be blank")
		}
	}
	s.stopOnHandled = true
	if pc.Config.IsSet("command.stop_on_handled") {
		s.stopOnHandled = pc.Config.GetBool("command.stop_on_handled")
	}
	s.plugins = pc.Plugins
	return nil
}

func (s *Command) Process(ctx context.Context, ev *platform.Event) error {
	if s.plugins == nil {
		return nil
	}
	name, args, ok := s.parse(ev.Text)
	if !ok {
		return nil
	}
	handler, ok := s.plugins.Command(name)
	if !ok {
		slog.Debug("command_unknown", "origin", ev.Origin, "command", name)
		return nil
	}
	ev.SetNote(NoteCommand, name)
	if err := handler(ctx, ev, args); err != nil {
		return fmt.Errorf("command %q: %w", name, err)
	}
	if s.stopOnHandled {
		ev.Stop()
	}
	return nil
}

func (s *Command) parse(text string) (name string, args []string, ok bool) {
	for _, prefix := range s.prefixes {
		if !strings.HasPrefix(text, prefix) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(text, prefix))
		if len(fields) == 0 {
			return "", nil, false
		}
		return strings.ToLower(fields[0]), fields[1:], true
	}
	return "", nil, false
}
