package stages

import (
	"context"
	"log/slog"

	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/platform"
)

// Access enforces the tenant's sender ban and allow lists. A blocked sender
// short-circuits the pipeline before any other stage runs.
type Access struct {
	banned  map[string]bool
	allowed map[string]bool
}

func NewAccess() *Access {
	return &Access{}
}

func (s *Access) Name() string { return NameAccess }

func (s *Access) Initialize(_ context.Context, pc *pipeline.Context) error {
	s.banned = make(map[string]bool)
	for _, id := range pc.Config.GetStringSlice("access.banned") {
		s.banned[id] = true
	}
	s.allowed = make(map[string]bool)
	for _, id := range pc.Config.GetStringSlice("access.allowed") {
		s.allowed[id] = true
	}
	return nil
}

func (s *Access) Process(_ context.Context, ev *platform.Event) error {
	senderID := ev.Sender.ID
	if s.banned[senderID] {
		slog.Info("access_sender_banned", "origin", ev.Origin, "sender_id", senderID)
		ev.Stop()
		return nil
	}
	if len(s.allowed) > 0 && !s.allowed[senderID] {
		slog.Info("access_sender_not_allowed", "origin", ev.Origin, "sender_id", senderID)
		ev.Stop()
	}
	return nil
}
