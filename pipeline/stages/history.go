package stages

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parleybot/parley/internal/history"
	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/platform"
)

// NoteHistory carries the loaded transcript window ([]history.Turn) for
// downstream stages.
const NoteHistory = "history.turns"

const defaultHistoryMaxTurns = 20

// History wraps the LLM stage: before, it loads the recent transcript onto
// the event; after, it persists the inbound text plus whatever reply the
// run buffered. A missing store disables the stage.
type History struct {
	store    history.Store
	maxTurns int
}

func NewHistory() *History {
	return &History{}
}

func (s *History) Name() string { return NameHistory }

func (s *History) Initialize(_ context.Context, pc *pipeline.Context) error {
	s.store = pc.History
	s.maxTurns = pc.Config.GetInt("history.max_turns")
	if s.maxTurns <= 0 {
		s.maxTurns = defaultHistoryMaxTurns
	}
	return nil
}

func (s *History) Process(ctx context.Context, ev *platform.Event, next pipeline.Next) error {
	if s.store == nil {
		return next(ctx)
	}

	turns, err := s.store.Recent(ev.Origin, s.maxTurns)
	if err != nil {
		// A broken transcript should not block the conversation.
		slog.Warn("history_load_failed", "origin", ev.Origin, "error", err.Error())
	} else {
		ev.SetNote(NoteHistory, turns)
	}

	if err := next(ctx); err != nil {
		return err
	}

	now := time.Now().UTC()
	record := []history.Turn{{
		Role:     history.RoleUser,
		SenderID: ev.Sender.ID,
		Text:     ev.Text,
		At:       now,
	}}
	if replyText := platform.PlainText(ev.Replies()); replyText != "" {
		record = append(record, history.Turn{
			Role: history.RoleAssistant,
			Text: replyText,
			At:   now,
		})
	}
	if err := s.store.Append(ev.Origin, record...); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}
