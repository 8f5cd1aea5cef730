package stages

import (
	"context"
	"strings"

	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/platform"
)

// NoteOutline carries the human-readable content summary recorded by the
// normalize stage.
const NoteOutline = "normalize.outline"

// Normalize collapses whitespace in the parsed text and strips a leading
// mention of the bot itself ("@bot do this" becomes "do this").
type Normalize struct {
	botName string
}

func NewNormalize() *Normalize {
	return &Normalize{}
}

func (s *Normalize) Name() string { return NameNormalize }

func (s *Normalize) Initialize(_ context.Context, pc *pipeline.Context) error {
	s.botName = strings.TrimSpace(pc.Config.GetString("bot.name"))
	return nil
}

func (s *Normalize) Process(_ context.Context, ev *platform.Event) error {
	text := strings.Join(strings.Fields(ev.Text), " ")
	if s.botName != "" {
		for _, prefix := range []string{"@" + s.botName, s.botName + ":", s.botName + ","} {
			if strings.HasPrefix(text, prefix) {
				text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
				break
			}
		}
	}
	ev.Text = text
	// The outline reflects the normalized text, not the raw segments.
	ev.SetNote(NoteOutline, platform.Outline([]platform.Segment{platform.Text(text)}))
	return nil
}
