package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parleybot/parley/internal/history"
	"github.com/parleybot/parley/llm"
	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/platform"
)

// LLMRequest turns the normalized text into a chat completion request:
// persona prompt, tool descriptions, recent history, then the user message.
// The completion is pushed onto the reply buffer for the respond stage.
type LLMRequest struct {
	enabled     bool
	client      llm.Client
	model       string
	persona     string
	temperature float64
	maxTokens   int
	toolsBlock  string
}

func NewLLMRequest() *LLMRequest {
	return &LLMRequest{}
}

func (s *LLMRequest) Name() string { return NameLLMRequest }

func (s *LLMRequest) Initialize(_ context.Context, pc *pipeline.Context) error {
	cfg := pc.Config
	if cfg.IsSet("llm.enabled") && !cfg.GetBool("llm.enabled") {
		return nil
	}
	if pc.LLM == nil {
		if cfg.GetBool("llm.enabled") {
			return fmt.Errorf("llm.enabled is true but no provider client is configured for tenant %q", pc.TenantID)
		}
		return nil
	}
	model := strings.TrimSpace(cfg.GetString("llm.model"))
	if model == "" {
		return fmt.Errorf("llm.model is required for tenant %q", pc.TenantID)
	}

	s.enabled = true
	s.client = pc.LLM
	s.model = model
	s.persona = strings.TrimSpace(cfg.GetString("persona.prompt"))
	s.temperature = cfg.GetFloat64("llm.temperature")
	s.maxTokens = cfg.GetInt("llm.max_tokens")
	if pc.Plugins != nil {
		s.toolsBlock = pc.Plugins.Tools().FormatToolDescriptions()
	}
	return nil
}

func (s *LLMRequest) Process(ctx context.Context, ev *platform.Event) error {
	if !s.enabled || strings.TrimSpace(ev.Text) == "" {
		return nil
	}

	messages := make([]llm.Message, 0, 8)
	if system := s.systemPrompt(); system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	if note, ok := ev.Note(NoteHistory); ok {
		if turns, ok := note.([]history.Turn); ok {
			for _, turn := range turns {
				role := llm.RoleUser
				if turn.Role == history.RoleAssistant {
					role = llm.RoleAssistant
				}
				messages = append(messages, llm.Message{Role: role, Content: turn.Text})
			}
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: ev.Text})

	result, err := s.client.Chat(ctx, llm.Request{
		Model:       s.model,
		Messages:    messages,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	slog.Debug("llm_completion_done",
		"origin", ev.Origin,
		"model", s.model,
		"total_tokens", result.Usage.TotalTokens,
		"duration_ms", result.Duration.Milliseconds(),
	)
	if result.Text != "" {
		ev.PushReply(platform.Text(result.Text))
	}
	return nil
}

func (s *LLMRequest) systemPrompt() string {
	var parts []string
	if s.persona != "" {
		parts = append(parts, s.persona)
	}
	if s.toolsBlock != "" {
		parts = append(parts, "You may reference these tools:\n\n"+s.toolsBlock)
	}
	return strings.Join(parts, "\n\n")
}
