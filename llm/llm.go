package llm

import (
	"context"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

// Client is the provider-neutral chat completion interface consumed by the
// LLM request stage.
type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
