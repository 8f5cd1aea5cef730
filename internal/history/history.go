// Package history stores per-conversation transcripts. The pipeline's
// history stage loads a recent window before the LLM request and appends the
// exchange afterwards.
package history

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role     Role      `json:"role"`
	SenderID string    `json:"sender_id,omitempty"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// Store is the opaque record store the pipeline consumes. Origin is the
// unified message origin of the conversation.
type Store interface {
	Recent(origin string, limit int) ([]Turn, error)
	Append(origin string, turns ...Turn) error
}
