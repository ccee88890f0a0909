// Package assistant implements Financio, the conversational advisor.
package assistant

import (
	"errors"
	"time"
)

// BotName is how the assistant introduces itself.
const BotName = "Financio"

// Chat roles, matching the completion API vocabulary.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// systemPrompt frames every conversation.
const systemPrompt = "You are a helpful stock financial advisor."

// Message is one turn of a conversation.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// Domain errors.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNotAvailable = errors.New("assistant is not configured")
)
