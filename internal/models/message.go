// ABOUTME: Message represents one persisted chat message in a conversation
// ABOUTME: Assistant content is stored raw, command blocks included
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role may be stored on a Message
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is immutable once created. Content of an assistant message is the
// full model output including command blocks; blocks are stripped only for display.
type Message struct {
	ID            string    `json:"id" yaml:"id"`
	Role          Role      `json:"role" yaml:"role"`
	Content       string    `json:"content" yaml:"content"`
	CreatedAt     time.Time `json:"createdAt" yaml:"created_at"`
	ContextTables []string  `json:"contextTables,omitempty" yaml:"context_tables,omitempty"`
}

// NewMessage creates a Message with a fresh ID
func NewMessage(role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, errors.New("role must be user or assistant")
	}
	if role == RoleUser && strings.TrimSpace(content) == "" {
		return nil, errors.New("user message cannot be empty")
	}
	return &Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewID returns a new random identifier for messages, conversations and documents
func NewID() string {
	return uuid.New().String()
}

// ChatMessage is a role/content pair sent to the inference collaborator
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single streaming request to the inference collaborator.
// Context is the database/document preamble produced by the context builder.
type ChatRequest struct {
	Model    string        `json:"model,omitempty"`
	Context  string        `json:"context"`
	Messages []ChatMessage `json:"messages"`
}

// History converts messages to role/content pairs in order
func History(messages []Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
