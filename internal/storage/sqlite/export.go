// ABOUTME: Export functionality for conversations
// ABOUTME: Supports YAML, JSON and Markdown export formats
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// ExportFormat selects the serialization used by ExportConversation
type ExportFormat string

const (
	FormatYAML     ExportFormat = "yaml"
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "markdown"
)

// ExportData is an exported conversation
type ExportData struct {
	Version        string          `yaml:"version" json:"version"`
	ExportedAt     string          `yaml:"exported_at" json:"exported_at"`
	Tool           string          `yaml:"tool" json:"tool"`
	ConversationID string          `yaml:"conversation_id" json:"conversation_id"`
	Title          string          `yaml:"title" json:"title"`
	CreatedAt      string          `yaml:"created_at" json:"created_at"`
	Messages       []ExportMessage `yaml:"messages" json:"messages"`
}

// ExportMessage is a message for export
type ExportMessage struct {
	MessageID     string   `yaml:"message_id" json:"message_id"`
	Role          string   `yaml:"role" json:"role"`
	Content       string   `yaml:"content" json:"content"`
	ContextTables []string `yaml:"context_tables,omitempty" json:"context_tables,omitempty"`
	Timestamp     string   `yaml:"timestamp" json:"timestamp"`
}

// Export collects a conversation and its messages for serialization
func (s *Storage) Export(ctx context.Context, conversationID string) (*ExportData, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	data := &ExportData{
		Version:        "1.0",
		ExportedAt:     time.Now().Format(time.RFC3339),
		Tool:           "querychat",
		ConversationID: conv.ID,
		Title:          conv.Title,
		CreatedAt:      conv.CreatedAt.Format(time.RFC3339),
		Messages:       make([]ExportMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		data.Messages = append(data.Messages, ExportMessage{
			MessageID:     m.ID,
			Role:          string(m.Role),
			Content:       m.Content,
			ContextTables: m.ContextTables,
			Timestamp:     m.CreatedAt.Format(time.RFC3339),
		})
	}
	return data, nil
}

// ExportConversation writes a conversation to w in the given format
func (s *Storage) ExportConversation(ctx context.Context, conversationID string, format ExportFormat, w io.Writer) error {
	data, err := s.Export(ctx, conversationID)
	if err != nil {
		return err
	}

	switch format {
	case FormatYAML, "":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return encoder.Close()
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case FormatMarkdown:
		return writeMarkdown(w, data)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

func writeMarkdown(w io.Writer, data *ExportData) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", data.Title)
	_, _ = fmt.Fprintf(w, "Created: %s\n", data.CreatedAt)
	_, _ = fmt.Fprintf(w, "Exported: %s\n\n", data.ExportedAt)

	for _, m := range data.Messages {
		heading := "User"
		if m.Role == "assistant" {
			heading = "Assistant"
		}
		_, _ = fmt.Fprintf(w, "## %s (%s)\n\n", heading, m.Timestamp)
		_, _ = fmt.Fprintln(w, m.Content)
		_, _ = fmt.Fprintln(w)
	}

	_, err := fmt.Fprintf(w, "---\n\n*%d messages*\n", len(data.Messages))
	return err
}
