// ABOUTME: Tests for conversation export
// ABOUTME: Verifies YAML, JSON and Markdown output
package sqlite

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/harper/querychat/internal/models"
	"gopkg.in/yaml.v3"
)

func seedConversation(t *testing.T, s *Storage) string {
	t.Helper()
	ctx := context.Background()
	conv, err := s.Conversations().Create(ctx, "Sales questions")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	user, _ := models.NewMessage(models.RoleUser, "How many sales?")
	assistant, _ := models.NewMessage(models.RoleAssistant, "There are 4.")
	for _, m := range []*models.Message{user, assistant} {
		if err := s.Messages().Append(ctx, conv.ID, m); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return conv.ID
}

func TestExportConversationFormats(t *testing.T) {
	s := newTestStorage(t)
	id := seedConversation(t, s)
	ctx := context.Background()

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := s.ExportConversation(ctx, id, FormatYAML, &buf); err != nil {
			t.Fatalf("ExportConversation() error = %v", err)
		}
		var data ExportData
		if err := yaml.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if data.Title != "Sales questions" || len(data.Messages) != 2 {
			t.Errorf("data = %+v", data)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := s.ExportConversation(ctx, id, FormatJSON, &buf); err != nil {
			t.Fatalf("ExportConversation() error = %v", err)
		}
		var data ExportData
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if data.Messages[1].Role != "assistant" {
			t.Errorf("second message role = %q", data.Messages[1].Role)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		if err := s.ExportConversation(ctx, id, FormatMarkdown, &buf); err != nil {
			t.Fatalf("ExportConversation() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"# Sales questions", "## User", "## Assistant", "There are 4.", "*2 messages*"} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		if err := s.ExportConversation(ctx, id, ExportFormat("pdf"), &buf); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}
