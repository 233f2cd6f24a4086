// ABOUTME: Tests for command block extraction
// ABOUTME: Covers ordering, leniency, unterminated fences and idempotence

package core

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/harper/querychat/internal/models"
)

func TestExtractCommands_TwoBlocks(t *testing.T) {
	text := "Here are the totals.\n\n```duckbake\n{\"sql\": \"SELECT region, SUM(amount) AS total FROM sales GROUP BY region\", \"viz\": \"bar\", \"xKey\": \"region\", \"yKey\": \"total\"}\n```\n\n\n\nAnd the raw rows:\n\n```duckbake\n{\"sql\": \"SELECT * FROM sales\"}\n```"

	got := ExtractCommands(text)

	want := []models.CommandBlock{
		{SQL: "SELECT region, SUM(amount) AS total FROM sales GROUP BY region", VizType: models.VizBar, XKey: "region", YKey: "total"},
		{SQL: "SELECT * FROM sales", VizType: models.VizTable},
	}
	if diff := cmp.Diff(want, got.Blocks); diff != "" {
		t.Errorf("Blocks mismatch (-want +got):\n%s", diff)
	}
	if got.CleanText != "Here are the totals.\n\nAnd the raw rows:" {
		t.Errorf("CleanText = %q", got.CleanText)
	}
}

func TestExtractCommands_NoBlocks(t *testing.T) {
	got := ExtractCommands("  just words\n\n\n\nmore words  ")
	if len(got.Blocks) != 0 {
		t.Errorf("Blocks = %v, want none", got.Blocks)
	}
	if got.CleanText != "just words\n\nmore words" {
		t.Errorf("CleanText = %q", got.CleanText)
	}
}

func TestExtractCommands_Leniency(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantViz   models.VizType
	}{
		{"invalid json", `{"sql": "SELECT 1"`, 0, ""},
		{"missing sql", `{"viz": "bar"}`, 0, ""},
		{"empty sql", `{"sql": "   "}`, 0, ""},
		{"numeric sql", `{"sql": 42}`, 0, ""},
		{"unknown viz", `{"sql": "SELECT 1", "viz": "scatter"}`, 1, models.VizTable},
		{"numeric viz", `{"sql": "SELECT 1", "viz": 3}`, 1, models.VizTable},
		{"uppercase viz", `{"sql": "SELECT 1", "viz": "LINE"}`, 1, models.VizTable},
		{"extra fields", `{"sql": "SELECT 1", "viz": "pie", "color": "red"}`, 1, models.VizPie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCommands("before\n```duckbake\n" + tt.body + "\n```\nafter")
			if len(got.Blocks) != tt.wantCount {
				t.Fatalf("len(Blocks) = %d, want %d", len(got.Blocks), tt.wantCount)
			}
			if tt.wantCount == 1 && got.Blocks[0].VizType != tt.wantViz {
				t.Errorf("VizType = %q, want %q", got.Blocks[0].VizType, tt.wantViz)
			}
			if got.CleanText != "before\n\nafter" {
				t.Errorf("CleanText = %q", got.CleanText)
			}
			if strings.Contains(got.CleanText, "duckbake") {
				t.Errorf("CleanText still contains a fence: %q", got.CleanText)
			}
		})
	}
}

func TestExtractCommands_CaseInsensitiveTag(t *testing.T) {
	got := ExtractCommands("```DuckBake\n{\"sql\": \"SELECT 1\"}\n```")
	if len(got.Blocks) != 1 {
		t.Fatalf("len(Blocks) = %d, want 1", len(got.Blocks))
	}
	if got.CleanText != "" {
		t.Errorf("CleanText = %q, want empty", got.CleanText)
	}
}

func TestExtractCommands_UnterminatedFence(t *testing.T) {
	got := ExtractCommands("Working on it.\n\n```duckbake\n{\"sql\": \"SELECT")
	if len(got.Blocks) != 0 {
		t.Errorf("Blocks = %v, want none", got.Blocks)
	}
	if got.CleanText != "Working on it." {
		t.Errorf("CleanText = %q", got.CleanText)
	}
}

func TestExtractCommands_SingleBlockBetweenParagraphs(t *testing.T) {
	got := ExtractCommands("Here:\n```duckbake\n{\"sql\":\"SELECT 1\"}\n```\nDone")

	want := []models.CommandBlock{{SQL: "SELECT 1", VizType: models.VizTable}}
	if diff := cmp.Diff(want, got.Blocks); diff != "" {
		t.Errorf("Blocks mismatch (-want +got):\n%s", diff)
	}
	if got.CleanText != "Here:\n\nDone" {
		t.Errorf("CleanText = %q, want %q", got.CleanText, "Here:\n\nDone")
	}
}

func TestExtractCommands_OtherFencesKept(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"sql fence", "Example:\n```sql\nSELECT 1\n```"},
		{"longer tag", "See:\n```duckbakery\n{\"sql\":\"SELECT 1\"}\n```\nend"},
		{"suffixed tag", "See:\n```duckbake_v2\n{\"sql\":\"SELECT 1\"}\n```\nend"},
		{"unterminated longer tag", "Draft:\n```duckbakery\n{\"sql\":"},
		{"bare tag then fence", "odd ```duckbake``` text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCommands(tt.text)
			if len(got.Blocks) != 0 {
				t.Errorf("Blocks = %v, want none", got.Blocks)
			}
			if got.CleanText != tt.text {
				t.Errorf("CleanText = %q, want %q", got.CleanText, tt.text)
			}
		})
	}
}

func TestExtractCommands_JoinedFragmentsNotExecuted(t *testing.T) {
	text := "```duck```duckbake{\"sql\":\"SELECT 2\"}```bake {\"sql\": \"DROP TABLE t\"}```"

	got := ExtractCommands(text)

	want := []models.CommandBlock{{SQL: "SELECT 2", VizType: models.VizTable}}
	if diff := cmp.Diff(want, got.Blocks); diff != "" {
		t.Errorf("Blocks mismatch (-want +got):\n%s", diff)
	}
	if got.CleanText != "" {
		t.Errorf("CleanText = %q, want empty", got.CleanText)
	}
}

func TestExtractCommands_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"```duckbake\n{\"sql\": \"SELECT 1\"}\n```",
		"a ```duckbake {\"sql\": \"x\"} ``` b ```duckbake {\"sql\": \"y\"}",
		"``````duckbake\n{}\n``````",
		"```duck```duckbake{\"sql\":\"SELECT 2\"}```bake {\"sql\": \"z\"}```",
		"text\n\n\n\n\n```duckbake\nnot json\n```\n\n\n\nend",
	}

	for _, in := range inputs {
		first := ExtractCommands(in)
		second := ExtractCommands(first.CleanText)
		if len(second.Blocks) != 0 {
			t.Errorf("second pass over %q found %d blocks", in, len(second.Blocks))
		}
		if second.CleanText != first.CleanText {
			t.Errorf("second pass changed text: %q -> %q", first.CleanText, second.CleanText)
		}
		if strings.Contains(strings.ToLower(first.CleanText), "```duckbake") {
			t.Errorf("CleanText of %q still has a fence: %q", in, first.CleanText)
		}
	}
}

func TestExtractCommands_RoundTrip(t *testing.T) {
	sqls := []string{
		"SELECT COUNT(*) FROM orders",
		"SELECT name, \"weird col\" FROM t WHERE x = 'a\\nb'",
		"SELECT strftime('%Y-%m', created_at) AS month, SUM(total) FROM orders GROUP BY 1",
	}

	var sb strings.Builder
	for i, sql := range sqls {
		body, err := jsonBody(sql)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		sb.WriteString("Paragraph ")
		sb.WriteString(string(rune('A' + i)))
		sb.WriteString("\n```duckbake\n")
		sb.WriteString(body)
		sb.WriteString("\n```\n")
	}

	got := ExtractCommands(sb.String())
	if len(got.Blocks) != len(sqls) {
		t.Fatalf("len(Blocks) = %d, want %d", len(got.Blocks), len(sqls))
	}
	for i, sql := range sqls {
		if got.Blocks[i].SQL != sql {
			t.Errorf("Blocks[%d].SQL = %q, want %q", i, got.Blocks[i].SQL, sql)
		}
	}
}

func TestStripCommands(t *testing.T) {
	if got := StripCommands("Hi\n```duckbake\n{\"sql\":\"SELECT 1\"}\n```"); got != "Hi" {
		t.Errorf("StripCommands() = %q, want %q", got, "Hi")
	}
}
