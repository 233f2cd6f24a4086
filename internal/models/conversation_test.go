// ABOUTME: Tests for conversation title generation
// ABOUTME: Covers question-word stripping, capitalization and word-boundary truncation
package models

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips what is", "what is the total revenue by region?", "Total revenue by region"},
		{"strips show me", "show me sales for 2023", "Sales for 2023"},
		{"strips how many", "How many customers signed up last month?", "Customers signed up last month"},
		{"capitalizes plain text", "revenue trend", "Revenue trend"},
		{"collapses whitespace", "  top   products  ", "Top products"},
		{"empty falls back", "", DefaultTitle},
		{"only question word falls back", "what?", DefaultTitle},
		{"only whitespace falls back", "   \n\t", DefaultTitle},
		{
			"truncates at word boundary",
			"show me the monthly average order value for every customer segment in europe",
			"The monthly average order value for",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateTitle(tt.input)
			if got != tt.want {
				t.Errorf("GenerateTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateTitleLength(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 30),
		"can you " + strings.Repeat("a", 100),
		"which products had the highest margin across all stores during the holiday quarter",
	}

	for _, in := range inputs {
		got := GenerateTitle(in)
		if n := utf8.RuneCountInString(got); n > MaxTitleLength {
			t.Errorf("GenerateTitle(%q) has %d runes, want <= %d", in, n, MaxTitleLength)
		}
		if strings.HasSuffix(got, " ") {
			t.Errorf("GenerateTitle(%q) = %q has trailing space", in, got)
		}
	}
}

func TestGenerateTitleNoMidWordCut(t *testing.T) {
	input := "list the quarterly performance indicators for international subsidiaries"
	got := GenerateTitle(input)

	words := make(map[string]bool)
	for _, w := range strings.Fields(input) {
		words[w] = true
	}
	for _, word := range strings.Fields(strings.ToLower(got)) {
		if !words[word] {
			t.Errorf("title %q contains partial word %q", got, word)
		}
	}
	if got != "List the quarterly performance" {
		t.Errorf("GenerateTitle() = %q", got)
	}
}
