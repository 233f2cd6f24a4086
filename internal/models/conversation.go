// ABOUTME: Conversation groups messages within a project
// ABOUTME: Includes the deterministic title heuristic used on the first user turn
package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DefaultTitle is used when no usable title can be derived
const DefaultTitle = "New Chat"

// MaxTitleLength bounds derived titles
const MaxTitleLength = 40

// Conversation is a persisted chat thread
type Conversation struct {
	ID        string    `json:"id" yaml:"id"`
	ProjectID string    `json:"projectId" yaml:"project_id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// ConversationWithMessages is a conversation and its ordered messages
type ConversationWithMessages struct {
	Conversation
	Messages []Message `json:"messages" yaml:"messages"`
}

// Longest phrases first so "what is" wins over "what".
var leadingQuestionPhrases = []string{
	"can you please", "could you please", "would you please",
	"can you", "could you", "would you", "will you",
	"please show me", "show me", "tell me", "give me", "help me",
	"what are the", "what is the", "what are", "what is", "what's",
	"how many", "how much", "how do i", "how can i", "how does", "how do",
	"i want to", "i need to", "i'd like to", "let's",
	"what", "how", "why", "when", "where", "who", "which",
	"is there", "are there", "is", "are", "do", "does", "can", "please",
}

// GenerateTitle derives a conversation title from the first user message:
// leading question words are stripped, the first letter capitalized and the
// result cut to MaxTitleLength at a word boundary.
func GenerateTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	title = strings.TrimRight(title, "?!. ")

	lower := strings.ToLower(title)
	for _, phrase := range leadingQuestionPhrases {
		if lower == phrase {
			title = ""
			break
		}
		if strings.HasPrefix(lower, phrase+" ") {
			title = strings.TrimSpace(title[len(phrase):])
			break
		}
	}

	if title == "" {
		return DefaultTitle
	}

	r, size := utf8.DecodeRuneInString(title)
	title = string(unicode.ToUpper(r)) + title[size:]

	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}

	runes := []rune(title)
	cut := string(runes[:MaxTitleLength])
	// Cut back to the last space if the limit fell inside a word.
	if runes[MaxTitleLength] != ' ' {
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
	}
	cut = strings.TrimRight(cut, " ,;:-")
	if cut == "" {
		return DefaultTitle
	}
	return cut
}
