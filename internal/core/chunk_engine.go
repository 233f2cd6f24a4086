// ABOUTME: ChunkEngine splits uploaded documents into chunks for embedding
// ABOUTME: Plain text is cut on paragraphs, markdown on headings
package core

import (
	"strings"

	"github.com/harper/querychat/internal/models"
)

// MaxChunkSize is the soft upper bound of a chunk in bytes
const MaxChunkSize = 1000

// MinTrailingChunkSize is the smallest trailing chunk kept on its own
const MinTrailingChunkSize = 100

// ChunkEngine handles document chunking
type ChunkEngine struct {
	maxSize int
	minTail int
}

// NewChunkEngine creates a new ChunkEngine instance
func NewChunkEngine() *ChunkEngine {
	return &ChunkEngine{maxSize: MaxChunkSize, minTail: MinTrailingChunkSize}
}

// ChunkDocument splits content by its file type. IDs and indexes are left to the caller.
func (ce *ChunkEngine) ChunkDocument(content, fileType string) []models.DocumentChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	switch strings.ToLower(strings.TrimPrefix(fileType, ".")) {
	case "md", "markdown":
		return ce.chunkMarkdown(content)
	default:
		return ce.chunkParagraphs(content)
	}
}

type span struct {
	text       string
	start, end int
}

// splitParagraphs returns trimmed non-empty paragraphs with their byte offsets
func splitParagraphs(content string) []span {
	var out []span
	cursor := 0
	for _, part := range strings.Split(content, "\n\n") {
		partStart := cursor
		cursor += len(part) + 2

		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		start := partStart + strings.Index(part, trimmed)
		out = append(out, span{text: trimmed, start: start, end: start + len(trimmed)})
	}
	return out
}

func (ce *ChunkEngine) chunkParagraphs(content string) []models.DocumentChunk {
	var chunks []models.DocumentChunk
	var current strings.Builder
	start, end := 0, 0

	flush := func() {
		chunks = append(chunks, models.DocumentChunk{
			ChunkType:   models.ChunkTypeParagraph,
			Content:     current.String(),
			StartOffset: start,
			EndOffset:   end,
		})
		current.Reset()
	}

	for _, para := range splitParagraphs(content) {
		if current.Len() > 0 && current.Len()+len(para.text)+2 > ce.maxSize {
			flush()
		}
		if current.Len() == 0 {
			start = para.start
		} else {
			current.WriteString("\n\n")
		}
		current.WriteString(para.text)
		end = para.end
	}

	if current.Len() == 0 {
		return chunks
	}
	if current.Len() >= ce.minTail || len(chunks) == 0 {
		flush()
		return chunks
	}

	last := &chunks[len(chunks)-1]
	last.Content += "\n\n" + current.String()
	last.EndOffset = end
	return chunks
}

func (ce *ChunkEngine) chunkMarkdown(content string) []models.DocumentChunk {
	var chunks []models.DocumentChunk
	var current strings.Builder
	start := 0
	offset := 0

	flush := func(end int) {
		text := strings.TrimSpace(current.String())
		if text != "" {
			chunks = append(chunks, models.DocumentChunk{
				ChunkType:   models.ChunkTypeSection,
				Content:     text,
				StartOffset: start,
				EndOffset:   end,
			})
		}
		current.Reset()
		start = end
	}

	for _, line := range strings.SplitAfter(content, "\n") {
		isHeading := strings.HasPrefix(strings.TrimSpace(line), "#")
		switch {
		case isHeading && current.Len() > 0:
			flush(offset)
		case !isHeading && current.Len() > 0 && current.Len()+len(line) > ce.maxSize:
			flush(offset)
		}
		if current.Len() == 0 {
			start = offset
		}
		current.WriteString(line)
		offset += len(line)
	}
	flush(offset)

	if len(chunks) == 0 {
		return []models.DocumentChunk{{
			ChunkType: models.ChunkTypeSection,
			Content:   strings.TrimSpace(content),
			EndOffset: len(content),
		}}
	}
	return chunks
}
