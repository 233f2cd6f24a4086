// ABOUTME: Document and DocumentChunk models for document semantic search
// ABOUTME: Chunks are the unit of embedding and retrieval
package models

import "time"

// ChunkType labels how a chunk was cut
type ChunkType string

const (
	ChunkTypeParagraph ChunkType = "paragraph"
	ChunkTypeSection   ChunkType = "section"
)

// Document is an uploaded text document
type Document struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	Filename     string    `json:"filename"`
	FileType     string    `json:"fileType"`
	FileSize     int64     `json:"fileSize"`
	WordCount    int       `json:"wordCount"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
	IsVectorized bool      `json:"isVectorized"`
}

// DocumentChunk is a slice of a document
type DocumentChunk struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId"`
	ChunkIndex  int       `json:"chunkIndex"`
	ChunkType   ChunkType `json:"chunkType"`
	Content     string    `json:"content"`
	StartOffset int       `json:"startOffset"`
	EndOffset   int       `json:"endOffset"`
}
