// ABOUTME: Semantic search hit types for table rows and document chunks
// ABOUTME: Produced by the search collaborators and consumed by the context builder
package models

// RowHit is a table row matched by semantic search
type RowHit struct {
	RowID      int64   `json:"rowId"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// DocumentHit is a document chunk matched by semantic search
type DocumentHit struct {
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	Content      string  `json:"content"`
	Similarity   float64 `json:"similarity"`
}

// TableHits groups row hits under the table they came from
type TableHits map[string][]RowHit
