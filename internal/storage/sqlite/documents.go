// ABOUTME: Document and chunk storage for document semantic search
// ABOUTME: Chunk vectors are optional until the document is vectorized
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/harper/querychat/internal/models"
)

// DocumentStore handles document persistence
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save inserts a document together with its chunks
func (s *DocumentStore) Save(ctx context.Context, doc *models.Document, chunks []models.DocumentChunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO _qc_documents (id, filename, file_type, file_size, word_count, title, content, uploaded_at, is_vectorized)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, doc.ID, doc.Filename, doc.FileType, doc.FileSize, doc.WordCount, doc.Title, doc.Content, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO _qc_document_chunks (id, document_id, chunk_index, chunk_type, content, start_offset, end_offset)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, doc.ID, c.ChunkIndex, string(c.ChunkType), c.Content, c.StartOffset, c.EndOffset)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a document by ID including its content
func (s *DocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	var (
		doc   models.Document
		title sql.NullString
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, filename, file_type, file_size, word_count, title, content, uploaded_at, is_vectorized
		FROM _qc_documents WHERE id = ?
	`, id).Scan(&doc.ID, &doc.Filename, &doc.FileType, &doc.FileSize, &doc.WordCount, &title,
		&doc.Content, &doc.UploadedAt, &doc.IsVectorized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc.Title = title.String
	return &doc, nil
}

// List returns all documents without content, newest first
func (s *DocumentStore) List(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, filename, file_type, file_size, word_count, title, uploaded_at, is_vectorized
		FROM _qc_documents
		ORDER BY uploaded_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := []models.Document{}
	for rows.Next() {
		var (
			doc   models.Document
			title sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.FileType, &doc.FileSize, &doc.WordCount,
			&title, &doc.UploadedAt, &doc.IsVectorized); err != nil {
			return nil, err
		}
		doc.Title = title.String
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Chunks returns a document's chunks in order
func (s *DocumentStore) Chunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, document_id, chunk_index, chunk_type, content, start_offset, end_offset
		FROM _qc_document_chunks
		WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := []models.DocumentChunk{}
	for rows.Next() {
		var (
			c         models.DocumentChunk
			chunkType string
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &chunkType, &c.Content, &c.StartOffset, &c.EndOffset); err != nil {
			return nil, err
		}
		c.ChunkType = models.ChunkType(chunkType)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SetVectors stores chunk vectors by chunk ID and marks the document vectorized
func (s *DocumentStore) SetVectors(ctx context.Context, documentID string, vectors map[string][]float32) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for chunkID, vec := range vectors {
		if _, err := tx.ExecContext(ctx, `
			UPDATE _qc_document_chunks SET vector = ? WHERE id = ? AND document_id = ?
		`, vectorToBlob(vec), chunkID, documentID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE _qc_documents SET is_vectorized = 1 WHERE id = ?", documentID); err != nil {
		return err
	}
	return tx.Commit()
}

// SearchChunks returns the vectorized chunks most similar to the query vector
func (s *DocumentStore) SearchChunks(ctx context.Context, query []float32, limit int) ([]models.DocumentHit, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.document_id, d.filename, c.content, c.vector
		FROM _qc_document_chunks c
		JOIN _qc_documents d ON d.id = c.document_id
		WHERE c.vector IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hits := []models.DocumentHit{}
	for rows.Next() {
		var (
			hit  models.DocumentHit
			blob []byte
		)
		if err := rows.Scan(&hit.DocumentID, &hit.DocumentName, &hit.Content, &blob); err != nil {
			return nil, err
		}
		hit.Similarity = CosineSimilarity(query, blobToVector(blob))
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Delete removes a document and its chunks
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.Exec(ctx, "DELETE FROM _qc_documents WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, "document", id)
}
