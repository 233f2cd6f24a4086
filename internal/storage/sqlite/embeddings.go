// ABOUTME: Row embedding storage for vectorized user tables
// ABOUTME: Vectors are float32 BLOBs searched by cosine similarity
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/harper/querychat/internal/models"
)

// RowEmbedding is one embedded row of a user table
type RowEmbedding struct {
	TableName    string
	SourceColumn string
	RowID        int64
	Content      string
	Vector       []float32
	Model        string
}

// EmbeddingStore handles row embedding persistence
type EmbeddingStore struct {
	db *DB
}

// NewEmbeddingStore creates a new EmbeddingStore
func NewEmbeddingStore(db *DB) *EmbeddingStore {
	return &EmbeddingStore{db: db}
}

// SaveBatch upserts a batch of row embeddings in one transaction
func (s *EmbeddingStore) SaveBatch(ctx context.Context, batch []RowEmbedding) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, e := range batch {
		if len(e.Vector) == 0 {
			return fmt.Errorf("empty vector for %s row %d", e.TableName, e.RowID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO _qc_embeddings (table_name, source_column, row_id, content, vector, model, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(table_name, source_column, row_id) DO UPDATE SET
				content = excluded.content,
				vector = excluded.vector,
				model = excluded.model,
				created_at = excluded.created_at
		`, e.TableName, e.SourceColumn, e.RowID, e.Content, vectorToBlob(e.Vector), e.Model, now)
		if err != nil {
			return fmt.Errorf("save embedding: %w", err)
		}
	}

	return tx.Commit()
}

// SearchRows returns the rows of a table most similar to the query vector
func (s *EmbeddingStore) SearchRows(ctx context.Context, table string, query []float32, limit int) ([]models.RowHit, error) {
	rows, err := s.db.Query(ctx, `
		SELECT row_id, content, vector
		FROM _qc_embeddings
		WHERE table_name = ?
	`, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hits := []models.RowHit{}
	for rows.Next() {
		var (
			hit  models.RowHit
			blob []byte
		)
		if err := rows.Scan(&hit.RowID, &hit.Content, &blob); err != nil {
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

// Status reports the embedding coverage of a table
func (s *EmbeddingStore) Status(ctx context.Context, table string) (*models.VectorizationStatus, error) {
	status := &models.VectorizationStatus{TableName: table, VectorizedColumns: []string{}}

	rows, err := s.db.Query(ctx, `
		SELECT source_column, COUNT(*), MAX(model)
		FROM _qc_embeddings
		WHERE table_name = ?
		GROUP BY source_column
		ORDER BY source_column
	`, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			source string
			count  int64
			model  sql.NullString
		)
		if err := rows.Scan(&source, &count, &model); err != nil {
			return nil, err
		}
		for _, col := range strings.Split(source, "+") {
			status.VectorizedColumns = append(status.VectorizedColumns, col)
		}
		status.EmbeddingCount += count
		if model.Valid {
			status.EmbeddingModel = model.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	status.IsVectorized = status.EmbeddingCount > 0
	return status, nil
}

// VectorizedTables returns the names of tables that have embeddings
func (s *EmbeddingStore) VectorizedTables(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.Query(ctx, "SELECT DISTINCT table_name FROM _qc_embeddings")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// DeleteTable removes every embedding for a table
func (s *EmbeddingStore) DeleteTable(ctx context.Context, table string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM _qc_embeddings WHERE table_name = ?", table)
	return err
}

func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func blobToVector(blob []byte) []float32 {
	count := len(blob) / 4
	vector := make([]float32, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
