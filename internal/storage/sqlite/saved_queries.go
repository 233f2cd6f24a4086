// ABOUTME: Saved query storage for reusable named SQL
// ABOUTME: Saving under an existing name replaces its SQL
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harper/querychat/internal/models"
)

// SavedQueryStore handles saved query persistence
type SavedQueryStore struct {
	db *DB
}

// NewSavedQueryStore creates a new SavedQueryStore
func NewSavedQueryStore(db *DB) *SavedQueryStore {
	return &SavedQueryStore{db: db}
}

// Save upserts a named query
func (s *SavedQueryStore) Save(ctx context.Context, name, query string) (*models.SavedQuery, error) {
	if name == "" || query == "" {
		return nil, errors.New("name and sql are required")
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO _qc_saved_queries (id, name, sql, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			sql = excluded.sql,
			updated_at = excluded.updated_at
	`, models.NewID(), name, query, now, now)
	if err != nil {
		return nil, fmt.Errorf("save query: %w", err)
	}
	return s.Get(ctx, name)
}

// Get returns a saved query by name
func (s *SavedQueryStore) Get(ctx context.Context, name string) (*models.SavedQuery, error) {
	var q models.SavedQuery
	err := s.db.QueryRow(ctx, `
		SELECT id, name, sql, created_at, updated_at FROM _qc_saved_queries WHERE name = ?
	`, name).Scan(&q.ID, &q.Name, &q.SQL, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("saved query %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// List returns saved queries, most recently updated first
func (s *SavedQueryStore) List(ctx context.Context) ([]models.SavedQuery, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, sql, created_at, updated_at
		FROM _qc_saved_queries
		ORDER BY updated_at DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.SavedQuery{}
	for rows.Next() {
		var q models.SavedQuery
		if err := rows.Scan(&q.ID, &q.Name, &q.SQL, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Delete removes a saved query by name
func (s *SavedQueryStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.Exec(ctx, "DELETE FROM _qc_saved_queries WHERE name = ?", name)
	if err != nil {
		return err
	}
	return requireAffected(res, "saved query", name)
}
