// ABOUTME: Conversation storage operations for SQLite
// ABOUTME: Implements create, list, rename and delete for chat threads
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harper/querychat/internal/models"
)

// ConversationStore handles conversation persistence
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a new ConversationStore
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Create inserts a new conversation and returns it
func (s *ConversationStore) Create(ctx context.Context, title string) (*models.Conversation, error) {
	if title == "" {
		title = models.DefaultTitle
	}
	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:        models.NewID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO _qc_conversations (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, conv.ID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// Get retrieves a conversation by ID
func (s *ConversationStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.QueryRow(ctx, `
		SELECT id, title, created_at, updated_at
		FROM _qc_conversations
		WHERE id = ?
	`, id).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns all conversations, most recently updated first
func (s *ConversationStore) List(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, created_at, updated_at
		FROM _qc_conversations
		ORDER BY updated_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	convs := []models.Conversation{}
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// UpdateTitle renames a conversation
func (s *ConversationStore) UpdateTitle(ctx context.Context, id, title string) error {
	res, err := s.db.Exec(ctx, `
		UPDATE _qc_conversations SET title = ?, updated_at = ? WHERE id = ?
	`, title, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "conversation", id)
}

// Delete removes a conversation and, by cascade, its messages
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.Exec(ctx, "DELETE FROM _qc_conversations WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, "conversation", id)
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
