// ABOUTME: Message storage operations for SQLite
// ABOUTME: Messages are append-only; appending bumps the conversation's updated_at
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harper/querychat/internal/models"
)

// MessageStore handles message persistence
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append stores a message that already carries its ID and timestamp
func (s *MessageStore) Append(ctx context.Context, conversationID string, msg *models.Message) error {
	var contextTables sql.NullString
	if len(msg.ContextTables) > 0 {
		data, err := json.Marshal(msg.ContextTables)
		if err != nil {
			return err
		}
		contextTables = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE _qc_conversations SET updated_at = ? WHERE id = ?
	`, msg.CreatedAt, conversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := requireAffected(res, "conversation", conversationID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO _qc_messages (id, conversation_id, role, content, context_tables, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, conversationID, string(msg.Role), msg.Content, contextTables, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return tx.Commit()
}

// ListByConversation returns a conversation's messages in the order they were appended
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, role, content, context_tables, created_at
		FROM _qc_messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	msgs := []models.Message{}
	for rows.Next() {
		var (
			msg           models.Message
			role          string
			contextTables sql.NullString
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &contextTables, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = models.Role(role)
		if contextTables.Valid && contextTables.String != "" {
			if err := json.Unmarshal([]byte(contextTables.String), &msg.ContextTables); err != nil {
				msg.ContextTables = nil
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Count returns the number of messages in a conversation
func (s *MessageStore) Count(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM _qc_messages WHERE conversation_id = ?", conversationID).Scan(&n)
	return n, err
}
