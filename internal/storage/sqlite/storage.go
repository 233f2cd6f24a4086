// ABOUTME: Unified Storage layer that wraps all SQLite stores for one project database
// ABOUTME: Exposes conversation, analytics, embedding and document operations
package sqlite

import (
	"context"
	"fmt"

	"github.com/harper/querychat/internal/models"
)

// Storage manages all persistent data of a single project
type Storage struct {
	db            *DB
	conversations *ConversationStore
	messages      *MessageStore
	analytics     *AnalyticsStore
	embeddings    *EmbeddingStore
	documents     *DocumentStore
	savedQueries  *SavedQueryStore
}

// NewStorageWithPath opens the project database at dbPath
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStorage(db), nil
}

// NewStorageInMemory creates an in-memory storage (for testing)
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStorage(db), nil
}

func newStorage(db *DB) *Storage {
	return &Storage{
		db:            db,
		conversations: NewConversationStore(db),
		messages:      NewMessageStore(db),
		analytics:     NewAnalyticsStore(db),
		embeddings:    NewEmbeddingStore(db),
		documents:     NewDocumentStore(db),
		savedQueries:  NewSavedQueryStore(db),
	}
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database
func (s *Storage) DB() *DB {
	return s.db
}

// Conversations returns the conversation store
func (s *Storage) Conversations() *ConversationStore { return s.conversations }

// Messages returns the message store
func (s *Storage) Messages() *MessageStore { return s.messages }

// Analytics returns the analytical query store
func (s *Storage) Analytics() *AnalyticsStore { return s.analytics }

// Embeddings returns the row embedding store
func (s *Storage) Embeddings() *EmbeddingStore { return s.embeddings }

// Documents returns the document store
func (s *Storage) Documents() *DocumentStore { return s.documents }

// SavedQueries returns the saved query store
func (s *Storage) SavedQueries() *SavedQueryStore { return s.savedQueries }

// GetConversationWithMessages loads a conversation and its messages
func (s *Storage) GetConversationWithMessages(ctx context.Context, id string) (*models.ConversationWithMessages, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ConversationWithMessages{Conversation: *conv, Messages: msgs}, nil
}

// ProjectContext describes every user table: schema, row count, samples and vectorization
func (s *Storage) ProjectContext(ctx context.Context) (*models.ProjectContext, error) {
	tables, err := s.analytics.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	vectorized, err := s.embeddings.VectorizedTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorized tables: %w", err)
	}

	pc := &models.ProjectContext{Tables: make([]models.TableContext, 0, len(tables))}
	for _, name := range tables {
		tc, err := s.analytics.TableContext(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		tc.IsVectorized = vectorized[name]
		pc.Tables = append(pc.Tables, *tc)
	}
	return pc, nil
}

// ListTableInfo summarises every user table
func (s *Storage) ListTableInfo(ctx context.Context) ([]models.TableInfo, error) {
	tables, err := s.analytics.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]models.TableInfo, 0, len(tables))
	for _, name := range tables {
		schema, err := s.analytics.TableSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		count, err := s.analytics.RowCount(ctx, name)
		if err != nil {
			return nil, err
		}
		status, err := s.embeddings.Status(ctx, name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, models.TableInfo{
			Name:              name,
			RowCount:          count,
			ColumnCount:       int64(len(schema.Columns)),
			IsVectorized:      status.IsVectorized,
			VectorizedColumns: status.VectorizedColumns,
		})
	}
	return infos, nil
}
