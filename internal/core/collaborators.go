// ABOUTME: Narrow contracts for the external collaborators the orchestrator drives
// ABOUTME: storage.Workspace and the llm clients satisfy these
package core

import (
	"context"

	"github.com/harper/querychat/internal/models"
)

// QueryRunner executes SQL against a project's analytical store
type QueryRunner interface {
	RunQuery(ctx context.Context, projectID, sql string) (*models.QueryResult, error)
}

// RowSearcher finds table rows semantically similar to a query
type RowSearcher interface {
	SearchSimilarRows(ctx context.Context, projectID, table, queryText string, limit int) ([]models.RowHit, error)
}

// DocumentSearcher finds document chunks semantically similar to a query
type DocumentSearcher interface {
	SearchSimilarDocumentChunks(ctx context.Context, projectID, queryText string, limit int) ([]models.DocumentHit, error)
}

// SchemaProvider describes a project's tables
type SchemaProvider interface {
	ProjectContext(ctx context.Context, projectID string) (*models.ProjectContext, error)
}

// ConversationRepository persists conversations and their messages
type ConversationRepository interface {
	ListConversations(ctx context.Context, projectID string) ([]models.Conversation, error)
	CreateConversation(ctx context.Context, projectID, title string) (*models.Conversation, error)
	GetConversation(ctx context.Context, projectID, conversationID string) (*models.ConversationWithMessages, error)
	DeleteConversation(ctx context.Context, projectID, conversationID string) error
	AppendMessage(ctx context.Context, projectID, conversationID string, msg *models.Message) error
}

// ChatStreamer starts a streaming model request. The returned channel yields
// chunk events in order followed by exactly one done or error event, then closes.
// Cancelling ctx stops the stream.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req models.ChatRequest) (<-chan models.StreamEvent, error)
}
