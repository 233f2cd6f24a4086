// ABOUTME: Project-scoped operations on the Workspace
// ABOUTME: Queries, semantic search, conversations, vectorization and documents
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/querychat/internal/models"
	"github.com/harper/querychat/internal/storage/sqlite"
)

const (
	// TableBatchSize is the number of rows embedded per request when vectorizing a table
	TableBatchSize = 50
	// DocumentBatchSize is the number of chunks embedded per request
	DocumentBatchSize = 20
)

// ProgressFunc reports vectorization progress
type ProgressFunc func(processed, total int64)

// RunQuery executes SQL against a project database and records it in the history
func (w *Workspace) RunQuery(ctx context.Context, projectID, query string) (*models.QueryResult, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	res, err := db.Analytics().RunQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := db.Analytics().RecordQuery(ctx, query, res.RowCount, res.ExecutionTimeMs); err != nil {
		w.logger.Warn("failed to record query history", "project", projectID, "error", err)
	}
	return res, nil
}

// ProjectContext returns the schema description of every user table
func (w *Workspace) ProjectContext(ctx context.Context, projectID string) (*models.ProjectContext, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	return db.ProjectContext(ctx)
}

// ListTables summarises a project's user tables
func (w *Workspace) ListTables(ctx context.Context, projectID string) ([]models.TableInfo, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	return db.ListTableInfo(ctx)
}

// TableSchema describes one table
func (w *Workspace) TableSchema(ctx context.Context, projectID, table string) (*models.TableSchema, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	return db.Analytics().TableSchema(ctx, table)
}

// QueryHistory returns recently executed queries
func (w *Workspace) QueryHistory(ctx context.Context, projectID string, limit int) ([]models.QueryHistoryEntry, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	return db.Analytics().QueryHistory(ctx, limit)
}

// SearchSimilarRows embeds queryText and returns the closest rows of a vectorized table
func (w *Workspace) SearchSimilarRows(ctx context.Context, projectID, table, queryText string, limit int) ([]models.RowHit, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	vec, err := w.embedOne(ctx, queryText)
	if err != nil {
		return nil, err
	}
	return db.Embeddings().SearchRows(ctx, table, vec, limit)
}

// SearchSimilarDocumentChunks embeds queryText and returns the closest document chunks
func (w *Workspace) SearchSimilarDocumentChunks(ctx context.Context, projectID, queryText string, limit int) ([]models.DocumentHit, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	vec, err := w.embedOne(ctx, queryText)
	if err != nil {
		return nil, err
	}
	return db.Documents().SearchChunks(ctx, vec, limit)
}

// ListConversations returns a project's conversations, most recent first
func (w *Workspace) ListConversations(ctx context.Context, projectID string) ([]models.Conversation, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	convs, err := db.Conversations().List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].ProjectID = projectID
	}
	return convs, nil
}

// CreateConversation starts a new conversation in a project
func (w *Workspace) CreateConversation(ctx context.Context, projectID, title string) (*models.Conversation, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	conv, err := db.Conversations().Create(ctx, title)
	if err != nil {
		return nil, err
	}
	conv.ProjectID = projectID
	return conv, nil
}

// GetConversation loads a conversation with its messages
func (w *Workspace) GetConversation(ctx context.Context, projectID, conversationID string) (*models.ConversationWithMessages, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	conv, err := db.GetConversationWithMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	conv.ProjectID = projectID
	return conv, nil
}

// DeleteConversation removes a conversation and its messages
func (w *Workspace) DeleteConversation(ctx context.Context, projectID, conversationID string) error {
	db, err := w.Storage(projectID)
	if err != nil {
		return err
	}
	return db.Conversations().Delete(ctx, conversationID)
}

// RenameConversation changes a conversation's title
func (w *Workspace) RenameConversation(ctx context.Context, projectID, conversationID, title string) error {
	db, err := w.Storage(projectID)
	if err != nil {
		return err
	}
	return db.Conversations().UpdateTitle(ctx, conversationID, title)
}

// AppendMessage persists a message that already carries its id and timestamp
func (w *Workspace) AppendMessage(ctx context.Context, projectID, conversationID string, msg *models.Message) error {
	db, err := w.Storage(projectID)
	if err != nil {
		return err
	}
	return db.Messages().Append(ctx, conversationID, msg)
}

// ExportConversation writes a conversation in the given format
func (w *Workspace) ExportConversation(ctx context.Context, projectID, conversationID string, format sqlite.ExportFormat, out io.Writer) error {
	db, err := w.Storage(projectID)
	if err != nil {
		return err
	}
	return db.ExportConversation(ctx, conversationID, format, out)
}

// VectorizeTable embeds the given columns of every row, replacing earlier embeddings
func (w *Workspace) VectorizeTable(ctx context.Context, projectID, table string, columns []string, progress ProgressFunc) (int64, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return 0, err
	}
	embedder, err := w.currentEmbedder()
	if err != nil {
		return 0, err
	}

	schema, err := db.Analytics().TableSchema(ctx, table)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(schema.Columns))
	for _, c := range schema.Columns {
		known[c.Name] = true
	}
	for _, c := range columns {
		if !known[c] {
			return 0, fmt.Errorf("column %q not found in %s", c, table)
		}
	}

	total, err := db.Analytics().RowCount(ctx, table)
	if err != nil {
		return 0, err
	}
	if err := db.Embeddings().DeleteTable(ctx, table); err != nil {
		return 0, err
	}

	source := strings.Join(columns, "+")
	var processed int64
	for offset := 0; ; offset += TableBatchSize {
		page, err := db.Analytics().TextForVectorization(ctx, table, columns, TableBatchSize, offset)
		if err != nil {
			return processed, err
		}
		if len(page) == 0 {
			break
		}

		texts := make([]string, len(page))
		for i, r := range page {
			texts[i] = r.Text
		}
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return processed, fmt.Errorf("embed rows: %w", err)
		}
		if len(vecs) != len(page) {
			return processed, fmt.Errorf("embed rows: got %d vectors for %d rows", len(vecs), len(page))
		}

		batch := make([]sqlite.RowEmbedding, len(page))
		for i, r := range page {
			batch[i] = sqlite.RowEmbedding{
				TableName:    table,
				SourceColumn: source,
				RowID:        r.RowID,
				Content:      r.Text,
				Vector:       vecs[i],
				Model:        embedder.Model(),
			}
		}
		if err := db.Embeddings().SaveBatch(ctx, batch); err != nil {
			return processed, err
		}

		processed += int64(len(page))
		if progress != nil {
			progress(processed, total)
		}
	}

	w.logger.Info("table vectorized", "project", projectID, "table", table, "rows", processed)
	return processed, nil
}

// VectorizationStatus reports embedding coverage of a table
func (w *Workspace) VectorizationStatus(ctx context.Context, projectID, table string) (*models.VectorizationStatus, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	return db.Embeddings().Status(ctx, table)
}

// RemoveVectorization drops every embedding of a table
func (w *Workspace) RemoveVectorization(ctx context.Context, projectID, table string) error {
	db, err := w.Storage(projectID)
	if err != nil {
		return err
	}
	return db.Embeddings().DeleteTable(ctx, table)
}

// AddDocument stores a text document split into chunks
func (w *Workspace) AddDocument(ctx context.Context, projectID, filename, content string) (*models.Document, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	chunker := w.chunker
	w.mu.Unlock()
	if chunker == nil {
		return nil, fmt.Errorf("no chunker configured")
	}

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if fileType == "" {
		fileType = "txt"
	}

	doc := &models.Document{
		ID:         models.NewID(),
		ProjectID:  projectID,
		Filename:   filename,
		FileType:   fileType,
		FileSize:   int64(len(content)),
		WordCount:  len(strings.Fields(content)),
		Title:      documentTitle(content, fileType),
		Content:    content,
		UploadedAt: time.Now().UTC(),
	}

	chunks := chunker.ChunkDocument(content, fileType)
	for i := range chunks {
		chunks[i].ID = models.NewID()
		chunks[i].DocumentID = doc.ID
		chunks[i].ChunkIndex = i
	}

	if err := db.Documents().Save(ctx, doc, chunks); err != nil {
		return nil, err
	}
	w.logger.Info("document added", "project", projectID, "document", doc.ID, "chunks", len(chunks))
	return doc, nil
}

// documentTitle uses the first markdown heading, if any
func documentTitle(content, fileType string) string {
	if fileType != "md" && fileType != "markdown" {
		return ""
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// VectorizeDocument embeds every chunk of a document
func (w *Workspace) VectorizeDocument(ctx context.Context, projectID, documentID string, progress ProgressFunc) (int64, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return 0, err
	}
	embedder, err := w.currentEmbedder()
	if err != nil {
		return 0, err
	}

	chunks, err := db.Documents().Chunks(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		if _, err := db.Documents().Get(ctx, documentID); err != nil {
			return 0, err
		}
	}

	total := int64(len(chunks))
	vectors := make(map[string][]float32, len(chunks))
	var processed int64
	for start := 0; start < len(chunks); start += DocumentBatchSize {
		end := min(start+DocumentBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return processed, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vecs) != len(batch) {
			return processed, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vecs), len(batch))
		}
		for i, c := range batch {
			vectors[c.ID] = vecs[i]
		}

		processed += int64(len(batch))
		if progress != nil {
			progress(processed, total)
		}
	}

	if err := db.Documents().SetVectors(ctx, documentID, vectors); err != nil {
		return processed, err
	}
	return processed, nil
}

// ListDocuments returns a project's documents
func (w *Workspace) ListDocuments(ctx context.Context, projectID string) ([]models.Document, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	docs, err := db.Documents().List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].ProjectID = projectID
	}
	return docs, nil
}

// DeleteDocument removes a document and its chunks
func (w *Workspace) DeleteDocument(ctx context.Context, projectID, documentID string) error {
	db, err := w.Storage(projectID)
	if err != nil {
		return err
	}
	return db.Documents().Delete(ctx, documentID)
}

// SaveQuery stores a named query in a project
func (w *Workspace) SaveQuery(ctx context.Context, projectID, name, query string) (*models.SavedQuery, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	return db.SavedQueries().Save(ctx, name, query)
}

// ListSavedQueries returns a project's saved queries
func (w *Workspace) ListSavedQueries(ctx context.Context, projectID string) ([]models.SavedQuery, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	return db.SavedQueries().List(ctx)
}

// GetSavedQuery returns a saved query by name
func (w *Workspace) GetSavedQuery(ctx context.Context, projectID, name string) (*models.SavedQuery, error) {
	db, err := w.Storage(projectID)
	if err != nil {
		return nil, err
	}
	return db.SavedQueries().Get(ctx, name)
}

// DeleteSavedQuery removes a saved query by name
func (w *Workspace) DeleteSavedQuery(ctx context.Context, projectID, name string) error {
	db, err := w.Storage(projectID)
	if err != nil {
		return err
	}
	return db.SavedQueries().Delete(ctx, name)
}
