// ABOUTME: Tests for the project workspace and its collaborator contracts
// ABOUTME: Uses in-memory databases with a deterministic keyword embedder
package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/querychat/internal/models"
	"github.com/harper/querychat/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps texts onto fixed keyword axes
type keywordEmbedder struct {
	axes  []string
	calls int
	fail  bool
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("embedder down")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(e.axes)+1)
		lower := strings.ToLower(text)
		for j, axis := range e.axes {
			if strings.Contains(lower, axis) {
				vec[j] = 1
			}
		}
		vec[len(e.axes)] = 0.01
		out[i] = vec
	}
	return out, nil
}

func (e *keywordEmbedder) Model() string { return "keyword" }

// paragraphChunker splits on blank lines
type paragraphChunker struct{}

func (paragraphChunker) ChunkDocument(content, fileType string) []models.DocumentChunk {
	var chunks []models.DocumentChunk
	offset := 0
	for _, p := range strings.Split(content, "\n\n") {
		chunks = append(chunks, models.DocumentChunk{
			ChunkType:   models.ChunkTypeParagraph,
			Content:     p,
			StartOffset: offset,
			EndOffset:   offset + len(p),
		})
		offset += len(p) + 2
	}
	return chunks
}

func newTestWorkspace(t *testing.T) (*Workspace, *models.Project) {
	t.Helper()
	w := NewWorkspaceInMemory(nil)
	t.Cleanup(func() { _ = w.Close() })

	p, err := w.CreateProject(context.Background(), "Shop", "test project")
	require.NoError(t, err)
	return w, p
}

func seedProducts(t *testing.T, w *Workspace, projectID string) {
	t.Helper()
	ctx := context.Background()
	for _, q := range []string{
		"CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT NOT NULL, category TEXT)",
		"INSERT INTO products (name, category) VALUES ('red shoe', 'footwear'), ('wool hat', 'headwear'), ('blue shoe', 'footwear')",
	} {
		_, err := w.RunQuery(ctx, projectID, q)
		require.NoError(t, err)
	}
}

func TestProjectRegistry(t *testing.T) {
	ctx := context.Background()
	w := NewWorkspaceInMemory(nil)
	defer func() { _ = w.Close() }()

	_, err := w.CreateProject(ctx, "  ", "")
	require.Error(t, err)

	a, err := w.CreateProject(ctx, "Alpha", "")
	require.NoError(t, err)
	_, err = w.CreateProject(ctx, "alpha", "")
	require.Error(t, err, "duplicate names are rejected case-insensitively")

	found, err := w.FindProject(ctx, "ALPHA")
	require.NoError(t, err)
	require.Equal(t, a.ID, found.ID)

	require.NoError(t, w.DeleteProject(ctx, a.ID))
	_, err = w.GetProject(ctx, a.ID)
	require.ErrorIs(t, err, ErrProjectNotFound)
	require.ErrorIs(t, w.DeleteProject(ctx, a.ID), ErrProjectNotFound)
}

func TestRegistryPersistsOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	w, err := NewWorkspace(dir, nil)
	require.NoError(t, err)
	p, err := w.CreateProject(ctx, "Disk", "persisted")
	require.NoError(t, err)
	_, err = w.RunQuery(ctx, p.ID, "CREATE TABLE t (x INTEGER)")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.FileExists(t, filepath.Join(dir, registryFile))
	require.FileExists(t, filepath.Join(dir, "databases", p.DatabaseFile))

	w, err = NewWorkspace(dir, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	got, err := w.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "persisted", got.Description)

	tables, err := w.ListTables(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	require.NoError(t, w.DeleteProject(ctx, p.ID))
	_, err = os.Stat(filepath.Join(dir, "databases", p.DatabaseFile))
	require.True(t, os.IsNotExist(err))
}

func TestRunQueryRecordsHistory(t *testing.T) {
	w, p := newTestWorkspace(t)
	seedProducts(t, w, p.ID)
	ctx := context.Background()

	res, err := w.RunQuery(ctx, p.ID, "SELECT COUNT(*) AS n FROM products")
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Rows[0]["n"])

	history, err := w.QueryHistory(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, "SELECT COUNT(*) AS n FROM products", history[0].SQL)

	_, err = w.RunQuery(ctx, "missing", "SELECT 1")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestConversationContracts(t *testing.T) {
	w, p := newTestWorkspace(t)
	ctx := context.Background()

	conv, err := w.CreateConversation(ctx, p.ID, "Products")
	require.NoError(t, err)
	require.Equal(t, p.ID, conv.ProjectID)

	msg, err := models.NewMessage(models.RoleUser, "list products")
	require.NoError(t, err)
	require.NoError(t, w.AppendMessage(ctx, p.ID, conv.ID, msg))

	full, err := w.GetConversation(ctx, p.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, full.Messages, 1)
	require.Equal(t, msg.ID, full.Messages[0].ID)

	require.NoError(t, w.RenameConversation(ctx, p.ID, conv.ID, "Renamed"))
	convs, err := w.ListConversations(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.Equal(t, "Renamed", convs[0].Title)

	var buf bytes.Buffer
	require.NoError(t, w.ExportConversation(ctx, p.ID, conv.ID, sqlite.FormatMarkdown, &buf))
	require.Contains(t, buf.String(), "list products")

	require.NoError(t, w.DeleteConversation(ctx, p.ID, conv.ID))
	_, err = w.GetConversation(ctx, p.ID, conv.ID)
	require.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestVectorizeAndSearchRows(t *testing.T) {
	w, p := newTestWorkspace(t)
	seedProducts(t, w, p.ID)
	ctx := context.Background()

	_, err := w.SearchSimilarRows(ctx, p.ID, "products", "shoe", 5)
	require.ErrorIs(t, err, ErrNoEmbedder)

	emb := &keywordEmbedder{axes: []string{"shoe", "hat"}}
	w.SetEmbedder(emb)

	_, err = w.VectorizeTable(ctx, p.ID, "products", []string{"nope"}, nil)
	require.Error(t, err)

	var lastProcessed, lastTotal int64
	n, err := w.VectorizeTable(ctx, p.ID, "products", []string{"name", "category"}, func(processed, total int64) {
		lastProcessed, lastTotal = processed, total
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, int64(3), lastProcessed)
	require.Equal(t, int64(3), lastTotal)

	status, err := w.VectorizationStatus(ctx, p.ID, "products")
	require.NoError(t, err)
	require.True(t, status.IsVectorized)
	require.Equal(t, []string{"name", "category"}, status.VectorizedColumns)

	hits, err := w.SearchSimilarRows(ctx, p.ID, "products", "which hat", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "wool hat headwear", hits[0].Content)

	pc, err := w.ProjectContext(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, pc.Tables[0].IsVectorized)

	require.NoError(t, w.RemoveVectorization(ctx, p.ID, "products"))
	status, err = w.VectorizationStatus(ctx, p.ID, "products")
	require.NoError(t, err)
	require.False(t, status.IsVectorized)
}

func TestVectorizeTableEmbedderFailure(t *testing.T) {
	w, p := newTestWorkspace(t)
	seedProducts(t, w, p.ID)
	w.SetEmbedder(&keywordEmbedder{fail: true})

	_, err := w.VectorizeTable(context.Background(), p.ID, "products", []string{"name"}, nil)
	require.Error(t, err)
}

func TestDocuments(t *testing.T) {
	w, p := newTestWorkspace(t)
	ctx := context.Background()

	_, err := w.AddDocument(ctx, p.ID, "policy.md", "# Policy\n\nrefund rules")
	require.Error(t, err, "no chunker configured")

	w.SetChunker(paragraphChunker{})
	w.SetEmbedder(&keywordEmbedder{axes: []string{"refund", "shipping"}})

	doc, err := w.AddDocument(ctx, p.ID, "policy.md", "# Policy\n\nrefund within 30 days\n\nshipping is free")
	require.NoError(t, err)
	require.Equal(t, "md", doc.FileType)
	require.Equal(t, "Policy", doc.Title)

	n, err := w.VectorizeDocument(ctx, p.ID, doc.ID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	hits, err := w.SearchSimilarDocumentChunks(ctx, p.ID, "shipping cost", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "shipping is free", hits[0].Content)
	require.Equal(t, "policy.md", hits[0].DocumentName)

	docs, err := w.ListDocuments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.True(t, docs[0].IsVectorized)

	require.NoError(t, w.DeleteDocument(ctx, p.ID, doc.ID))
	_, err = w.VectorizeDocument(ctx, p.ID, doc.ID, nil)
	require.ErrorIs(t, err, sqlite.ErrNotFound)
}
