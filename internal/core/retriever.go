// ABOUTME: Retriever fans out semantic searches before a turn
// ABOUTME: Each search is isolated; a failure is logged and left out of the context
package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harper/querychat/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultSearchLimit is the number of hits requested per search
const DefaultSearchLimit = 5

// maxConcurrentSearches bounds how many embedding searches run at once
const maxConcurrentSearches = 4

// Retriever runs table and document searches concurrently
type Retriever struct {
	rows     RowSearcher
	docs     DocumentSearcher
	rowLimit int
	docLimit int
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. Either searcher may be nil.
func NewRetriever(rows RowSearcher, docs DocumentSearcher, rowLimit, docLimit int, logger *slog.Logger) *Retriever {
	if rowLimit <= 0 {
		rowLimit = DefaultSearchLimit
	}
	if docLimit <= 0 {
		docLimit = DefaultSearchLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{rows: rows, docs: docs, rowLimit: rowLimit, docLimit: docLimit, logger: logger}
}

// Retrieve searches every vectorized table and the documents as the intent asks
func (r *Retriever) Retrieve(ctx context.Context, projectID, query string, intent models.IntentResult, schema *models.ProjectContext) (models.TableHits, []models.DocumentHit) {
	var (
		mu      sync.Mutex
		tables  = models.TableHits{}
		docHits []models.DocumentHit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSearches)

	if intent.WantsData() && r.rows != nil && schema != nil {
		for _, table := range schema.Tables {
			if !table.IsVectorized {
				continue
			}
			name := table.Name
			g.Go(func() error {
				hits, err := r.rows.SearchSimilarRows(gctx, projectID, name, query, r.rowLimit)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					r.logger.Warn("table search failed", "project", projectID, "table", name, "error", err)
					return nil
				}
				if len(hits) == 0 {
					return nil
				}
				mu.Lock()
				tables[name] = hits
				mu.Unlock()
				return nil
			})
		}
	}

	if intent.WantsDocuments() && r.docs != nil {
		g.Go(func() error {
			hits, err := r.docs.SearchSimilarDocumentChunks(gctx, projectID, query, r.docLimit)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Warn("document search failed", "project", projectID, "error", err)
				return nil
			}
			mu.Lock()
			docHits = hits
			mu.Unlock()
			return nil
		})
	}

	// Only cancellation reaches Wait; per-search failures are logged above.
	if err := g.Wait(); err != nil {
		r.logger.Warn("retrieval interrupted", "project", projectID, "error", err)
	}
	return tables, docHits
}
