// ABOUTME: Tests for the concurrent semantic search fan-out
// ABOUTME: Failures in one search must not affect the others

package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harper/querychat/internal/models"
)

type fakeRowSearcher struct {
	mu    sync.Mutex
	hits  map[string][]models.RowHit
	errs  map[string]error
	calls []string
}

func (f *fakeRowSearcher) SearchSimilarRows(_ context.Context, _, table, _ string, _ int) ([]models.RowHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, table)
	if err := f.errs[table]; err != nil {
		return nil, err
	}
	return f.hits[table], nil
}

type fakeDocSearcher struct {
	hits   []models.DocumentHit
	err    error
	called bool
	limit  int
}

func (f *fakeDocSearcher) SearchSimilarDocumentChunks(_ context.Context, _, _ string, limit int) ([]models.DocumentHit, error) {
	f.called = true
	f.limit = limit
	return f.hits, f.err
}

func threeTables() *models.ProjectContext {
	return &models.ProjectContext{Tables: []models.TableContext{
		{Name: "orders", IsVectorized: true},
		{Name: "customers", IsVectorized: true},
		{Name: "raw", IsVectorized: false},
	}}
}

func TestRetriever_FailureIsolation(t *testing.T) {
	rows := &fakeRowSearcher{
		hits: map[string][]models.RowHit{"customers": {{RowID: 1, Content: "ada", Similarity: 0.9}}},
		errs: map[string]error{"orders": errors.New("embedding service down")},
	}
	docs := &fakeDocSearcher{err: errors.New("boom")}

	r := NewRetriever(rows, docs, 0, 0, nil)
	tables, docHits := r.Retrieve(context.Background(), "p", "q", models.IntentResult{Intent: models.IntentBoth}, threeTables())

	if len(tables) != 1 || len(tables["customers"]) != 1 {
		t.Errorf("tables = %v, want only customers", tables)
	}
	if docHits != nil {
		t.Errorf("docHits = %v, want nil", docHits)
	}
	if len(rows.calls) != 2 {
		t.Errorf("searched %v, want only vectorized tables", rows.calls)
	}
	if docs.limit != DefaultSearchLimit {
		t.Errorf("doc limit = %d, want %d", docs.limit, DefaultSearchLimit)
	}
}

func TestRetriever_IntentSelectsSearches(t *testing.T) {
	tests := []struct {
		intent   models.Intent
		wantRows bool
		wantDocs bool
	}{
		{models.IntentSQL, true, false},
		{models.IntentDocument, false, true},
		{models.IntentBoth, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			rows := &fakeRowSearcher{}
			docs := &fakeDocSearcher{hits: []models.DocumentHit{{DocumentName: "a"}}}
			r := NewRetriever(rows, docs, 3, 3, nil)

			_, docHits := r.Retrieve(context.Background(), "p", "q", models.IntentResult{Intent: tt.intent}, threeTables())

			if (len(rows.calls) > 0) != tt.wantRows {
				t.Errorf("row search ran = %v, want %v", len(rows.calls) > 0, tt.wantRows)
			}
			if docs.called != tt.wantDocs {
				t.Errorf("doc search ran = %v, want %v", docs.called, tt.wantDocs)
			}
			if tt.wantDocs && len(docHits) != 1 {
				t.Errorf("docHits = %v", docHits)
			}
		})
	}
}

func TestRetriever_NilCollaborators(t *testing.T) {
	r := NewRetriever(nil, nil, 0, 0, nil)
	tables, docs := r.Retrieve(context.Background(), "p", "q", models.IntentResult{Intent: models.IntentBoth}, threeTables())
	if len(tables) != 0 || docs != nil {
		t.Errorf("Retrieve() = %v, %v", tables, docs)
	}
}

// gatedRowSearcher records how many searches overlap
type gatedRowSearcher struct {
	mu        sync.Mutex
	active    int
	maxActive int
	calls     int
}

func (g *gatedRowSearcher) SearchSimilarRows(ctx context.Context, _, table, _ string, _ int) ([]models.RowHit, error) {
	g.mu.Lock()
	g.calls++
	g.active++
	if g.active > g.maxActive {
		g.maxActive = g.active
	}
	g.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	g.mu.Lock()
	g.active--
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.RowHit{{RowID: 1, Content: table}}, nil
}

func manyTables(n int) *models.ProjectContext {
	schema := &models.ProjectContext{}
	for i := 0; i < n; i++ {
		schema.Tables = append(schema.Tables, models.TableContext{Name: fmt.Sprintf("t%d", i), IsVectorized: true})
	}
	return schema
}

func TestRetriever_BoundsConcurrency(t *testing.T) {
	rows := &gatedRowSearcher{}
	r := NewRetriever(rows, nil, 0, 0, nil)

	tables, _ := r.Retrieve(context.Background(), "p", "q", models.IntentResult{Intent: models.IntentSQL}, manyTables(10))

	if len(tables) != 10 {
		t.Errorf("tables with hits = %d, want 10", len(tables))
	}
	if rows.calls != 10 {
		t.Errorf("calls = %d, want 10", rows.calls)
	}
	if rows.maxActive > maxConcurrentSearches {
		t.Errorf("max concurrent searches = %d, want <= %d", rows.maxActive, maxConcurrentSearches)
	}
}

func TestRetriever_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetriever(&gatedRowSearcher{}, nil, 0, 0, nil)
	tables, docs := r.Retrieve(ctx, "p", "q", models.IntentResult{Intent: models.IntentSQL}, manyTables(3))
	if len(tables) != 0 || docs != nil {
		t.Errorf("Retrieve() = %v, %v, want nothing", tables, docs)
	}
}
