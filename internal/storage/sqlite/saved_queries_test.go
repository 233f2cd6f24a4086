// ABOUTME: Tests for saved query storage
// ABOUTME: Covers upsert by name, listing and deletion
package sqlite

import (
	"context"
	"errors"
	"testing"
)

func TestSavedQueries(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first, err := s.SavedQueries().Save(ctx, "totals", "SELECT 1")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := s.SavedQueries().Save(ctx, "totals", "SELECT 2")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("upsert changed id: %s != %s", first.ID, second.ID)
	}
	if second.SQL != "SELECT 2" {
		t.Errorf("SQL = %q, want SELECT 2", second.SQL)
	}

	if _, err := s.SavedQueries().Save(ctx, "", "SELECT 1"); err == nil {
		t.Error("expected error for empty name")
	}

	list, err := s.SavedQueries().List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d saved queries, want 1", len(list))
	}

	if err := s.SavedQueries().Delete(ctx, "totals"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.SavedQueries().Get(ctx, "totals"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
