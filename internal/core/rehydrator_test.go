// ABOUTME: Tests for result rehydration from stored messages
// ABOUTME: Replayed results must match the live execution config and SQL sequence

package core

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/harper/querychat/internal/models"
)

const twoBlockAnswer = "Totals by region:\n```duckbake\n{\"sql\": \"SELECT region, SUM(amount) AS total FROM sales GROUP BY region\", \"viz\": \"bar\", \"xKey\": \"region\", \"yKey\": \"total\"}\n```\nAnd a count:\n```duckbake\n{\"sql\": \"SELECT COUNT(*) AS n FROM sales\"}\n```"

func TestRehydrate_MatchesLiveExecution(t *testing.T) {
	runner := newFakeRunner()
	exec := NewExecutor(runner, time.Second, nil)

	live := exec.Execute(context.Background(), "p", ExtractCommands(twoBlockAnswer).Blocks)

	stored := []models.Message{
		{ID: "u1", Role: models.RoleUser, Content: "```duckbake\n{\"sql\": \"SELECT 'user'\"}\n```"},
		{ID: "a1", Role: models.RoleAssistant, Content: twoBlockAnswer},
		{ID: "a2", Role: models.RoleAssistant, Content: "No queries here."},
	}
	replayed := NewRehydrator(exec).Rehydrate(context.Background(), "p", stored)

	if len(replayed) != 1 {
		t.Fatalf("rehydrated %d messages, want 1", len(replayed))
	}
	got, ok := replayed["a1"]
	if !ok {
		t.Fatal("results not keyed by assistant message id")
	}

	ignoreData := cmpopts.IgnoreFields(models.VisualizationResult{}, "Result", "Error")
	if diff := cmp.Diff(live, got, ignoreData); diff != "" {
		t.Errorf("rehydrated results differ (-live +replayed):\n%s", diff)
	}

	for _, sql := range runner.Calls() {
		if sql == "SELECT 'user'" {
			t.Error("user message blocks were executed")
		}
	}
}

func TestRehydrate_Empty(t *testing.T) {
	r := NewRehydrator(NewExecutor(newFakeRunner(), time.Second, nil))
	if got := r.Rehydrate(context.Background(), "p", nil); len(got) != 0 {
		t.Errorf("Rehydrate(nil) = %v", got)
	}
}
