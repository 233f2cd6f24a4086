// ABOUTME: Rehydrator rebuilds visualization results from stored assistant messages
// ABOUTME: Replays the same parser and executor the live turn uses, without the model
package core

import (
	"context"

	"github.com/harper/querychat/internal/models"
)

// Rehydrator replays command blocks of persisted messages
type Rehydrator struct {
	executor *Executor
}

// NewRehydrator creates a Rehydrator over an executor
func NewRehydrator(executor *Executor) *Rehydrator {
	return &Rehydrator{executor: executor}
}

// Rehydrate returns results keyed by message id for every assistant message
// that contains command blocks.
func (r *Rehydrator) Rehydrate(ctx context.Context, projectID string, messages []models.Message) map[string][]models.VisualizationResult {
	out := make(map[string][]models.VisualizationResult)
	for _, msg := range messages {
		if msg.Role != models.RoleAssistant {
			continue
		}
		parsed := ExtractCommands(msg.Content)
		if len(parsed.Blocks) == 0 {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		out[msg.ID] = r.executor.Execute(ctx, projectID, parsed.Blocks)
	}
	return out
}
