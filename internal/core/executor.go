// ABOUTME: Executes command blocks sequentially against the analytical store
// ABOUTME: Each failure becomes a visible result; execution order follows the text
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harper/querychat/internal/models"
)

// DefaultQueryTimeout bounds a single command block execution
const DefaultQueryTimeout = 30 * time.Second

// Executor runs command blocks for one project
type Executor struct {
	runner  QueryRunner
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecutor creates an Executor. A zero timeout selects DefaultQueryTimeout.
func NewExecutor(runner QueryRunner, timeout time.Duration, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runner: runner, timeout: timeout, logger: logger}
}

// Execute runs blocks one after another and returns one result per block, in order.
// Execution stops early only when ctx itself is cancelled.
func (e *Executor) Execute(ctx context.Context, projectID string, blocks []models.CommandBlock) []models.VisualizationResult {
	results := make([]models.VisualizationResult, 0, len(blocks))

	for _, block := range blocks {
		if ctx.Err() != nil {
			break
		}

		vr := models.VisualizationResult{Config: block.Config(), SQL: block.SQL}

		qctx, cancel := context.WithTimeout(ctx, e.timeout)
		res, err := e.runner.RunQuery(qctx, projectID, block.SQL)
		timedOut := errors.Is(qctx.Err(), context.DeadlineExceeded)
		cancel()

		switch {
		case err != nil && timedOut:
			vr.Error = fmt.Sprintf("query timed out after %s", e.timeout)
		case err != nil:
			vr.Error = err.Error()
		case res == nil:
			vr.Error = "query returned no result"
		default:
			vr.Result = res
		}

		if vr.Error != "" {
			e.logger.Debug("command block failed", "project", projectID, "error", vr.Error)
		}
		results = append(results, vr)
	}

	return results
}
