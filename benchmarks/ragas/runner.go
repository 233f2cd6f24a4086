// ABOUTME: Test runner for RAGAS benchmarks - executes scenarios and collects results
// ABOUTME: Seeds a throwaway workspace, drives chat turns and scores the final turn

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/harper/querychat/internal/app"
	"github.com/harper/querychat/internal/config"
	"github.com/harper/querychat/internal/core"
	"github.com/harper/querychat/internal/models"
)

// TurnOutcome is what the evaluation sees of one turn
type TurnOutcome struct {
	Answer  string
	Results []models.VisualizationResult
	Intent  models.IntentResult
	Context string // every message sent to the model, joined
}

// recordingStreamer remembers the last request sent to the model
type recordingStreamer struct {
	inner core.ChatStreamer

	mu   sync.Mutex
	last models.ChatRequest
}

func (s *recordingStreamer) StreamChat(ctx context.Context, req models.ChatRequest) (<-chan models.StreamEvent, error) {
	s.mu.Lock()
	s.last = req
	s.mu.Unlock()
	return s.inner.StreamChat(ctx, req)
}

func (s *recordingStreamer) lastContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := make([]string, 0, len(s.last.Messages))
	for _, m := range s.last.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

// BenchmarkRunner executes RAGAS benchmark tests
type BenchmarkRunner struct {
	config  *config.Config
	logger  *slog.Logger
	metrics *MetricsCalculator
	verbose bool
	out     io.Writer

	// Model replaces the configured chat model when set
	Model core.ChatStreamer
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner(cfg *config.Config, logger *slog.Logger, verbose bool) *BenchmarkRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &BenchmarkRunner{
		config:  cfg,
		logger:  logger,
		metrics: NewMetricsCalculator(),
		verbose: verbose,
		out:     os.Stdout,
	}
}

// SetOutput redirects progress output
func (r *BenchmarkRunner) SetOutput(w io.Writer) {
	r.out = w
}

// RunTest executes a single benchmark test in a fresh workspace
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	if r.verbose {
		fmt.Fprintf(r.out, "\n========================================\n")
		fmt.Fprintf(r.out, "RUNNING: %s\n", scenario.Name)
		fmt.Fprintf(r.out, "========================================\n")
		fmt.Fprintf(r.out, "Description: %s\n\n", scenario.Description)
	}

	tmpDir, err := os.MkdirTemp("", "querychat_bench_"+scenario.ID+"_")
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to create test directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	cfg := *r.config
	cfg.DataDir = tmpDir
	a, err := app.New(&cfg, r.logger)
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to create test workspace: %w", err)
	}
	defer func() { _ = a.Close() }()

	model := a.Model
	if r.Model != nil {
		model = r.Model
	}
	recorder := &recordingStreamer{inner: model}
	a.Model = recorder

	project, err := a.Workspace.CreateProject(ctx, scenario.ID, scenario.Description)
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to create project: %w", err)
	}
	if err := r.setupTest(ctx, a, project.ID, scenario.Setup); err != nil {
		return TestResult{}, fmt.Errorf("setup failed: %w", err)
	}

	orch := a.NewOrchestrator(nil)
	orch.SelectProject(ctx, project.ID)

	var final TurnOutcome
	for _, turn := range scenario.Turns {
		if r.verbose {
			fmt.Fprintf(r.out, "[Turn %d] User: %s\n", turn.TurnNumber, turn.UserMessage)
		}

		res, err := orch.Submit(ctx, turn.UserMessage)
		if err != nil {
			return TestResult{}, fmt.Errorf("turn %d failed: %w", turn.TurnNumber, err)
		}

		if r.verbose {
			fmt.Fprintf(r.out, "[Turn %d] AI: %s (%d queries)\n\n",
				turn.TurnNumber, res.CleanText[:min(150, len(res.CleanText))], len(res.Results))
		}

		if turn.TurnNumber == scenario.GroundTruth.FinalQueryTurn {
			final = TurnOutcome{
				Answer:  res.CleanText,
				Results: res.Results,
				Intent:  res.Intent,
				Context: recorder.lastContext(),
			}
		}
	}

	result := r.metrics.EvaluateTest(scenario, final)

	if r.verbose {
		fmt.Fprintf(r.out, "\n========================================\n")
		fmt.Fprintf(r.out, "RESULTS: %s\n", scenario.Name)
		fmt.Fprintf(r.out, "========================================\n")
		fmt.Fprintf(r.out, "Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Fprintf(r.out, "Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Fprintf(r.out, "Query Success: %.2f\n", result.QuerySuccessScore)
		fmt.Fprintf(r.out, "Overall Score: %.2f\n", result.OverallScore)
		fmt.Fprintf(r.out, "Status: %s\n", result.Status)
		fmt.Fprintf(r.out, "========================================\n\n")
	}

	return result, nil
}

// setupTest seeds tables, documents and embeddings
func (r *BenchmarkRunner) setupTest(ctx context.Context, a *app.App, projectID string, setup TestSetup) error {
	for _, q := range setup.SQL {
		if _, err := a.Workspace.RunQuery(ctx, projectID, q); err != nil {
			return fmt.Errorf("seed query: %w", err)
		}
	}
	for _, d := range setup.Documents {
		doc, err := a.Workspace.AddDocument(ctx, projectID, d.Filename, d.Content)
		if err != nil {
			return fmt.Errorf("add document %s: %w", d.Filename, err)
		}
		if _, err := a.Workspace.VectorizeDocument(ctx, projectID, doc.ID, nil); err != nil {
			return fmt.Errorf("embed document %s: %w", d.Filename, err)
		}
	}
	for _, v := range setup.Vectorize {
		if _, err := a.Workspace.VectorizeTable(ctx, projectID, v.Table, v.Columns, nil); err != nil {
			return fmt.Errorf("vectorize %s: %w", v.Table, err)
		}
	}
	return nil
}

// RunAllTests executes all benchmark tests
func (r *BenchmarkRunner) RunAllTests(ctx context.Context) ([]TestResult, error) {
	scenarios := GetAllTests()
	results := make([]TestResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		result, err := r.RunTest(ctx, scenario)
		if err != nil {
			return nil, fmt.Errorf("test %s failed: %w", scenario.ID, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// ExportResults exports test results to JSON
func (r *BenchmarkRunner) ExportResults(results []TestResult, outputPath string) error {
	passed := 0
	for _, result := range results {
		if result.Status == "PASS" {
			passed++
		}
	}

	summary := map[string]interface{}{
		"timestamp":   time.Now().Format(time.RFC3339),
		"chat_model":  r.config.ChatModel,
		"total_tests": len(results),
		"passed":      passed,
		"failed":      len(results) - passed,
		"results":     results,
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	fmt.Fprintf(r.out, "✓ Results exported to: %s\n", outputPath)
	return nil
}
