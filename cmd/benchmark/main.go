// ABOUTME: Command-line benchmark runner for RAGAS tests
// ABOUTME: Scores chat turns against a real model and outputs JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/harper/querychat/benchmarks/ragas"
	"github.com/harper/querychat/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	testID := flag.String("test", "", "Run a specific scenario by ID. If empty, runs all scenarios.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger, closeLog := config.SetupLogger(cfg.LogFile, level)
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("========================================")
	fmt.Println("QueryChat RAGAS Benchmarks")
	fmt.Printf("Model: %s (%s)\n", cfg.ChatModel, cfg.Provider)
	fmt.Println("========================================")
	fmt.Println()

	runner := ragas.NewBenchmarkRunner(cfg, logger, *verbose)

	var results []ragas.TestResult
	if *testID == "" {
		fmt.Println("Running all RAGAS benchmark scenarios...")
		fmt.Println()

		results, err = runner.RunAllTests(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Benchmark failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		scenario, ok := ragas.GetTest(*testID)
		if !ok {
			ids := []string{}
			for _, s := range ragas.GetAllTests() {
				ids = append(ids, s.ID)
			}
			fmt.Fprintf(os.Stderr, "Unknown test ID: %s (valid options: %s)\n", *testID, strings.Join(ids, ", "))
			os.Exit(1)
		}

		fmt.Printf("Running test: %s\n\n", scenario.Name)
		result, err := runner.RunTest(ctx, scenario)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Test failed: %v\n", err)
			os.Exit(1)
		}
		results = []ragas.TestResult{result}
	}

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	passed := 0
	failed := 0
	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Query Success: %.2f\n", result.QuerySuccessScore)
		fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		fmt.Printf("  Status: %s\n", result.Status)

		if result.Status == "PASS" {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", len(results))
	fmt.Printf("Passed: %d\n", passed)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Println("========================================")

	if err := runner.ExportResults(results, *outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to export results: %v\n", err)
		os.Exit(1)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
