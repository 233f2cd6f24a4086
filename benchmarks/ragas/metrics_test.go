// ABOUTME: Tests for the deterministic RAGAS metrics
// ABOUTME: Faithfulness, context recall, query success and the combined verdict

package ragas

import (
	"strings"
	"testing"

	"github.com/harper/querychat/internal/models"
)

func TestCalculateFaithfulness(t *testing.T) {
	m := NewMetricsCalculator()

	tests := []struct {
		name      string
		response  string
		expected  []string
		forbidden []string
		want      float64
	}{
		{"all present", "North leads, then South", []string{"north", "south"}, nil, 1.0},
		{"missing item", "North leads", []string{"north", "south"}, nil, 0.5},
		{"forbidden item", "North leads at twelve dollars", []string{"north"}, []string{"twelve dollars"}, 0.5},
		{"both failures", "nothing useful, twelve dollars", []string{"north"}, []string{"twelve dollars"}, 0.0},
		{"nothing required", "anything", nil, nil, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, detail := m.CalculateFaithfulness(tt.response, tt.expected, tt.forbidden)
			if got != tt.want {
				t.Errorf("score = %v, want %v (%s)", got, tt.want, detail)
			}
		})
	}
}

func TestCalculateContextRecall(t *testing.T) {
	m := NewMetricsCalculator()

	got, _ := m.CalculateContextRecall("Table: orders\nColumns: region, amount", []string{"orders", "region", "customers"})
	if got < 0.66 || got > 0.67 {
		t.Errorf("recall = %v, want 2/3", got)
	}

	got, detail := m.CalculateContextRecall("", nil)
	if got != 1.0 {
		t.Errorf("recall with no expectations = %v (%s)", got, detail)
	}
}

func TestCalculateQuerySuccess(t *testing.T) {
	m := NewMetricsCalculator()
	ok := models.VisualizationResult{SQL: "SELECT 1", Result: &models.QueryResult{}}
	bad := models.VisualizationResult{SQL: "SELECT x", Error: "no such column: x"}

	tests := []struct {
		name    string
		results []models.VisualizationResult
		min     int
		want    float64
	}{
		{"none required none given", nil, 0, 1.0},
		{"required but none given", nil, 1, 0.0},
		{"all succeed", []models.VisualizationResult{ok, ok}, 1, 1.0},
		{"half succeed", []models.VisualizationResult{ok, bad}, 1, 0.5},
		{"below minimum", []models.VisualizationResult{ok}, 2, 0.5},
		{"all fail", []models.VisualizationResult{bad}, 1, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, detail := m.CalculateQuerySuccess(tt.results, tt.min)
			if got != tt.want {
				t.Errorf("score = %v, want %v (%s)", got, tt.want, detail)
			}
		})
	}
}

func TestResponseText_IncludesResultCells(t *testing.T) {
	results := []models.VisualizationResult{{
		SQL: "SELECT region, total FROM t",
		Result: &models.QueryResult{
			Columns: []string{"region", "total"},
			Rows:    []map[string]any{{"region": "north", "total": 254.5}},
		},
	}, {SQL: "SELECT x", Error: "boom"}}

	got := ResponseText("Totals:", results)
	if !strings.Contains(got, "north") || !strings.Contains(got, "254.5") {
		t.Errorf("ResponseText() = %q", got)
	}
}

func TestEvaluateTest(t *testing.T) {
	m := NewMetricsCalculator()
	scenario := GetRegionTotals()

	pass := m.EvaluateTest(scenario, TurnOutcome{
		Answer: "Totals by region:",
		Results: []models.VisualizationResult{{
			SQL: "SELECT region, SUM(amount) FROM orders GROUP BY region",
			Result: &models.QueryResult{
				Columns: []string{"region"},
				Rows:    []map[string]any{{"region": "east"}, {"region": "north"}, {"region": "south"}},
			},
		}},
		Intent:  models.IntentResult{Intent: models.IntentSQL},
		Context: "Table: orders columns region, amount",
	})
	if pass.Status != "PASS" || pass.OverallScore != 1.0 {
		t.Errorf("result = %+v, want PASS with 1.0", pass)
	}
	if pass.Details["intent_match"] != true {
		t.Errorf("intent_match = %v", pass.Details["intent_match"])
	}

	fail := m.EvaluateTest(scenario, TurnOutcome{Answer: "I don't know"})
	if fail.Status != "FAIL" {
		t.Errorf("status = %s, want FAIL", fail.Status)
	}
}

func TestGetTest(t *testing.T) {
	for _, s := range GetAllTests() {
		got, ok := GetTest(s.ID)
		if !ok || got.Name != s.Name {
			t.Errorf("GetTest(%q) = %v, %v", s.ID, got.Name, ok)
		}
		if s.GroundTruth.FinalQueryTurn < 1 || s.GroundTruth.FinalQueryTurn > len(s.Turns) {
			t.Errorf("%s: final turn %d out of range", s.ID, s.GroundTruth.FinalQueryTurn)
		}
	}
	if _, ok := GetTest("missing"); ok {
		t.Error("unknown scenario should not be found")
	}
}
