// ABOUTME: Tests for the heuristic intent classifier
// ABOUTME: Decision table cases plus monotonicity when data keywords are added

package core

import (
	"math"
	"testing"

	"github.com/harper/querychat/internal/models"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		query      string
		intent     models.Intent
		confidence float64
	}{
		{"show me total sales by region", models.IntentSQL, 1},
		{"how many rows", models.IntentSQL, 2.0 / 3},
		{"summarize the onboarding handbook", models.IntentDocument, 2.0 / 3},
		{"what does the refund policy say", models.IntentDocument, 2.0 / 3},
		{"how many customers are mentioned in the contract", models.IntentBoth, 0.7},
		{"hello there", models.IntentBoth, 0.5},
		{"", models.IntentBoth, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ClassifyIntent(tt.query)
			if got.Intent != tt.intent {
				t.Errorf("Intent = %q, want %q", got.Intent, tt.intent)
			}
			if math.Abs(got.Confidence-tt.confidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.confidence)
			}
		})
	}
}

func TestClassifyIntent_WordBoundaries(t *testing.T) {
	// "summation" and "tablespoon" must not count as data keywords
	got := ClassifyIntent("a summation of tablespoon notes")
	if got.Intent != models.IntentDocument {
		t.Errorf("Intent = %q, want document", got.Intent)
	}
}

func TestClassifyIntent_Monotonic(t *testing.T) {
	docQueries := []string{
		"summarize the onboarding handbook",
		"what does the guide say about refunds",
		"explain chapter two",
	}
	keywords := []string{"total", "how many", "by month", "chart", "revenue", "average"}

	for _, q := range docQueries {
		if got := ClassifyIntent(q); got.Intent != models.IntentDocument {
			t.Fatalf("precondition: ClassifyIntent(%q) = %q, want document", q, got.Intent)
		}
		for _, kw := range keywords {
			got := ClassifyIntent(q + " " + kw)
			if got.Intent == models.IntentDocument {
				t.Errorf("ClassifyIntent(%q) stayed document after adding %q", q, kw)
			}
		}
	}
}

func TestIntentResultBounds(t *testing.T) {
	queries := []string{
		"top 10 customers by revenue per month in a chart with the total average count",
		"documents pdf policy according to the summary chapter",
	}
	for _, q := range queries {
		got := ClassifyIntent(q)
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Errorf("Confidence(%q) = %v out of range", q, got.Confidence)
		}
	}
}
