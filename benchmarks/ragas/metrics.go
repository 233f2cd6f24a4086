// ABOUTME: RAGAS metrics implementation for faithfulness, context recall and query success
// ABOUTME: Simplified deterministic evaluation based on ground truth comparison

package ragas

import (
	"fmt"
	"strings"

	"github.com/harper/querychat/internal/models"
)

// passThreshold is the minimum score every metric needs for a PASS
const passThreshold = 0.9

// MetricsCalculator computes RAGAS scores for benchmark tests
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateFaithfulness computes faithfulness score (0.0-1.0)
// Faithfulness = Does the answer contain the expected facts and nothing forbidden?
func (m *MetricsCalculator) CalculateFaithfulness(
	response string,
	expectedInResponse []string,
	forbiddenInResponse []string,
) (float64, string) {
	responseUpper := strings.ToUpper(response)

	missingItems := []string{}
	for _, expected := range expectedInResponse {
		if !strings.Contains(responseUpper, strings.ToUpper(expected)) {
			missingItems = append(missingItems, expected)
		}
	}

	forbiddenFound := []string{}
	for _, forbidden := range forbiddenInResponse {
		if strings.Contains(responseUpper, strings.ToUpper(forbidden)) {
			forbiddenFound = append(forbiddenFound, forbidden)
		}
	}

	switch {
	case len(missingItems) == 0 && len(forbiddenFound) == 0:
		return 1.0, "Perfect faithfulness - response matches expected ground truth"
	case len(missingItems) > 0 && len(forbiddenFound) > 0:
		return 0.0, fmt.Sprintf(
			"Faithfulness failure - missing expected items: %v, forbidden items found: %v",
			missingItems, forbiddenFound,
		)
	case len(missingItems) > 0:
		return 0.5, fmt.Sprintf("Partial faithfulness - missing expected items: %v", missingItems)
	default:
		return 0.5, fmt.Sprintf("Partial faithfulness - forbidden items found: %v", forbiddenFound)
	}
}

// CalculateContextRecall computes context recall score (0.0-1.0)
// Context Recall = Did the model see the schema, rows and chunks it needed?
func (m *MetricsCalculator) CalculateContextRecall(
	retrievedContext string,
	expectedContextItems []string,
) (float64, string) {
	if len(expectedContextItems) == 0 {
		return 1.0, "No context retrieval required"
	}

	contextUpper := strings.ToUpper(retrievedContext)
	foundCount := 0
	missingItems := []string{}
	for _, expectedItem := range expectedContextItems {
		if strings.Contains(contextUpper, strings.ToUpper(expectedItem)) {
			foundCount++
		} else {
			missingItems = append(missingItems, expectedItem)
		}
	}

	recall := float64(foundCount) / float64(len(expectedContextItems))
	if recall == 1.0 {
		return 1.0, "Perfect context recall - all expected items retrieved"
	}
	return recall, fmt.Sprintf("Partial context recall (%.2f) - missing items: %v", recall, missingItems)
}

// CalculateQuerySuccess computes the share of command blocks that ran (0.0-1.0).
// Fewer successful blocks than required scales the score down.
func (m *MetricsCalculator) CalculateQuerySuccess(
	results []models.VisualizationResult,
	minSuccessful int,
) (float64, string) {
	succeeded := 0
	failures := []string{}
	for _, r := range results {
		if r.Error == "" {
			succeeded++
		} else {
			failures = append(failures, r.Error)
		}
	}

	if minSuccessful == 0 && len(results) == 0 {
		return 1.0, "No queries required"
	}
	if len(results) == 0 {
		return 0.0, fmt.Sprintf("No queries proposed (wanted at least %d)", minSuccessful)
	}

	score := float64(succeeded) / float64(len(results))
	if succeeded < minSuccessful {
		score *= float64(succeeded) / float64(minSuccessful)
	}
	if len(failures) == 0 && succeeded >= minSuccessful {
		return score, fmt.Sprintf("All %d queries succeeded", succeeded)
	}
	return score, fmt.Sprintf("%d/%d queries succeeded; errors: %v", succeeded, len(results), failures)
}

// ResponseText joins the answer with every executed result cell
func ResponseText(answer string, results []models.VisualizationResult) string {
	var sb strings.Builder
	sb.WriteString(answer)
	for _, r := range results {
		if r.Result == nil {
			continue
		}
		for _, row := range r.Result.Rows {
			for _, col := range r.Result.Columns {
				fmt.Fprintf(&sb, " %v", row[col])
			}
		}
	}
	return sb.String()
}

// EvaluateTest runs full RAGAS evaluation for a test
func (m *MetricsCalculator) EvaluateTest(
	scenario TestScenario,
	final TurnOutcome,
) TestResult {
	response := ResponseText(final.Answer, final.Results)

	faithfulness, faithfulnessDetail := m.CalculateFaithfulness(
		response,
		scenario.GroundTruth.ExpectedInResponse,
		scenario.GroundTruth.ForbiddenInResponse,
	)
	recall, recallDetail := m.CalculateContextRecall(
		final.Context,
		scenario.GroundTruth.ExpectedContextItems,
	)
	querySuccess, queryDetail := m.CalculateQuerySuccess(
		final.Results,
		scenario.GroundTruth.MinSuccessfulQueries,
	)

	overallScore := (faithfulness + recall + querySuccess) / 3.0

	status := "FAIL"
	if faithfulness >= passThreshold && recall >= passThreshold && querySuccess >= passThreshold {
		status = "PASS"
	}

	details := map[string]interface{}{
		"faithfulness_detail":  faithfulnessDetail,
		"recall_detail":        recallDetail,
		"query_success_detail": queryDetail,
		"final_response":       final.Answer[:min(200, len(final.Answer))],
		"queries":              len(final.Results),
		"intent":               final.Intent.Intent,
	}
	if want := scenario.GroundTruth.ExpectedIntent; want != "" {
		details["intent_match"] = final.Intent.Intent == want
	}

	return TestResult{
		TestID:             scenario.ID,
		TestName:           scenario.Name,
		FaithfulnessScore:  faithfulness,
		ContextRecallScore: recall,
		QuerySuccessScore:  querySuccess,
		OverallScore:       overallScore,
		Status:             status,
		Details:            details,
	}
}
