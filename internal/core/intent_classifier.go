// ABOUTME: Heuristic intent classifier deciding which semantic searches run before a turn
// ABOUTME: Pattern counts only; no model call and no added latency
package core

import (
	"regexp"

	"github.com/harper/querychat/internal/models"
)

var documentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(documents?|docs?|pdfs?|files?|reports?|manuals?|guides?|articles?|papers?|notes?|contracts?|handbook)\b`),
	regexp.MustCompile(`(?i)\b(polic(y|ies)|procedures?|guidelines?|terms|specifications?)\b`),
	regexp.MustCompile(`(?i)\b(according to|mentioned in|written in|stated in|says about|what does .+ say)\b`),
	regexp.MustCompile(`(?i)\b(summari[sz]e|summary|explain|describe|definition|define|meaning of)\b`),
	regexp.MustCompile(`(?i)\b(sections?|chapters?|paragraphs?|pages?|quotes?)\b`),
}

var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(how many|count|total|sum|average|avg|mean|median|max(imum)?|min(imum)?)\b`),
	regexp.MustCompile(`(?i)\b(top|bottom|highest|lowest|most|least|largest|smallest|rank(ing)?)\b`),
	regexp.MustCompile(`(?i)\b(group(ed)? by|per|by (day|week|month|quarter|year|region|category|type|customer|product))\b`),
	regexp.MustCompile(`(?i)\b(tables?|rows?|columns?|records?|database|query|sql|select|join)\b`),
	regexp.MustCompile(`(?i)\b(trends?|over time|daily|weekly|monthly|quarterly|yearly|growth|compare|comparison|distribution|percentage|ratio)\b`),
	regexp.MustCompile(`(?i)\b(charts?|graphs?|plot|visuali[sz]e|breakdown)\b`),
	regexp.MustCompile(`(?i)\b(sales|revenue|orders?|customers?|prices?|amounts?|quantity|users?)\b`),
}

const (
	bothConfidence      = 0.7
	ambiguousConfidence = 0.5
)

// ClassifyIntent scores a query against document and data patterns.
// Ambiguous queries resolve to both so no search is skipped.
func ClassifyIntent(query string) models.IntentResult {
	doc := countMatches(documentPatterns, query)
	sql := countMatches(sqlPatterns, query)

	switch {
	case doc > 0 && sql == 0:
		return models.IntentResult{Intent: models.IntentDocument, Confidence: saturate(doc)}
	case sql > 0 && doc == 0:
		return models.IntentResult{Intent: models.IntentSQL, Confidence: saturate(sql)}
	case doc > 0 && sql > 0:
		return models.IntentResult{Intent: models.IntentBoth, Confidence: bothConfidence}
	default:
		return models.IntentResult{Intent: models.IntentBoth, Confidence: ambiguousConfidence}
	}
}

func countMatches(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(s) {
			n++
		}
	}
	return n
}

func saturate(count int) float64 {
	return min(float64(count)/3, 1)
}
