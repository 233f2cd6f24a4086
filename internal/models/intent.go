// ABOUTME: Query intent classification result types
// ABOUTME: Decides which search collaborators run before a turn
package models

// Intent is the kind of question being asked
type Intent string

const (
	IntentSQL      Intent = "sql"
	IntentDocument Intent = "document"
	IntentBoth     Intent = "both"
)

// IntentResult is a classification with a UI-facing confidence in 0..1
type IntentResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// WantsData reports whether table search should run
func (r IntentResult) WantsData() bool {
	return r.Intent == IntentSQL || r.Intent == IntentBoth
}

// WantsDocuments reports whether document search should run
func (r IntentResult) WantsDocuments() bool {
	return r.Intent == IntentDocument || r.Intent == IntentBoth
}
