// ABOUTME: Test scenario data structures for RAGAS benchmarks
// ABOUTME: Defines seed data, conversation turns and ground truth for each scenario

package ragas

import "github.com/harper/querychat/internal/models"

// TestScenario represents a complete RAGAS benchmark test
type TestScenario struct {
	ID          string
	Name        string
	Description string
	Setup       TestSetup
	Turns       []ConversationTurn
	GroundTruth GroundTruth
}

// TestSetup seeds a fresh project before the turns run
type TestSetup struct {
	SQL       []string
	Documents []SetupDocument
	Vectorize []VectorizeSpec
}

// SetupDocument is a document added (and embedded) during setup
type SetupDocument struct {
	Filename string
	Content  string
}

// VectorizeSpec embeds a table's columns during setup
type VectorizeSpec struct {
	Table   string
	Columns []string
}

// ConversationTurn represents a single turn in a test conversation
type ConversationTurn struct {
	TurnNumber  int
	UserMessage string
}

// GroundTruth defines expected outcomes for RAGAS evaluation
type GroundTruth struct {
	FinalQueryTurn int
	ExpectedIntent models.Intent

	// Matched against the answer text and the executed query results
	ExpectedInResponse  []string
	ForbiddenInResponse []string

	// Matched against the context sent to the model
	ExpectedContextItems []string

	// Command blocks in the final answer that must execute without error
	MinSuccessfulQueries int
}

// TestResult represents the outcome of a benchmark test
type TestResult struct {
	TestID             string                 `json:"test_id"`
	TestName           string                 `json:"test_name"`
	FaithfulnessScore  float64                `json:"faithfulness"`
	ContextRecallScore float64                `json:"context_recall"`
	QuerySuccessScore  float64                `json:"query_success"`
	OverallScore       float64                `json:"overall"`
	Status             string                 `json:"status"` // "PASS" or "FAIL"
	Details            map[string]interface{} `json:"details,omitempty"`
	ErrorMessage       string                 `json:"error,omitempty"`
}

var ordersSetup = []string{
	"CREATE TABLE orders (id INTEGER PRIMARY KEY, region TEXT NOT NULL, product TEXT, amount REAL)",
	`INSERT INTO orders (region, product, amount) VALUES
		('north', 'red shoe', 120.0), ('north', 'wool hat', 35.5), ('south', 'blue shoe', 99.0),
		('south', 'red shoe', 120.0), ('east', 'wool hat', 35.5), ('north', 'blue shoe', 99.0)`,
}

// GetRegionTotals returns the single-turn aggregation scenario
func GetRegionTotals() TestScenario {
	return TestScenario{
		ID:          "totals",
		Name:        "Region Totals (Aggregation)",
		Description: "Tests that the model writes a runnable GROUP BY over the described table",
		Setup:       TestSetup{SQL: ordersSetup},
		Turns: []ConversationTurn{
			{TurnNumber: 1, UserMessage: "What is the total order amount for each region?"},
		},
		GroundTruth: GroundTruth{
			FinalQueryTurn:       1,
			ExpectedIntent:       models.IntentSQL,
			ExpectedInResponse:   []string{"north", "south", "east"},
			ExpectedContextItems: []string{"orders", "region", "amount"},
			MinSuccessfulQueries: 1,
		},
	}
}

// GetFollowUp returns the multi-turn scenario that relies on history
func GetFollowUp() TestScenario {
	return TestScenario{
		ID:          "follow_up",
		Name:        "Follow-Up Question (History Carry-Over)",
		Description: "Tests that a vague follow-up is resolved against the previous turn",
		Setup: TestSetup{SQL: []string{
			"CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT, city TEXT)",
			`INSERT INTO customers (name, city) VALUES
				('Ada', 'Berlin'), ('Bo', 'Berlin'), ('Cy', 'Paris'),
				('Di', 'Paris'), ('Ed', 'Paris'), ('Flo', 'Rome')`,
		}},
		Turns: []ConversationTurn{
			{TurnNumber: 1, UserMessage: "How many customers live in Berlin?"},
			{TurnNumber: 2, UserMessage: "And how many in Paris?"},
		},
		GroundTruth: GroundTruth{
			FinalQueryTurn:       2,
			ExpectedInResponse:   []string{"3"},
			ExpectedContextItems: []string{"customers", "city"},
			MinSuccessfulQueries: 1,
		},
	}
}

// GetDocumentLookup returns the document retrieval scenario
func GetDocumentLookup() TestScenario {
	return TestScenario{
		ID:          "documents",
		Name:        "Document Lookup (Semantic Retrieval)",
		Description: "Tests that a document question retrieves the right chunk",
		Setup: TestSetup{
			SQL: ordersSetup,
			Documents: []SetupDocument{{
				Filename: "policies.md",
				Content: "# Discounts\n\nOrders from the north region get a ten percent loyalty discount on hats.\n\n" +
					"# Shipping\n\nThe south warehouse ships every Friday. Express delivery costs twelve dollars.",
			}},
		},
		Turns: []ConversationTurn{
			{TurnNumber: 1, UserMessage: "What does the policy document say about the discount?"},
		},
		GroundTruth: GroundTruth{
			FinalQueryTurn:       1,
			ExpectedIntent:       models.IntentDocument,
			ExpectedInResponse:   []string{"discount"},
			ForbiddenInResponse:  []string{"twelve dollars"},
			ExpectedContextItems: []string{"ten percent"},
		},
	}
}

// GetRowSearch returns the semantic row search scenario
func GetRowSearch() TestScenario {
	return TestScenario{
		ID:          "row_search",
		Name:        "Row Search (Vectorized Table)",
		Description: "Tests that semantic search surfaces matching rows of a vectorized table",
		Setup: TestSetup{
			SQL:       ordersSetup,
			Vectorize: []VectorizeSpec{{Table: "orders", Columns: []string{"product"}}},
		},
		Turns: []ConversationTurn{
			{TurnNumber: 1, UserMessage: "Show me the orders for shoes"},
		},
		GroundTruth: GroundTruth{
			FinalQueryTurn:       1,
			ExpectedInResponse:   []string{"shoe"},
			ExpectedContextItems: []string{"red shoe"},
			MinSuccessfulQueries: 1,
		},
	}
}

// GetAllTests returns every scenario
func GetAllTests() []TestScenario {
	return []TestScenario{
		GetRegionTotals(),
		GetFollowUp(),
		GetDocumentLookup(),
		GetRowSearch(),
	}
}

// GetTest finds a scenario by ID
func GetTest(id string) (TestScenario, bool) {
	for _, s := range GetAllTests() {
		if s.ID == id {
			return s, true
		}
	}
	return TestScenario{}, false
}
