// ABOUTME: Analytical store result and schema types
// ABOUTME: Shared by the query runner, context builder and renderers
package models

import "time"

// QueryResult is the output of one SQL execution
type QueryResult struct {
	Columns         []string         `json:"columns"`
	Rows            []map[string]any `json:"rows"`
	RowCount        int              `json:"rowCount"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
}

// ColumnInfo describes a table column
type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"dataType"`
	Nullable     bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
}

// TableSchema is a table and its columns
type TableSchema struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// TableInfo summarises a user table
type TableInfo struct {
	Name              string   `json:"name"`
	RowCount          int64    `json:"rowCount"`
	ColumnCount       int64    `json:"columnCount"`
	IsVectorized      bool     `json:"isVectorized"`
	VectorizedColumns []string `json:"vectorizedColumns,omitempty"`
}

// TableContext is what the context builder knows about one table
type TableContext struct {
	Name         string           `json:"name"`
	RowCount     int64            `json:"rowCount"`
	Columns      []ColumnInfo     `json:"columns"`
	SampleRows   []map[string]any `json:"sampleRows,omitempty"`
	IsVectorized bool             `json:"isVectorized"`
}

// NoContextMessage stands in for the database context when a project has
// neither schema nor search hits
const NoContextMessage = "No tables in the database yet."

// ProjectContext is the schema of every user table in a project
type ProjectContext struct {
	Tables []TableContext `json:"tables"`
}

// VectorizationStatus reports embedding coverage for a table
type VectorizationStatus struct {
	TableName         string   `json:"tableName"`
	IsVectorized      bool     `json:"isVectorized"`
	VectorizedColumns []string `json:"vectorizedColumns"`
	EmbeddingCount    int64    `json:"embeddingCount"`
	EmbeddingModel    string   `json:"embeddingModel,omitempty"`
}

// QueryHistoryEntry records one executed query
type QueryHistoryEntry struct {
	ID              string `json:"id"`
	SQL             string `json:"sql"`
	ExecutedAt      string `json:"executedAt"`
	RowCount        int    `json:"rowCount"`
	ExecutionTimeMs int64  `json:"executionTimeMs"`
}

// SavedQuery is a named, reusable SQL statement
type SavedQuery struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SQL       string    `json:"sql"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
