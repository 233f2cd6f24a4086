// ABOUTME: Analytical query execution and schema introspection over user tables
// ABOUTME: Internal _qc_ tables and sqlite system tables are hidden from callers
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harper/querychat/internal/models"
)

// SampleRowLimit is how many rows are included in a table's context
const SampleRowLimit = 3

// AnalyticsStore runs user SQL and describes user tables
type AnalyticsStore struct {
	db *DB
}

// NewAnalyticsStore creates a new AnalyticsStore
func NewAnalyticsStore(db *DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// RunQuery executes arbitrary SQL and returns every row as a column to value map
func (s *AnalyticsStore) RunQuery(ctx context.Context, query string) (*models.QueryResult, error) {
	start := time.Now()

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &models.QueryResult{
		Columns: columns,
		Rows:    []map[string]any{},
	}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}

// ListTables returns the names of all user tables, sorted
func (s *AnalyticsStore) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		  AND name NOT LIKE '\_qc\_%' ESCAPE '\'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// IsUserTable reports whether name refers to an existing user table
func (s *AnalyticsStore) IsUserTable(ctx context.Context, name string) (bool, error) {
	if strings.HasPrefix(name, InternalPrefix) || strings.HasPrefix(name, "sqlite_") {
		return false, nil
	}
	var n int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	return n > 0, err
}

// TableSchema describes a table's columns using PRAGMA table_info
func (s *AnalyticsStore) TableSchema(ctx context.Context, table string) (*models.TableSchema, error) {
	ok, err := s.IsUserTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("table %s: %w", table, ErrNotFound)
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	schema := &models.TableSchema{Name: table, Columns: []models.ColumnInfo{}}
	for rows.Next() {
		var (
			cid      int
			name     string
			dataType string
			notNull  int
			dflt     any
			pk       int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		if dataType == "" {
			dataType = "ANY"
		}
		schema.Columns = append(schema.Columns, models.ColumnInfo{
			Name:         name,
			DataType:     strings.ToUpper(dataType),
			Nullable:     notNull == 0,
			IsPrimaryKey: pk > 0,
		})
	}
	return schema, rows.Err()
}

// RowCount returns the number of rows in a user table
func (s *AnalyticsStore) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&n)
	return n, err
}

// SampleRows returns up to limit rows from a user table
func (s *AnalyticsStore) SampleRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	res, err := s.RunQuery(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", QuoteIdent(table), limit))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// TableContext gathers schema, row count and sample rows for one table
func (s *AnalyticsStore) TableContext(ctx context.Context, table string) (*models.TableContext, error) {
	schema, err := s.TableSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	count, err := s.RowCount(ctx, table)
	if err != nil {
		return nil, err
	}
	samples, err := s.SampleRows(ctx, table, SampleRowLimit)
	if err != nil {
		return nil, err
	}
	return &models.TableContext{
		Name:       table,
		RowCount:   count,
		Columns:    schema.Columns,
		SampleRows: samples,
	}, nil
}

// RecordQuery appends an executed query to the history
func (s *AnalyticsStore) RecordQuery(ctx context.Context, query string, rowCount int, elapsedMs int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO _qc_query_history (id, sql, executed_at, row_count, execution_time_ms)
		VALUES (?, ?, ?, ?, ?)
	`, models.NewID(), query, time.Now().UTC(), rowCount, elapsedMs)
	return err
}

// QueryHistory returns the most recent queries first
func (s *AnalyticsStore) QueryHistory(ctx context.Context, limit int) ([]models.QueryHistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, sql, executed_at, row_count, execution_time_ms
		FROM _qc_query_history
		ORDER BY executed_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []models.QueryHistoryEntry{}
	for rows.Next() {
		var (
			e          models.QueryHistoryEntry
			executedAt time.Time
		)
		if err := rows.Scan(&e.ID, &e.SQL, &executedAt, &e.RowCount, &e.ExecutionTimeMs); err != nil {
			return nil, err
		}
		e.ExecutedAt = executedAt.Format(time.RFC3339)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// QuoteIdent quotes a SQL identifier
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// RowText is the concatenated text of selected columns for one row
type RowText struct {
	RowID int64
	Text  string
}

// TextForVectorization reads a page of rows with the given columns joined by spaces
func (s *AnalyticsStore) TextForVectorization(ctx context.Context, table string, columns []string, limit, offset int) ([]RowText, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns to vectorize")
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("COALESCE(CAST(%s AS TEXT), '')", QuoteIdent(c))
	}

	query := fmt.Sprintf("SELECT rowid, %s FROM %s ORDER BY rowid LIMIT %d OFFSET %d",
		strings.Join(parts, " || ' ' || "), QuoteIdent(table), limit, offset)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []RowText{}
	for rows.Next() {
		var rt RowText
		if err := rows.Scan(&rt.RowID, &rt.Text); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
