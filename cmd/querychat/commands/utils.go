// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Output format selection, time and value formatting, result tables
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harper/querychat/internal/models"
	"github.com/spf13/cobra"
)

// maxDisplayRows bounds result tables in text output
const maxDisplayRows = 50

// wantJSON reports whether --format json was requested
func wantJSON() bool {
	return outputFormat == "json"
}

// printJSON writes v as indented JSON
func printJSON(cmd *cobra.Command, v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
	return nil
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "just now"
	} else if diff < time.Hour {
		mins := int(diff.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	} else if diff < 24*time.Hour {
		hours := int(diff.Hours())
		return fmt.Sprintf("%dh ago", hours)
	} else if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("2006-01-02")
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

// formatValue renders one cell of a query result
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strings.ReplaceAll(val, "\n", " ")
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.4g", val)
	default:
		return fmt.Sprint(val)
	}
}

// resultColumns returns the result's columns, falling back to sorted row keys
func resultColumns(res *models.QueryResult) []string {
	if len(res.Columns) > 0 || len(res.Rows) == 0 {
		return res.Columns
	}
	cols := make([]string, 0, len(res.Rows[0]))
	for k := range res.Rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// renderQueryResult prints a result as an aligned table
func renderQueryResult(out io.Writer, res *models.QueryResult, maxRows int) {
	cols := resultColumns(res)
	if len(cols) == 0 {
		fmt.Fprintf(out, "(%d rows)\n", res.RowCount)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	dashes := make([]string, len(cols))
	for i, c := range cols {
		dashes[i] = strings.Repeat("-", len([]rune(c)))
	}
	fmt.Fprintln(w, strings.Join(dashes, "\t"))

	for i, row := range res.Rows {
		if i >= maxRows {
			break
		}
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = truncate(formatValue(row[c]), 40)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()

	if len(res.Rows) > maxRows {
		fmt.Fprintf(out, "... %d more row(s)\n", len(res.Rows)-maxRows)
	}
	fmt.Fprintf(out, "(%d row(s), %dms)\n", res.RowCount, res.ExecutionTimeMs)
}

// renderVisualization prints one executed command block
func renderVisualization(out io.Writer, v models.VisualizationResult) {
	header := string(v.Config.Type)
	if v.Config.XKey != "" || v.Config.YKey != "" {
		header += fmt.Sprintf(" (x=%s, y=%s)", v.Config.XKey, v.Config.YKey)
	}
	fmt.Fprintf(out, "\n[%s] %s\n", header, v.SQL)
	if v.Error != "" {
		fmt.Fprintf(out, "error: %s\n", v.Error)
		return
	}
	if v.Result != nil {
		renderQueryResult(out, v.Result, maxDisplayRows)
	}
}
