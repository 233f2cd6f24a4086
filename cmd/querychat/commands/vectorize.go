// ABOUTME: CLI command to build or remove embeddings for a table
// ABOUTME: Enables semantic row search during chat turns
package commands

import (
	"fmt"
	"strings"

	"github.com/harper/querychat/internal/models"
	"github.com/spf13/cobra"
)

var (
	vectorizeColumns []string
	vectorizeRemove  bool
)

// NewVectorizeCmd creates the vectorize command
func NewVectorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vectorize <table>",
		Short: "Embed a table's rows for semantic search",
		Long: `Embed a table's rows for semantic search.

The chosen columns of each row are joined into one text and embedded
with the configured embedding model. Without --columns, every text
column is used. Re-running replaces the previous embeddings.

Examples:
  querychat vectorize -p shop products --columns name,description
  querychat vectorize -p shop products --remove`,
		Args: cobra.ExactArgs(1),
		RunE: runVectorize,
	}

	cmd.Flags().StringSliceVar(&vectorizeColumns, "columns", nil, "Columns to embed (default: all text columns)")
	cmd.Flags().BoolVar(&vectorizeRemove, "remove", false, "Remove the table's embeddings instead")

	return cmd
}

// textColumns picks the columns whose declared type holds text
func textColumns(schema *models.TableSchema) []string {
	var cols []string
	for _, c := range schema.Columns {
		t := strings.ToUpper(c.DataType)
		if t == "" || strings.Contains(t, "TEXT") || strings.Contains(t, "CHAR") || strings.Contains(t, "CLOB") {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func runVectorize(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()
	table := args[0]

	if vectorizeRemove {
		if err := a.Workspace.RemoveVectorization(ctx, p.ID, table); err != nil {
			return fmt.Errorf("removing embeddings: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed embeddings for %s\n", table)
		}
		return nil
	}

	columns := vectorizeColumns
	if len(columns) == 0 {
		schema, err := a.Workspace.TableSchema(ctx, p.ID, table)
		if err != nil {
			return fmt.Errorf("describing table: %w", err)
		}
		columns = textColumns(schema)
		if len(columns) == 0 {
			return fmt.Errorf("%s has no text columns; choose some with --columns", table)
		}
	}

	progress := func(processed, total int64) {
		if !quiet && !wantJSON() {
			fmt.Fprintf(cmd.ErrOrStderr(), "\rEmbedding %s: %d/%d rows", table, processed, total)
		}
	}
	count, err := a.Workspace.VectorizeTable(ctx, p.ID, table, columns, progress)
	if !quiet && !wantJSON() {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return fmt.Errorf("vectorizing %s: %w", table, err)
	}

	if wantJSON() {
		return printJSON(cmd, map[string]any{
			"table":      table,
			"columns":    columns,
			"embeddings": count,
		})
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Embedded %d row(s) of %s using %s\n", count, table, strings.Join(columns, ", "))
	}
	return nil
}
