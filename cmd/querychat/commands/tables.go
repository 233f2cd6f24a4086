// ABOUTME: CLI command to inspect a project's tables
// ABOUTME: Lists tables or shows one table's columns and vectorization state
package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewTablesCmd creates the tables command
func NewTablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables [table]",
		Short: "List tables or describe one",
		Long: `List a project's tables with row counts and vectorization state,
or describe a single table's columns.

Examples:
  querychat tables -p sales
  querychat tables -p sales orders`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTables,
	}

	return cmd
}

func runTables(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	if len(args) == 1 {
		schema, err := a.Workspace.TableSchema(ctx, p.ID, args[0])
		if err != nil {
			return fmt.Errorf("describing table: %w", err)
		}
		status, err := a.Workspace.VectorizationStatus(ctx, p.ID, args[0])
		if err != nil {
			return fmt.Errorf("reading vectorization status: %w", err)
		}

		if wantJSON() {
			return printJSON(cmd, map[string]any{
				"schema":        schema,
				"vectorization": status,
			})
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "COLUMN\tTYPE\tNULLABLE\tKEY\n")
		fmt.Fprintf(w, "------\t----\t--------\t---\n")
		for _, c := range schema.Columns {
			key := ""
			if c.IsPrimaryKey {
				key = "PK"
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", c.Name, c.DataType, c.Nullable, key)
		}
		_ = w.Flush()

		if status.IsVectorized {
			fmt.Fprintf(cmd.OutOrStdout(), "\nVectorized: %s (%d embeddings, %s)\n",
				strings.Join(status.VectorizedColumns, ", "), status.EmbeddingCount, status.EmbeddingModel)
		} else if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "\nNot vectorized\n")
		}
		return nil
	}

	tables, err := a.Workspace.ListTables(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("listing tables: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, tables)
	}
	if len(tables) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No tables in %s yet\n", p.Name)
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TABLE\tROWS\tCOLUMNS\tVECTORIZED\n")
	fmt.Fprintf(w, "-----\t----\t-------\t----------\n")
	for _, t := range tables {
		vectorized := "-"
		if t.IsVectorized {
			vectorized = strings.Join(t.VectorizedColumns, ", ")
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", t.Name, t.RowCount, t.ColumnCount, vectorized)
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d table(s)\n", len(tables))
	}
	return nil
}
