// ABOUTME: CLI commands to run SQL directly against a project
// ABOUTME: Also manages saved queries and shows the query history
package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	querySaveAs  string
	historyLimit int
	queryMaxRows int
)

// NewQueryCmd creates the query command and its saved-query subcommands
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run SQL against a project",
		Long: `Run SQL against a project's database.

Any SQLite statement is accepted, including CREATE TABLE and INSERT
to load data. Every query is recorded in the history.

Examples:
  querychat query -p sales "SELECT region, SUM(amount) FROM orders GROUP BY region"
  querychat query -p sales --save by-region "SELECT region, SUM(amount) FROM orders GROUP BY region"
  querychat query run by-region
  querychat query history --limit 20`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuery,
	}
	cmd.Flags().StringVar(&querySaveAs, "save", "", "Save the query under this name after it succeeds")
	cmd.Flags().IntVar(&queryMaxRows, "max-rows", maxDisplayRows, "Maximum rows to display")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed queries",
		Args:  cobra.NoArgs,
		RunE:  runQueryHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")

	cmd.AddCommand(
		historyCmd,
		&cobra.Command{
			Use:   "saved",
			Short: "List saved queries",
			Args:  cobra.NoArgs,
			RunE:  runQuerySaved,
		},
		&cobra.Command{
			Use:   "run <name>",
			Short: "Run a saved query",
			Args:  cobra.ExactArgs(1),
			RunE:  runQuerySavedRun,
		},
		&cobra.Command{
			Use:   "forget <name>",
			Short: "Delete a saved query",
			Args:  cobra.ExactArgs(1),
			RunE:  runQueryForget,
		},
	)

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(queryMaxRows, "max-rows"); err != nil {
		return err
	}
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sql := strings.Join(args, " ")
	res, err := a.Workspace.RunQuery(cmd.Context(), p.ID, sql)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	if querySaveAs != "" {
		if _, err := a.Workspace.SaveQuery(cmd.Context(), p.ID, querySaveAs, sql); err != nil {
			return fmt.Errorf("saving query: %w", err)
		}
	}

	if wantJSON() {
		return printJSON(cmd, res)
	}
	renderQueryResult(cmd.OutOrStdout(), res, queryMaxRows)
	if querySaveAs != "" && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved as %q\n", querySaveAs)
	}
	return nil
}

func runQueryHistory(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(historyLimit, "limit"); err != nil {
		return err
	}
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := a.Workspace.QueryHistory(cmd.Context(), p.ID, historyLimit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, entries)
	}
	if len(entries) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No queries yet\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "EXECUTED\tROWS\tTIME\tSQL\n")
	fmt.Fprintf(w, "--------\t----\t----\t---\n")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%dms\t%s\n",
			e.ExecutedAt,
			e.RowCount,
			e.ExecutionTimeMs,
			truncate(strings.Join(strings.Fields(e.SQL), " "), 70))
	}
	return w.Flush()
}

func runQuerySaved(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	saved, err := a.Workspace.ListSavedQueries(cmd.Context(), p.ID)
	if err != nil {
		return fmt.Errorf("listing saved queries: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, saved)
	}
	if len(saved) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No saved queries\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tUPDATED\tSQL\n")
	fmt.Fprintf(w, "----\t-------\t---\n")
	for _, q := range saved {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			q.Name,
			formatTime(q.UpdatedAt),
			truncate(strings.Join(strings.Fields(q.SQL), " "), 70))
	}
	return w.Flush()
}

func runQuerySavedRun(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	saved, err := a.Workspace.GetSavedQuery(cmd.Context(), p.ID, args[0])
	if err != nil {
		return fmt.Errorf("loading saved query: %w", err)
	}
	res, err := a.Workspace.RunQuery(cmd.Context(), p.ID, saved.SQL)
	if err != nil {
		return fmt.Errorf("running %q: %w", saved.Name, err)
	}

	if wantJSON() {
		return printJSON(cmd, res)
	}
	renderQueryResult(cmd.OutOrStdout(), res, maxDisplayRows)
	return nil
}

func runQueryForget(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Workspace.DeleteSavedQuery(cmd.Context(), p.ID, args[0]); err != nil {
		return fmt.Errorf("deleting saved query: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot %q\n", args[0])
	}
	return nil
}
