// ABOUTME: CLI commands to browse and manage conversations
// ABOUTME: show recomputes each assistant message's query results
package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/harper/querychat/internal/core"
	"github.com/harper/querychat/internal/models"
	"github.com/harper/querychat/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

// NewConversationsCmd creates the conversations command group
func NewConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "List, show, rename, delete and export conversations",
		Long: `Manage a project's conversations.

Examples:
  querychat conversations list -p sales
  querychat conversations show -p sales <id>
  querychat conversations export -p sales <id> --to markdown -o chat.md`,
	}

	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a conversation",
		Args:  cobra.ExactArgs(1),
		RunE:  runConversationsExport,
	}
	exportCmd.Flags().StringVar(&exportFormat, "to", "markdown", "Export format: markdown, yaml or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List conversations, most recent first",
			Args:  cobra.NoArgs,
			RunE:  runConversationsList,
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a conversation with its query results",
			Args:  cobra.ExactArgs(1),
			RunE:  runConversationsShow,
		},
		&cobra.Command{
			Use:   "rename <id> <title>",
			Short: "Rename a conversation",
			Args:  cobra.ExactArgs(2),
			RunE:  runConversationsRename,
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a conversation and its messages",
			Args:  cobra.ExactArgs(1),
			RunE:  runConversationsDelete,
		},
		exportCmd,
	)

	return cmd
}

func runConversationsList(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	convs, err := a.Workspace.ListConversations(cmd.Context(), p.ID)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, convs)
	}
	if len(convs) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No conversations found\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TITLE\tUPDATED\tCREATED\tID\n")
	fmt.Fprintf(w, "-----\t-------\t-------\t--\n")
	for _, c := range convs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncate(c.Title, 40),
			formatTime(c.UpdatedAt),
			formatTime(c.CreatedAt),
			c.ID)
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d conversation(s)\n", len(convs))
	}
	return nil
}

func runConversationsShow(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := a.NewOrchestrator(nil)
	orch.SelectProject(cmd.Context(), p.ID)
	conv, err := orch.LoadConversation(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	session := orch.Session()

	if wantJSON() {
		return printJSON(cmd, map[string]any{
			"conversation": conv,
			"results":      session.AllResults(),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", conv.Title)
	fmt.Fprintf(out, "Created %s, updated %s\n", conv.CreatedAt.Format("2006-01-02 15:04"), formatTime(conv.UpdatedAt))
	for _, m := range conv.Messages {
		speaker := "You"
		if m.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(out, "\n%s:\n%s\n", speaker, core.StripCommands(m.Content))
		for _, v := range session.Results(m.ID) {
			renderVisualization(out, v)
		}
	}
	return nil
}

func runConversationsRename(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Workspace.RenameConversation(cmd.Context(), p.ID, args[0], args[1]); err != nil {
		return fmt.Errorf("renaming conversation: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %q\n", args[1])
	}
	return nil
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := a.NewOrchestrator(nil)
	orch.SelectProject(cmd.Context(), p.ID)
	if err := orch.DeleteConversation(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %s\n", args[0])
	}
	return nil
}

func runConversationsExport(cmd *cobra.Command, args []string) error {
	format := sqlite.ExportFormat(exportFormat)
	switch format {
	case sqlite.FormatMarkdown, sqlite.FormatYAML, sqlite.FormatJSON:
	default:
		return fmt.Errorf("unknown export format %q (want markdown, yaml or json)", exportFormat)
	}

	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := a.Workspace.ExportConversation(cmd.Context(), p.ID, args[0], format, out); err != nil {
		return fmt.Errorf("exporting conversation: %w", err)
	}
	if exportOutput != "" && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", exportOutput)
	}
	return nil
}
