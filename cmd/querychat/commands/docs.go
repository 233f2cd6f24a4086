// ABOUTME: CLI commands to manage a project's documents
// ABOUTME: Documents are chunked, embedded and searched alongside table rows
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	docsNoEmbed     bool
	docsSearchLimit int
)

// NewDocsCmd creates the docs command group
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Add, list, search and delete documents",
		Long: `Manage a project's documents.

Text and markdown files are split into chunks and embedded, so chat
turns can quote them next to query results.

Examples:
  querychat docs add -p sales notes/pricing.md
  querychat docs search -p sales "discount policy"`,
	}

	addCmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Add documents and embed their chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDocsAdd,
	}
	addCmd.Flags().BoolVar(&docsNoEmbed, "no-embed", false, "Store and chunk without embedding")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over document chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDocsSearch,
	}
	searchCmd.Flags().IntVar(&docsSearchLimit, "limit", 5, "Maximum results to return")

	cmd.AddCommand(
		addCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List documents",
			Args:  cobra.NoArgs,
			RunE:  runDocsList,
		},
		searchCmd,
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a document and its chunks",
			Args:  cobra.ExactArgs(1),
			RunE:  runDocsDelete,
		},
	)

	return cmd
}

func runDocsAdd(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		doc, err := a.Workspace.AddDocument(ctx, p.ID, filepath.Base(path), string(content))
		if err != nil {
			return fmt.Errorf("adding %s: %w", path, err)
		}

		embedded := int64(0)
		if !docsNoEmbed {
			embedded, err = a.Workspace.VectorizeDocument(ctx, p.ID, doc.ID, nil)
			if err != nil {
				return fmt.Errorf("embedding %s: %w", path, err)
			}
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d words, %d chunk(s) embedded) %s\n",
				doc.Filename, doc.WordCount, embedded, doc.ID)
		}
	}
	return nil
}

func runDocsList(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := a.Workspace.ListDocuments(cmd.Context(), p.ID)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No documents found\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "FILE\tTYPE\tWORDS\tEMBEDDED\tUPLOADED\tID\n")
	fmt.Fprintf(w, "----\t----\t-----\t--------\t--------\t--\n")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\t%s\n",
			truncate(d.Filename, 30),
			d.FileType,
			d.WordCount,
			d.IsVectorized,
			formatTime(d.UploadedAt),
			d.ID)
	}
	return w.Flush()
}

func runDocsSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(docsSearchLimit, "limit"); err != nil {
		return err
	}
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	query := strings.Join(args, " ")
	hits, err := a.Workspace.SearchSimilarDocumentChunks(cmd.Context(), p.ID, query, docsSearchLimit)
	if err != nil {
		return fmt.Errorf("searching documents: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, hits)
	}
	if len(hits) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No matches for: %s\n", query)
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tDOCUMENT\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t--------\t-------\n")
	for _, h := range hits {
		fmt.Fprintf(w, "%.3f\t%s\t%s\n",
			h.Similarity,
			truncate(h.DocumentName, 25),
			truncate(strings.Join(strings.Fields(h.Content), " "), 60))
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(hits))
	}
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	a, p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Workspace.DeleteDocument(cmd.Context(), p.ID, args[0]); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %s\n", args[0])
	}
	return nil
}
