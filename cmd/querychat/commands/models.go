// ABOUTME: CLI command to check the model server
// ABOUTME: Shows connection state, configured models and installed models
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/harper/querychat/internal/models"
	"github.com/spf13/cobra"
)

// NewModelsCmd creates the models command
func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Show model server status and installed models",
		Long: `Show whether the Ollama server is reachable, which chat and
embedding models are configured, and which models are installed.`,
		Args: cobra.NoArgs,
		RunE: runModels,
	}

	return cmd
}

func runModels(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	status := a.ModelStatus(ctx)
	var installed []models.ModelInfo
	if status.Connected {
		installed, err = a.Ollama.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("listing models: %w", err)
		}
	}

	if wantJSON() {
		return printJSON(cmd, map[string]any{
			"status":         status,
			"provider":       a.Config.Provider,
			"chatModel":      a.Config.ChatModel,
			"embeddingModel": a.Config.EmbeddingModel,
			"installed":      installed,
		})
	}

	out := cmd.OutOrStdout()
	if status.Connected {
		fmt.Fprintf(out, "Ollama %s at %s: connected\n", status.Version, a.Config.OllamaHost)
	} else {
		fmt.Fprintf(out, "Ollama at %s: not reachable\n", a.Config.OllamaHost)
	}
	fmt.Fprintf(out, "Provider:  %s\n", a.Config.Provider)
	fmt.Fprintf(out, "Chat:      %s\n", a.Config.ChatModel)
	fmt.Fprintf(out, "Embedding: %s\n", a.Config.EmbeddingModel)

	if len(installed) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "MODEL\tSIZE\tMODIFIED\n")
	fmt.Fprintf(w, "-----\t----\t--------\n")
	for _, m := range installed {
		fmt.Fprintf(w, "%s\t%.1f GB\t%s\n", m.Name, float64(m.Size)/1e9, formatTime(m.ModifiedAt))
	}
	return w.Flush()
}
