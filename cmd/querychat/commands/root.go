// ABOUTME: Root command, global flags and shared application setup
// ABOUTME: Every data command opens the workspace through openApp
package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/harper/querychat/internal/app"
	"github.com/harper/querychat/internal/config"
	"github.com/harper/querychat/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	projectRef   string
)

const banner = `
 ██████  ██    ██ ███████ ██████  ██    ██  ██████ ██   ██  █████  ████████
██    ██ ██    ██ ██      ██   ██  ██  ██  ██      ██   ██ ██   ██    ██
██    ██ ██    ██ █████   ██████    ████   ██      ███████ ███████    ██
██ ▄▄ ██ ██    ██ ██      ██   ██    ██    ██      ██   ██ ██   ██    ██
 ██████   ██████  ███████ ██   ██    ██     ██████ ██   ██ ██   ██    ██
    ▀▀
`

// NewRootCmd creates the root command with all subcommands
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "querychat",
		Short: "Chat with your local databases",
		Long: banner + `
Ask questions about your data in plain language. A local model answers
with SQL, querychat runs it and shows the results. Each project is its
own SQLite database; tables and documents can be vectorized for
semantic search.

Examples:
  querychat projects create sales
  querychat query -p sales "CREATE TABLE orders (id INTEGER, region TEXT, amount REAL)"
  querychat chat -p sales "total amount by region"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return errors.New("--verbose and --quiet cannot be used together")
			}
			switch outputFormat {
			case "auto", "json", "text":
				return nil
			default:
				return fmt.Errorf("unknown --format %q (want auto, json or text)", outputFormat)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json or text")
	cmd.PersistentFlags().StringVarP(&projectRef, "project", "p", "", "Project id or name")

	cmd.AddCommand(
		NewProjectsCmd(),
		NewChatCmd(),
		NewQueryCmd(),
		NewTablesCmd(),
		NewConversationsCmd(),
		NewVectorizeCmd(),
		NewDocsCmd(),
		NewModelsCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// openApp loads configuration and opens the workspace. The returned cleanup
// closes the workspace and the log file.
func openApp() (*app.App, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelError
	}
	logger, closeLog := config.SetupLogger(cfg.LogFile, level)
	slog.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing workspace", "error", err)
		}
		_ = closeLog()
	}
	return a, cleanup, nil
}

// openProject opens the workspace and resolves --project
func openProject(cmd *cobra.Command) (*app.App, *models.Project, func(), error) {
	a, cleanup, err := openApp()
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := a.ResolveProject(cmd.Context(), projectRef)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return a, p, cleanup, nil
}
