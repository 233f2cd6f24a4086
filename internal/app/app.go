// ABOUTME: Wires configuration into the workspace, model clients and orchestrator
// ABOUTME: Shared by the CLI commands and the MCP server
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harper/querychat/internal/config"
	"github.com/harper/querychat/internal/core"
	"github.com/harper/querychat/internal/llm"
	"github.com/harper/querychat/internal/models"
	"github.com/harper/querychat/internal/storage"
)

// App holds the long-lived collaborators of one process
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Workspace *storage.Workspace
	Model     core.ChatStreamer
	Ollama    *llm.OllamaClient
}

// New opens the workspace and builds the configured model clients. Nothing
// connects to the model server until it is used.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = storage.DefaultDataDir()
	}
	ws, err := storage.NewWorkspace(dataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Workspace: ws}
	if err := a.buildClients(); err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.SetChunker(core.NewChunkEngine())
	return a, nil
}

// NewWithWorkspace wires an existing workspace and model (for tests and embedding)
func NewWithWorkspace(cfg *config.Config, ws *storage.Workspace, model core.ChatStreamer, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	ws.SetChunker(core.NewChunkEngine())
	return &App{Config: cfg, Logger: logger, Workspace: ws, Model: model}
}

func (a *App) buildClients() error {
	cfg := a.Config

	ollama, err := llm.NewOllamaClient(llm.OllamaConfig{
		Host:           cfg.OllamaHost,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		Logger:         a.Logger,
	})
	if err != nil {
		return fmt.Errorf("initializing ollama client: %w", err)
	}
	a.Ollama = ollama

	var openai *llm.OpenAIClient
	if cfg.Provider == config.ProviderOpenAI || cfg.EmbedProvider == config.ProviderOpenAI {
		openai, err = llm.NewOpenAIClient(llm.ClientConfig{
			APIKey:         cfg.OpenAIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			MaxRetries:     cfg.MaxRetries,
			RetryDelay:     cfg.RetryDelay,
			Logger:         a.Logger,
		})
		if err != nil {
			return fmt.Errorf("initializing OpenAI-compatible client: %w", err)
		}
	}

	if cfg.Provider == config.ProviderOpenAI {
		a.Model = openai
	} else {
		a.Model = ollama
	}
	if cfg.EmbedProvider == config.ProviderOpenAI {
		a.Workspace.SetEmbedder(openai)
	} else {
		a.Workspace.SetEmbedder(ollama)
	}
	return nil
}

// TurnOptions converts configuration into orchestrator options
func (a *App) TurnOptions(observer core.TurnObserver) core.Options {
	cfg := a.Config
	return core.Options{
		ChatModel:         cfg.ChatModel,
		FlushInterval:     cfg.FlushInterval,
		FlushBytes:        cfg.FlushBytes,
		StreamIdleTimeout: cfg.StreamIdleTimeout,
		QueryTimeout:      cfg.QueryTimeout,
		RowSearchLimit:    cfg.RowSearchLimit,
		DocSearchLimit:    cfg.DocSearchLimit,
		Observer:          observer,
		Logger:            a.Logger,
	}
}

// NewOrchestrator builds an orchestrator over the workspace
func (a *App) NewOrchestrator(observer core.TurnObserver) *core.Orchestrator {
	return core.NewOrchestrator(core.Deps{
		Conversations: a.Workspace,
		Queries:       a.Workspace,
		Schema:        a.Workspace,
		Rows:          a.Workspace,
		Documents:     a.Workspace,
		Model:         a.Model,
	}, a.TurnOptions(observer))
}

// ResolveProject finds a project by id or name. An empty reference picks the
// only project when exactly one exists.
func (a *App) ResolveProject(ctx context.Context, ref string) (*models.Project, error) {
	if ref != "" {
		return a.Workspace.FindProject(ctx, ref)
	}
	projects, err := a.Workspace.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	switch len(projects) {
	case 0:
		return nil, fmt.Errorf("no projects yet; create one with 'querychat projects create <name>': %w", storage.ErrProjectNotFound)
	case 1:
		return &projects[0], nil
	default:
		return nil, errors.New("several projects exist; choose one with --project")
	}
}

// ModelStatus reports the Ollama server state
func (a *App) ModelStatus(ctx context.Context) models.ModelStatus {
	if a.Ollama == nil {
		return models.ModelStatus{}
	}
	return a.Ollama.Status(ctx)
}

// Close releases the workspace
func (a *App) Close() error {
	return a.Workspace.Close()
}
