// ABOUTME: Ollama client for streaming chat, embeddings and server status
// ABOUTME: Wraps github.com/ollama/ollama/api with retries and cancellable streams
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/harper/querychat/internal/models"
	"github.com/harper/querychat/internal/util"
	"github.com/ollama/ollama/api"
)

const (
	// DefaultOllamaHost is the local Ollama server
	DefaultOllamaHost = "http://localhost:11434"
	// DefaultChatModel is used when a request names no model
	DefaultChatModel = "llama3.2"
	// DefaultEmbeddingModel produces the vectors used for semantic search
	DefaultEmbeddingModel = "nomic-embed-text"
	// KeepAlive keeps models loaded between turns
	KeepAlive = 10 * time.Minute
)

// ErrModelUnavailable is returned when the inference server cannot be reached
var ErrModelUnavailable = errors.New("model server unavailable")

// OllamaConfig holds configuration for the Ollama client
type OllamaConfig struct {
	Host           string
	ChatModel      string
	EmbeddingModel string
	MaxRetries     int
	RetryDelay     time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// OllamaClient talks to a local Ollama server
type OllamaClient struct {
	client         *api.Client
	chatModel      string
	embeddingModel string
	maxRetries     int
	retryDelay     time.Duration
	logger         *slog.Logger
}

// NewOllamaClient creates a client for cfg.Host, or DefaultOllamaHost
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	host := cfg.Host
	if host == "" {
		host = DefaultOllamaHost
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama host %q must be an absolute URL", host)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &OllamaClient{
		client:         api.NewClient(base, httpClient),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
		logger:         logger,
	}
	if c.chatModel == "" {
		c.chatModel = DefaultChatModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}
	return c, nil
}

// Model returns the embedding model name
func (c *OllamaClient) Model() string {
	return c.embeddingModel
}

// StreamChat starts a chat stream. The channel carries chunk events, then one
// done or error event, then closes. Cancelling ctx stops the producer.
func (c *OllamaClient) StreamChat(ctx context.Context, req models.ChatRequest) (<-chan models.StreamEvent, error) {
	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	turns := chatTurns(req)
	messages := make([]api.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, api.Message{Role: string(t.Role), Content: t.Content})
	}

	stream := true
	chatReq := &api.ChatRequest{
		Model:     model,
		Messages:  messages,
		Stream:    &stream,
		KeepAlive: &api.Duration{Duration: KeepAlive},
	}

	events := make(chan models.StreamEvent)
	go func() {
		defer close(events)

		send := func(ev models.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		done := false
		err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				if !send(models.ChunkEvent(resp.Message.Content)) {
					return ctx.Err()
				}
			}
			if resp.Done {
				done = true
			}
			return nil
		})

		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			c.logger.Warn("ollama chat stream failed", "model", model, "error", err)
			send(models.ErrorEvent(classifyError("ollama chat", err)))
		case !done:
			send(models.ErrorEvent(errors.New("ollama chat: stream ended without done")))
		default:
			send(models.DoneEvent())
		}
	}()

	return events, nil
}

// EmbedBatch embeds texts in one request, retrying transient failures
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var out [][]float32
	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		resp, err := c.client.Embed(ctx, &api.EmbedRequest{
			Model:     c.embeddingModel,
			Input:     texts,
			KeepAlive: &api.Duration{Duration: KeepAlive},
		})
		if err != nil {
			var status api.StatusError
			if errors.As(err, &status) && status.StatusCode >= 400 && status.StatusCode < 500 {
				return util.Permanent(err)
			}
			return err
		}
		if len(resp.Embeddings) != len(texts) {
			return fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Embeddings), len(texts))
		}
		out = resp.Embeddings
		return nil
	})
	if err != nil {
		return nil, classifyError("ollama embed", err)
	}
	return out, nil
}

// Status reports whether the server answers and its version
func (c *OllamaClient) Status(ctx context.Context) models.ModelStatus {
	version, err := c.client.Version(ctx)
	if err != nil {
		c.logger.Debug("ollama status check failed", "error", err)
		return models.ModelStatus{Connected: false}
	}
	return models.ModelStatus{Connected: true, Version: version}
}

// ListModels returns the models installed on the server
func (c *OllamaClient) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, classifyError("ollama list", err)
	}

	out := make([]models.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, models.ModelInfo{
			Name:       m.Name,
			Size:       m.Size,
			Digest:     m.Digest,
			ModifiedAt: m.ModifiedAt,
		})
	}
	return out, nil
}

// classifyError marks transport failures as ErrModelUnavailable
func classifyError(op string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrModelUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
