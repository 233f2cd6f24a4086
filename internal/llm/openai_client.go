// ABOUTME: OpenAI-compatible client for streaming chat and embeddings
// ABOUTME: Works against OpenAI or Ollama's /v1 endpoint via go-openai
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/harper/querychat/internal/models"
	"github.com/harper/querychat/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultOpenAIBaseURL points at Ollama's OpenAI-compatible API
	DefaultOpenAIBaseURL = "http://localhost:11434/v1"
	// DefaultOpenAIKey is accepted by Ollama, which ignores it
	DefaultOpenAIKey = "ollama"
)

// ClientConfig holds configuration for the OpenAI-compatible client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	MaxRetries     int
	RetryDelay     time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// DefaultConfig returns the default client configuration
func DefaultConfig() ClientConfig {
	return ClientConfig{
		APIKey:         DefaultOpenAIKey,
		BaseURL:        DefaultOpenAIBaseURL,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
	}
}

// OpenAIClient wraps the go-openai client with retry logic
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	maxRetries     int
	retryDelay     time.Duration
	logger         *slog.Logger
}

// NewOpenAIClient creates a client from config
func NewOpenAIClient(config ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	oc := openai.DefaultConfig(config.APIKey)
	oc.BaseURL = config.BaseURL
	if config.HTTPClient != nil {
		oc.HTTPClient = config.HTTPClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      config.ChatModel,
		embeddingModel: config.EmbeddingModel,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
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
func (c *OpenAIClient) Model() string {
	return c.embeddingModel
}

// StreamChat starts a streaming chat completion with the same event contract
// as OllamaClient.StreamChat.
func (c *OpenAIClient) StreamChat(ctx context.Context, req models.ChatRequest) (<-chan models.StreamEvent, error) {
	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	turns := chatTurns(req)
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(t.Role), Content: t.Content})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, classifyError("chat completion", err)
	}

	events := make(chan models.StreamEvent)
	go func() {
		defer close(events)
		defer func() { _ = stream.Close() }()

		send := func(ev models.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(models.DoneEvent())
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("chat completion stream failed", "model", model, "error", err)
				send(models.ErrorEvent(classifyError("chat completion", err)))
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !send(models.ChunkEvent(choice.Delta.Content)) {
					return
				}
			}
		}
	}()

	return events, nil
}

// EmbedBatch embeds texts in one request, retrying transient failures
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var out [][]float32
	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
				return util.Permanent(err)
			}
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
		}

		data := resp.Data
		sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		out = make([][]float32, len(data))
		for i, d := range data {
			out[i] = d.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, classifyError("embeddings", err)
	}
	return out, nil
}
