// ABOUTME: Centralized configuration for the querychat CLI and MCP server
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Providers understood by QUERYCHAT_PROVIDER and QUERYCHAT_EMBED_PROVIDER
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds all configuration for querychat
type Config struct {
	// Storage. Empty means the XDG data directory.
	DataDir string `env:"QUERYCHAT_DATA_DIR"`

	// Model providers
	Provider       string        `env:"QUERYCHAT_PROVIDER" envDefault:"ollama"`
	EmbedProvider  string        `env:"QUERYCHAT_EMBED_PROVIDER" envDefault:"ollama"`
	OllamaHost     string        `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OpenAIBaseURL  string        `env:"OPENAI_BASE_URL" envDefault:"http://localhost:11434/v1"`
	OpenAIKey      string        `env:"OPENAI_API_KEY" envDefault:"ollama"`
	ChatModel      string        `env:"QUERYCHAT_CHAT_MODEL" envDefault:"llama3.2"`
	EmbeddingModel string        `env:"QUERYCHAT_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	MaxRetries     int           `env:"QUERYCHAT_MAX_RETRIES" envDefault:"3"`
	RetryDelay     time.Duration `env:"QUERYCHAT_RETRY_DELAY" envDefault:"2s"`

	// Turn pipeline
	FlushInterval     time.Duration `env:"QUERYCHAT_FLUSH_INTERVAL" envDefault:"16ms"`
	FlushBytes        int           `env:"QUERYCHAT_FLUSH_BYTES" envDefault:"4096"`
	StreamIdleTimeout time.Duration `env:"QUERYCHAT_STREAM_IDLE_TIMEOUT" envDefault:"2m"`
	QueryTimeout      time.Duration `env:"QUERYCHAT_QUERY_TIMEOUT" envDefault:"30s"`
	RowSearchLimit    int           `env:"QUERYCHAT_ROW_SEARCH_LIMIT" envDefault:"5"`
	DocSearchLimit    int           `env:"QUERYCHAT_DOC_SEARCH_LIMIT" envDefault:"5"`

	// Logging
	LogFile  string `env:"QUERYCHAT_LOG_FILE"`
	LogLevel string `env:"QUERYCHAT_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the process environment
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables only
func LoadFrom(environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	for name, p := range map[string]string{"QUERYCHAT_PROVIDER": c.Provider, "QUERYCHAT_EMBED_PROVIDER": c.EmbedProvider} {
		if p != ProviderOllama && p != ProviderOpenAI {
			return fmt.Errorf("%s must be %q or %q, got %q", name, ProviderOllama, ProviderOpenAI, p)
		}
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("QUERYCHAT_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("QUERYCHAT_FLUSH_INTERVAL must be positive, got %s", c.FlushInterval)
	}
	if c.FlushBytes <= 0 {
		return fmt.Errorf("QUERYCHAT_FLUSH_BYTES must be positive, got %d", c.FlushBytes)
	}
	if c.StreamIdleTimeout <= 0 || c.QueryTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive, got idle=%s query=%s", c.StreamIdleTimeout, c.QueryTimeout)
	}
	if c.RowSearchLimit <= 0 || c.DocSearchLimit <= 0 {
		return fmt.Errorf("search limits must be positive, got rows=%d docs=%d", c.RowSearchLimit, c.DocSearchLimit)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
