// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing, validation and logger fanout
package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(nil)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Provider != ProviderOllama || cfg.EmbedProvider != ProviderOllama {
		t.Errorf("providers = %s/%s, want ollama/ollama", cfg.Provider, cfg.EmbedProvider)
	}
	if cfg.OllamaHost != "http://localhost:11434" {
		t.Errorf("OllamaHost = %s", cfg.OllamaHost)
	}
	if cfg.OpenAIBaseURL != "http://localhost:11434/v1" || cfg.OpenAIKey != "ollama" {
		t.Errorf("OpenAI settings = %s %s", cfg.OpenAIBaseURL, cfg.OpenAIKey)
	}
	if cfg.ChatModel != "llama3.2" {
		t.Errorf("ChatModel = %s, want llama3.2", cfg.ChatModel)
	}
	if cfg.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("EmbeddingModel = %s, want nomic-embed-text", cfg.EmbeddingModel)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.RetryDelay)
	}
	if cfg.FlushInterval != 16*time.Millisecond || cfg.FlushBytes != 4096 {
		t.Errorf("flush = %v/%d", cfg.FlushInterval, cfg.FlushBytes)
	}
	if cfg.StreamIdleTimeout != 2*time.Minute || cfg.QueryTimeout != 30*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.StreamIdleTimeout, cfg.QueryTimeout)
	}
	if cfg.RowSearchLimit != 5 || cfg.DocSearchLimit != 5 {
		t.Errorf("limits = %d/%d", cfg.RowSearchLimit, cfg.DocSearchLimit)
	}
	if cfg.DataDir != "" || cfg.LogFile != "" || cfg.LogLevel != "info" {
		t.Errorf("DataDir=%q LogFile=%q LogLevel=%q", cfg.DataDir, cfg.LogFile, cfg.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"QUERYCHAT_DATA_DIR":            "/tmp/qc",
		"QUERYCHAT_PROVIDER":            "openai",
		"OPENAI_BASE_URL":               "https://api.openai.com/v1",
		"OPENAI_API_KEY":                "sk-test",
		"QUERYCHAT_CHAT_MODEL":          "gpt-4o-mini",
		"QUERYCHAT_MAX_RETRIES":         "5",
		"QUERYCHAT_RETRY_DELAY":         "3s",
		"QUERYCHAT_STREAM_IDLE_TIMEOUT": "45s",
		"QUERYCHAT_ROW_SEARCH_LIMIT":    "8",
		"QUERYCHAT_LOG_LEVEL":           "debug",
	})
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.DataDir != "/tmp/qc" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.Provider != ProviderOpenAI || cfg.OpenAIKey != "sk-test" || cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("provider settings = %+v", cfg)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %s", cfg.ChatModel)
	}
	if cfg.MaxRetries != 5 || cfg.RetryDelay != 3*time.Second {
		t.Errorf("retries = %d/%v", cfg.MaxRetries, cfg.RetryDelay)
	}
	if cfg.StreamIdleTimeout != 45*time.Second || cfg.RowSearchLimit != 8 {
		t.Errorf("idle=%v rows=%d", cfg.StreamIdleTimeout, cfg.RowSearchLimit)
	}
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("QUERYCHAT_CHAT_MODEL", "qwen2.5")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ChatModel != "qwen2.5" {
		t.Errorf("ChatModel = %s, want qwen2.5", cfg.ChatModel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown provider":   {"QUERYCHAT_PROVIDER": "anthropic"},
		"unknown embedder":   {"QUERYCHAT_EMBED_PROVIDER": "bedrock"},
		"too many retries":   {"QUERYCHAT_MAX_RETRIES": "11"},
		"negative retries":   {"QUERYCHAT_MAX_RETRIES": "-1"},
		"zero flush bytes":   {"QUERYCHAT_FLUSH_BYTES": "0"},
		"zero query timeout": {"QUERYCHAT_QUERY_TIMEOUT": "0s"},
		"zero doc limit":     {"QUERYCHAT_DOC_SEARCH_LIMIT": "0"},
		"bad log level":      {"QUERYCHAT_LOG_LEVEL": "loud"},
		"malformed integer":  {"QUERYCHAT_FLUSH_BYTES": "lots"},
	}

	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFrom(environ); err == nil {
				t.Errorf("LoadFrom(%v) succeeded, want error", environ)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("turn finished", "conversation", "c1")

	if strings.Contains(stderr.String(), "hidden") || strings.Contains(file.String(), "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(stderr.String(), "conversation=c1") {
		t.Errorf("stderr = %q", stderr.String())
	}

	var rec map[string]any
	if err := json.Unmarshal(file.Bytes(), &rec); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if rec["msg"] != "turn finished" || rec["conversation"] != "c1" {
		t.Errorf("file record = %v", rec)
	}
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "querychat.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("hello")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestSetupLogger_NoFile(t *testing.T) {
	logger, cleanup := SetupLogger("", slog.LevelWarn)
	if logger == nil {
		t.Fatal("SetupLogger() returned nil")
	}
	if err := cleanup(); err != nil {
		t.Errorf("cleanup() error = %v", err)
	}
}
