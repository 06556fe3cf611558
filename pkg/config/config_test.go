package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  temperature: 0.5
  stop: ["Human:", "User:"]

embedding:
  model: "all-minilm"
  dimensions: 384

store:
  backend: "postgres"
  url: "postgres://localhost:5432/test"
  collection: "test_docs"
  metric: "l2"

processor:
  chunk_size: 500
  chunk_overlap: 100
  separators: ["\n\n", "\n", " "]

chat:
  memory_window: 6
  top_k: 3
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, []string{"Human:", "User:"}, config.LLM.Stop)
	assert.Equal(t, "all-minilm", config.Embedding.Model)
	assert.Equal(t, 384, config.Embedding.Dimensions)
	assert.Equal(t, "postgres://localhost:5432/test", config.Store.URL)
	assert.Equal(t, "l2", config.Store.Metric)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, []string{"\n\n", "\n", " "}, config.Processor.Separators)
	assert.Equal(t, 6, config.Chat.MemoryWindow)
	assert.Equal(t, 3, config.Chat.TopK)

	// Defaults fill the rest
	assert.Equal(t, "http://localhost:11434", config.Embedding.BaseURL)
	assert.Equal(t, "llava", config.Vision.Model)
	assert.Equal(t, "chat_sessions", config.Chat.HistoryPath)
	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, 2000, config.Processor.ChunkSize)
	assert.Equal(t, 50, config.Processor.ChunkOverlap)
	assert.Equal(t, []string{"\n\n", "\n"}, config.Processor.Separators)
	assert.Equal(t, 4, config.Chat.MemoryWindow)
	assert.Equal(t, "sqlite", config.Store.Backend)
	assert.Equal(t, "cosine", config.Store.Metric)
	assert.Equal(t, []string{"Human:"}, config.LLM.Stop)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid llm",
			mutate: func(c *Config) {
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
			},
			errorMessages: []string{
				"llm.base_url: invalid Ollama base URL",
				"llm.max_tokens: max_tokens must be between 1 and 4096",
				"llm.temperature: temperature must be between 0 and 2",
			},
		},
		{
			name: "postgres without url",
			mutate: func(c *Config) {
				c.Store.Backend = "postgres"
				c.Store.Metric = "dot"
			},
			errorMessages: []string{
				"store.url: url is required for the postgres backend",
				"store.metric: metric must be cosine or l2",
			},
		},
		{
			name: "invalid processor",
			mutate: func(c *Config) {
				c.Processor.ChunkOverlap = c.Processor.ChunkSize
				c.Processor.Separators = []string{"\n", ""}
				c.Processor.Categories = []string{"texts", "images"}
			},
			errorMessages: []string{
				"processor.chunk_overlap: chunk_overlap must be non-negative and less than chunk_size",
				"processor.separators: separators must not be empty strings",
				"processor.categories: unknown category: images",
			},
		},
		{
			name: "invalid embedding and chat",
			mutate: func(c *Config) {
				c.Embedding.Dimensions = -1
				c.Chat.TopK = 0
			},
			errorMessages: []string{
				"embedding.dimensions: dimensions must be positive",
				"chat.top_k: top_k must be positive",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("DOCCHAT_STORE_PATH", "/var/lib/docchat")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "http://env-ollama:11434", config.Embedding.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Store.URL)
	assert.Equal(t, "/var/lib/docchat", config.Store.Path)
}
