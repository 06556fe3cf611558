package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/docchat/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Stop        []string
	BaseURL     string // Ollama server URL
}

// ChatEngine completes prompts with a local language model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine backed by Ollama.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := withChatDefaults(config)
	if err != nil {
		return nil, err
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// NewWithModel creates a ChatEngine around an existing model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	config, err := withChatDefaults(config)
	if err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func withChatDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	return config, nil
}

// Model returns the name of the model in use.
func (ce *ChatEngine) Model() string {
	return ce.config.Model
}

// Complete runs the prompt and returns the generated text. Generation halts
// at any of the stop words, or the configured ones when stop is empty.
func (ce *ChatEngine) Complete(ctx context.Context, prompt string, stop []string) (string, error) {
	if len(stop) == 0 {
		stop = ce.config.Stop
	}

	opts := []llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}
	if len(stop) > 0 {
		opts = append(opts, llms.WithStopWords(stop))
	}
	if ce.config.TopP > 0 {
		opts = append(opts, llms.WithTopP(ce.config.TopP))
	}

	completion, err := llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt, opts...)
	if err != nil {
		return "", &models.ModelError{Model: ce.config.Model, Err: err}
	}

	return trimStop(completion, stop), nil
}

// trimStop drops a trailing stop word some servers echo back.
func trimStop(s string, stop []string) string {
	s = strings.TrimSpace(s)
	for _, word := range stop {
		s = strings.TrimSpace(strings.TrimSuffix(s, word))
	}
	return s
}
