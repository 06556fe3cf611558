package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/docchat/internal/models"
)

const DefaultImageQuestion = "Describe the image"

type VisionConfig struct {
	Model   string
	BaseURL string
}

// Vision answers questions about images with a multimodal model.
type Vision struct {
	config VisionConfig
	llm    llms.Model
}

func NewVisionWithConfig(config VisionConfig) (*Vision, error) {
	config = withVisionDefaults(config)

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vision model: %w", err)
	}

	return &Vision{config: config, llm: llm}, nil
}

func NewVisionWithModel(config VisionConfig, model llms.Model) *Vision {
	return &Vision{config: withVisionDefaults(config), llm: model}
}

func withVisionDefaults(config VisionConfig) VisionConfig {
	if config.Model == "" {
		config.Model = "llava"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	return config
}

// Describe asks the model a question about image. An empty question asks for
// a general description.
func (v *Vision) Describe(ctx context.Context, image []byte, mimeType, question string) (string, error) {
	if question == "" {
		question = DefaultImageQuestion
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mimeType, image),
				llms.TextPart(question),
			},
		},
	}

	resp, err := v.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", &models.ModelError{Model: v.config.Model, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &models.ModelError{Model: v.config.Model, Err: fmt.Errorf("empty response")}
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}
