package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/docchat/internal/models"
)

type EmbedderConfig struct {
	Model      string
	BaseURL    string // Ollama server URL
	Dimensions int
	BatchSize  int
}

// EmbeddingClient is the part of an embedding backend the Embedder uses.
// *ollama.LLM satisfies it.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder maps text to fixed-size vectors.
type Embedder struct {
	config EmbedderConfig
	client EmbeddingClient
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	config = withEmbedderDefaults(config)

	emb, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		client: emb,
	}, nil
}

func NewEmbedderWithClient(config EmbedderConfig, client EmbeddingClient) *Embedder {
	return &Embedder{
		config: withEmbedderDefaults(config),
		client: client,
	}
}

func withEmbedderDefaults(config EmbedderConfig) EmbedderConfig {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.Dimensions <= 0 {
		config.Dimensions = 768
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	return config
}

func (e *Embedder) Dimensions() int {
	return e.config.Dimensions
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in batches and checks every vector against the
// configured dimension.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))

		vectors, err := e.client.CreateEmbedding(ctx, texts[start:end])
		if err != nil {
			return nil, &models.EmbeddingError{Err: err}
		}
		if len(vectors) != end-start {
			return nil, &models.EmbeddingError{Err: fmt.Errorf("expected %d embeddings, got %d", end-start, len(vectors))}
		}
		for _, v := range vectors {
			if len(v) != e.config.Dimensions {
				return nil, &models.EmbeddingError{
					Err: fmt.Errorf("%w: got %d, want %d", models.ErrDimensionMismatch, len(v), e.config.Dimensions),
				}
			}
		}
		out = append(out, vectors...)
	}

	return out, nil
}
