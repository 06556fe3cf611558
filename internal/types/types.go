package types

import (
	"context"

	"github.com/xhad/docchat/internal/models"
)

// Core interfaces
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) ([]models.Element, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

type LanguageModel interface {
	Complete(ctx context.Context, prompt string, stop []string) (string, error)
}

type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

type VectorIndex interface {
	Searcher
	Add(ctx context.Context, docs []models.Document, category models.Category) error
	Count(ctx context.Context) (int, error)
	Close() error
}

type Transcriber interface {
	Transcribe(ctx context.Context, name string, audio []byte) (string, error)
}

type ImageDescriber interface {
	Describe(ctx context.Context, image []byte, mimeType, question string) (string, error)
}
