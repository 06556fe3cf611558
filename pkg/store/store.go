package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/internal/types"
	"github.com/xhad/docchat/pkg/logger"
)

// Entry is a document with its embedding, as persisted by a Backend.
type Entry struct {
	Document  models.Document
	Embedding []float32
}

// SearchOptions narrows a similarity search.
type SearchOptions struct {
	// Categories restricts results to these categories. Empty means all.
	Categories []models.Category
}

// Backend persists entries and ranks them against a query vector.
type Backend interface {
	Insert(ctx context.Context, entries []Entry) error
	Nearest(ctx context.Context, vector []float32, k int, opts SearchOptions) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Index embeds documents and queries and delegates storage to a Backend.
// One writer and any number of readers may use it concurrently.
type Index struct {
	mu       sync.RWMutex
	embedder types.Embedder
	backend  Backend
}

var _ types.VectorIndex = (*Index)(nil)

func NewIndex(embedder types.Embedder, backend Backend) *Index {
	return &Index{
		embedder: embedder,
		backend:  backend,
	}
}

type Config struct {
	Backend    string
	Path       string
	URL        string
	Collection string
	Metric     string
	BatchSize  int
}

// Open connects the backend named in config and wraps it in an Index.
func Open(ctx context.Context, config Config, embedder types.Embedder) (*Index, error) {
	metric, err := ParseMetric(config.Metric)
	if err != nil {
		return nil, err
	}

	var backend Backend
	switch config.Backend {
	case "", "sqlite":
		backend, err = NewSQLiteStore(ctx, SQLiteConfig{
			Path:       config.Path,
			Collection: config.Collection,
			Dimensions: embedder.Dimensions(),
			Metric:     metric,
		})
	case "postgres":
		backend, err = NewVectorStore(ctx, VectorStoreConfig{
			ConnString: config.URL,
			Collection: config.Collection,
			Dimensions: embedder.Dimensions(),
			Metric:     metric,
			BatchSize:  config.BatchSize,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", config.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewIndex(embedder, backend), nil
}

// Add embeds docs, tags them with category and commits them in one
// transaction.
func (ix *Index) Add(ctx context.Context, docs []models.Document, category models.Category) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	start := time.Now()
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	logger.Debug("embedded %d %s chunks in %s", len(docs), category, time.Since(start).Round(time.Millisecond))

	entries := make([]Entry, len(docs))
	for i, doc := range docs {
		doc.Category = category
		entries[i] = Entry{Document: doc, Embedding: vectors[i]}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.backend.Insert(ctx, entries); err != nil {
		return fmt.Errorf("failed to add %s documents: %w", category, err)
	}
	return nil
}

// SimilaritySearch returns up to k documents closest to query, nearest first.
func (ix *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	return ix.Search(ctx, query, k, SearchOptions{})
}

func (ix *Index) Search(ctx context.Context, query string, k int, opts SearchOptions) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results, err := ix.backend.Nearest(ctx, vector, k, opts)
	if err != nil {
		return nil, &models.RetrievalError{Err: err}
	}
	return results, nil
}

func (ix *Index) Count(ctx context.Context) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.backend.Count(ctx)
}

func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.backend.Close()
}
