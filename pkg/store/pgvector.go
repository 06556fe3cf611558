package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/docchat/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	Collection string
	Dimensions int
	Metric     Metric
	// BatchSize caps the rows sent per round trip.
	BatchSize  int
}

// VectorStore keeps entries in Postgres and ranks them with pgvector.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
	table  string
}

func NewVectorStore(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.Collection == "" {
		config.Collection = "documents"
	}
	if config.Metric == "" {
		config.Metric = MetricCosine
	}
	if config.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
		table:  pgx.Identifier{config.Collection}.Sanitize(),
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = vs.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS vector_collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			metric TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create collections table: %w", err)
	}

	_, err = vs.pool.Exec(ctx,
		`INSERT INTO vector_collections (name, dimensions, metric) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		vs.config.Collection, vs.config.Dimensions, string(vs.config.Metric))
	if err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}

	var dims int
	var metric string
	err = vs.pool.QueryRow(ctx,
		`SELECT dimensions, metric FROM vector_collections WHERE name = $1`, vs.config.Collection,
	).Scan(&dims, &metric)
	if err != nil {
		return fmt.Errorf("failed to read collection: %w", err)
	}
	if dims != vs.config.Dimensions {
		return fmt.Errorf("%w: collection %q has %d dimensions, embedder produces %d",
			models.ErrDimensionMismatch, vs.config.Collection, dims, vs.config.Dimensions)
	}
	if Metric(metric) != vs.config.Metric {
		return fmt.Errorf("%w: collection %q uses %s, configured %s",
			models.ErrMetricMismatch, vs.config.Collection, metric, vs.config.Metric)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL
		)`, vs.table, vs.config.Dimensions)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// Create vector index
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING hnsw (embedding %s)`,
		pgx.Identifier{vs.config.Collection + "_embedding_idx"}.Sanitize(), vs.table, vs.config.Metric.pgOpsClass())

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	createCategoryIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (category)`,
		pgx.Identifier{vs.config.Collection + "_category_idx"}.Sanitize(), vs.table)
	if _, err := vs.pool.Exec(ctx, createCategoryIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (vs *VectorStore) Insert(ctx context.Context, entries []Entry) error {
	// Begin transaction
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, category, source, chunk_index, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.table)

	for start := 0; start < len(entries); start += vs.config.BatchSize {
		end := min(start+vs.config.BatchSize, len(entries))

		batch := &pgx.Batch{}
		for _, e := range entries[start:end] {
			if len(e.Embedding) != vs.config.Dimensions {
				return fmt.Errorf("%w: got %d, want %d", models.ErrDimensionMismatch, len(e.Embedding), vs.config.Dimensions)
			}

			doc := e.Document
			batch.Queue(stmt,
				doc.ID,
				string(doc.Category),
				doc.Source,
				doc.ChunkIndex,
				doc.Content,
				doc.Metadata,
				pgvector.NewVector(e.Embedding),
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert documents: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (vs *VectorStore) Nearest(ctx context.Context, vector []float32, k int, opts SearchOptions) ([]models.SearchResult, error) {
	if len(vector) != vs.config.Dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", models.ErrDimensionMismatch, len(vector), vs.config.Dimensions)
	}

	op := vs.config.Metric.pgOperator()
	args := []any{pgvector.NewVector(vector), k}
	where := ""
	if len(opts.Categories) > 0 {
		categories := make([]string, len(opts.Categories))
		for i, c := range opts.Categories {
			categories[i] = string(c)
		}
		args = append(args, categories)
		where = "WHERE category = ANY($3)"
	}

	query := fmt.Sprintf(`
		SELECT id, category, source, chunk_index, content, metadata, embedding %s $1 AS distance
		FROM %s
		%s
		ORDER BY embedding %s $1
		LIMIT $2`,
		op, vs.table, where, op)

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		var category string
		err := rows.Scan(
			&r.ID,
			&category,
			&r.Source,
			&r.ChunkIndex,
			&r.Content,
			&r.Metadata,
			&r.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Category = models.Category(category)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return results, nil
}

func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.table)).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (vs *VectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}
