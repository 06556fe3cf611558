package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/xhad/docchat/internal/models"
)

const sqliteFile = "index.db"

type SQLiteConfig struct {
	Path       string // directory holding the database file
	Collection string
	Dimensions int
	Metric     Metric
}

// SQLiteStore keeps entries in a local SQLite file and ranks them by brute
// force.
type SQLiteStore struct {
	config SQLiteConfig
	db     *sql.DB
	path   string
}

func NewSQLiteStore(ctx context.Context, config SQLiteConfig) (*SQLiteStore, error) {
	if config.Path == "" {
		config.Path = "vector_db"
	}
	if config.Collection == "" {
		config.Collection = "documents"
	}
	if config.Metric == "" {
		config.Metric = MetricCosine
	}
	if config.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	if err := os.MkdirAll(config.Path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	dbPath := filepath.Join(config.Path, sqliteFile)

	// WAL lets searches read while an ingest holds the write lock.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{
		config: config,
		db:     db,
		path:   dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			metric TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create collections table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL REFERENCES collections(name),
			category TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create entries table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_entries_collection ON entries(collection, category)`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return s.ensureCollection(ctx)
}

// ensureCollection registers the collection on first use and checks its
// dimension and metric on every later open.
func (s *SQLiteStore) ensureCollection(ctx context.Context) error {
	var dims int
	var metric string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimensions, metric FROM collections WHERE name = ?`, s.config.Collection,
	).Scan(&dims, &metric)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO collections (name, dimensions, metric) VALUES (?, ?, ?)`,
			s.config.Collection, s.config.Dimensions, string(s.config.Metric))
		if err != nil {
			return fmt.Errorf("failed to register collection: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to read collection: %w", err)
	}

	if dims != s.config.Dimensions {
		return fmt.Errorf("%w: collection %q has %d dimensions, embedder produces %d",
			models.ErrDimensionMismatch, s.config.Collection, dims, s.config.Dimensions)
	}
	if Metric(metric) != s.config.Metric {
		return fmt.Errorf("%w: collection %q uses %s, configured %s",
			models.ErrMetricMismatch, s.config.Collection, metric, s.config.Metric)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO entries (id, collection, category, source, chunk_index, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if len(e.Embedding) != s.config.Dimensions {
			return fmt.Errorf("%w: got %d, want %d", models.ErrDimensionMismatch, len(e.Embedding), s.config.Dimensions)
		}

		metadata, err := json.Marshal(e.Document.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}

		doc := e.Document
		_, err = stmt.ExecContext(ctx,
			doc.ID,
			s.config.Collection,
			string(doc.Category),
			doc.Source,
			doc.ChunkIndex,
			doc.Content,
			string(metadata),
			float32SliceToBytes(e.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Nearest(ctx context.Context, vector []float32, k int, opts SearchOptions) ([]models.SearchResult, error) {
	if len(vector) != s.config.Dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", models.ErrDimensionMismatch, len(vector), s.config.Dimensions)
	}

	query := `SELECT id, category, source, chunk_index, content, metadata, embedding FROM entries WHERE collection = ?`
	args := []any{s.config.Collection}
	if len(opts.Categories) > 0 {
		query += ` AND category IN (?` + strings.Repeat(", ?", len(opts.Categories)-1) + `)`
		for _, c := range opts.Categories {
			args = append(args, string(c))
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		var category string
		var metadata sql.NullString
		var blob []byte
		if err := rows.Scan(&r.ID, &category, &r.Source, &r.ChunkIndex, &r.Content, &metadata, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Category = models.Category(category)
		if metadata.Valid && metadata.String != "null" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}

		embedding := bytesToFloat32Slice(blob)
		if len(embedding) != len(vector) {
			return nil, fmt.Errorf("%w: stored entry %s has %d dimensions", models.ErrDimensionMismatch, r.ID, len(embedding))
		}
		r.Distance = s.config.Metric.Distance(vector, embedding)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE collection = ?`, s.config.Collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
