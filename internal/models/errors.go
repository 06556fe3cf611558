package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat indicates no extractor handles the document type.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrDimensionMismatch indicates an embedding does not match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMetricMismatch indicates a collection was created with another distance metric.
	ErrMetricMismatch = errors.New("distance metric mismatch")

	// ErrEmptyIndex indicates a grounded query ran against an index with no entries.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrModeLocked indicates a grounded session cannot go back to plain chat.
	ErrModeLocked = errors.New("session is locked to grounded mode")
)

// ParseError reports a document that could not be extracted.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmbeddingError reports an unreachable embedding backend or a dimension mismatch.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError reports an unreachable or empty vector index.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ModelError reports a language model inference failure.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("model inference failed: %v", e.Err)
	}
	return fmt.Sprintf("model %s inference failed: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
