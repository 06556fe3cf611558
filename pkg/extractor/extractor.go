package extractor

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/internal/types"
)

type ExtractorConfig struct {
	TempDir    string
	ExtractDir string
}

// Registry dispatches documents to an extractor by file extension, falling
// back to the declared content type.
type Registry struct {
	byExt map[string]types.Extractor
}

var contentTypes = map[string]string{
	"application/pdf": ".pdf",
	"text/html":       ".html",
	"text/plain":      ".txt",
	"text/markdown":   ".md",
}

func NewWithConfig(config ExtractorConfig) *Registry {
	r := &Registry{byExt: make(map[string]types.Extractor)}

	pdf := &PDFExtractor{TempDir: config.TempDir, ExtractDir: config.ExtractDir}
	html := &HTMLExtractor{}
	text := &TextExtractor{}

	r.Register(".pdf", pdf)
	r.Register(".html", html)
	r.Register(".htm", html)
	r.Register(".txt", text)
	r.Register(".md", text)
	r.Register(".markdown", text)

	return r
}

// Register adds or replaces the extractor for an extension such as ".pdf".
func (r *Registry) Register(ext string, e types.Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Supports reports whether a document with this name and content type can be
// extracted.
func (r *Registry) Supports(name, contentType string) bool {
	_, ok := r.lookup(name, contentType)
	return ok
}

// Extract selects an extractor from the file name alone.
func (r *Registry) Extract(ctx context.Context, name string, data []byte) ([]models.Element, error) {
	return r.ExtractUpload(ctx, models.Upload{Name: name, Data: data})
}

// ExtractUpload extracts an upload. Every failure is a *models.ParseError.
func (r *Registry) ExtractUpload(ctx context.Context, upload models.Upload) ([]models.Element, error) {
	e, ok := r.lookup(upload.Name, upload.ContentType)
	if !ok {
		return nil, &models.ParseError{Name: upload.Name, Err: models.ErrUnsupportedFormat}
	}

	elements, err := e.Extract(ctx, upload.Name, upload.Data)
	if err != nil {
		var pe *models.ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &models.ParseError{Name: upload.Name, Err: fmt.Errorf("failed to extract: %w", err)}
	}
	return elements, nil
}

func (r *Registry) lookup(name, contentType string) (types.Extractor, bool) {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if e, ok := r.byExt[ext]; ok {
			return e, true
		}
	}

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if e, ok := r.byExt[contentTypes[mediaType]]; ok {
				return e, true
			}
		}
	}

	return nil, false
}
