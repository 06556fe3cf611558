package processor

import (
	"strings"

	"github.com/google/uuid"
	"github.com/xhad/docchat/internal/models"
)

// BuildDocuments chunks every text of one category into indexable documents.
// Texts and chunks that are only whitespace produce nothing.
func (p *Processor) BuildDocuments(category models.Category, texts []SourceText) []models.Document {
	var docs []models.Document
	for _, t := range texts {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		for chunk := range p.Chunks(t.Text) {
			if strings.TrimSpace(chunk.Content) == "" {
				continue
			}
			docs = append(docs, models.Document{
				ID:         uuid.NewString(),
				Category:   category,
				Content:    chunk.Content,
				Source:     t.Source,
				ChunkIndex: chunk.Index,
				Metadata: map[string]interface{}{
					"source":      t.Source,
					"category":    string(category),
					"chunk_index": chunk.Index,
					"overlap":     chunk.Overlap,
				},
			})
		}
	}
	return docs
}
