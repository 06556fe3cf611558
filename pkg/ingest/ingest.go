package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/logger"
	"github.com/xhad/docchat/pkg/metrics"
	"github.com/xhad/docchat/pkg/processor"
)

// Extractor turns an upload into elements. *extractor.Registry satisfies it.
type Extractor interface {
	ExtractUpload(ctx context.Context, upload models.Upload) ([]models.Element, error)
}

// Indexer commits documents of one category. *store.Index satisfies it.
type Indexer interface {
	Add(ctx context.Context, docs []models.Document, category models.Category) error
}

// Stage names the phase a Progress update belongs to.
type Stage string

const (
	StageExtract Stage = "extract"
	StageIndex   Stage = "index"
)

// Progress reports how far an ingestion has come.
type Progress struct {
	Stage Stage  `json:"stage"`
	Name  string `json:"name"` // upload name or category
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// Report summarizes one Ingest call.
type Report struct {
	// Ingested counts uploads whose content reached the index.
	Ingested int `json:"ingested"`
	// Failed lists uploads that could not be extracted.
	Failed []string `json:"failed,omitempty"`
	// Documents counts chunks committed per category.
	Documents map[models.Category]int `json:"documents"`
	// Committed lists the categories committed, in order.
	Committed []models.Category `json:"committed"`
	// Partial is set when some but not all categories were committed.
	Partial bool `json:"partial,omitempty"`
}

type Pipeline struct {
	extractor Extractor
	processor processor.Processor
	index     Indexer
	metrics   *metrics.Metrics
}

func New(extractor Extractor, proc processor.Processor, index Indexer, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		processor: proc,
		index:     index,
		metrics:   m,
	}
}

// Ingest extracts every upload, then chunks and indexes the batch one
// category at a time. Uploads that fail extraction are skipped and their
// *models.ParseError values are joined into the returned error; the rest are
// still indexed. An indexing failure stops the batch.
func (p *Pipeline) Ingest(ctx context.Context, uploads []models.Upload, progress func(Progress)) (*Report, error) {
	start := time.Now()
	report := &Report{Documents: make(map[models.Category]int)}
	notify := func(pr Progress) {
		if progress != nil {
			progress(pr)
		}
	}

	var parseErrs []error
	byCategory := make(map[models.Category][]processor.SourceText)
	extracted := 0

	for i, upload := range uploads {
		elements, err := p.extractor.ExtractUpload(ctx, upload)
		if err != nil {
			var pe *models.ParseError
			if !errors.As(err, &pe) {
				err = &models.ParseError{Name: upload.Name, Err: err}
			}
			logger.Warn("skipping %s: %v", upload.Name, err)
			parseErrs = append(parseErrs, err)
			report.Failed = append(report.Failed, upload.Name)
		} else {
			for category, text := range p.processor.Process(upload.Name, elements) {
				byCategory[category] = append(byCategory[category], text)
			}
			extracted++
			logger.Debug("extracted %d elements from %s", len(elements), upload.Name)
		}
		notify(Progress{Stage: StageExtract, Name: upload.Name, Done: i + 1, Total: len(uploads)})
	}

	categories := p.processor.Categories()
	for i, category := range categories {
		docs := p.processor.BuildDocuments(category, byCategory[category])
		if len(docs) == 0 {
			notify(Progress{Stage: StageIndex, Name: string(category), Done: i + 1, Total: len(categories)})
			continue
		}

		if err := p.index.Add(ctx, docs, category); err != nil {
			if len(report.Committed) > 0 {
				// Committed categories stay in the index, so the uploads count as ingested.
				report.Partial = true
				report.Ingested = extracted
				logger.Error("indexing %s failed after committing %v", category, report.Committed)
				p.metrics.ObserveIngest(extracted, len(report.Failed), time.Since(start))
			} else {
				p.metrics.ObserveIngest(0, len(uploads), time.Since(start))
			}
			err = fmt.Errorf("failed to index %s: %w", category, err)
			return report, errors.Join(append(parseErrs, err)...)
		}

		report.Committed = append(report.Committed, category)
		report.Documents[category] = len(docs)
		p.metrics.ObserveIndexed(string(category), len(docs))
		logger.Debug("indexed %d %s chunks", len(docs), category)
		notify(Progress{Stage: StageIndex, Name: string(category), Done: i + 1, Total: len(categories)})
	}

	report.Ingested = extracted
	p.metrics.ObserveIngest(extracted, len(report.Failed), time.Since(start))

	return report, errors.Join(parseErrs...)
}
