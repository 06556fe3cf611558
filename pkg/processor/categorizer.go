package processor

import (
	"strings"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/logger"
)

// Buckets holds the raw texts of one document grouped by element kind.
type Buckets struct {
	Kinds   map[models.ElementKind][]string
	Dropped int
}

// Categorize partitions elements by kind, keeping their original order.
// Every recognized kind has an entry. Elements of other kinds and elements
// without text are dropped.
func Categorize(elements []models.Element) Buckets {
	buckets := Buckets{Kinds: make(map[models.ElementKind][]string, len(models.RecognizedKinds))}
	for _, kind := range models.RecognizedKinds {
		buckets.Kinds[kind] = nil
	}

	for _, el := range elements {
		if !el.Kind.Recognized() {
			logger.Debug("dropping %s element from %s", el.Kind, el.Source)
			buckets.Dropped++
			continue
		}
		text := cleanText(el.Text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		buckets.Kinds[el.Kind] = append(buckets.Kinds[el.Kind], text)
	}
	if buckets.Dropped > 0 {
		logger.Debug("categorizer dropped %d unrecognized elements", buckets.Dropped)
	}

	return buckets
}

// Join returns the newline-joined texts of every kind in the category.
func (b Buckets) Join(category models.Category) string {
	var parts []string
	for _, kind := range models.CategoryKinds[category] {
		parts = append(parts, b.Kinds[kind]...)
	}
	return strings.Join(parts, "\n")
}
