package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/xhad/docchat/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	Categories   []models.Category
}

type Processor struct {
	config ProcessorConfig
}

// SourceText is the text of one category of one uploaded document.
type SourceText struct {
	Source string
	Text   string
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 2000
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 4
	}
	if config.Separators == nil {
		config.Separators = []string{"\n\n", "\n"}
	}
	if len(config.Categories) == 0 {
		config.Categories = models.Categories
	}

	return Processor{
		config: config,
	}
}

// Categories returns the categories this processor indexes, in order.
func (p *Processor) Categories() []models.Category {
	return p.config.Categories
}

// Process categorizes the elements of one document and returns its text per
// configured category. Categories without text are omitted.
func (p *Processor) Process(source string, elements []models.Element) map[models.Category]SourceText {
	buckets := Categorize(elements)

	texts := make(map[models.Category]SourceText, len(p.config.Categories))
	for _, category := range p.config.Categories {
		text := buckets.Join(category)
		if strings.TrimSpace(text) == "" {
			continue
		}
		texts[category] = SourceText{Source: source, Text: text}
	}
	return texts
}

func cleanText(text string) string {
	text = sanitizeUTF8(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
