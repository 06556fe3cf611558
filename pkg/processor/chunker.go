package processor

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/xhad/docchat/internal/models"
)

// span is a contiguous byte range of the input holding runes code points.
type span struct {
	start, end int
	runes      int
}

// Chunks splits text into chunks of at most ChunkSize code points.
//
// The sequence is lazy and can be ranged over any number of times. Splits
// prefer the earliest configured separator, then later ones, then a hard cut.
// Each chunk after the first starts with up to ChunkOverlap code points taken
// from the end of the previous chunk; Chunk.Overlap records how many.
func (p *Processor) Chunks(text string) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		if text == "" {
			return
		}
		m := &merger{
			text:    text,
			size:    p.config.ChunkSize,
			overlap: p.config.ChunkOverlap,
			yield:   yield,
		}
		if !p.split(text, 0, len(text), p.config.Separators, m.add) {
			return
		}
		m.flush()
	}
}

// SplitText returns the content of every chunk of text.
func (p *Processor) SplitText(text string) []string {
	var out []string
	for chunk := range p.Chunks(text) {
		out = append(out, chunk.Content)
	}
	return out
}

// split emits pieces of text[start:end] that each fit in a chunk. Separators
// stay attached to the end of the piece before them, so the pieces cover the
// range exactly.
func (p *Processor) split(text string, start, end int, separators []string, emit func(span) bool) bool {
	n := utf8.RuneCountInString(text[start:end])
	if n <= p.config.ChunkSize {
		return emit(span{start: start, end: end, runes: n})
	}

	for i, sep := range separators {
		if !strings.Contains(text[start:end], sep) {
			continue
		}
		rest := separators[i+1:]
		pos := start
		for pos < end {
			next := end
			if idx := strings.Index(text[pos:end], sep); idx >= 0 {
				next = pos + idx + len(sep)
			}
			if !p.split(text, pos, next, rest, emit) {
				return false
			}
			pos = next
		}
		return true
	}

	return p.hardSplit(text, start, end, emit)
}

func (p *Processor) hardSplit(text string, start, end int, emit func(span) bool) bool {
	pos := start
	for pos < end {
		next, count := pos, 0
		for next < end && count < p.config.ChunkSize {
			_, w := utf8.DecodeRuneInString(text[next:end])
			next += w
			count++
		}
		if !emit(span{start: pos, end: next, runes: count}) {
			return false
		}
		pos = next
	}
	return true
}

// merger packs consecutive pieces into chunks.
type merger struct {
	text    string
	size    int
	overlap int
	yield   func(models.Chunk) bool

	start, end int // byte range of the pending chunk
	runes      int // code points in the pending chunk
	lead       int // leading code points repeated from the previous chunk
	index      int
}

func (m *merger) add(s span) bool {
	if m.runes+s.runes > m.size {
		if m.runes > m.lead && !m.emit() {
			return false
		}
		keep := min(m.overlap, m.runes, m.size-s.runes)
		if keep < 0 {
			keep = 0
		}
		m.start = backRunes(m.text, m.end, keep)
		m.runes, m.lead = keep, keep
	}
	m.end = s.end
	m.runes += s.runes
	return true
}

func (m *merger) flush() {
	if m.runes > m.lead {
		m.emit()
	}
}

func (m *merger) emit() bool {
	chunk := models.Chunk{
		Index:   m.index,
		Content: m.text[m.start:m.end],
		Overlap: m.lead,
	}
	m.index++
	return m.yield(chunk)
}

// backRunes returns the byte offset n code points before end.
func backRunes(text string, end, n int) int {
	pos := end
	for i := 0; i < n && pos > 0; i++ {
		_, w := utf8.DecodeLastRuneInString(text[:pos])
		pos -= w
	}
	return pos
}
