package extractor

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xhad/docchat/internal/models"
)

const (
	headerBand       = 0.93
	footerBand       = 0.07
	titleRatio       = 1.2
	maxTitleRunes    = 120
	paragraphGap     = 1.8
	minTableRows     = 2
	minNarrWords     = 3
	longNarrWords    = 8
	cellGapRatio     = 2.0
	spaceGapRatio    = 0.25
	rowTolerance     = 0.3
	approxGlyphWidth = 0.5
	defaultPageTop   = 792.0
)

var listPattern = regexp.MustCompile(`^\s*(?:[•●▪◦‣∙*–-]|\(?\d{1,3}[.)]|\(?[a-zA-Z][.)])\s+\S`)

// line is one row of text on a page. Y is the baseline measured from the
// bottom of the page, Height the page height.
type line struct {
	Page     int
	Y        float64
	Height   float64
	FontSize float64
	Cells    []string
}

func (l line) text() string {
	return strings.Join(l.Cells, " ")
}

// layout turns positioned lines into typed elements.
type layout struct {
	source string
	body   float64

	elements  []models.Element
	paragraph []line
	table     []line
}

func classify(lines []line, source string) []models.Element {
	lo := &layout{source: source, body: bodyFontSize(lines)}
	for _, l := range lines {
		lo.add(l)
	}
	lo.flushTable()
	lo.flushParagraph()
	return lo.elements
}

func (lo *layout) add(l line) {
	if l.Height > 0 {
		switch {
		case l.Y >= headerBand*l.Height:
			lo.flushTable()
			lo.flushParagraph()
			lo.emit(models.KindHeader, l.text(), l.Page)
			return
		case l.Y <= footerBand*l.Height:
			lo.flushTable()
			lo.flushParagraph()
			lo.emit(models.KindFooter, l.text(), l.Page)
			return
		}
	}

	if len(l.Cells) >= 2 {
		if len(lo.table) > 0 && lo.table[len(lo.table)-1].Page != l.Page {
			lo.flushTable()
		}
		lo.flushParagraph()
		lo.table = append(lo.table, l)
		return
	}

	lo.flushTable()
	lo.addText(l)
}

func (lo *layout) addText(l line) {
	text := strings.TrimSpace(l.text())
	if text == "" {
		return
	}

	if lo.body > 0 && l.FontSize >= titleRatio*lo.body && utf8.RuneCountInString(text) <= maxTitleRunes {
		lo.flushParagraph()
		lo.emit(models.KindTitle, text, l.Page)
		return
	}

	if listPattern.MatchString(text) {
		lo.flushParagraph()
		lo.emit(models.KindListItem, text, l.Page)
		return
	}

	if n := len(lo.paragraph); n > 0 {
		prev := lo.paragraph[n-1]
		gap := prev.Y - l.Y
		if prev.Page != l.Page || gap > paragraphGap*math.Max(prev.FontSize, l.FontSize) || gap < 0 {
			lo.flushParagraph()
		}
	}
	lo.paragraph = append(lo.paragraph, l)
}

func (lo *layout) flushParagraph() {
	if len(lo.paragraph) == 0 {
		return
	}
	parts := make([]string, 0, len(lo.paragraph))
	for _, l := range lo.paragraph {
		parts = append(parts, strings.TrimSpace(l.text()))
	}
	text := strings.Join(parts, "\n")
	lo.emit(textKind(text), text, lo.paragraph[0].Page)
	lo.paragraph = lo.paragraph[:0]
}

func (lo *layout) flushTable() {
	if len(lo.table) == 0 {
		return
	}
	rows := lo.table
	lo.table = nil

	if len(rows) < minTableRows {
		for _, l := range rows {
			lo.addText(l)
		}
		return
	}

	out := make([]string, 0, len(rows))
	for _, l := range rows {
		out = append(out, strings.Join(l.Cells, " | "))
	}
	lo.emit(models.KindTable, strings.Join(out, "\n"), rows[0].Page)
}

func (lo *layout) emit(kind models.ElementKind, text string, page int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	lo.elements = append(lo.elements, models.Element{
		Kind:   kind,
		Text:   text,
		Page:   page,
		Source: lo.source,
	})
}

// bodyFontSize returns the font size carrying the most text.
func bodyFontSize(lines []line) float64 {
	weight := make(map[float64]int)
	for _, l := range lines {
		size := math.Round(l.FontSize*2) / 2
		weight[size] += utf8.RuneCountInString(l.text())
	}

	var body float64
	best := -1
	for size, w := range weight {
		if w > best || (w == best && size < body) {
			body, best = size, w
		}
	}
	return body
}

// textKind separates prose from short fragments such as captions or labels.
func textKind(text string) models.ElementKind {
	words := strings.Fields(text)
	if len(words) >= longNarrWords {
		return models.KindNarrativeText
	}
	if len(words) >= minNarrWords && strings.ContainsAny(text[len(text)-1:], ".!?") {
		return models.KindNarrativeText
	}
	return models.KindText
}
