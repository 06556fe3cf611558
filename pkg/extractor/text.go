package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/xhad/docchat/internal/models"
)

var (
	headingPattern   = regexp.MustCompile(`^#{1,6}\s+`)
	separatorPattern = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?$`)
)

// TextExtractor splits plain text and markdown into blank-line separated
// blocks.
type TextExtractor struct{}

func (e *TextExtractor) Extract(ctx context.Context, name string, data []byte) ([]models.Element, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var elements []models.Element
	add := func(kind models.ElementKind, text string) {
		elements = append(elements, models.Element{Kind: kind, Text: text, Page: 1, Source: name})
	}

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		switch {
		case headingPattern.MatchString(block) && len(lines) == 1:
			add(models.KindTitle, headingPattern.ReplaceAllString(block, ""))
		case all(lines, func(l string) bool { return listPattern.MatchString(l) }):
			for _, l := range lines {
				add(models.KindListItem, strings.TrimSpace(l))
			}
		case len(lines) >= minTableRows && all(lines, func(l string) bool { return strings.HasPrefix(strings.TrimSpace(l), "|") }):
			add(models.KindTable, pipeTable(lines))
		default:
			if headingPattern.MatchString(lines[0]) {
				add(models.KindTitle, headingPattern.ReplaceAllString(lines[0], ""))
				block = strings.TrimSpace(strings.Join(lines[1:], "\n"))
			}
			if block != "" {
				add(textKind(block), block)
			}
		}
	}

	return elements, ctx.Err()
}

func pipeTable(lines []string) string {
	var rows []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if separatorPattern.MatchString(l) {
			continue
		}
		l = strings.TrimSuffix(strings.TrimPrefix(l, "|"), "|")
		cells := strings.Split(l, "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.Join(rows, "\n")
}

func all(lines []string, pred func(string) bool) bool {
	for _, l := range lines {
		if !pred(l) {
			return false
		}
	}
	return true
}
