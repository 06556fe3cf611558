package extractor

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/logger"
)

// PDFExtractor reads positioned glyphs from each page, groups them into
// rows and classifies the rows by layout.
type PDFExtractor struct {
	// TempDir receives the scratch copy of the document. Empty means os.TempDir.
	TempDir string
	// ExtractDir receives tables as CSV files when set.
	ExtractDir string
}

func (e *PDFExtractor) Extract(ctx context.Context, name string, data []byte) (elements []models.Element, err error) {
	f, err := os.CreateTemp(e.TempDir, "docchat-*.pdf")
	if err != nil {
		return nil, &models.ParseError{Name: name, Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, &models.ParseError{Name: name, Err: fmt.Errorf("failed to write temp file: %w", err)}
	}
	if err := f.Close(); err != nil {
		return nil, &models.ParseError{Name: name, Err: fmt.Errorf("failed to close temp file: %w", err)}
	}

	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			elements = nil
			err = &models.ParseError{Name: name, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &models.ParseError{Name: name, Err: err}
	}
	defer file.Close()

	var lines []line
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		height := pageHeight(page)
		for _, row := range groupRows(page.Content().Text) {
			if l, ok := buildLine(row, i, height); ok {
				lines = append(lines, l)
			}
		}
	}

	elements = classify(lines, name)
	logger.Debug("extracted %d elements from %d lines of %s", len(elements), len(lines), name)

	if e.ExtractDir != "" {
		if err := e.writeTables(name, elements); err != nil {
			logger.Warn("failed to write tables of %s: %v", name, err)
		}
	}

	return elements, nil
}

// groupRows collects glyphs sharing a baseline into rows, top of the page
// first, each row ordered left to right. Glyphs at the same position keep
// their content stream order.
func groupRows(texts []pdf.Text) [][]pdf.Text {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })

	var rows [][]pdf.Text
	var rowY, rowSize float64
	for _, g := range glyphs {
		size := math.Abs(g.FontSize)
		if n := len(rows); n > 0 && rowY-g.Y <= rowTolerance*math.Max(math.Max(rowSize, size), 1) {
			rows[n-1] = append(rows[n-1], g)
			rowSize = math.Max(rowSize, size)
			continue
		}
		rows = append(rows, []pdf.Text{g})
		rowY, rowSize = g.Y, size
	}

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	}
	return rows
}

// buildLine merges the glyphs of one row into cells. A gap wider than a
// couple of characters starts a new cell.
func buildLine(texts []pdf.Text, page int, height float64) (line, bool) {
	if len(texts) == 0 {
		return line{}, false
	}

	l := line{Page: page, Y: texts[0].Y, Height: height}
	var cell strings.Builder
	prevEnd := texts[0].X

	for i, t := range texts {
		size := math.Abs(t.FontSize)
		if size > l.FontSize {
			l.FontSize = size
		}
		if i > 0 {
			gap := t.X - prevEnd
			switch {
			case gap > cellGapRatio*size:
				if s := strings.TrimSpace(cell.String()); s != "" {
					l.Cells = append(l.Cells, s)
				}
				cell.Reset()
			case gap > spaceGapRatio*size && !strings.HasSuffix(cell.String(), " "):
				cell.WriteByte(' ')
			}
		}
		cell.WriteString(t.S)

		if t.W > 0 {
			prevEnd = t.X + t.W
		} else {
			// Fonts without a Widths array report no advance.
			prevEnd = math.Max(t.X, prevEnd) + approxGlyphWidth*size
		}
	}
	if s := strings.TrimSpace(cell.String()); s != "" {
		l.Cells = append(l.Cells, s)
	}

	return l, len(l.Cells) > 0
}

func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	for parent := page.V.Key("Parent"); box.IsNull() && !parent.IsNull(); parent = parent.Key("Parent") {
		box = parent.Key("MediaBox")
	}
	if box.Len() != 4 {
		return defaultPageTop
	}
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if h <= 0 {
		return defaultPageTop
	}
	return h
}

func (e *PDFExtractor) writeTables(name string, elements []models.Element) error {
	if err := os.MkdirAll(e.ExtractDir, 0755); err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	n := 0
	for _, el := range elements {
		if el.Kind != models.KindTable {
			continue
		}
		n++

		path := filepath.Join(e.ExtractDir, fmt.Sprintf("%s-p%d-table%d.csv", base, el.Page, n))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		w := csv.NewWriter(f)
		for _, row := range strings.Split(el.Text, "\n") {
			if err := w.Write(strings.Split(row, " | ")); err != nil {
				f.Close()
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
