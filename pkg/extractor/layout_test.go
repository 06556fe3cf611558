package extractor

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docchat/internal/models"
)

func TestClassify(t *testing.T) {
	const h = 792.0
	lines := []line{
		{Page: 1, Y: 760, Height: h, FontSize: 9, Cells: []string{"ACME Quarterly"}},
		{Page: 1, Y: 700, Height: h, FontSize: 18, Cells: []string{"Intro"}},
		{Page: 1, Y: 660, Height: h, FontSize: 10, Cells: []string{"The system ingests documents and answers"}},
		{Page: 1, Y: 648, Height: h, FontSize: 10, Cells: []string{"questions about their content."}},
		{Page: 1, Y: 600, Height: h, FontSize: 10, Cells: []string{"Figure 2"}},
		{Page: 1, Y: 580, Height: h, FontSize: 10, Cells: []string{"• first point"}},
		{Page: 1, Y: 568, Height: h, FontSize: 10, Cells: []string{"2) second point"}},
		{Page: 1, Y: 500, Height: h, FontSize: 10, Cells: []string{"Region", "Revenue"}},
		{Page: 1, Y: 488, Height: h, FontSize: 10, Cells: []string{"North", "42"}},
		{Page: 1, Y: 30, Height: h, FontSize: 8, Cells: []string{"Page 1"}},
	}

	elements := classify(lines, "report.pdf")

	want := []models.Element{
		{Kind: models.KindHeader, Text: "ACME Quarterly", Page: 1, Source: "report.pdf"},
		{Kind: models.KindTitle, Text: "Intro", Page: 1, Source: "report.pdf"},
		{Kind: models.KindNarrativeText, Text: "The system ingests documents and answers\nquestions about their content.", Page: 1, Source: "report.pdf"},
		{Kind: models.KindText, Text: "Figure 2", Page: 1, Source: "report.pdf"},
		{Kind: models.KindListItem, Text: "• first point", Page: 1, Source: "report.pdf"},
		{Kind: models.KindListItem, Text: "2) second point", Page: 1, Source: "report.pdf"},
		{Kind: models.KindTable, Text: "Region | Revenue\nNorth | 42", Page: 1, Source: "report.pdf"},
		{Kind: models.KindFooter, Text: "Page 1", Page: 1, Source: "report.pdf"},
	}
	assert.Equal(t, want, elements)
}

func TestClassifySingleRowIsNotATable(t *testing.T) {
	lines := []line{
		{Page: 1, Y: 500, Height: 792, FontSize: 10, Cells: []string{"Name", "Value"}},
		{Page: 1, Y: 488, Height: 792, FontSize: 10, Cells: []string{"plain line"}},
	}

	elements := classify(lines, "a.pdf")
	require.Len(t, elements, 1)
	assert.Equal(t, models.KindText, elements[0].Kind)
	assert.Equal(t, "Name Value\nplain line", elements[0].Text)
}

func TestClassifyParagraphBreaks(t *testing.T) {
	lines := []line{
		{Page: 1, Y: 500, Height: 792, FontSize: 10, Cells: []string{"alpha"}},
		{Page: 1, Y: 450, Height: 792, FontSize: 10, Cells: []string{"beta"}},
		{Page: 2, Y: 700, Height: 792, FontSize: 10, Cells: []string{"gamma"}},
	}

	elements := classify(lines, "a.pdf")
	require.Len(t, elements, 3)
	assert.Equal(t, "alpha", elements[0].Text)
	assert.Equal(t, "beta", elements[1].Text)
	assert.Equal(t, 2, elements[2].Page)
}

func TestBodyFontSize(t *testing.T) {
	lines := []line{
		{FontSize: 18, Cells: []string{"Big"}},
		{FontSize: 10.1, Cells: []string{"a much longer body line"}},
		{FontSize: 9.9, Cells: []string{"another body line"}},
	}
	assert.Equal(t, 10.0, bodyFontSize(lines))
	assert.Zero(t, bodyFontSize(nil))
}

func TestBuildLine(t *testing.T) {
	glyphs := []pdf.Text{
		{FontSize: 10, X: 0, Y: 100, W: 5, S: "N"},
		{FontSize: 10, X: 5, Y: 100, W: 5, S: "o"},
		{FontSize: 10, X: 14, Y: 100, W: 5, S: "A"},
		{FontSize: 10, X: 60, Y: 100, W: 5, S: "4"},
		{FontSize: 10, X: 65, Y: 100, W: 5, S: "2"},
	}

	l, ok := buildLine(glyphs, 3, 792)
	require.True(t, ok)
	assert.Equal(t, []string{"No A", "42"}, l.Cells)
	assert.Equal(t, 3, l.Page)
	assert.Equal(t, 100.0, l.Y)
	assert.Equal(t, 10.0, l.FontSize)

	_, ok = buildLine(nil, 1, 792)
	assert.False(t, ok)
}

func TestBuildLineWithoutWidths(t *testing.T) {
	// Glyphs of one string share a position when the font has no widths.
	glyphs := []pdf.Text{
		{FontSize: 10, X: 72, Y: 100, S: "T"},
		{FontSize: 10, X: 72, Y: 100, S: "o"},
		{FontSize: 10, X: 72, Y: 100, S: "p"},
		{FontSize: 10, X: 300, Y: 100, S: "9"},
	}

	l, ok := buildLine(glyphs, 1, 792)
	require.True(t, ok)
	assert.Equal(t, []string{"Top", "9"}, l.Cells)
}

func TestGroupRows(t *testing.T) {
	glyphs := []pdf.Text{
		{FontSize: 12, X: 80, Y: 500, S: "b"},
		{FontSize: 12, X: 72, Y: 30, S: "z"},
		{FontSize: 12, X: 72, Y: 500.5, S: "a"},
		{FontSize: 24, X: 72, Y: 700, S: "T"},
		{FontSize: 12, X: 72, Y: 486, S: "c"},
		{FontSize: 12, X: 90, Y: 486, S: ""},
	}

	rows := groupRows(glyphs)
	var got []string
	for _, row := range rows {
		var b []byte
		for _, g := range row {
			b = append(b, g.S...)
		}
		got = append(got, string(b))
	}
	assert.Equal(t, []string{"T", "ab", "c", "z"}, got)
	assert.Empty(t, groupRows(nil))
}

func TestTextKind(t *testing.T) {
	assert.Equal(t, models.KindText, textKind("Figure 2"))
	assert.Equal(t, models.KindNarrativeText, textKind("It works well."))
	assert.Equal(t, models.KindNarrativeText, textKind("one two three four five six seven eight"))
}
