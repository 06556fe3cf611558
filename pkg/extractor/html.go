package extractor

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/docchat/internal/models"
)

const htmlSelector = "h1, h2, h3, h4, h5, h6, header, footer, p, li, table, img, pre"

// HTMLExtractor maps HTML elements to element kinds.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(ctx context.Context, name string, data []byte) ([]models.Element, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &models.ParseError{Name: name, Err: err}
	}

	doc.Find("script, style, noscript").Remove()

	var elements []models.Element
	add := func(kind models.ElementKind, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		elements = append(elements, models.Element{Kind: kind, Text: text, Page: 1, Source: name})
	}

	doc.Find(htmlSelector).Each(func(i int, s *goquery.Selection) {
		tag := goquery.NodeName(s)

		// Containers emit their whole text once.
		if s.ParentsFiltered("header, footer, table, pre").Length() > 0 {
			return
		}
		if tag == "p" && s.ParentsFiltered("li").Length() > 0 {
			return
		}

		switch tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			add(models.KindTitle, collapse(s.Text()))
		case "header":
			add(models.KindHeader, collapse(s.Text()))
		case "footer":
			add(models.KindFooter, collapse(s.Text()))
		case "p":
			text := collapse(s.Text())
			if text != "" {
				add(textKind(text), text)
			}
		case "li":
			add(models.KindListItem, itemText(s))
		case "table":
			add(models.KindTable, tableText(s))
		case "img":
			alt, _ := s.Attr("alt")
			add(models.KindImage, alt)
		case "pre":
			add(models.KindCodeSnippet, s.Text())
		}
	})

	return elements, ctx.Err()
}

func tableText(s *goquery.Selection) string {
	var rows []string
	s.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(j int, td *goquery.Selection) {
			cells = append(cells, collapse(td.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	})
	return strings.Join(rows, "\n")
}

// itemText is a list item's text without its nested lists, whose items are
// emitted on their own.
func itemText(s *goquery.Selection) string {
	item := s.Clone()
	item.Find("ul, ol").Remove()
	return collapse(item.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
