package models

// ElementKind is the structural type of a piece of an extracted document.
type ElementKind string

const (
	KindTitle         ElementKind = "title"
	KindHeader        ElementKind = "header"
	KindFooter        ElementKind = "footer"
	KindNarrativeText ElementKind = "narrative_text"
	KindText          ElementKind = "text"
	KindListItem      ElementKind = "list_item"
	KindTable         ElementKind = "table"

	// Emitted by some extractors but never indexed.
	KindImage       ElementKind = "image"
	KindCodeSnippet ElementKind = "code_snippet"
)

// RecognizedKinds lists the kinds the categorizer buckets, in bucket order.
var RecognizedKinds = []ElementKind{
	KindTitle,
	KindHeader,
	KindFooter,
	KindNarrativeText,
	KindText,
	KindListItem,
	KindTable,
}

// Recognized reports whether k is one of the kinds that are categorized.
func (k ElementKind) Recognized() bool {
	for _, r := range RecognizedKinds {
		if k == r {
			return true
		}
	}
	return false
}

// Element is a typed fragment extracted from a source document.
type Element struct {
	Kind   ElementKind
	Text   string
	Page   int
	Source string
}

// Upload is a raw document handed to the ingestion pipeline.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}
