package models

// Category labels a group of element kinds that are chunked and indexed together.
type Category string

const (
	CategoryTexts   Category = "texts"
	CategoryTitles  Category = "titles"
	CategoryHeaders Category = "headers"
	CategoryFooters Category = "footers"
	CategoryTables  Category = "tables"
)

// Categories is the default indexing order.
var Categories = []Category{
	CategoryTexts,
	CategoryTitles,
	CategoryHeaders,
	CategoryFooters,
	CategoryTables,
}

// CategoryKinds maps each category to the element kinds it is built from.
// Kinds are concatenated in the listed order.
var CategoryKinds = map[Category][]ElementKind{
	CategoryTexts:   {KindNarrativeText, KindText, KindListItem},
	CategoryTitles:  {KindTitle},
	CategoryHeaders: {KindHeader},
	CategoryFooters: {KindFooter},
	CategoryTables:  {KindTable},
}

// ParseCategory returns the category named s.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := CategoryKinds[c]
	return c, ok
}

// Chunk is a bounded substring of a longer text.
// Overlap counts the leading code points repeated from the previous chunk.
type Chunk struct {
	Index   int
	Content string
	Overlap int
}

// Document is the retrievable unit stored in and returned by the vector index.
type Document struct {
	ID         string
	Category   Category
	Content    string
	Source     string
	ChunkIndex int
	Metadata   map[string]interface{}
}

// SearchResult is a stored document with its distance to the query.
type SearchResult struct {
	Document
	Distance float64
}
