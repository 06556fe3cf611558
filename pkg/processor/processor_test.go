package processor_test

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/processor"
)

func collect(p processor.Processor, text string) []models.Chunk {
	var chunks []models.Chunk
	for c := range p.Chunks(text) {
		chunks = append(chunks, c)
	}
	return chunks
}

func reconstruct(chunks []models.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		runes := []rune(c.Content)
		b.WriteString(string(runes[c.Overlap:]))
	}
	return b.String()
}

func TestCategorize(t *testing.T) {
	elements := []models.Element{
		{Kind: models.KindTitle, Text: "Intro"},
		{Kind: models.KindNarrativeText, Text: "First paragraph."},
		{Kind: models.KindImage, Text: "a diagram"},
		{Kind: models.KindListItem, Text: "- item"},
		{Kind: models.KindText, Text: "Loose text"},
		{Kind: models.KindNarrativeText, Text: "Second paragraph."},
		{Kind: models.KindTable, Text: "a | b"},
		{Kind: models.KindFooter, Text: "   "},
	}

	buckets := processor.Categorize(elements)

	assert.Len(t, buckets.Kinds, len(models.RecognizedKinds))
	assert.Equal(t, 1, buckets.Dropped)
	assert.Equal(t, []string{"Intro"}, buckets.Kinds[models.KindTitle])
	assert.Equal(t, []string{"First paragraph.", "Second paragraph."}, buckets.Kinds[models.KindNarrativeText])
	assert.Equal(t, []string{"a | b"}, buckets.Kinds[models.KindTable])
	assert.Empty(t, buckets.Kinds[models.KindFooter])
	assert.Empty(t, buckets.Kinds[models.KindHeader])
	_, ok := buckets.Kinds[models.KindImage]
	assert.False(t, ok)

	assert.Equal(t, "First paragraph.\nSecond paragraph.\nLoose text\n- item", buckets.Join(models.CategoryTexts))
	assert.Equal(t, "", buckets.Join(models.CategoryHeaders))
}

func TestCategorizeCleansText(t *testing.T) {
	buckets := processor.Categorize([]models.Element{
		{Kind: models.KindText, Text: "line one\r\nline two\xff"},
	})
	assert.Equal(t, []string{"line one\nline two"}, buckets.Kinds[models.KindText])
}

func TestProcess(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: 10})

	texts := p.Process("a.pdf", []models.Element{
		{Kind: models.KindTitle, Text: "Intro"},
		{Kind: models.KindNarrativeText, Text: "Hello world."},
	})

	assert.Len(t, texts, 2)
	assert.Equal(t, processor.SourceText{Source: "a.pdf", Text: "Intro"}, texts[models.CategoryTitles])
	assert.Equal(t, processor.SourceText{Source: "a.pdf", Text: "Hello world."}, texts[models.CategoryTexts])
}

func TestProcessHonorsCategories(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		Categories: []models.Category{models.CategoryTables},
	})

	texts := p.Process("a.pdf", []models.Element{
		{Kind: models.KindTitle, Text: "Intro"},
		{Kind: models.KindTable, Text: "x | y"},
	})

	assert.Len(t, texts, 1)
	assert.Equal(t, "x | y", texts[models.CategoryTables].Text)
}

func TestChunksShortText(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 20, ChunkOverlap: 5})

	chunks := collect(p, "Hello world.")
	require.Len(t, chunks, 1)
	assert.Equal(t, models.Chunk{Index: 0, Content: "Hello world.", Overlap: 0}, chunks[0])

	exact := strings.Repeat("x", 20)
	chunks = collect(p, exact)
	require.Len(t, chunks, 1)
	assert.Equal(t, exact, chunks[0].Content)

	assert.Empty(t, collect(p, ""))
}

func TestChunksPreferSeparators(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 10, ChunkOverlap: 0})

	assert.Equal(t, []string{"aaaa\n\n", "bbbb\ncccc"}, p.SplitText("aaaa\n\nbbbb\ncccc"))
}

func TestChunksOverlap(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    10,
		ChunkOverlap: 3,
		Separators:   []string{" "},
	})

	chunks := collect(p, "aaaa bbbb cccc")
	assert.Equal(t, []models.Chunk{
		{Index: 0, Content: "aaaa bbbb ", Overlap: 0},
		{Index: 1, Content: "bb cccc", Overlap: 3},
	}, chunks)
}

func TestChunksHardSplitMultibyte(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    3,
		ChunkOverlap: 0,
		Separators:   []string{},
	})

	assert.Equal(t, []string{"日本語", "のテキ", "スト"}, p.SplitText("日本語のテキスト"))
}

func TestChunksRestartableAndLazy(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 5, ChunkOverlap: 1})
	text := "one two three four five six seven"
	seq := p.Chunks(text)

	var first, second []models.Chunk
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	assert.Equal(t, first, second)

	seen := 0
	for range seq {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestChunksLossless(t *testing.T) {
	vocab := []string{"word", "é", "日本", " ", "\n", "\n\n", "longerword", ".", "x"}
	rng := rand.New(rand.NewSource(42))

	configs := []processor.ProcessorConfig{
		{ChunkSize: 1, ChunkOverlap: 0, Separators: []string{}},
		{ChunkSize: 2, ChunkOverlap: 1},
		{ChunkSize: 5, ChunkOverlap: 2},
		{ChunkSize: 17, ChunkOverlap: 4, Separators: []string{"\n\n", "\n", " "}},
		{ChunkSize: 64, ChunkOverlap: 16},
	}

	for i := 0; i < 200; i++ {
		var b strings.Builder
		n := rng.Intn(80)
		for j := 0; j < n; j++ {
			b.WriteString(vocab[rng.Intn(len(vocab))])
		}
		text := b.String()

		for _, config := range configs {
			p := processor.NewWithConfig(config)
			chunks := collect(p, text)

			if text == "" {
				assert.Empty(t, chunks)
				continue
			}
			require.NotEmpty(t, chunks)

			for k, c := range chunks {
				runes := utf8.RuneCountInString(c.Content)
				assert.Equal(t, k, c.Index)
				assert.NotEmpty(t, c.Content)
				assert.LessOrEqual(t, runes, config.ChunkSize)
				assert.LessOrEqual(t, c.Overlap, config.ChunkOverlap)
				assert.Less(t, c.Overlap, runes)
				if k > 0 {
					prefix := string([]rune(c.Content)[:c.Overlap])
					assert.True(t, strings.HasSuffix(chunks[k-1].Content, prefix))
				} else {
					assert.Zero(t, c.Overlap)
				}
			}
			assert.Equal(t, text, reconstruct(chunks))
		}
	}
}

func TestBuildDocuments(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 10, ChunkOverlap: 0})

	docs := p.BuildDocuments(models.CategoryTables, []processor.SourceText{
		{Source: "a.pdf", Text: "r1 | c1\nr2 | c2"},
		{Source: "b.pdf", Text: "  \n\t"},
		{Source: "c.pdf", Text: "x | y"},
	})

	require.Len(t, docs, 3)
	assert.Equal(t, "r1 | c1\n", docs[0].Content)
	assert.Equal(t, "r2 | c2", docs[1].Content)
	assert.Equal(t, "x | y", docs[2].Content)

	ids := map[string]bool{}
	for _, d := range docs {
		assert.Equal(t, models.CategoryTables, d.Category)
		assert.NotEmpty(t, d.ID)
		ids[d.ID] = true
	}
	assert.Len(t, ids, 3)

	assert.Equal(t, "a.pdf", docs[1].Source)
	assert.Equal(t, 1, docs[1].ChunkIndex)
	assert.Equal(t, "tables", docs[1].Metadata["category"])
	assert.Equal(t, "c.pdf", docs[2].Metadata["source"])
}

func TestBuildDocumentsEmpty(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})
	assert.Empty(t, p.BuildDocuments(models.CategoryTexts, nil))
	assert.Empty(t, p.BuildDocuments(models.CategoryTexts, []processor.SourceText{{Source: "a", Text: " "}}))
}
