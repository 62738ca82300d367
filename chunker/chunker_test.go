package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/crawler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func para(n int) string {
	return fmt.Sprintf("Paragraph %d talks about our handmade ceramics and glazes.", n)
}

func newTestChunker(t *testing.T, opts ...Option) *Chunker {
	t.Helper()
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestChunk_SplitsOnBlankLines(t *testing.T) {
	c := newTestChunker(t)
	pages := []crawler.Page{{
		URL:   "https://acme.test/",
		Title: "Acme",
		Text:  para(1) + "\n\n" + para(2) + "\n \n" + para(3),
	}}

	chunks := c.Chunk(pages)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, para(i+1), ch.Content)
		assert.Equal(t, "https://acme.test/", ch.URL)
		assert.Equal(t, "Acme", ch.Title)
		assert.Equal(t, core.HashContent(ch.Content), ch.Hash)
	}
}

func TestChunk_DropsShortChunks(t *testing.T) {
	c := newTestChunker(t)
	pages := []crawler.Page{{URL: "u", Text: "Home\n\nShop now\n\n" + para(1)}}

	chunks := c.Chunk(pages)
	require.Len(t, chunks, 1)
	assert.Equal(t, para(1), chunks[0].Content)
}

func TestChunk_DedupsWithinRun(t *testing.T) {
	c := newTestChunker(t)
	footer := "Free shipping on all orders over fifty dollars, every day."
	pages := []crawler.Page{
		{URL: "https://acme.test/", Text: para(1) + "\n\n" + footer},
		{URL: "https://acme.test/about", Text: footer + "\n\n" + para(2) + "\n\n" + para(1)},
	}

	chunks := c.Chunk(pages)
	require.Len(t, chunks, 3)

	contents := Contents(chunks)
	assert.Equal(t, []string{para(1), footer, para(2)}, contents)
	assert.Equal(t, "https://acme.test/", chunks[1].URL, "first occurrence wins")

	hashes := map[core.ContentHash]bool{}
	for _, ch := range chunks {
		assert.False(t, hashes[ch.Hash], "duplicate chunk %q", ch.Content)
		hashes[ch.Hash] = true
	}
}

func TestChunk_SplitsLongBlocks(t *testing.T) {
	c := newTestChunker(t)
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, "Sentence %d describes the studio in some detail. ", i)
	}
	long := strings.TrimSpace(sb.String())
	require.Greater(t, utf8.RuneCountInString(long), MaxBlockLength)

	chunks := c.Chunk([]crawler.Page{{URL: "u", Text: long}})
	require.GreaterOrEqual(t, len(chunks), 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), SplitSize)
	}
	assert.True(t, strings.HasPrefix(chunks[0].Content, "Sentence 0 "))
	assert.Contains(t, chunks[len(chunks)-1].Content, "Sentence 59")
}

func TestChunk_KeepsBlockUpToMaxLength(t *testing.T) {
	c := newTestChunker(t)
	block := strings.Repeat("a", MaxBlockLength)

	chunks := c.Chunk([]crawler.Page{{URL: "u", Text: block}})
	require.Len(t, chunks, 1)
	assert.Equal(t, block, chunks[0].Content)
}

func TestChunk_Caps(t *testing.T) {
	var blocks []string
	for i := 0; i < 250; i++ {
		blocks = append(blocks, para(i))
	}
	pages := []crawler.Page{{URL: "u", Text: strings.Join(blocks, "\n\n")}}

	shallow := newTestChunker(t).Chunk(pages)
	require.Len(t, shallow, ShallowLimit)
	assert.Equal(t, para(0), shallow[0].Content)
	assert.Equal(t, para(ShallowLimit-1), shallow[ShallowLimit-1].Content)

	deep := newTestChunker(t, WithDeep(true)).Chunk(pages)
	assert.Len(t, deep, DeepLimit)

	custom := newTestChunker(t, WithLimit(5)).Chunk(pages)
	assert.Len(t, custom, 5)
}

func TestChunk_EmptyInput(t *testing.T) {
	c := newTestChunker(t)
	assert.Empty(t, c.Chunk(nil))
	assert.Empty(t, c.Chunk([]crawler.Page{{URL: "u", Text: "   \n\n  "}}))
}

func TestCountByURL(t *testing.T) {
	chunks := []Chunk{{URL: "a"}, {URL: "b"}, {URL: "a"}}
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, CountByURL(chunks))
}

func TestNew_InvalidLimit(t *testing.T) {
	_, err := New(WithLimit(0))
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestLimitFor(t *testing.T) {
	assert.Equal(t, ShallowLimit, LimitFor(false))
	assert.Equal(t, DeepLimit, LimitFor(true))
}
