// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/crawler"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// ShallowLimit caps chunks from a single-page crawl.
	ShallowLimit = 20
	// DeepLimit caps chunks from a deep crawl.
	DeepLimit = 200

	// MinChunkLength is the shortest chunk kept, in characters.
	MinChunkLength = 40
	// MaxBlockLength is the longest block kept whole, in characters.
	MaxBlockLength = 1000
	// SplitSize is the target size of pieces cut from long blocks.
	SplitSize = 800
)

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// ErrInvalidLimit is returned for a chunk cap below 1.
var ErrInvalidLimit = errors.New("chunk limit must be at least 1")

// Chunk is one unit of text ready for embedding.
type Chunk struct {
	Content string
	URL     string
	Title   string
	Hash    core.ContentHash
}

// Chunker splits and deduplicates page text. It holds no per-run state and
// is safe for concurrent use.
type Chunker struct {
	limit    int
	minLen   int
	splitter textsplitter.TextSplitter
	logger   *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithLimit caps the chunks returned per run. Default is ShallowLimit.
func WithLimit(n int) Option {
	return func(c *Chunker) error {
		if n < 1 {
			return ErrInvalidLimit
		}
		c.limit = n
		return nil
	}
}

// WithDeep sets the cap for a deep crawl.
func WithDeep(deep bool) Option {
	return func(c *Chunker) error {
		c.limit = LimitFor(deep)
		return nil
	}
}

// WithMinLength sets the shortest chunk kept. Default is MinChunkLength.
func WithMinLength(n int) Option {
	return func(c *Chunker) error {
		c.minLen = n
		return nil
	}
}

// LimitFor returns the chunk cap for a shallow or deep crawl.
func LimitFor(deep bool) int {
	if deep {
		return DeepLimit
	}
	return ShallowLimit
}

// New creates a chunker.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		limit:  ShallowLimit,
		minLen: MinChunkLength,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(SplitSize),
			textsplitter.WithChunkOverlap(0),
			textsplitter.WithSeparators([]string{"\n", ". ", " ", ""}),
		),
		logger: slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Chunk splits pages into chunks in crawl order.
func (c *Chunker) Chunk(pages []crawler.Page) []Chunk {
	seen := make(map[core.ContentHash]struct{})
	var chunks []Chunk
	dropped := 0

	for _, page := range pages {
		for _, text := range c.split(page.Text) {
			if utf8.RuneCountInString(text) < c.minLen {
				continue
			}
			hash := core.HashContent(text)
			if _, dup := seen[hash]; dup {
				dropped++
				continue
			}
			seen[hash] = struct{}{}

			chunks = append(chunks, Chunk{
				Content: text,
				URL:     page.URL,
				Title:   page.Title,
				Hash:    hash,
			})
			if len(chunks) == c.limit {
				c.logger.Debug("chunk limit reached", "limit", c.limit)
				return chunks
			}
		}
	}

	if dropped > 0 {
		c.logger.Debug("dropped duplicate chunks", "count", dropped)
	}
	return chunks
}

// split returns the blocks of a single text without filtering or dedup.
func (c *Chunker) split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []string
	for _, block := range blankLines.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if utf8.RuneCountInString(block) <= MaxBlockLength {
			out = append(out, block)
			continue
		}

		pieces, err := c.splitter.SplitText(block)
		if err != nil {
			c.logger.Warn("splitter failed, keeping block whole", "err", err)
			out = append(out, block)
			continue
		}
		for _, piece := range pieces {
			if piece = strings.TrimSpace(piece); piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}

// CountByURL returns how many chunks each page contributed.
func CountByURL(chunks []Chunk) map[string]int {
	counts := make(map[string]int)
	for _, ch := range chunks {
		counts[ch.URL]++
	}
	return counts
}

// Contents returns the text of each chunk in order.
func Contents(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Content
	}
	return out
}
