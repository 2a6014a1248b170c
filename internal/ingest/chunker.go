package ingest

import (
	"strings"
	"unicode"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/chunk"
)

// Chunking defaults, in characters.
const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

// Chunker splits sections into fixed-size overlapping chunks.
type Chunker struct {
	size      int
	overlap   int
	minLength int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap with the previous chunk in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinLength sets the shortest chunk kept; it never drops below chunk.MinLength.
func WithMinLength(n int) Option {
	return func(c *Chunker) {
		if n > chunk.MinLength {
			c.minLength = n
		}
	}
}

// NewChunker creates a Chunker with the given options.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap, minLength: chunk.MinLength}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size/2 {
		c.overlap = c.size / 4
	}
	return c
}

// Chunk turns a document's text into chunks tagged with market and source.
// IDs are sequential per source, counting only accepted chunks.
func (c *Chunker) Chunk(text, market, source string) []chunk.Chunk {
	var out []chunk.Chunk
	for _, sec := range SplitSections(text) {
		for _, piece := range c.Split(sec.Body) {
			ch, err := chunk.New(market, source, sec.Title, len(out), piece)
			if err != nil {
				continue
			}
			out = append(out, ch)
		}
	}
	return out
}

// Split cuts text into pieces of at most size characters, each starting
// overlap characters before the previous piece ended. Cuts prefer a paragraph
// break, then a sentence end, then whitespace in the back half of the window.
// Pieces shorter than the minimum length are dropped.
func (c *Chunker) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	var out []string
	for start := 0; start < n; {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.breakPoint(runes, start, end)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(piece)) >= c.minLength {
			out = append(out, piece)
		}
		if end >= n {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// breakPoint returns the exclusive end index to cut at within runes[start:limit].
func (c *Chunker) breakPoint(runes []rune, start, limit int) int {
	lo := start + c.size/2
	for i := limit - 1; i > lo; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := limit - 1; i > lo; i-- {
		if isSentenceEnd(runes, i) {
			return i + 1
		}
	}
	for i := limit - 1; i > lo; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return limit
}

func isSentenceEnd(runes []rune, i int) bool {
	switch runes[i] {
	case '。', '！', '？', '；':
		return true
	case '.', '!', '?', ';':
		return i+1 < len(runes) && unicode.IsSpace(runes[i+1])
	}
	return false
}
