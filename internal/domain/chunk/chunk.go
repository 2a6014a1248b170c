package chunk

import (
	"fmt"
	"strings"
)

// MinLength is the shortest chunk text (in characters) kept in an index.
const MinLength = 50

// Chunk is a contiguous slice of a source document's text (immutable value object).
type Chunk struct {
	id      string
	text    string
	market  string
	source  string
	section string
}

// ID formats the composite chunk identifier market/filename#seq.
func ID(market, source string, seq int) string {
	return fmt.Sprintf("%s/%s#%d", market, source, seq)
}

// New validates and creates a Chunk. Text is trimmed and must be at least MinLength characters.
func New(market, source, section string, seq int, text string) (Chunk, error) {
	text = strings.TrimSpace(text)
	if market == "" {
		return Chunk{}, fmt.Errorf("chunk market is required")
	}
	if source == "" {
		return Chunk{}, fmt.Errorf("chunk source is required")
	}
	if n := len([]rune(text)); n < MinLength {
		return Chunk{}, fmt.Errorf("chunk text too short (%d < %d)", n, MinLength)
	}
	return Chunk{
		id:      ID(market, source, seq),
		text:    text,
		market:  market,
		source:  source,
		section: section,
	}, nil
}

// Reconstruct creates a Chunk without validation (index hydration).
func Reconstruct(id, text, market, source, section string) Chunk {
	return Chunk{id: id, text: text, market: market, source: source, section: section}
}

// ID returns the composite identifier.
func (c Chunk) ID() string { return c.id }

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// Market returns the market tag the chunk was ingested under.
func (c Chunk) Market() string { return c.market }

// Source returns the originating filename.
func (c Chunk) Source() string { return c.source }

// Section returns the heading or synthetic section label.
func (c Chunk) Section() string { return c.section }

// Retrieved is a Chunk scored against one query.
type Retrieved struct {
	Chunk
	Score float64
}
