// Package chunker splits document text into overlapping segments with
// deterministic identifiers.
package chunker

import (
	"unicode"

	"github.com/custodia-labs/retriva/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// shared by consecutive chunks.
const DefaultChunkOverlap = 200

// DefaultBoundaryWindow is how far back from a hard cut the chunker
// scans for a natural break before giving up and cutting mid-text.
const DefaultBoundaryWindow = 120

// Chunker splits document content into overlapping chunks, preferring
// paragraph and sentence boundaries within a tolerance window. All
// sizes are measured in runes so multi-byte text never splits inside a
// character.
type Chunker struct {
	chunkSize      int
	overlap        int
	boundaryWindow int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithBoundaryWindow sets the natural-boundary tolerance window in
// characters. Zero disables boundary snapping entirely.
func WithBoundaryWindow(window int) Option {
	return func(c *Chunker) {
		if window >= 0 {
			c.boundaryWindow = window
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:      DefaultChunkSize,
		overlap:        DefaultChunkOverlap,
		boundaryWindow: DefaultBoundaryWindow,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay strictly below the chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	if c.boundaryWindow >= c.chunkSize {
		c.boundaryWindow = c.chunkSize / 4
	}

	return c
}

// ChunkSize returns the configured chunk size in characters.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Split divides the text into ordered chunks with deterministic IDs
// derived from the document ID and ordinal. Identical input always
// yields identical boundaries and IDs. A document shorter than one
// chunk (including the empty document) yields exactly one chunk
// covering the whole text.
func (c *Chunker) Split(documentID, text string) []domain.Chunk {
	runes := []rune(text)
	total := len(runes)

	if total <= c.chunkSize {
		return []domain.Chunk{{
			ID:         domain.ChunkID(documentID, 0),
			DocumentID: documentID,
			Content:    text,
			Ordinal:    0,
			StartChar:  0,
			EndChar:    total,
		}}
	}

	estimated := total/(c.chunkSize-c.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	ordinal := 0

	for {
		end := start + c.chunkSize
		if end >= total {
			end = total
		} else {
			end = c.snapToBoundary(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(documentID, ordinal),
			DocumentID: documentID,
			Content:    string(runes[start:end]),
			Ordinal:    ordinal,
			StartChar:  start,
			EndChar:    end,
		})
		ordinal++

		if end == total {
			return chunks
		}

		next := end - c.overlap
		if next <= start {
			// Guarantee forward progress when a boundary cut shrank the
			// chunk below the overlap span.
			next = start + 1
		}
		start = next
	}
}

// snapToBoundary scans backwards from the hard cut position for a
// natural break: a paragraph break first, then a sentence end, then any
// whitespace. It returns the hard cut unchanged when the window holds
// no break.
func (c *Chunker) snapToBoundary(runes []rune, start, hardCut int) int {
	low := hardCut - c.boundaryWindow
	if low <= start {
		low = start + 1
	}

	// Paragraph break: cut just after a blank line.
	for i := hardCut; i > low; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}

	// Sentence end: terminator followed by whitespace.
	for i := hardCut; i > low; i-- {
		if isSentenceEnd(runes[i-1]) && i < len(runes) && unicode.IsSpace(runes[i]) {
			return i
		}
	}

	// Any whitespace.
	for i := hardCut; i > low; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}

	return hardCut
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
