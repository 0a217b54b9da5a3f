package ingest

import "strings"

// Default chunking geometry, sized so a chunk plus its source reference
// stays well inside one embedding window.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// Splitter cuts a document into overlapping chunks along line breaks.
// Lines longer than ChunkSize are hard-cut first, so no single piece can
// exceed the chunk size on its own.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter returns a splitter with the default geometry.
func NewSplitter() Splitter {
	return Splitter{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
}

// Split returns the chunks of text in order. Consecutive chunks share up
// to ChunkOverlap characters of trailing context so facts straddling a
// boundary stay recallable. Whitespace-only chunks are dropped.
func (s Splitter) Split(text string) []string {
	size := s.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := s.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	var pieces []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > size {
			pieces = append(pieces, line[:size])
			line = line[size:]
		}
		pieces = append(pieces, line)
	}

	var chunks []string
	var cur []string
	curLen := 0
	for _, piece := range pieces {
		projected := curLen + len(piece)
		if len(cur) > 0 {
			projected++ // joining newline
		}
		if projected > size && len(cur) > 0 {
			if c := strings.Join(cur, "\n"); strings.TrimSpace(c) != "" {
				chunks = append(chunks, c)
			}
			// Keep a tail of pieces as overlap for the next chunk.
			for curLen > overlap && len(cur) > 0 {
				curLen -= len(cur[0])
				if len(cur) > 1 {
					curLen-- // its joining newline
				}
				cur = cur[1:]
			}
		}
		cur = append(cur, piece)
		curLen += len(piece)
		if len(cur) > 1 {
			curLen++
		}
	}
	if c := strings.Join(cur, "\n"); strings.TrimSpace(c) != "" {
		chunks = append(chunks, c)
	}
	return chunks
}
