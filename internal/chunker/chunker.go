// Package chunker splits plain text into overlapping, size-bounded segments.
//
// The splitter prefers natural boundaries: it first tries paragraph breaks,
// then line breaks, then spaces, recursing to the next separator only for
// pieces that still exceed the size limit. Pieces are greedily packed into
// chunks; each new chunk starts with the tail of its predecessor so context
// carries across chunk boundaries. Sizes are measured in runes.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// separators ordered most-preferred first. A piece that contains none of
// them is atomic: it is never split below one token, so a single very long
// word becomes a standalone chunk even when it exceeds the size limit.
var separators = []string{"\n\n", "\n", " "}

// Splitter splits text into chunks of at most MaxSize runes with Overlap
// runes of carry-over between consecutive chunks.
type Splitter struct {
	MaxSize int
	Overlap int
}

// New creates a Splitter, clamping nonsensical parameters. Overlap must
// leave room for new content in every chunk, so it is capped below MaxSize.
func New(maxSize, overlap int) *Splitter {
	if maxSize < 1 {
		maxSize = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize - 1
	}
	return &Splitter{MaxSize: maxSize, Overlap: overlap}
}

// Split breaks text into chunks. The result is empty only for
// empty/whitespace input; text that fits in one chunk is returned trimmed
// and whole. Every chunk is at most MaxSize runes except atomic pieces
// with no separator left to split on.
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= s.MaxSize {
		return []string{trimmed}
	}

	pieces := s.splitPieces(trimmed, 0)
	return s.pack(pieces)
}

// splitPieces cuts text on the separator at the given preference level,
// keeping each separator attached to the piece before it so concatenating
// the pieces reproduces the input exactly. Pieces still over the limit
// recurse into the next, finer separator.
func (s *Splitter) splitPieces(text string, level int) []string {
	if level >= len(separators) {
		// Atomic: no separator left. Emitted as-is even if oversized.
		return []string{text}
	}

	parts := strings.SplitAfter(text, separators[level])
	pieces := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) > s.MaxSize {
			pieces = append(pieces, s.splitPieces(part, level+1)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// pack greedily accumulates pieces into chunks. When a piece would push the
// current chunk past MaxSize the chunk is emitted and the next one starts
// with the previous chunk's last Overlap runes. The overlap shrinks just
// enough when the incoming piece is too large to share a chunk with it.
func (s *Splitter) pack(pieces []string) []string {
	var chunks []string
	var current []rune

	flush := func() []rune {
		if len(current) == 0 {
			return nil
		}
		chunks = append(chunks, string(current))
		if s.Overlap == 0 {
			return nil
		}
		tail := current
		if len(tail) > s.Overlap {
			tail = tail[len(tail)-s.Overlap:]
		}
		return append([]rune(nil), tail...)
	}

	for _, piece := range pieces {
		runes := []rune(piece)

		if len(runes) > s.MaxSize {
			// Atomic oversized piece: emit the current chunk, then the
			// piece as a standalone chunk seeding the next overlap.
			if len(current) > 0 {
				chunks = append(chunks, string(current))
			}
			current = runes
			current = flush()
			continue
		}

		if len(current)+len(runes) > s.MaxSize {
			tail := flush()
			// Keep as much overlap as fits alongside the new piece.
			if excess := len(tail) + len(runes) - s.MaxSize; excess > 0 {
				if excess >= len(tail) {
					tail = nil
				} else {
					tail = tail[excess:]
				}
			}
			current = tail
		}
		current = append(current, runes...)
	}

	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}
