package docqa

import (
	"fmt"
	"strings"
)

// Separators in the order they are tried when looking for a break point:
// paragraph, line, sentence, word. A hard cut is used when none fits.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits page text into overlapping windows of at most size runes.
// Consecutive chunks of a page share exactly overlap runes, so the page is
// chunk[0] followed by chunk[i][overlap:] for every later chunk.
type Chunker struct {
	size       int
	overlap    int
	separators [][]rune
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidConfig, size, overlap)
	}

	seps := make([][]rune, len(defaultSeparators))
	for i, s := range defaultSeparators {
		seps[i] = []rune(s)
	}
	return &Chunker{size: size, overlap: overlap, separators: seps}, nil
}

// Split chunks every non-blank page. Ordinals run across the whole document.
func (c *Chunker) Split(pages []Page) []Chunk {
	var chunks []Chunk
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		text := []rune(p.Text)
		for _, sp := range c.spans(text) {
			chunks = append(chunks, Chunk{
				ID:      fmt.Sprintf("p%d-%d", p.Number, sp.start),
				Ordinal: len(chunks),
				Page:    p.Number,
				Offset:  sp.start,
				Text:    string(text[sp.start:sp.end]),
			})
		}
	}
	return chunks
}

type span struct{ start, end int }

func (c *Chunker) spans(text []rune) []span {
	var out []span
	start := 0
	for {
		if len(text)-start <= c.size {
			return append(out, span{start, len(text)})
		}
		end := c.cut(text, start)
		out = append(out, span{start, end})
		start = end - c.overlap
	}
}

// cut returns the end of the chunk beginning at start. The end always lies
// past start+overlap so the next chunk advances.
func (c *Chunker) cut(text []rune, start int) int {
	limit := start + c.size
	floor := start + c.overlap
	for _, sep := range c.separators {
		for end := limit; end > floor && end-len(sep) >= start; end-- {
			if endsWith(text[:end], sep) {
				return end
			}
		}
	}
	return limit
}

func endsWith(text, suffix []rune) bool {
	if len(suffix) > len(text) {
		return false
	}
	off := len(text) - len(suffix)
	for i, r := range suffix {
		if text[off+i] != r {
			return false
		}
	}
	return true
}
