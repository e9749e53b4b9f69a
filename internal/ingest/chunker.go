package ingest

import (
	"strings"
	"unicode/utf8"
)

// separators is the split cascade, tried in order. Double newline keeps
// paragraphs together, then lines, then Japanese and Latin sentence ends,
// then words. The empty string is the rune-level last resort.
var separators = []string{"\n\n", "\n", "。", ".", " ", ""}

// Chunker splits document text into overlapping chunks sized for embedding.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker returns a Chunker producing chunks of at most size runes with
// roughly overlap runes shared between consecutive chunks. Zero or negative
// values fall back to the defaults (1000/200).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 200
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into chunks. Splits happen at the coarsest separator
// that keeps pieces within the size limit; pieces are then merged back up
// to the limit with trailing overlap carried into the next chunk. Returns
// nil for blank input.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var chunks []string
	for _, chunk := range c.split(text, separators) {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func (c *Chunker) split(text string, seps []string) []string {
	// Pick the coarsest separator that occurs in the text; the empty
	// string always matches.
	sep := seps[len(seps)-1]
	var finer []string
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			finer = seps[i+1:]
			break
		}
	}

	pieces := splitAfter(text, sep)

	var out []string
	var within []string
	for _, p := range pieces {
		if utf8.RuneCountInString(p) <= c.size {
			within = append(within, p)
			continue
		}
		// Oversized piece: flush what fits, then recurse with finer
		// separators.
		if len(within) > 0 {
			out = append(out, c.merge(within)...)
			within = nil
		}
		if len(finer) == 0 {
			out = append(out, p)
			continue
		}
		out = append(out, c.split(p, finer)...)
	}
	if len(within) > 0 {
		out = append(out, c.merge(within)...)
	}
	return out
}

// merge greedily packs pieces into chunks of at most size runes. When a
// chunk is emitted, pieces are retired from its front until the retained
// tail fits the overlap budget and leaves room for the next piece; the
// tail seeds the following chunk.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var cur []string
	total := 0
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n > c.size && len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, ""))
			for len(cur) > 0 && (total > c.overlap || total+n > c.size) {
				total -= utf8.RuneCountInString(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		total += n
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, ""))
	}
	return chunks
}

// splitAfter splits text keeping the separator attached to the preceding
// piece, so joining the pieces reproduces the text. The empty separator
// splits into individual runes.
func splitAfter(text, sep string) []string {
	var raw []string
	if sep == "" {
		raw = strings.Split(text, "")
	} else {
		raw = strings.SplitAfter(text, sep)
	}
	pieces := raw[:0]
	for _, p := range raw {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}
