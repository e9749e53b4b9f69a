package verify

import (
	"fmt"
	"strings"

	"notedraft/internal/core"
)

// TagPrefix opens every review marker. Counting occurrences of this
// prefix across the draft text fields yields the draft's tag count.
const TagPrefix = "[要確認:"

// Marker renders the review marker for a claim label.
func Marker(tag string) string {
	return fmt.Sprintf("[要確認: %s]", tag)
}

// CountTags counts review markers across text fields.
func CountTags(parts ...string) int {
	n := 0
	for _, p := range parts {
		n += strings.Count(p, TagPrefix)
	}
	return n
}

// Tag inserts a review marker after every sentence containing one of the
// unverified claims. Every occurrence of a claim is tagged; sentences
// already carrying the exact marker are left alone, so tagging is
// idempotent.
func Tag(text string, claims []core.Claim) string {
	for _, claim := range claims {
		text = tagClaim(text, claim)
	}
	return text
}

func tagClaim(text string, claim core.Claim) string {
	needle := strings.TrimSpace(claim.Claim)
	label := strings.TrimSpace(claim.SuggestedTag)
	if needle == "" || label == "" {
		return text
	}
	marker := Marker(label)

	segs := splitSentences(text)
	var b strings.Builder
	for i, seg := range segs {
		b.WriteString(seg.text)
		if strings.Contains(seg.text, needle) &&
			!strings.Contains(seg.text, marker) &&
			!markerFollows(segs, i, marker) {
			b.WriteString(" ")
			b.WriteString(marker)
		}
		b.WriteString(seg.sep)
	}
	return b.String()
}

// segment is one sentence plus the separator that followed it. Sentence
// terminators (。 and the English period) stay inside text; the newline
// separator is kept apart so markers land before it.
type segment struct {
	text string
	sep  string
}

// splitSentences cuts text at 。, at newlines, and at an English period
// followed by whitespace. Concatenating text+sep over all segments
// reproduces the input exactly.
func splitSentences(text string) []segment {
	var segs []segment
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '。':
			segs = append(segs, segment{text: string(runes[start : i+1])})
			start = i + 1
		case '\n':
			segs = append(segs, segment{text: string(runes[start:i]), sep: "\n"})
			start = i + 1
		case '.':
			if i+1 < len(runes) && isSpace(runes[i+1]) {
				segs = append(segs, segment{text: string(runes[start : i+1])})
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		segs = append(segs, segment{text: string(runes[start:])})
	}
	return segs
}

// markerFollows reports whether the segment after i already starts with
// the marker. Covers re-tagging of sentences whose marker was inserted
// after a 。 terminator and so begins the following segment.
func markerFollows(segs []segment, i int, marker string) bool {
	if i+1 >= len(segs) {
		return false
	}
	return strings.HasPrefix(strings.TrimLeft(segs[i+1].text, " "), marker)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
