package verify

import (
	"strings"
	"testing"

	"notedraft/internal/core"
)

func TestTagAfterJapaneseSentence(t *testing.T) {
	text := "当社は2019年に創業しました。現在は50名のチームです。"
	claims := []core.Claim{{Claim: "2019年に創業", SuggestedTag: "創業年"}}

	got := Tag(text, claims)
	want := "当社は2019年に創業しました。 [要確認: 創業年]現在は50名のチームです。"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTagEveryOccurrence(t *testing.T) {
	text := "創業は2019年です。繰り返しますが、創業は2019年です。"
	claims := []core.Claim{{Claim: "創業は2019年", SuggestedTag: "創業年"}}

	got := Tag(text, claims)
	if n := strings.Count(got, "[要確認: 創業年]"); n != 2 {
		t.Errorf("expected both occurrences tagged, got %d in %q", n, got)
	}
}

func TestTagIdempotent(t *testing.T) {
	texts := []string{
		"当社は2019年に創業しました。次の文です。",
		"当社は2019年に創業しました\n次の行です",
		"Founded in 2019. Next sentence.",
	}
	claims := []core.Claim{{Claim: "2019", SuggestedTag: "創業年"}}

	for _, text := range texts {
		once := Tag(text, claims)
		twice := Tag(once, claims)
		if once != twice {
			t.Errorf("tagging is not idempotent for %q:\nonce:  %q\ntwice: %q", text, once, twice)
		}
		if n := strings.Count(twice, "[要確認: 創業年]"); n != 1 {
			t.Errorf("expected exactly one marker for %q, got %d", text, n)
		}
	}
}

func TestTagNewlineBoundary(t *testing.T) {
	text := "2019年に創業\n次の行"
	claims := []core.Claim{{Claim: "2019年に創業", SuggestedTag: "創業年"}}

	got := Tag(text, claims)
	want := "2019年に創業 [要確認: 創業年]\n次の行"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTagEnglishPeriod(t *testing.T) {
	text := "We launched in 2019. The team grew fast."
	claims := []core.Claim{{Claim: "launched in 2019", SuggestedTag: "launch year"}}

	got := Tag(text, claims)
	want := "We launched in 2019. [要確認: launch year] The team grew fast."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTagDecimalNotABoundary(t *testing.T) {
	text := "売上は1.5倍になりました。"
	claims := []core.Claim{{Claim: "1.5倍", SuggestedTag: "売上"}}

	got := Tag(text, claims)
	want := "売上は1.5倍になりました。 [要確認: 売上]"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTagSkipsBlankClaims(t *testing.T) {
	text := "本文です。"
	claims := []core.Claim{
		{Claim: "  ", SuggestedTag: "タグ"},
		{Claim: "本文", SuggestedTag: " "},
	}
	if got := Tag(text, claims); got != text {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestTagMissingClaimLeavesText(t *testing.T) {
	text := "関係のない文です。"
	claims := []core.Claim{{Claim: "2019年", SuggestedTag: "創業年"}}
	if got := Tag(text, claims); got != text {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestSplitSentencesRoundTrip(t *testing.T) {
	texts := []string{
		"一文目。二文目。",
		"行1\n\n行2\n",
		"Mixed. 日本語。\nLast line",
		"",
		"終端なし",
	}
	for _, text := range texts {
		var b strings.Builder
		for _, seg := range splitSentences(text) {
			b.WriteString(seg.text)
			b.WriteString(seg.sep)
		}
		if b.String() != text {
			t.Errorf("round trip broke %q into %q", text, b.String())
		}
	}
}

func TestCountTags(t *testing.T) {
	lead := "リード [要確認: A] です。"
	body := "本文 [要確認: B] と [要確認: C]。"
	if got := CountTags(lead, body, "締め"); got != 3 {
		t.Errorf("expected 3 tags, got %d", got)
	}
	if got := CountTags(); got != 0 {
		t.Errorf("expected 0 tags for no parts, got %d", got)
	}
}
