package ingest

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkerShortTextSingleChunk(t *testing.T) {
	c := NewChunker(1000, 200)

	chunks := c.Split("こんにちは。世界へようこそ。")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "こんにちは。世界へようこそ。" {
		t.Errorf("chunk altered the text: %q", chunks[0])
	}
}

func TestChunkerBlankInput(t *testing.T) {
	c := NewChunker(1000, 200)

	for _, text := range []string{"", "   ", "\n\n\t"} {
		if chunks := c.Split(text); chunks != nil {
			t.Errorf("Split(%q) = %v, expected nil", text, chunks)
		}
	}
}

func TestChunkerParagraphBoundaries(t *testing.T) {
	c := NewChunker(12, 0)

	chunks := c.Split("para one\n\npara two\n\npara three")
	expected := []string{"para one", "para two", "para three"}
	if !reflect.DeepEqual(chunks, expected) {
		t.Errorf("expected %v, got %v", expected, chunks)
	}
}

func TestChunkerJapaneseSentenceBoundaries(t *testing.T) {
	c := NewChunker(10, 0)

	chunks := c.Split("今日は晴れです。明日は雨です。")
	expected := []string{"今日は晴れです。", "明日は雨です。"}
	if !reflect.DeepEqual(chunks, expected) {
		t.Errorf("expected %v, got %v", expected, chunks)
	}
}

func TestChunkerOverlapCarriesTail(t *testing.T) {
	c := NewChunker(10, 5)

	chunks := c.Split("ab cd ef gh ij kl")
	expected := []string{"ab cd ef", "ef gh ij", "ij kl"}
	if !reflect.DeepEqual(chunks, expected) {
		t.Errorf("expected %v, got %v", expected, chunks)
	}
}

func TestChunkerSizeLimitWithoutSeparators(t *testing.T) {
	c := NewChunker(10, 2)

	chunks := c.Split(strings.Repeat("あ", 25))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > 10 {
			t.Errorf("chunk %d has %d runes, limit is 10", i, n)
		}
	}
}

func TestChunkerSizeLimitHolds(t *testing.T) {
	c := NewChunker(50, 10)

	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("これはテスト用の文章です。")
		if i%3 == 2 {
			b.WriteString("\n\n")
		}
	}
	for i, chunk := range c.Split(b.String()) {
		if n := utf8.RuneCountInString(chunk); n > 50 {
			t.Errorf("chunk %d has %d runes, limit is 50", i, n)
		}
		if chunk != strings.TrimSpace(chunk) {
			t.Errorf("chunk %d has surrounding whitespace: %q", i, chunk)
		}
	}
}

func TestChunkerDefaults(t *testing.T) {
	c := NewChunker(0, -1)
	if c.size != 1000 {
		t.Errorf("expected default size 1000, got %d", c.size)
	}
	if c.overlap != 200 {
		t.Errorf("expected default overlap 200, got %d", c.overlap)
	}
}
