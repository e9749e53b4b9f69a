package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// supportedExtensions are the file types the ingester accepts.
var supportedExtensions = map[string]bool{
	".md":    true,
	".txt":   true,
	".jsonl": true,
	".html":  true,
	".htm":   true,
}

// SupportedFile reports whether path has an ingestable extension.
func SupportedFile(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// LoadFile reads path and returns its chunk texts. Markdown, plain text and
// HTML go through the chunker; JSONL treats every line as one pre-made chunk.
func (in *Ingester) LoadFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return splitJSONL(string(raw)), nil
	case ".html", ".htm":
		text, err := extractHTML(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return in.chunker.Split(text), nil
	case ".md", ".txt":
		return in.chunker.Split(string(raw)), nil
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}

// splitJSONL parses one document per line. Objects yield their first
// non-empty text, content or body field; anything else keeps the raw line.
func splitJSONL(content string) []string {
	var chunks []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			chunks = append(chunks, line)
			continue
		}
		text := ""
		for _, field := range []string{"text", "content", "body"} {
			if v, ok := obj[field].(string); ok && v != "" {
				text = v
				break
			}
		}
		if text == "" {
			text = line
		}
		chunks = append(chunks, text)
	}
	return chunks
}

// extractHTML strips boilerplate elements and returns the visible body text
// with block elements separated by blank lines.
func extractHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, header, footer, aside, noscript, iframe").Remove()

	var b strings.Builder
	doc.Find("body").Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})
	if b.Len() == 0 {
		// No block markup; fall back to the whole body text.
		return strings.TrimSpace(doc.Find("body").Text()), nil
	}
	return strings.TrimSpace(b.String()), nil
}
