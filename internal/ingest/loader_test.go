package ingest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestSupportedFile(t *testing.T) {
	for _, path := range []string{"a.md", "b.TXT", "c.jsonl", "d.html", "e.htm"} {
		if !SupportedFile(path) {
			t.Errorf("expected %s to be supported", path)
		}
	}
	for _, path := range []string{"a.pdf", "b.docx", "c", "d.json"} {
		if SupportedFile(path) {
			t.Errorf("expected %s to be unsupported", path)
		}
	}
}

func TestLoadFileMarkdown(t *testing.T) {
	in := New(nil, nil, Options{})
	path := writeTestFile(t, t.TempDir(), "sample.md", "# 見出し\n\n本文です。\n")

	chunks, err := in.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "# 見出し\n\n本文です。" {
		t.Errorf("unexpected chunk: %q", chunks[0])
	}
}

func TestLoadFileJSONLFieldFallback(t *testing.T) {
	in := New(nil, nil, Options{})
	content := strings.Join([]string{
		`{"text":"テキスト欄"}`,
		`{"content":"コンテンツ欄"}`,
		`{"body":"本文欄","content":""}`,
		`{"meta":42}`,
		`プレーンな行`,
		``,
	}, "\n")
	path := writeTestFile(t, t.TempDir(), "docs.jsonl", content)

	chunks, err := in.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	expected := []string{
		"テキスト欄",
		"コンテンツ欄",
		"本文欄",
		`{"meta":42}`,
		"プレーンな行",
	}
	if !reflect.DeepEqual(chunks, expected) {
		t.Errorf("expected %v, got %v", expected, chunks)
	}
}

func TestLoadFileHTMLStripsBoilerplate(t *testing.T) {
	in := New(nil, nil, Options{})
	html := `<html><head><title>ページ</title><style>p{color:red}</style></head>
<body>
<nav>メニュー</nav>
<h1>記事の見出し</h1>
<p>最初の段落です。</p>
<script>var tracking = true;</script>
<p>二つ目の段落です。</p>
<footer>フッターの文言</footer>
</body></html>`
	path := writeTestFile(t, t.TempDir(), "page.html", html)

	chunks, err := in.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
	text := chunks[0]
	for _, want := range []string{"記事の見出し", "最初の段落です。", "二つ目の段落です。"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected extracted text to contain %q, got %q", want, text)
		}
	}
	for _, unwanted := range []string{"メニュー", "tracking", "フッターの文言", "color:red"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("expected boilerplate %q to be removed, got %q", unwanted, text)
		}
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	in := New(nil, nil, Options{})
	path := writeTestFile(t, t.TempDir(), "report.pdf", "binary")

	if _, err := in.LoadFile(path); err == nil {
		t.Fatal("expected an error for unsupported file type")
	} else if !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	in := New(nil, nil, Options{})
	if _, err := in.LoadFile(filepath.Join(t.TempDir(), "nope.md")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
