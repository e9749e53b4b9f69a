// Package render assembles the final draft: it recomputes the derived
// length and tag counts and renders the markdown document with the
// metadata footer. The footer layout is an external contract consumed by
// downstream editors, so its format is fixed.
package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"notedraft/internal/core"
	"notedraft/internal/verify"
)

// Assemble recomputes the draft's derived fields and renders its markdown.
func Assemble(draft *core.ArticleDraft) {
	draft.ActualLength = bodyLength(draft)
	draft.TagCount = verify.CountTags(bodyParts(draft)...)
	draft.Markdown = RenderArticle(draft)
}

// RenderArticle renders the draft as a markdown document: main title,
// the three title candidates, lead, sections, closing, metadata footer.
// Derived fields are rendered as stored; call Assemble to refresh them.
func RenderArticle(draft *core.ArticleDraft) string {
	var b strings.Builder
	if len(draft.Titles) > 0 {
		b.WriteString("# ")
		b.WriteString(draft.Titles[0])
		b.WriteString("\n\n仮タイトル案:\n")
		for i, t := range draft.Titles {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, t))
		}
		b.WriteString("\n")
	}
	b.WriteString(draft.Lead)
	b.WriteString("\n\n")
	for _, s := range draft.Sections {
		b.WriteString("## ")
		b.WriteString(s.Heading)
		b.WriteString("\n")
		b.WriteString(s.Body)
		b.WriteString("\n\n")
	}
	b.WriteString(draft.Closing)
	b.WriteString("\n")
	writeFooter(&b, draft)
	return b.String()
}

func writeFooter(b *strings.Builder, draft *core.ArticleDraft) {
	b.WriteString("\n---\n\n")
	b.WriteString("### メタ情報\n")
	b.WriteString(fmt.Sprintf("- 記事カテゴリ: %s\n", draft.Category.Label()))
	b.WriteString(fmt.Sprintf("- テーマ: %s\n", draft.Theme))
	b.WriteString(fmt.Sprintf("- 総文字数: 約%d字（目標: %d字）\n", draft.ActualLength, draft.DesiredLength))
	b.WriteString(fmt.Sprintf("- [要確認]タグ: %d箇所\n", draft.TagCount))
	b.WriteString(fmt.Sprintf("- 文体一貫性スコア: %d%%\n", percent(draft.ConsistencyScore)))
	b.WriteString(fmt.Sprintf("- 事実検証信頼度: %d%%\n", percent(draft.Confidence)))
	b.WriteString("\n### 次のステップ\n")
	b.WriteString("1. [要確認] タグがある箇所は事実確認してください\n")
	b.WriteString("2. タイトルは3案から選択または調整してください\n")
	b.WriteString("3. 必要に応じて文章を微調整してください\n")
}

// WriteDraftToFile writes rendered markdown under outputDir and returns
// the file path. The directory is created when missing.
func WriteDraftToFile(markdown, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "drafts"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)
	if err := os.WriteFile(filePath, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("failed to write draft file %s: %w", filePath, err)
	}
	return filePath, nil
}

// bodyLength is the rune count of the reader-facing text: lead, section
// bodies and closing. Headings, titles and the footer do not count.
func bodyLength(draft *core.ArticleDraft) int {
	n := utf8.RuneCountInString(draft.Lead) + utf8.RuneCountInString(draft.Closing)
	for _, s := range draft.Sections {
		n += utf8.RuneCountInString(s.Body)
	}
	return n
}

func bodyParts(draft *core.ArticleDraft) []string {
	parts := make([]string, 0, len(draft.Sections)+2)
	parts = append(parts, draft.Lead)
	for _, s := range draft.Sections {
		parts = append(parts, s.Body)
	}
	return append(parts, draft.Closing)
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
