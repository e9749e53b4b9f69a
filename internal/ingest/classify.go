package ingest

import (
	"strings"

	"notedraft/internal/core"
)

// typeKeywords maps each category to the file and folder name fragments
// that mark it. Order matters: the first category with a hit wins.
var typeKeywords = []struct {
	category core.Category
	keywords []string
}{
	{core.CategoryAnnouncement, []string{"announce", "release", "お知らせ", "リリース", "発表", "ローンチ"}},
	{core.CategoryEventReport, []string{"event", "report", "勉強会", "イベント", "セミナー", "lt", "meetup"}},
	{core.CategoryInterview, []string{"interview", "インタビュー", "入社", "社員紹介", "転職"}},
	{core.CategoryCulture, []string{"culture", "カルチャー", "制度", "福利厚生", "働き方", "リモート"}},
}

// ClassifyName guesses the category of a document from its file and folder
// names. Matching is case-insensitive substring search; with no hit the
// fallback is CULTURE.
func ClassifyName(names ...string) core.Category {
	text := strings.ToLower(strings.Join(names, " "))
	for _, entry := range typeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return core.CategoryCulture
}
