package chains

import (
	"context"
	"fmt"
	"strings"

	"notedraft/internal/core"
	"notedraft/internal/llm"
)

// ParseChain turns raw input material into a structured brief.
type ParseChain struct {
	gw Gateway
}

// Run extracts the structured brief from raw material. The material is
// carried through verbatim on the result, and a missing desired length
// falls back to the default.
func (c *ParseChain) Run(ctx context.Context, material string) (*core.ArticleInput, error) {
	if strings.TrimSpace(material) == "" {
		return nil, fmt.Errorf("input material is empty")
	}

	var in core.ArticleInput
	req := llm.ChatRequest{
		Tier:        llm.TierLite,
		Temperature: 0.2,
		System:      parseSystemPrompt,
		Prompt:      BuildParsePrompt(material),
		Schema:      CreateParseSchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &in); err != nil {
		return nil, fmt.Errorf("failed to parse input material: %w", err)
	}

	in.Material = material
	if in.DesiredLength <= 0 {
		in.DesiredLength = DefaultDesiredLength
	}
	return &in, nil
}

// ClassifyChain decides which of the four categories the material calls for.
type ClassifyChain struct {
	gw Gateway
}

type classifyResponse struct {
	ArticleType       string   `json:"article_type"`
	Confidence        float64  `json:"confidence"`
	Reason            string   `json:"reason"`
	SuggestedHeadings []string `json:"suggested_headings"`
}

// Run classifies the structured brief into one of the four categories.
func (c *ClassifyChain) Run(ctx context.Context, in *core.ArticleInput) (*core.Classification, error) {
	var resp classifyResponse
	req := llm.ChatRequest{
		Tier:        llm.TierLite,
		Temperature: 0.1,
		System:      classifySystemPrompt,
		Prompt:      BuildClassifyPrompt(in),
		Schema:      CreateClassifySchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to classify material: %w", err)
	}

	category, ok := core.ParseCategory(resp.ArticleType)
	if !ok {
		return nil, fmt.Errorf("%w: model returned unknown category %q", core.ErrSchema, resp.ArticleType)
	}
	return &core.Classification{
		Category:          category,
		Confidence:        clamp01(resp.Confidence),
		Reason:            resp.Reason,
		SuggestedHeadings: resp.SuggestedHeadings,
	}, nil
}

// QueryGenChain produces category-optimized search queries, one per line
// of model output.
type QueryGenChain struct {
	gw Gateway
}

// Query-set bounds. Fewer than minQueries usable lines triggers the
// keyword fallback; lines beyond maxQueries are dropped.
const (
	minQueries = 3
	maxQueries = 5
)

// Run generates search queries for the category. Unusable model output
// degrades to a single fallback query instead of failing the pipeline.
func (c *QueryGenChain) Run(ctx context.Context, in *core.ArticleInput, category core.Category) (*core.QuerySet, error) {
	req := llm.ChatRequest{
		Tier:        llm.TierLite,
		Temperature: 0.3,
		System:      BuildQueryGenSystem(in, category),
		Prompt:      queryGenUserPrompt,
	}
	text, err := c.gw.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate search queries: %w", err)
	}

	queries := parseQueries(text)
	if len(queries) < minQueries {
		queries = []string{FallbackQuery(in)}
	}
	return &core.QuerySet{Queries: queries}, nil
}

// FallbackQuery is the single query used when query generation is
// disabled or its output is unusable: the whitespace-joined keywords, or
// the theme when the brief has no keywords.
func FallbackQuery(in *core.ArticleInput) string {
	if q := strings.TrimSpace(strings.Join(in.Keywords, " ")); q != "" {
		return q
	}
	return in.Theme
}

func parseQueries(text string) []string {
	var queries []string
	for _, line := range strings.Split(text, "\n") {
		q := cleanQuery(line)
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) == maxQueries {
			break
		}
	}
	return queries
}

// cleanQuery strips assistant framing from one output line: list markers,
// labels like "検索クエリ:" and surrounding quote characters.
func cleanQuery(raw string) string {
	cleaned := trimListMarker(strings.TrimSpace(raw))
	for _, prefix := range []string{"search_query:", "クエリ:", "検索クエリ:", `"`, "'"} {
		if len(cleaned) >= len(prefix) && strings.EqualFold(cleaned[:len(prefix)], prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
		}
	}
	return strings.Trim(cleaned, `"'`)
}

// trimListMarker drops a leading bullet or "1. " style numbering. Bare
// digits stay untouched so queries like "2024年度 採用" survive.
func trimListMarker(s string) string {
	if t, ok := strings.CutPrefix(s, "- "); ok {
		return strings.TrimSpace(t)
	}
	if t, ok := strings.CutPrefix(s, "・"); ok {
		return strings.TrimSpace(t)
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(s) && (s[i] == '.' || s[i] == ')') && s[i+1] == ' ' {
		return strings.TrimSpace(s[i+2:])
	}
	return s
}
