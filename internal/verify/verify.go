// Package verify implements the post-generation quality gate: a style
// consistency check, a conditional full-draft rewrite, and hallucination
// detection with review-tag insertion. The gate is best-effort: model
// failures degrade to an unscored, untagged draft instead of failing the
// generation.
package verify

import (
	"context"
	"strings"

	"notedraft/internal/chains"
	"notedraft/internal/core"
	"notedraft/internal/logger"
)

// RewriteThreshold is the consistency score below which the auto rewrite
// runs. The comparison is strict: a score of exactly 0.80 passes.
const RewriteThreshold = 0.8

// StyleChecker scores a draft against the style guide.
type StyleChecker interface {
	Run(ctx context.Context, in chains.StyleCheckInput) (*core.StyleCheck, error)
}

// Rewriter rewrites a draft to match the style rulebook.
type Rewriter interface {
	Run(ctx context.Context, in chains.RewriteInput) (*chains.RewriteOutput, error)
}

// HallucinationDetector finds draft statements the material does not support.
type HallucinationDetector interface {
	Run(ctx context.Context, in chains.HallucinationInput) (*core.Verification, error)
}

// Verifier runs the quality gate over a generated draft.
type Verifier struct {
	styleCheck    StyleChecker
	rewriter      Rewriter
	hallucination HallucinationDetector
}

// New wires the quality gate over the chain catalog.
func New(c *chains.Chains) *Verifier {
	return &Verifier{
		styleCheck:    c.StyleCheck,
		rewriter:      c.Rewrite,
		hallucination: c.Hallucination,
	}
}

// Request is the generated draft content plus the grounding context the
// gate verifies against.
type Request struct {
	Titles   []string
	Lead     string
	Sections []core.DraftSection
	Closing  string

	Input   *core.ArticleInput
	Style   core.StyleFeatures
	Profile string

	AutoRewrite bool
}

// Result is the verified draft content, possibly rewritten and tagged.
type Result struct {
	Lead     string
	Sections []core.DraftSection
	Closing  string

	Check      *core.StyleCheck // nil when the style check failed
	Claims     []core.Claim
	Score      float64 // Consistency score, 0 when the check failed
	Confidence float64 // Fact-check confidence, 0 when detection failed
	Rewritten  bool
}

// Run verifies the draft. Chain failures degrade (score 0, confidence 0,
// no rewrite, no tags) unless the context itself is done.
func (v *Verifier) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{
		Lead:     req.Lead,
		Sections: append([]core.DraftSection(nil), req.Sections...),
		Closing:  req.Closing,
	}

	check, err := v.styleCheck.Run(ctx, chains.StyleCheckInput{
		Lead:    req.Lead,
		Body:    composeBody(req.Sections),
		Closing: req.Closing,
		Style:   req.Style,
		Profile: req.Profile,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.FromContext(ctx.Err())
		}
		logger.Warn("style check failed, draft stays unscored", "error", err)
	} else {
		res.Check = check
		res.Score = check.ConsistencyScore
	}

	if req.AutoRewrite && check != nil && check.ConsistencyScore < RewriteThreshold {
		v.rewrite(ctx, req, check, res)
		if ctx.Err() != nil {
			return nil, core.FromContext(ctx.Err())
		}
	}

	verification, err := v.hallucination.Run(ctx, chains.HallucinationInput{
		Lead:    res.Lead,
		Body:    composeBody(res.Sections),
		Closing: res.Closing,
		Input:   req.Input,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.FromContext(ctx.Err())
		}
		logger.Warn("hallucination detection failed, skipping review tags", "error", err)
		return res, nil
	}

	res.Claims = verification.UnverifiedClaims
	res.Confidence = verification.Confidence
	res.Lead = Tag(res.Lead, res.Claims)
	for i := range res.Sections {
		res.Sections[i].Body = Tag(res.Sections[i].Body, res.Claims)
	}
	res.Closing = Tag(res.Closing, res.Claims)
	return res, nil
}

// rewrite runs the style rewriter over the composed draft and re-parses
// the result back into the draft fields. A failed rewrite or one that
// drops every heading leaves the draft untouched.
func (v *Verifier) rewrite(ctx context.Context, req Request, check *core.StyleCheck, res *Result) {
	out, err := v.rewriter.Run(ctx, chains.RewriteInput{
		Text:    ComposeText(req.Titles, req.Lead, req.Sections, req.Closing),
		Check:   check,
		Profile: req.Profile,
	})
	if err != nil {
		logger.Warn("auto rewrite failed, keeping draft as generated", "error", err)
		return
	}

	lead, sections, ok := rewriteSkeleton(out.Text, req.Titles, req.Closing)
	if !ok {
		logger.Warn("rewrite dropped the heading skeleton, keeping draft as generated")
		return
	}
	if lead != "" {
		res.Lead = lead
	}
	res.Sections = sections
	res.Rewritten = true
	logger.Info("draft rewritten for style consistency",
		"score", check.ConsistencyScore, "changes", len(out.Changes))
}

// ComposeText renders the draft as one working text: first title, lead,
// each section as a markdown heading with its body, then the closing.
func ComposeText(titles []string, lead string, sections []core.DraftSection, closing string) string {
	return firstTitle(titles) + "\n" + lead + "\n" + composeBody(sections) + "\n" + closing
}

func composeBody(sections []core.DraftSection) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = "## " + s.Heading + "\n" + s.Body
	}
	return strings.Join(parts, "\n\n")
}

func firstTitle(titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	return titles[0]
}

// rewriteSkeleton re-parses a rewritten working text. Headings are lines
// starting with "## " or "### "; everything between two headings is the
// preceding section's body. The preamble above the first heading, minus
// the title line, is the rewritten lead. The original closing is kept, so
// a rewritten closing that survived verbatim at the end of the last body
// is stripped to avoid duplication.
func rewriteSkeleton(text string, titles []string, closing string) (string, []core.DraftSection, bool) {
	var sections []core.DraftSection
	var preamble, body []string

	flush := func() {
		if len(sections) > 0 {
			sections[len(sections)-1].Body = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if heading, ok := headingText(line); ok {
			flush()
			sections = append(sections, core.DraftSection{Heading: heading})
			continue
		}
		if len(sections) == 0 {
			preamble = append(preamble, line)
		} else {
			body = append(body, line)
		}
	}
	flush()

	if len(sections) == 0 {
		return "", nil, false
	}

	if closing = strings.TrimSpace(closing); closing != "" {
		last := &sections[len(sections)-1]
		if rest, found := strings.CutSuffix(last.Body, closing); found {
			last.Body = strings.TrimSpace(rest)
		}
	}
	return leadFromPreamble(preamble, titles), sections, true
}

func headingText(line string) (string, bool) {
	if h, ok := strings.CutPrefix(line, "## "); ok {
		return strings.TrimSpace(h), true
	}
	if h, ok := strings.CutPrefix(line, "### "); ok {
		return strings.TrimSpace(h), true
	}
	return "", false
}

// leadFromPreamble strips the composed title line and returns the rest.
// The rewrite may reword the title, so any candidate title or a line
// written as a top-level heading counts as the title line.
func leadFromPreamble(preamble, titles []string) string {
	for i, line := range preamble {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isTitleLine(trimmed, titles) {
			return strings.TrimSpace(strings.Join(preamble[i+1:], "\n"))
		}
		break
	}
	return strings.TrimSpace(strings.Join(preamble, "\n"))
}

func isTitleLine(line string, titles []string) bool {
	if strings.HasPrefix(line, "# ") {
		return true
	}
	for _, t := range titles {
		if line == strings.TrimSpace(t) {
			return true
		}
	}
	return false
}
