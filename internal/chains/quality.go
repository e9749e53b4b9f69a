package chains

import (
	"context"
	"fmt"
	"strings"

	"notedraft/internal/core"
	"notedraft/internal/llm"
)

// StyleCheckInput is the draft text to verify against the style guide.
type StyleCheckInput struct {
	Lead    string
	Body    string
	Closing string
	Style   core.StyleFeatures
	Profile string
}

// StyleCheckChain scores how well a draft follows the style guide.
type StyleCheckChain struct {
	gw Gateway
}

// Run verifies style consistency and returns the scored verdict.
func (c *StyleCheckChain) Run(ctx context.Context, in StyleCheckInput) (*core.StyleCheck, error) {
	var check core.StyleCheck
	req := llm.ChatRequest{
		Tier:        llm.TierLite,
		Temperature: 0.1,
		System:      BuildStyleCheckSystem(in),
		Prompt:      BuildStyleCheckPrompt(in),
		Schema:      CreateStyleCheckSchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &check); err != nil {
		return nil, fmt.Errorf("failed to check style consistency: %w", err)
	}
	check.ConsistencyScore = clamp01(check.ConsistencyScore)
	return &check, nil
}

// RewriteInput is the composed draft text plus the style verdict that
// triggered the rewrite.
type RewriteInput struct {
	Text    string
	Check   *core.StyleCheck
	Profile string
}

// RewriteOutput is the rewritten draft and the changes the model reports.
type RewriteOutput struct {
	Text    string   `json:"rewritten_text"`
	Changes []string `json:"changes_made"`
}

// RewriteChain rewrites a draft to match the style rulebook while
// preserving facts and heading structure.
type RewriteChain struct {
	gw Gateway
}

// Run rewrites the draft text.
func (c *RewriteChain) Run(ctx context.Context, in RewriteInput) (*RewriteOutput, error) {
	var out RewriteOutput
	req := llm.ChatRequest{
		Tier:        llm.TierHigh,
		Temperature: 0.5,
		System:      BuildRewriteSystem(in),
		Prompt:      BuildRewritePrompt(in),
		Schema:      CreateRewriteSchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("failed to rewrite draft: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return nil, fmt.Errorf("%w: model returned an empty rewrite", core.ErrSchema)
	}
	return &out, nil
}

// HallucinationInput is the draft text plus the brief that grounds it.
type HallucinationInput struct {
	Lead    string
	Body    string
	Closing string
	Input   *core.ArticleInput
}

// HallucinationChain finds draft statements the input material does not support.
type HallucinationChain struct {
	gw Gateway
}

// Run detects unverifiable claims in the draft.
func (c *HallucinationChain) Run(ctx context.Context, in HallucinationInput) (*core.Verification, error) {
	var verification core.Verification
	req := llm.ChatRequest{
		Tier:        llm.TierLite,
		Temperature: 0,
		System:      BuildHallucinationSystem(in),
		Prompt:      BuildHallucinationPrompt(in),
		Schema:      CreateHallucinationSchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &verification); err != nil {
		return nil, fmt.Errorf("failed to detect hallucinations: %w", err)
	}
	verification.Confidence = clamp01(verification.Confidence)
	return &verification, nil
}
