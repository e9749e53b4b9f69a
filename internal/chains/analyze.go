package chains

import (
	"context"
	"fmt"

	"notedraft/internal/core"
	"notedraft/internal/llm"
)

// StyleAnalyzeChain extracts the writing style of reference articles.
type StyleAnalyzeChain struct {
	gw Gateway
}

// Run analyzes reference article bodies for the category's writing style.
// With no references it returns the default style guide without a model call.
func (c *StyleAnalyzeChain) Run(ctx context.Context, category core.Category, references []string) (*core.StyleFeatures, error) {
	if len(references) == 0 {
		features := DefaultStyleFeatures()
		return &features, nil
	}

	var features core.StyleFeatures
	req := llm.ChatRequest{
		Tier:        llm.TierLite,
		Temperature: 0.3,
		System:      BuildStyleAnalysisSystem(category),
		Prompt:      BuildStyleAnalysisPrompt(references),
		Schema:      CreateStyleAnalysisSchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &features); err != nil {
		return nil, fmt.Errorf("failed to analyze writing style: %w", err)
	}
	return &features, nil
}

// StructureAnalyzeChain extracts the composition patterns of reference articles.
type StructureAnalyzeChain struct {
	gw Gateway
}

// Run analyzes reference article bodies for heading, lead and closing
// patterns. With no references it returns the default structure guide
// without a model call.
func (c *StructureAnalyzeChain) Run(ctx context.Context, category core.Category, references []string) (*core.StructureFeatures, error) {
	if len(references) == 0 {
		features := DefaultStructureFeatures()
		return &features, nil
	}

	var features core.StructureFeatures
	req := llm.ChatRequest{
		Tier:        llm.TierLite,
		Temperature: 0.3,
		System:      BuildStructureAnalysisSystem(category),
		Prompt:      BuildStructureAnalysisPrompt(references),
		Schema:      CreateStructureAnalysisSchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &features); err != nil {
		return nil, fmt.Errorf("failed to analyze article structure: %w", err)
	}
	return &features, nil
}
