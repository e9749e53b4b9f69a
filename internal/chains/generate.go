package chains

import (
	"context"
	"fmt"
	"strings"

	"notedraft/internal/core"
	"notedraft/internal/llm"
)

// Outline bounds. The model is asked for 2-4 sections; extras are cut,
// fewer than two is a schema violation.
const (
	minOutlineSections = 2
	maxOutlineSections = 4
)

// DefaultSectionLength is the per-section character target applied when
// the outline omits one.
const DefaultSectionLength = 300

// TitleCount is the fixed number of candidate titles per draft.
const TitleCount = 3

// OutlineInput carries everything the outline chain draws on.
type OutlineInput struct {
	Input      *core.ArticleInput
	Category   core.Category
	Style      core.StyleFeatures
	Structure  core.StructureFeatures
	Profile    string   // Style rulebook text, may be empty
	Excerpts   []string // Style exemplar passages, may be empty
	References []string // Retrieved article bodies, may be empty
}

// OutlineChain plans the article skeleton.
type OutlineChain struct {
	gw Gateway
}

// Run generates the outline and normalizes it: 2-4 sections, valid
// heading levels, positive length targets.
func (c *OutlineChain) Run(ctx context.Context, in OutlineInput) (*core.Outline, error) {
	var outline core.Outline
	req := llm.ChatRequest{
		Tier:        llm.TierHigh,
		Temperature: 0.5,
		System:      BuildOutlineSystem(in),
		Prompt:      outlineUserPrompt,
		Schema:      CreateOutlineSchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &outline); err != nil {
		return nil, fmt.Errorf("failed to generate outline: %w", err)
	}

	if len(outline.Sections) < minOutlineSections {
		return nil, fmt.Errorf("%w: outline has %d sections, need at least %d",
			core.ErrSchema, len(outline.Sections), minOutlineSections)
	}
	if len(outline.Sections) > maxOutlineSections {
		outline.Sections = outline.Sections[:maxOutlineSections]
	}
	for i := range outline.Sections {
		s := &outline.Sections[i]
		if s.Level != "H2" && s.Level != "H3" {
			s.Level = "H2"
		}
		if s.TargetLength <= 0 {
			s.TargetLength = DefaultSectionLength
		}
	}
	if outline.TotalTargetLength <= 0 {
		for _, s := range outline.Sections {
			outline.TotalTargetLength += s.TargetLength
		}
	}
	return &outline, nil
}

// TitleInput carries the context for title generation.
type TitleInput struct {
	Input    *core.ArticleInput
	Category core.Category
	Outline  *core.Outline
	Profile  string
}

// TitleChain drafts exactly three candidate titles.
type TitleChain struct {
	gw Gateway
}

// Run generates the title candidates. Short responses are padded with the
// theme, long ones cut, so callers always get exactly three.
func (c *TitleChain) Run(ctx context.Context, in TitleInput) ([]string, error) {
	var resp struct {
		Titles []string `json:"titles"`
	}
	req := llm.ChatRequest{
		Tier:        llm.TierHigh,
		Temperature: 0.7,
		System:      BuildTitleSystem(in),
		Prompt:      titleUserPrompt,
		Schema:      CreateTitlesSchema(),
	}
	if err := c.gw.ChatJSON(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to generate titles: %w", err)
	}

	titles := make([]string, 0, TitleCount)
	for _, t := range resp.Titles {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: model returned no usable titles", core.ErrSchema)
	}
	for len(titles) < TitleCount {
		titles = append(titles, in.Input.Theme)
	}
	return titles[:TitleCount], nil
}

// LeadInput carries the context for lead generation.
type LeadInput struct {
	Input     *core.ArticleInput
	Category  core.Category
	Outline   *core.Outline
	Style     core.StyleFeatures
	Structure core.StructureFeatures
	Profile   string
	Excerpts  []string
}

// LeadChain writes the opening paragraph.
type LeadChain struct {
	gw Gateway
}

// Run generates the lead as plain text.
func (c *LeadChain) Run(ctx context.Context, in LeadInput) (string, error) {
	req := llm.ChatRequest{
		Tier:        llm.TierHigh,
		Temperature: 0.5,
		System:      BuildLeadSystem(in),
		Prompt:      leadUserPrompt,
	}
	text, err := c.gw.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate lead: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// SectionInput carries one outline section and its grounding material.
type SectionInput struct {
	Section    core.OutlineSection
	Input      *core.ArticleInput
	Category   core.Category
	Style      core.StyleFeatures
	Profile    string
	References []string
}

// SectionChain writes the body of one outline section.
type SectionChain struct {
	gw Gateway
}

// Run generates the section body as plain text, paired with its heading.
func (c *SectionChain) Run(ctx context.Context, in SectionInput) (*core.DraftSection, error) {
	req := llm.ChatRequest{
		Tier:        llm.TierHigh,
		Temperature: 0.5,
		System:      BuildSectionSystem(in),
		Prompt:      sectionUserPrompt,
	}
	text, err := c.gw.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate section %q: %w", in.Section.Title, err)
	}
	return &core.DraftSection{
		Heading: in.Section.Title,
		Body:    strings.TrimSpace(text),
	}, nil
}

// ClosingInput carries the context for closing generation.
type ClosingInput struct {
	Input     *core.ArticleInput
	Category  core.Category
	Style     core.StyleFeatures
	Structure core.StructureFeatures
	Profile   string
}

// ClosingChain writes the closing paragraph with its call to action.
type ClosingChain struct {
	gw Gateway
}

// Run generates the closing as plain text.
func (c *ClosingChain) Run(ctx context.Context, in ClosingInput) (string, error) {
	req := llm.ChatRequest{
		Tier:        llm.TierHigh,
		Temperature: 0.5,
		System:      BuildClosingSystem(in),
		Prompt:      closingUserPrompt,
	}
	text, err := c.gw.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate closing: %w", err)
	}
	return strings.TrimSpace(text), nil
}
