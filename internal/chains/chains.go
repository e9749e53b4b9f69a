// Package chains implements the prompt chains behind article generation:
// input parsing, category classification, search-query generation, style
// and structure analysis, outline and content generation, and the
// verification chains used by the quality gate.
//
// Each chain is a small struct holding the model gateway, with a single
// Run method that builds its prompt, calls the gateway at the chain's
// tier and temperature, and decodes the response into a typed result.
package chains

import (
	"context"

	"notedraft/internal/core"
	"notedraft/internal/llm"
)

// Gateway is the subset of the model gateway the chains depend on.
type Gateway interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
	ChatJSON(ctx context.Context, req llm.ChatRequest, out any) error
}

// Fallbacks applied at prompt-build time when the parsed input leaves
// audience or goal empty.
const (
	DefaultAudience = "転職を検討しているエンジニア"
	DefaultGoal     = "採用広報、企業文化の紹介"
)

// DefaultDesiredLength is the target body length in characters when the
// input material does not specify one.
const DefaultDesiredLength = 2000

// Chains bundles one instance of every chain over a shared gateway.
type Chains struct {
	Parse            *ParseChain
	Classify         *ClassifyChain
	QueryGen         *QueryGenChain
	StyleAnalyze     *StyleAnalyzeChain
	StructureAnalyze *StructureAnalyzeChain
	Outline          *OutlineChain
	Title            *TitleChain
	Lead             *LeadChain
	Section          *SectionChain
	Closing          *ClosingChain
	StyleCheck       *StyleCheckChain
	Rewrite          *RewriteChain
	Hallucination    *HallucinationChain
}

// New builds the full chain set over the gateway.
func New(gw Gateway) *Chains {
	return &Chains{
		Parse:            &ParseChain{gw: gw},
		Classify:         &ClassifyChain{gw: gw},
		QueryGen:         &QueryGenChain{gw: gw},
		StyleAnalyze:     &StyleAnalyzeChain{gw: gw},
		StructureAnalyze: &StructureAnalyzeChain{gw: gw},
		Outline:          &OutlineChain{gw: gw},
		Title:            &TitleChain{gw: gw},
		Lead:             &LeadChain{gw: gw},
		Section:          &SectionChain{gw: gw},
		Closing:          &ClosingChain{gw: gw},
		StyleCheck:       &StyleCheckChain{gw: gw},
		Rewrite:          &RewriteChain{gw: gw},
		Hallucination:    &HallucinationChain{gw: gw},
	}
}

// DefaultStyleFeatures is the style guide used when no reference
// articles are available to analyze.
func DefaultStyleFeatures() core.StyleFeatures {
	return core.StyleFeatures{
		SentenceEndings: []string{"です", "ます"},
		Tone:            "フォーマル",
		FirstPerson:     "私",
	}
}

// DefaultStructureFeatures is the structure guide used when no reference
// articles are available to analyze.
func DefaultStructureFeatures() core.StructureFeatures {
	return core.StructureFeatures{
		HeadingPatterns: []string{"はじめに", "本題", "まとめ"},
		LeadPatterns:    []string{"テーマの紹介から始める"},
		ClosingPatterns: []string{"CTAで締める"},
	}
}

// clamp01 bounds a model-reported score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
