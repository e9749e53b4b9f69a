// Package pipeline orchestrates the nine-stage article generation workflow:
// parse, classify, query generation, retrieval, analysis, outline, contents,
// quality and assembly.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"notedraft/internal/chains"
	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/render"
	"notedraft/internal/search"
	"notedraft/internal/verify"
)

const (
	// DefaultMaxParallelSections caps concurrent section drafting.
	DefaultMaxParallelSections = 4
	// DefaultRequestTimeout bounds one generation request end to end.
	DefaultRequestTimeout = 10 * time.Minute

	// retrieveTaskTimeout bounds each task of the retrieve fan-out.
	retrieveTaskTimeout = 60 * time.Second

	// classifierOverrideConfidence is the confidence at which the classifier
	// overrides a category stated in the input material.
	classifierOverrideConfidence = 0.5
)

// Stage describes one pipeline stage as reported in progress events.
type Stage struct {
	Step       string // Stage identifier carried in progress events
	Percentage int    // Fixed percentage emitted on stage entry
	Label      string // Japanese display label
}

var (
	stageParse    = Stage{"input_parse", 10, "入力解析"}
	stageClassify = Stage{"classify", 20, "記事タイプ判定"}
	stageQueryGen = Stage{"query_gen", 30, "検索クエリ生成"}
	stageRetrieve = Stage{"retrieve", 45, "参考記事検索"}
	stageAnalyze  = Stage{"analyze", 55, "スタイル・構成分析"}
	stageOutline  = Stage{"outline", 65, "アウトライン生成"}
	stageContents = Stage{"contents", 85, "コンテンツ生成"}
	stageQuality  = Stage{"quality", 95, "品質チェック"}
	stageAssemble = Stage{"assemble", 100, "記事組み立て"}
)

var stages = []Stage{
	stageParse, stageClassify, stageQueryGen, stageRetrieve, stageAnalyze,
	stageOutline, stageContents, stageQuality, stageAssemble,
}

// Stages returns the nine pipeline stages in execution order.
func Stages() []Stage {
	return append([]Stage(nil), stages...)
}

// Options holds the generation flags and limits for a pipeline instance.
type Options struct {
	UseQueryGenerator   bool           // Off: the search query is the joined keywords
	UseStyleProfileKB   bool           // Off: profile and excerpt lookups are skipped
	UseAutoRewrite      bool           // Off: the quality gate never rewrites
	MaxParallelSections int            // Concurrent section subtasks, default 4
	RequestTimeout      time.Duration  // Whole-request deadline, default 10m
	ExcerptTopK         int            // Style excerpts fetched per request
	Search              search.Options // Retrieval tuning; Category is set per request
}

// DefaultOptions returns the default generation behaviour with every
// feature flag on.
func DefaultOptions() Options {
	return Options{
		UseQueryGenerator:   true,
		UseStyleProfileKB:   true,
		UseAutoRewrite:      true,
		MaxParallelSections: DefaultMaxParallelSections,
		RequestTimeout:      DefaultRequestTimeout,
		ExcerptTopK:         search.DefaultExcerptTopK,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxParallelSections <= 0 {
		o.MaxParallelSections = DefaultMaxParallelSections
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.ExcerptTopK <= 0 {
		o.ExcerptTopK = search.DefaultExcerptTopK
	}
	return o
}

// GenerateRequest is one draft generation request.
type GenerateRequest struct {
	Material      string        // Raw input material
	Category      core.Category // Requested category, "" for automatic classification
	Theme         string        // Theme override, "" keeps the parsed theme
	DesiredLength int           // Target body length override, 0 keeps the parsed value
}

// RetrievalBundle is everything the retrieve fan-out collects for a request.
type RetrievalBundle struct {
	References []core.ScoredDocument // Fused content passages, best first
	Profile    string                // Style rulebook body, "" when absent
	Excerpts   []string              // Style exemplar passages for the theme
}

// ReferenceBodies returns the retrieved passage texts in rank order.
func (b *RetrievalBundle) ReferenceBodies() []string {
	bodies := make([]string, len(b.References))
	for i, ref := range b.References {
		bodies[i] = ref.Body
	}
	return bodies
}

// Pipeline drives the staged generation workflow for one request at a time.
// A single Pipeline is safe for concurrent use; per-request state lives on
// the stack of Generate.
type Pipeline struct {
	parse            BriefParser
	classify         CategoryClassifier
	queryGen         QueryGenerator
	searcher         ReferenceSearcher
	styles           StyleSource
	styleAnalyze     StyleAnalyzer
	structureAnalyze StructureAnalyzer
	outline          OutlinePlanner
	title            TitleWriter
	lead             LeadWriter
	section          SectionWriter
	closing          ClosingWriter
	gate             QualityGate
	store            DraftStore

	opts Options
}

// New wires a pipeline from the chain catalog and its collaborators.
// store may be nil to disable history persistence.
func New(catalog *chains.Chains, searcher ReferenceSearcher, styles StyleSource, gate QualityGate, store DraftStore, opts Options) *Pipeline {
	return &Pipeline{
		parse:            catalog.Parse,
		classify:         catalog.Classify,
		queryGen:         catalog.QueryGen,
		searcher:         searcher,
		styles:           styles,
		styleAnalyze:     catalog.StyleAnalyze,
		structureAnalyze: catalog.StructureAnalyze,
		outline:          catalog.Outline,
		title:            catalog.Title,
		lead:             catalog.Lead,
		section:          catalog.Section,
		closing:          catalog.Closing,
		gate:             gate,
		store:            store,
		opts:             opts.withDefaults(),
	}
}

// Generate runs the full pipeline over the request material and returns the
// assembled draft. Stage entry is reported on the progress channel when one
// is supplied; the channel is never closed by Generate. Cancellation of ctx
// aborts between and inside stages with core.ErrCancelled.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest, progress chan<- core.Progress) (*core.ArticleDraft, error) {
	if strings.TrimSpace(req.Material) == "" {
		return nil, fmt.Errorf("input material is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	defer cancel()

	started := time.Now()

	// Stage 1: parse the material into a structured brief.
	if err := p.enter(ctx, progress, stageParse); err != nil {
		return nil, err
	}
	in, err := p.parse.Run(ctx, req.Material)
	if err != nil {
		return nil, fmt.Errorf("input parse failed: %w", err)
	}
	if req.Category != "" {
		in.Category = req.Category
	}
	if req.Theme != "" {
		in.Theme = req.Theme
	}
	if req.DesiredLength > 0 {
		in.DesiredLength = req.DesiredLength
	}

	// Stage 2: classify, then resolve against the stated category.
	if err := p.enter(ctx, progress, stageClassify); err != nil {
		return nil, err
	}
	cls, err := p.classify.Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	category := resolveCategory(in.Category, cls)
	logger.Debug("Category resolved", "stated", string(in.Category), "classified", string(cls.Category), "confidence", cls.Confidence, "final", string(category))

	// Stage 3: build the retrieval query set.
	if err := p.enter(ctx, progress, stageQueryGen); err != nil {
		return nil, err
	}
	queries := []string{chains.FallbackQuery(in)}
	if p.opts.UseQueryGenerator {
		qs, err := p.queryGen.Run(ctx, in, category)
		if err != nil {
			return nil, fmt.Errorf("query generation failed: %w", err)
		}
		queries = qs.Queries
	}

	// Stage 4: three-way retrieval fan-out.
	if err := p.enter(ctx, progress, stageRetrieve); err != nil {
		return nil, err
	}
	bundle, err := p.retrieve(ctx, queries, category, in.Theme)
	if err != nil {
		return nil, err
	}

	// Stage 5: style and structure analysis over the retrieved passages.
	if err := p.enter(ctx, progress, stageAnalyze); err != nil {
		return nil, err
	}
	style, structure, err := p.analyze(ctx, category, bundle.ReferenceBodies())
	if err != nil {
		return nil, err
	}

	// Stage 6: plan the outline.
	if err := p.enter(ctx, progress, stageOutline); err != nil {
		return nil, err
	}
	outline, err := p.outline.Run(ctx, chains.OutlineInput{
		Input:      in,
		Category:   category,
		Style:      style,
		Structure:  structure,
		Profile:    bundle.Profile,
		Excerpts:   bundle.Excerpts,
		References: bundle.ReferenceBodies(),
	})
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	// Stage 7: contents fan-out.
	if err := p.enter(ctx, progress, stageContents); err != nil {
		return nil, err
	}
	content, err := p.writeContents(ctx, in, category, outline, style, structure, bundle)
	if err != nil {
		return nil, err
	}

	// Stage 8: quality gate over the assembled draft text.
	if err := p.enter(ctx, progress, stageQuality); err != nil {
		return nil, err
	}
	verified, err := p.gate.Run(ctx, verify.Request{
		Titles:      content.titles,
		Lead:        content.lead,
		Sections:    content.sections,
		Closing:     content.closing,
		Input:       in,
		Style:       style,
		Profile:     bundle.Profile,
		AutoRewrite: p.opts.UseAutoRewrite,
	})
	if err != nil {
		return nil, err
	}

	// Stage 9: render the markdown and store the result.
	if err := p.enter(ctx, progress, stageAssemble); err != nil {
		return nil, err
	}
	draft := &core.ArticleDraft{
		Category:         category,
		Theme:            in.Theme,
		Titles:           content.titles,
		Lead:             verified.Lead,
		Sections:         verified.Sections,
		Closing:          verified.Closing,
		DesiredLength:    in.DesiredLength,
		ConsistencyScore: verified.Score,
		Confidence:       verified.Confidence,
		CreatedAt:        time.Now().UTC(),
	}
	render.Assemble(draft)
	p.save(ctx, req.Material, draft)

	logger.Info("Draft generated",
		"category", string(category),
		"sections", len(draft.Sections),
		"length", draft.ActualLength,
		"tags", draft.TagCount,
		"rewritten", verified.Rewritten,
		"duration", time.Since(started).String())
	return draft, nil
}

// enter marks a stage transition: it aborts when the request context is done
// and otherwise reports the stage on the progress channel.
func (p *Pipeline) enter(ctx context.Context, progress chan<- core.Progress, s Stage) error {
	if err := ctx.Err(); err != nil {
		return core.FromContext(err)
	}
	logger.Debug("Pipeline stage", "step", s.Step, "percentage", s.Percentage)
	if progress == nil {
		return nil
	}
	select {
	case progress <- core.Progress{Step: s.Step, Percentage: s.Percentage, Message: s.Label}:
		return nil
	case <-ctx.Done():
		return core.FromContext(ctx.Err())
	}
}

// resolveCategory applies the category rule: a category stated in the input
// stands unless the classifier disagrees with high confidence; an unstated
// category always takes the classifier result.
func resolveCategory(stated core.Category, cls *core.Classification) core.Category {
	if stated == "" {
		return cls.Category
	}
	if cls.Category != stated && cls.Confidence >= classifierOverrideConfidence {
		return cls.Category
	}
	return stated
}

// retrieve runs the content search and the two style lookups concurrently.
// The content search is required and fails the stage; the style lanes
// degrade to empty values on their own. Each task is bounded to 60s.
func (p *Pipeline) retrieve(ctx context.Context, queries []string, category core.Category, theme string) (*RetrievalBundle, error) {
	bundle := &RetrievalBundle{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tctx, cancel := context.WithTimeout(gctx, retrieveTaskTimeout)
		defer cancel()

		opts := p.opts.Search
		opts.Category = category
		docs, err := p.searcher.MultiSearch(tctx, queries, opts)
		if err != nil {
			return err
		}
		bundle.References = docs
		return nil
	})

	if p.opts.UseStyleProfileKB {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, retrieveTaskTimeout)
			defer cancel()
			bundle.Profile = p.styles.Profile(tctx, category)
			return nil
		})
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, retrieveTaskTimeout)
			defer cancel()
			bundle.Excerpts = p.styles.Excerpts(tctx, category, theme, p.opts.ExcerptTopK)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := core.FromContext(ctx.Err()); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	logger.Debug("Retrieval complete",
		"references", len(bundle.References),
		"profile", bundle.Profile != "",
		"excerpts", len(bundle.Excerpts))
	return bundle, nil
}

// analyze runs the style and structure analyzers in parallel over the
// retrieved passage bodies.
func (p *Pipeline) analyze(ctx context.Context, category core.Category, passages []string) (core.StyleFeatures, core.StructureFeatures, error) {
	var style core.StyleFeatures
	var structure core.StructureFeatures

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		features, err := p.styleAnalyze.Run(gctx, category, passages)
		if err != nil {
			return fmt.Errorf("style analysis failed: %w", err)
		}
		style = *features
		return nil
	})
	g.Go(func() error {
		features, err := p.structureAnalyze.Run(gctx, category, passages)
		if err != nil {
			return fmt.Errorf("structure analysis failed: %w", err)
		}
		structure = *features
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctxErr := core.FromContext(ctx.Err()); ctxErr != nil {
			return style, structure, ctxErr
		}
		return style, structure, err
	}
	return style, structure, nil
}

// draftContent collects the contents fan-out results.
type draftContent struct {
	titles   []string
	lead     string
	sections []core.DraftSection
	closing  string
}

// writeContents generates title, lead, closing and every section
// concurrently. Section subtasks are capped at MaxParallelSections and
// queued in outline order; the assembled section list keeps that order.
// Any failure cancels the remaining subtasks and fails the stage.
func (p *Pipeline) writeContents(ctx context.Context, in *core.ArticleInput, category core.Category, outline *core.Outline, style core.StyleFeatures, structure core.StructureFeatures, bundle *RetrievalBundle) (*draftContent, error) {
	content := &draftContent{
		sections: make([]core.DraftSection, len(outline.Sections)),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		titles, err := p.title.Run(gctx, chains.TitleInput{
			Input:    in,
			Category: category,
			Outline:  outline,
			Profile:  bundle.Profile,
		})
		if err != nil {
			return fmt.Errorf("title generation failed: %w", err)
		}
		content.titles = titles
		return nil
	})

	g.Go(func() error {
		lead, err := p.lead.Run(gctx, chains.LeadInput{
			Input:     in,
			Category:  category,
			Outline:   outline,
			Style:     style,
			Structure: structure,
			Profile:   bundle.Profile,
			Excerpts:  bundle.Excerpts,
		})
		if err != nil {
			return fmt.Errorf("lead generation failed: %w", err)
		}
		content.lead = lead
		return nil
	})

	g.Go(func() error {
		closing, err := p.closing.Run(gctx, chains.ClosingInput{
			Input:     in,
			Category:  category,
			Style:     style,
			Structure: structure,
			Profile:   bundle.Profile,
		})
		if err != nil {
			return fmt.Errorf("closing generation failed: %w", err)
		}
		content.closing = closing
		return nil
	})

	g.Go(func() error {
		sg, sgctx := errgroup.WithContext(gctx)
		sg.SetLimit(p.opts.MaxParallelSections)
		for i, spec := range outline.Sections {
			sg.Go(func() error {
				section, err := p.section.Run(sgctx, chains.SectionInput{
					Section:    spec,
					Input:      in,
					Category:   category,
					Style:      style,
					Profile:    bundle.Profile,
					References: bundle.ReferenceBodies(),
				})
				if err != nil {
					return fmt.Errorf("section %q failed: %w", spec.Title, err)
				}
				content.sections[i] = *section
				return nil
			})
		}
		return sg.Wait()
	})

	if err := g.Wait(); err != nil {
		if ctxErr := core.FromContext(ctx.Err()); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return content, nil
}

// save stores the draft in generation history. Saving is best-effort: a
// failure is logged and the draft keeps an empty id.
func (p *Pipeline) save(ctx context.Context, material string, draft *core.ArticleDraft) {
	if p.store == nil {
		return
	}
	id, err := p.store.Save(ctx, material, draft)
	if err != nil {
		logger.Warn("History save failed, draft returned without id", "error", err.Error())
		return
	}
	draft.ID = id
}
