package core

import "time"

// Category identifies the editorial type of a recruiting article.
type Category string

const (
	// CategoryAnnouncement covers hiring and company announcements.
	CategoryAnnouncement Category = "ANNOUNCEMENT"
	// CategoryEventReport covers event and meetup reports.
	CategoryEventReport Category = "EVENT_REPORT"
	// CategoryInterview covers member and candidate interviews.
	CategoryInterview Category = "INTERVIEW"
	// CategoryCulture covers culture and story pieces.
	CategoryCulture Category = "CULTURE"
)

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{CategoryAnnouncement, CategoryEventReport, CategoryInterview, CategoryCulture}
}

// ParseCategory maps a token to a Category. Unknown tokens return "" and false.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryAnnouncement, CategoryEventReport, CategoryInterview, CategoryCulture:
		return Category(s), true
	}
	return "", false
}

// Label returns the Japanese display label used in rendered articles.
func (c Category) Label() string {
	switch c {
	case CategoryAnnouncement:
		return "アナウンスメント"
	case CategoryEventReport:
		return "イベントレポート"
	case CategoryInterview:
		return "インタビュー"
	case CategoryCulture:
		return "カルチャー/ストーリー"
	}
	return string(c)
}

// Document represents one stored knowledge-base chunk.
type Document struct {
	ID          string         `json:"id"`                  // Unique identifier for the chunk
	Body        string         `json:"body"`                // Chunk text
	Attrs       map[string]any `json:"attrs"`               // Free-form attributes (rerank scores, provenance)
	Embedding   []float32      `json:"embedding,omitempty"` // Embedding of Body (set on ingest, not loaded on search)
	Category    Category       `json:"category"`            // Editorial category of the source material
	Source      string         `json:"source"`              // Origin of the chunk (file name, import batch)
	ChunkIndex  int            `json:"chunk_index"`         // Position of this chunk within its source
	TotalChunks int            `json:"total_chunks"`        // Total number of chunks produced from the source
	CreatedAt   time.Time      `json:"created_at"`          // When the chunk was stored
	UpdatedAt   time.Time      `json:"updated_at"`          // When the chunk was last updated
}

// ScoredDocument is a Document annotated with retrieval scoring.
type ScoredDocument struct {
	Document
	Score   float64  `json:"score"`   // Fused or lane score, higher is better
	Rank    int      `json:"rank"`    // 1-based rank within the result list
	Sources []string `json:"sources"` // Retrieval lanes that produced this document
}

// Quote is one interview statement with speaker attribution.
type Quote struct {
	Speaker string `json:"speaker"` // Who said it
	Quote   string `json:"quote"`   // The statement, quotable verbatim
}

// Person is someone mentioned in the input material.
type Person struct {
	Name string `json:"name"` // Full name as written
	Role string `json:"role"` // Title or position
}

// ArticleInput is the structured brief extracted from raw input material.
type ArticleInput struct {
	Material      string   `json:"material"`         // Raw source material supplied by the user
	Category      Category `json:"category"`         // Requested category ("" when unspecified)
	Theme         string   `json:"theme"`            // Article theme, one sentence
	Audience      string   `json:"audience"`         // Intended readers ("" falls back to a default)
	Goal          string   `json:"goal"`             // Publishing goal ("" falls back to a default)
	DesiredLength int      `json:"desired_length"`   // Target body length in characters, default 2000
	KeyPoints     []string `json:"key_points"`       // Points the article must cover
	Quotes        []Quote  `json:"interview_quotes"` // Quotable interview statements
	DataFacts     []string `json:"data_facts"`       // Concrete numbers and data
	People        []Person `json:"people"`           // People appearing in the material
	Keywords      []string `json:"keywords"`         // Search keywords, 5-10
	MissingInfo   []string `json:"missing_info"`     // Information the material seems to lack
}

// OutlineSection is one planned section of the article.
type OutlineSection struct {
	Level        string   `json:"level"`           // Heading level, "H2" or "H3"
	Title        string   `json:"title"`           // Heading text
	Summary      string   `json:"content_summary"` // What the section body should cover
	KeySources   []string `json:"key_sources"`     // Material facts the section must include
	TargetLength int      `json:"target_length"`   // Target body length in characters
}

// Outline is the planned article structure.
type Outline struct {
	Sections          []OutlineSection `json:"sections"`            // Sections in publishing order
	TotalTargetLength int              `json:"total_target_length"` // Target length for the whole body
}

// DraftSection is one generated section with its heading.
type DraftSection struct {
	Heading string `json:"heading"` // H2 heading text
	Body    string `json:"body"`    // Generated body text
}

// ArticleDraft is the fully generated article and its quality metadata.
type ArticleDraft struct {
	ID               string         `json:"id"`                // History identifier ("" until saved)
	Category         Category       `json:"category"`          // Final resolved category
	Theme            string         `json:"theme"`             // Article theme
	Titles           []string       `json:"titles"`            // Exactly three title candidates
	Lead             string         `json:"lead"`              // Lead paragraph
	Sections         []DraftSection `json:"sections"`          // Sections in publishing order
	Closing          string         `json:"closing"`           // Closing paragraph
	Markdown         string         `json:"markdown"`          // Rendered markdown including the metadata footer
	DesiredLength    int            `json:"desired_length"`    // Requested body length in characters
	ActualLength     int            `json:"actual_length"`     // Rune count of lead + section bodies + closing
	TagCount         int            `json:"tag_count"`         // Number of [要確認: tags in the body
	ConsistencyScore float64        `json:"consistency_score"` // Style consistency in [0,1]
	Confidence       float64        `json:"confidence"`        // Fact-verification confidence in [0,1]
	CreatedAt        time.Time      `json:"created_at"`        // When the draft was generated
}

// StyleProfile is a stored writing-style row, either the single per-category
// profile or one of many excerpt rows.
type StyleProfile struct {
	ID        string    `json:"id"`         // Row identifier (uuid)
	Category  Category  `json:"category"`   // Category the style belongs to
	Kind      string    `json:"kind"`       // "profile" or "excerpt"
	Body      string    `json:"body"`       // Profile description or excerpt text
	Embedding []float32 `json:"embedding"`  // Embedding of Body
	CreatedAt time.Time `json:"created_at"` // When the row was stored
	UpdatedAt time.Time `json:"updated_at"` // When the row was last updated
}

// Style row kinds.
const (
	StyleKindProfile = "profile"
	StyleKindExcerpt = "excerpt"
)

// Progress reports pipeline advancement to the caller.
type Progress struct {
	Step       string `json:"step"`       // Stage identifier (input_parse, classify, ...)
	Percentage int    `json:"percentage"` // Monotonic non-decreasing 0-100
	Message    string `json:"message"`    // Human-readable status line
}

// Classification is the category classifier's verdict.
type Classification struct {
	Category          Category `json:"category"`           // Predicted category
	Confidence        float64  `json:"confidence"`         // Classifier confidence in [0,1]
	Reason            string   `json:"reason"`             // Short justification for the verdict
	SuggestedHeadings []string `json:"suggested_headings"` // 2-4 headings the classifier suggests
}

// QuerySet holds generated retrieval queries.
type QuerySet struct {
	Queries []string `json:"queries"` // 3-5 whitespace-joined keyword queries
}

// StyleFeatures summarizes the writing style of reference excerpts.
type StyleFeatures struct {
	SentenceEndings []string `json:"sentence_endings"` // Characteristic sentence-final forms
	Tone            string   `json:"tone"`             // Overall tone description
	FirstPerson     string   `json:"first_person"`     // First-person usage (私/僕/弊社...)
	NotablePhrases  []string `json:"notable_phrases"`  // Recurring expressions worth imitating
}

// StructureFeatures summarizes the structural conventions of reference articles.
type StructureFeatures struct {
	HeadingPatterns []string `json:"heading_patterns"` // Typical heading shapes
	LeadPatterns    []string `json:"lead_patterns"`    // Typical lead constructions
	ClosingPatterns []string `json:"closing_patterns"` // Typical closing constructions
}

// StyleIssue is one style-consistency problem found in a draft.
type StyleIssue struct {
	Location    string `json:"location"`    // Where the issue occurs
	Description string `json:"description"` // What is inconsistent
	Severity    string `json:"severity"`    // "low", "medium" or "high"
}

// Correction is a suggested replacement for an inconsistent passage.
type Correction struct {
	Original  string `json:"original"`  // Passage as written
	Corrected string `json:"corrected"` // Suggested replacement
	Reason    string `json:"reason"`    // Why the replacement is better
}

// StyleCheck is the style gate's full verdict on a draft.
type StyleCheck struct {
	ConsistencyScore  float64      `json:"consistency_score"`  // Overall consistency in [0,1]
	Issues            []StyleIssue `json:"issues"`             // Individual problems found
	CorrectedSections []Correction `json:"corrected_sections"` // Suggested rewrites
}

// Claim is one statement the verifier could not ground in the source material.
type Claim struct {
	Claim        string `json:"claim"`         // The unverified statement as written
	Reason       string `json:"reason"`        // Why it could not be verified
	SuggestedTag string `json:"suggested_tag"` // Short tag for the [要確認] marker
}

// Verification is the hallucination detector's verdict on a draft.
type Verification struct {
	UnverifiedClaims []Claim `json:"unverified_claims"` // Statements needing human review
	Confidence       float64 `json:"confidence"`        // Overall grounding confidence in [0,1]
}
