package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"notedraft/internal/chains"
	"notedraft/internal/core"
)

type fakeStyleChecker struct {
	check *core.StyleCheck
	err   error
	calls int
}

func (f *fakeStyleChecker) Run(_ context.Context, _ chains.StyleCheckInput) (*core.StyleCheck, error) {
	f.calls++
	return f.check, f.err
}

type fakeRewriter struct {
	out   *chains.RewriteOutput
	err   error
	calls int
	last  chains.RewriteInput
}

func (f *fakeRewriter) Run(_ context.Context, in chains.RewriteInput) (*chains.RewriteOutput, error) {
	f.calls++
	f.last = in
	return f.out, f.err
}

type fakeDetector struct {
	verification *core.Verification
	err          error
	calls        int
}

func (f *fakeDetector) Run(_ context.Context, _ chains.HallucinationInput) (*core.Verification, error) {
	f.calls++
	return f.verification, f.err
}

func testRequest() Request {
	return Request{
		Titles: []string{"リモートワーク制度を紹介します", "案2", "案3"},
		Lead:   "当社の働き方を紹介します。",
		Sections: []core.DraftSection{
			{Heading: "制度の概要", Body: "フルリモートで働けます。"},
			{Heading: "社員の声", Body: "田中は「通勤がなくなった」と話します。"},
		},
		Closing: "採用情報はこちらからどうぞ。",
		Input:   &core.ArticleInput{Theme: "リモートワーク制度"},
		Style:   core.StyleFeatures{Tone: "カジュアル"},
	}
}

func cleanVerification() *core.Verification {
	return &core.Verification{Confidence: 0.95}
}

func TestVerifierRewriteThreshold(t *testing.T) {
	tests := []struct {
		name        string
		score       float64
		autoRewrite bool
		wantRewrite bool
	}{
		{"below threshold rewrites", 0.79, true, true},
		{"at threshold does not rewrite", 0.80, true, false},
		{"flag off never rewrites", 0.5, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := &fakeRewriter{out: &chains.RewriteOutput{Text: "タイトル\nリード\n## 制度の概要\n本文"}}
			v := &Verifier{
				styleCheck:    &fakeStyleChecker{check: &core.StyleCheck{ConsistencyScore: tt.score}},
				rewriter:      rw,
				hallucination: &fakeDetector{verification: cleanVerification()},
			}

			req := testRequest()
			req.AutoRewrite = tt.autoRewrite
			res, err := v.Run(context.Background(), req)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if ran := rw.calls > 0; ran != tt.wantRewrite {
				t.Errorf("rewriter ran=%v, expected %v", ran, tt.wantRewrite)
			}
			if res.Score != tt.score {
				t.Errorf("expected score %v, got %v", tt.score, res.Score)
			}
		})
	}
}

func TestVerifierStyleCheckFailure(t *testing.T) {
	rw := &fakeRewriter{out: &chains.RewriteOutput{Text: "## 見出し\n本文"}}
	det := &fakeDetector{verification: cleanVerification()}
	v := &Verifier{
		styleCheck:    &fakeStyleChecker{err: errors.New("model down")},
		rewriter:      rw,
		hallucination: det,
	}

	req := testRequest()
	req.AutoRewrite = true
	res, err := v.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if res.Score != 0 || res.Check != nil {
		t.Errorf("expected unscored draft, got score %v", res.Score)
	}
	if rw.calls != 0 {
		t.Error("rewrite must not run without a style verdict")
	}
	if det.calls != 1 {
		t.Error("hallucination detection should still run")
	}
	if res.Lead != req.Lead {
		t.Errorf("draft content changed: %q", res.Lead)
	}
}

func TestVerifierHallucinationFailure(t *testing.T) {
	v := &Verifier{
		styleCheck:    &fakeStyleChecker{check: &core.StyleCheck{ConsistencyScore: 0.9}},
		rewriter:      &fakeRewriter{},
		hallucination: &fakeDetector{err: errors.New("model down")},
	}

	res, err := v.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if res.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v", res.Confidence)
	}
	if len(res.Claims) != 0 {
		t.Errorf("expected no claims, got %v", res.Claims)
	}
	if strings.Contains(res.Sections[0].Body, TagPrefix) {
		t.Error("expected no tags inserted")
	}
}

func TestVerifierCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := &Verifier{
		styleCheck:    &fakeStyleChecker{err: context.Canceled},
		rewriter:      &fakeRewriter{},
		hallucination: &fakeDetector{verification: cleanVerification()},
	}
	_, err := v.Run(ctx, testRequest())
	if !errors.Is(err, core.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestVerifierTagsClaims(t *testing.T) {
	det := &fakeDetector{verification: &core.Verification{
		Confidence: 0.6,
		UnverifiedClaims: []core.Claim{
			{Claim: "フルリモートで働けます", SuggestedTag: "制度内容"},
		},
	}}
	v := &Verifier{
		styleCheck:    &fakeStyleChecker{check: &core.StyleCheck{ConsistencyScore: 0.9}},
		rewriter:      &fakeRewriter{},
		hallucination: det,
	}

	res, err := v.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(res.Sections[0].Body, "[要確認: 制度内容]") {
		t.Errorf("expected tag in section body, got %q", res.Sections[0].Body)
	}
	if res.Confidence != 0.6 {
		t.Errorf("expected confidence 0.6, got %v", res.Confidence)
	}
	if len(res.Claims) != 1 {
		t.Errorf("expected the claim on the result, got %v", res.Claims)
	}
}

func TestVerifierRewriteReparse(t *testing.T) {
	rewritten := "リモートワーク制度を紹介します\n" +
		"新しいリード文になりました。\n" +
		"## 制度の概要\n" +
		"リライトされた本文です。\n" +
		"\n" +
		"## 社員の声\n" +
		"リライトされた声です。\n" +
		"採用情報はこちらからどうぞ。"
	rw := &fakeRewriter{out: &chains.RewriteOutput{Text: rewritten}}
	v := &Verifier{
		styleCheck:    &fakeStyleChecker{check: &core.StyleCheck{ConsistencyScore: 0.5}},
		rewriter:      rw,
		hallucination: &fakeDetector{verification: cleanVerification()},
	}

	req := testRequest()
	req.AutoRewrite = true
	res, err := v.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Rewritten {
		t.Fatal("expected the draft to be rewritten")
	}
	if res.Lead != "新しいリード文になりました。" {
		t.Errorf("unexpected lead %q", res.Lead)
	}
	if len(res.Sections) != 2 || res.Sections[0].Body != "リライトされた本文です。" {
		t.Errorf("unexpected sections %+v", res.Sections)
	}
	if res.Sections[1].Body != "リライトされた声です。" {
		t.Errorf("expected verbatim closing stripped from the last body, got %q", res.Sections[1].Body)
	}
	if res.Closing != req.Closing {
		t.Errorf("expected original closing preserved, got %q", res.Closing)
	}
	if !strings.Contains(rw.last.Text, "## 制度の概要") {
		t.Error("expected composed working text handed to the rewriter")
	}
}

func TestVerifierRewriteDropsHeadings(t *testing.T) {
	rw := &fakeRewriter{out: &chains.RewriteOutput{Text: "見出しのないただのテキスト。"}}
	v := &Verifier{
		styleCheck:    &fakeStyleChecker{check: &core.StyleCheck{ConsistencyScore: 0.5}},
		rewriter:      rw,
		hallucination: &fakeDetector{verification: cleanVerification()},
	}

	req := testRequest()
	req.AutoRewrite = true
	res, err := v.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Rewritten {
		t.Error("a heading-less rewrite must be discarded")
	}
	if res.Sections[0].Body != req.Sections[0].Body {
		t.Errorf("expected original sections kept, got %+v", res.Sections)
	}
}

func TestVerifierRewriteFailure(t *testing.T) {
	v := &Verifier{
		styleCheck:    &fakeStyleChecker{check: &core.StyleCheck{ConsistencyScore: 0.5}},
		rewriter:      &fakeRewriter{err: errors.New("model down")},
		hallucination: &fakeDetector{verification: cleanVerification()},
	}

	req := testRequest()
	req.AutoRewrite = true
	res, err := v.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if res.Rewritten || res.Lead != req.Lead {
		t.Error("expected draft kept as generated after rewrite failure")
	}
}

func TestComposeText(t *testing.T) {
	got := ComposeText(
		[]string{"タイトル", "案2", "案3"},
		"リード",
		[]core.DraftSection{{Heading: "見出し", Body: "本文"}},
		"締め",
	)
	want := "タイトル\nリード\n## 見出し\n本文\n締め"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRewriteSkeletonH3(t *testing.T) {
	text := "タイトル\nリード\n### 小見出し\n本文です。"
	lead, sections, ok := rewriteSkeleton(text, []string{"タイトル"}, "")
	if !ok {
		t.Fatal("expected skeleton to parse")
	}
	if lead != "リード" {
		t.Errorf("unexpected lead %q", lead)
	}
	if len(sections) != 1 || sections[0].Heading != "小見出し" {
		t.Errorf("unexpected sections %+v", sections)
	}
}

func TestRewriteSkeletonAlternateTitle(t *testing.T) {
	// The rewrite may keep a different title candidate; that line must
	// still be stripped from the lead.
	text := "案2のタイトル\nリード文。\n## 見出し\n本文"
	lead, _, ok := rewriteSkeleton(text, []string{"案1のタイトル", "案2のタイトル", "案3のタイトル"}, "")
	if !ok {
		t.Fatal("expected skeleton to parse")
	}
	if lead != "リード文。" {
		t.Errorf("expected alternate title stripped, got lead %q", lead)
	}
}

func TestRewriteSkeletonHeadingTitle(t *testing.T) {
	// A reworded title rendered as a top-level heading is not lead text.
	text := "# 書き直されたタイトル\nリード文。\n## 見出し\n本文"
	lead, _, ok := rewriteSkeleton(text, []string{"元のタイトル"}, "")
	if !ok {
		t.Fatal("expected skeleton to parse")
	}
	if lead != "リード文。" {
		t.Errorf("expected heading title stripped, got lead %q", lead)
	}
}

func TestRewriteSkeletonNoTitleLine(t *testing.T) {
	text := "いきなりリード文。\n## 見出し\n本文"
	lead, _, ok := rewriteSkeleton(text, []string{"元のタイトル"}, "")
	if !ok {
		t.Fatal("expected skeleton to parse")
	}
	if lead != "いきなりリード文。" {
		t.Errorf("expected preamble kept as lead, got %q", lead)
	}
}
