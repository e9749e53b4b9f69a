package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"notedraft/internal/core"
	"notedraft/internal/rerank"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeDocs struct {
	vector     []core.ScoredDocument
	trigram    []core.ScoredDocument
	vectorErr  error
	trigramErr error
	trigramFn  func(query string) []core.ScoredDocument

	lastCategory core.Category
	lastLimit    int
}

func (f *fakeDocs) Insert(ctx context.Context, docs []core.Document) error { return nil }

func (f *fakeDocs) VectorSearch(ctx context.Context, embedding []float32, category core.Category, limit int) ([]core.ScoredDocument, error) {
	f.lastCategory = category
	f.lastLimit = limit
	return f.vector, f.vectorErr
}

func (f *fakeDocs) TrigramSearch(ctx context.Context, query string, category core.Category, limit int) ([]core.ScoredDocument, error) {
	if f.trigramFn != nil {
		return f.trigramFn(query), nil
	}
	return f.trigram, f.trigramErr
}

func (f *fakeDocs) Count(ctx context.Context) (int, error) { return 0, nil }

type fakeReranker struct {
	results []rerank.Result
	err     error
	calls   int
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, passages []string, topK int) ([]rerank.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeReranker) Available() bool { return true }

func laneDoc(id string, rank int, source string) core.ScoredDocument {
	return core.ScoredDocument{
		Document: core.Document{ID: id, Body: "body of " + id},
		Rank:     rank,
		Sources:  []string{source},
	}
}

func TestSearchFusesLanes(t *testing.T) {
	docs := &fakeDocs{
		vector:  []core.ScoredDocument{laneDoc("a", 1, "vector"), laneDoc("b", 2, "vector")},
		trigram: []core.ScoredDocument{laneDoc("b", 1, "trigram"), laneDoc("c", 2, "trigram")},
	}
	s := NewHybridSearcher(docs, &fakeEmbedder{vector: []float32{0.1}}, nil)

	got, err := s.Search(context.Background(), "採用イベント", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Search() returned %d documents, want 3", len(got))
	}

	// b appears in both lanes and must fuse to the top.
	if got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Errorf("Search() order = [%s %s %s], want [b a c]", got[0].ID, got[1].ID, got[2].ID)
	}

	wantB := 1.0/62 + 1.0/61
	if math.Abs(got[0].Score-wantB) > 1e-12 {
		t.Errorf("fused score for b = %v, want %v", got[0].Score, wantB)
	}

	if len(got[0].Sources) != 2 {
		t.Errorf("sources for b = %v, want both lanes", got[0].Sources)
	}

	for i, doc := range got {
		if doc.Rank != i+1 {
			t.Errorf("rank at position %d = %d, want %d", i, doc.Rank, i+1)
		}
		if i > 0 && got[i-1].Score < doc.Score {
			t.Errorf("scores increase at position %d", i)
		}
	}
}

func TestFuseCommutative(t *testing.T) {
	laneA := []core.ScoredDocument{laneDoc("a", 1, "vector"), laneDoc("b", 2, "vector")}
	laneB := []core.ScoredDocument{laneDoc("b", 1, "trigram"), laneDoc("c", 2, "trigram")}

	forward := fuse(laneA, laneB, 60)
	backward := fuse(laneB, laneA, 60)

	if len(forward) != len(backward) {
		t.Fatalf("fuse lengths differ: %d vs %d", len(forward), len(backward))
	}
	for i := range forward {
		if forward[i].ID != backward[i].ID {
			t.Errorf("position %d: %s vs %s", i, forward[i].ID, backward[i].ID)
		}
		if math.Abs(forward[i].Score-backward[i].Score) > 1e-12 {
			t.Errorf("score for %s differs: %v vs %v", forward[i].ID, forward[i].Score, backward[i].Score)
		}
	}
}

func TestFuseTieBreaksByID(t *testing.T) {
	laneA := []core.ScoredDocument{laneDoc("b", 1, "vector")}
	laneB := []core.ScoredDocument{laneDoc("a", 1, "trigram")}

	got := fuse(laneA, laneB, 60)
	if len(got) != 2 {
		t.Fatalf("fuse() returned %d documents, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("tie order = [%s %s], want [a b]", got[0].ID, got[1].ID)
	}
}

func TestFuseRRFContribution(t *testing.T) {
	got := fuse([]core.ScoredDocument{laneDoc("a", 4, "vector")}, nil, 60)
	want := 1.0 / 64
	if len(got) != 1 || math.Abs(got[0].Score-want) > 1e-12 {
		t.Errorf("single-lane score = %v, want %v", got[0].Score, want)
	}
}

func TestSearchBothLanesEmpty(t *testing.T) {
	s := NewHybridSearcher(&fakeDocs{}, &fakeEmbedder{vector: []float32{0.1}}, nil)

	got, err := s.Search(context.Background(), "何もない", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() returned %d documents, want 0", len(got))
	}
}

func TestSearchLaneFailure(t *testing.T) {
	docs := &fakeDocs{
		vector:     []core.ScoredDocument{laneDoc("a", 1, "vector")},
		trigramErr: errors.New("connection refused"),
	}
	s := NewHybridSearcher(docs, &fakeEmbedder{vector: []float32{0.1}}, nil)

	_, err := s.Search(context.Background(), "採用", Options{})
	if !errors.Is(err, core.ErrRetrieval) {
		t.Errorf("Search() error = %v, want ErrRetrieval", err)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := NewHybridSearcher(&fakeDocs{}, &fakeEmbedder{vector: []float32{0.1}}, nil)
	if _, err := s.Search(context.Background(), "   ", Options{}); err == nil {
		t.Error("Search() with blank query should fail")
	}
}

func TestSearchTruncatesToFinalK(t *testing.T) {
	docs := &fakeDocs{
		vector: []core.ScoredDocument{
			laneDoc("a", 1, "vector"), laneDoc("b", 2, "vector"), laneDoc("c", 3, "vector"),
		},
	}
	s := NewHybridSearcher(docs, &fakeEmbedder{vector: []float32{0.1}}, nil)

	got, err := s.Search(context.Background(), "採用", Options{FinalK: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Search() returned %d documents, want 2", len(got))
	}
}

func TestSearchPassesCategoryAndLaneK(t *testing.T) {
	docs := &fakeDocs{}
	s := NewHybridSearcher(docs, &fakeEmbedder{vector: []float32{0.1}}, nil)

	if _, err := s.Search(context.Background(), "面接", Options{Category: core.CategoryInterview}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if docs.lastCategory != core.CategoryInterview {
		t.Errorf("lane category = %s, want INTERVIEW", docs.lastCategory)
	}
	if docs.lastLimit != DefaultLaneK {
		t.Errorf("lane limit = %d, want %d", docs.lastLimit, DefaultLaneK)
	}
}

func TestSearchRerankAttachesScores(t *testing.T) {
	docs := &fakeDocs{
		vector: []core.ScoredDocument{laneDoc("a", 1, "vector"), laneDoc("b", 2, "vector")},
	}
	reranker := &fakeReranker{results: []rerank.Result{
		{Index: 1, Text: "body of b", Raw: 2.0, Normalized: 0.88},
		{Index: 0, Text: "body of a", Raw: -1.0, Normalized: 0.27},
	}}
	s := NewHybridSearcher(docs, &fakeEmbedder{vector: []float32{0.1}}, reranker)

	got, err := s.Search(context.Background(), "採用", Options{UseReranker: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("reranked order wrong: %+v", got)
	}
	if got[0].Attrs["rerank_score"] != 2.0 {
		t.Errorf("rerank_score = %v, want 2.0", got[0].Attrs["rerank_score"])
	}
	if got[0].Attrs["rerank_score_normalized"] != 0.88 {
		t.Errorf("rerank_score_normalized = %v, want 0.88", got[0].Attrs["rerank_score_normalized"])
	}
	if got[0].Attrs["rerank_position"] != 1 || got[1].Attrs["rerank_position"] != 2 {
		t.Errorf("rerank positions = %v, %v, want 1, 2",
			got[0].Attrs["rerank_position"], got[1].Attrs["rerank_position"])
	}
}

func TestSearchRerankFailureKeepsFusedOrder(t *testing.T) {
	docs := &fakeDocs{
		vector: []core.ScoredDocument{laneDoc("a", 1, "vector"), laneDoc("b", 2, "vector")},
	}
	reranker := &fakeReranker{err: errors.New("scoring service down")}
	s := NewHybridSearcher(docs, &fakeEmbedder{vector: []float32{0.1}}, reranker)

	got, err := s.Search(context.Background(), "採用", Options{UseReranker: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if reranker.calls != 1 {
		t.Errorf("reranker calls = %d, want 1", reranker.calls)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("degraded order wrong: %+v", got)
	}
	if _, tagged := got[0].Attrs["rerank_score"]; tagged {
		t.Error("degraded result should not carry rerank attrs")
	}
}

func TestMultiSearchKeepsHighestScore(t *testing.T) {
	docs := &fakeDocs{
		trigramFn: func(query string) []core.ScoredDocument {
			if query == "q1" {
				return []core.ScoredDocument{laneDoc("a", 1, "trigram")}
			}
			return []core.ScoredDocument{laneDoc("b", 1, "trigram"), laneDoc("a", 2, "trigram")}
		},
	}
	s := NewHybridSearcher(docs, &fakeEmbedder{vector: []float32{0.1}}, nil)

	got, err := s.MultiSearch(context.Background(), []string{"q1", "q2"}, Options{})
	if err != nil {
		t.Fatalf("MultiSearch() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("MultiSearch() returned %d documents, want 2", len(got))
	}

	scores := make(map[string]float64, len(got))
	for _, doc := range got {
		scores[doc.ID] = doc.Score
	}
	// a ranked 1st for q1 and 2nd for q2; the higher contribution wins.
	if math.Abs(scores["a"]-1.0/61) > 1e-12 {
		t.Errorf("score for a = %v, want %v", scores["a"], 1.0/61)
	}
	if math.Abs(scores["b"]-1.0/61) > 1e-12 {
		t.Errorf("score for b = %v, want %v", scores["b"], 1.0/61)
	}
}

func TestMultiSearchSkipsBlankQueries(t *testing.T) {
	docs := &fakeDocs{}
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	s := NewHybridSearcher(docs, embedder, nil)

	got, err := s.MultiSearch(context.Background(), []string{"", "   "}, Options{})
	if err != nil {
		t.Fatalf("MultiSearch() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("MultiSearch() returned %d documents, want 0", len(got))
	}
	if embedder.calls != 0 {
		t.Errorf("embedder called %d times for blank queries, want 0", embedder.calls)
	}
}
