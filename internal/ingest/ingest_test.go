package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"notedraft/internal/core"
)

type fakeEmbedder struct {
	batches [][]string
	err     error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	batch := make([]string, len(texts))
	copy(batch, texts)
	f.batches = append(f.batches, batch)
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{float32(i), 0.5}
	}
	return vectors, nil
}

type fakeDocRepo struct {
	inserted  []core.Document
	insertErr error
}

func (f *fakeDocRepo) Insert(_ context.Context, docs []core.Document) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, docs...)
	return nil
}

func (f *fakeDocRepo) VectorSearch(context.Context, []float32, core.Category, int) ([]core.ScoredDocument, error) {
	return nil, nil
}

func (f *fakeDocRepo) TrigramSearch(context.Context, string, core.Category, int) ([]core.ScoredDocument, error) {
	return nil, nil
}

func (f *fakeDocRepo) Count(context.Context) (int, error) {
	return len(f.inserted), nil
}

func TestIngestFile(t *testing.T) {
	docs := &fakeDocRepo{}
	embedder := &fakeEmbedder{}
	in := New(docs, embedder, Options{})

	path := writeTestFile(t, t.TempDir(), "社員インタビュー.md", "新しく入社したメンバーに話を聞きました。")

	count, err := in.IngestFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 chunk, got %d", count)
	}
	if len(docs.inserted) != 1 {
		t.Fatalf("expected 1 inserted document, got %d", len(docs.inserted))
	}

	doc := docs.inserted[0]
	if doc.ID == "" {
		t.Error("expected a generated document id")
	}
	if doc.Category != core.CategoryInterview {
		t.Errorf("expected INTERVIEW from the file name, got %s", doc.Category)
	}
	if doc.Source != "社員インタビュー.md" {
		t.Errorf("unexpected source: %q", doc.Source)
	}
	if doc.ChunkIndex != 0 || doc.TotalChunks != 1 {
		t.Errorf("unexpected chunk numbering: %d/%d", doc.ChunkIndex, doc.TotalChunks)
	}
	if len(doc.Embedding) == 0 {
		t.Error("expected an embedding on the inserted document")
	}
	if doc.Attrs["source"] != "社員インタビュー.md" {
		t.Errorf("unexpected attrs: %v", doc.Attrs)
	}
}

func TestIngestFileExplicitCategory(t *testing.T) {
	docs := &fakeDocRepo{}
	in := New(docs, &fakeEmbedder{}, Options{})

	path := writeTestFile(t, t.TempDir(), "社員インタビュー.md", "本文です。")

	if _, err := in.IngestFile(context.Background(), path, core.CategoryCulture); err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if docs.inserted[0].Category != core.CategoryCulture {
		t.Errorf("explicit category should win, got %s", docs.inserted[0].Category)
	}
}

func TestIngestFileEmbedsInBatches(t *testing.T) {
	docs := &fakeDocRepo{}
	embedder := &fakeEmbedder{}
	in := New(docs, embedder, Options{ChunkSize: 10, ChunkOverlap: 0, EmbedBatchSize: 2})

	path := writeTestFile(t, t.TempDir(), "notes.txt", "aaaa bbbb cccc dddd eeee ffff")

	count, err := in.IngestFile(context.Background(), path, core.CategoryCulture)
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 chunks, got %d", count)
	}
	if len(embedder.batches) != 2 {
		t.Fatalf("expected 2 embed batches, got %d", len(embedder.batches))
	}
	if len(embedder.batches[0]) != 2 || len(embedder.batches[1]) != 1 {
		t.Errorf("unexpected batch sizes: %d and %d", len(embedder.batches[0]), len(embedder.batches[1]))
	}
	for i, doc := range docs.inserted {
		if doc.ChunkIndex != i {
			t.Errorf("document %d has chunk_index %d", i, doc.ChunkIndex)
		}
		if doc.TotalChunks != 3 {
			t.Errorf("document %d has total_chunks %d, expected 3", i, doc.TotalChunks)
		}
	}
}

func TestIngestFileEmbedderFailure(t *testing.T) {
	in := New(&fakeDocRepo{}, &fakeEmbedder{err: errors.New("quota exhausted")}, Options{})

	path := writeTestFile(t, t.TempDir(), "notes.txt", "本文です。")

	if _, err := in.IngestFile(context.Background(), path, core.CategoryCulture); err == nil {
		t.Fatal("expected embedder failure to propagate")
	}
}

func TestIngestFileMissing(t *testing.T) {
	in := New(&fakeDocRepo{}, &fakeEmbedder{}, Options{})
	if _, err := in.IngestFile(context.Background(), "no/such/file.md", ""); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestIngestDir(t *testing.T) {
	docs := &fakeDocRepo{}
	in := New(docs, &fakeEmbedder{}, Options{})

	dir := t.TempDir()
	writeTestFile(t, dir, "リモートワーク制度.md", "制度の紹介です。")
	writeTestFile(t, dir, "docs.jsonl", `{"text":"一行目"}`+"\n"+`{"text":"二行目"}`)
	writeTestFile(t, dir, "skip.pdf", "ignored")

	result, err := in.IngestDir(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("IngestDir failed: %v", err)
	}
	if result.Files != 2 {
		t.Errorf("expected 2 ingested files, got %d", result.Files)
	}
	if result.Chunks != 3 {
		t.Errorf("expected 3 chunks, got %d", result.Chunks)
	}
	if len(docs.inserted) != 3 {
		t.Errorf("expected 3 inserted documents, got %d", len(docs.inserted))
	}
}

func TestIngestDirContinuesAfterFailure(t *testing.T) {
	docs := &fakeDocRepo{}
	in := New(docs, &fakeEmbedder{}, Options{})

	dir := t.TempDir()
	// An HTML file that extracts to nothing yields zero chunks and must not
	// abort the walk.
	writeTestFile(t, dir, "empty.html", "<html><body><script>x()</script></body></html>")
	writeTestFile(t, dir, "good.md", "本文です。")

	result, err := in.IngestDir(context.Background(), dir, core.CategoryCulture)
	if err != nil {
		t.Fatalf("IngestDir failed: %v", err)
	}
	if result.Files != 1 || result.Chunks != 1 {
		t.Errorf("expected 1 file and 1 chunk, got %d and %d", result.Files, result.Chunks)
	}
}

func TestIngestDirCancelled(t *testing.T) {
	in := New(&fakeDocRepo{}, &fakeEmbedder{}, Options{})

	dir := t.TempDir()
	writeTestFile(t, dir, "a.md", "本文です。")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := in.IngestDir(ctx, dir, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeStyleRepo struct {
	profiles  []*core.StyleProfile
	excerpts  []core.StyleProfile
	upsertErr error
}

func (f *fakeStyleRepo) ProfileByCategory(context.Context, core.Category) (*core.StyleProfile, error) {
	return nil, nil
}

func (f *fakeStyleRepo) ExcerptsByEmbedding(context.Context, core.Category, []float32, int) ([]core.StyleProfile, error) {
	return nil, nil
}

func (f *fakeStyleRepo) UpsertProfile(_ context.Context, profile *core.StyleProfile) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.profiles = append(f.profiles, profile)
	return nil
}

func (f *fakeStyleRepo) InsertExcerpts(_ context.Context, excerpts []core.StyleProfile) error {
	f.excerpts = append(f.excerpts, excerpts...)
	return nil
}

type fakeStyleAnalyzer struct {
	features core.StyleFeatures
	err      error
	calls    []core.Category
}

func (f *fakeStyleAnalyzer) Run(_ context.Context, category core.Category, _ []string) (*core.StyleFeatures, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, category)
	features := f.features
	return &features, nil
}

func TestSeedDir(t *testing.T) {
	styles := &fakeStyleRepo{}
	analyzer := &fakeStyleAnalyzer{features: core.StyleFeatures{
		Tone:            "カジュアルで親しみやすい",
		FirstPerson:     "私たち",
		SentenceEndings: []string{"です・ます調"},
		NotablePhrases:  []string{"ぜひご覧ください"},
	}}
	seeder := NewStyleSeeder(styles, &fakeEmbedder{}, analyzer, Options{})

	dir := t.TempDir()
	writeTestFile(t, dir, "interview.md", "入社の決め手について話を聞きました。")
	writeTestFile(t, dir, "culture.md", "リモートワーク制度を紹介します。")

	result, err := seeder.SeedDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("SeedDir failed: %v", err)
	}
	if result.Profiles != 2 {
		t.Errorf("expected 2 profiles, got %d", result.Profiles)
	}
	if result.Excerpts != 2 {
		t.Errorf("expected 2 excerpt rows, got %d", result.Excerpts)
	}

	if len(styles.profiles) != 2 {
		t.Fatalf("expected 2 upserted profiles, got %d", len(styles.profiles))
	}
	// Categories are seeded in declaration order.
	if styles.profiles[0].Category != core.CategoryInterview || styles.profiles[1].Category != core.CategoryCulture {
		t.Errorf("unexpected profile categories: %s, %s",
			styles.profiles[0].Category, styles.profiles[1].Category)
	}
	for _, profile := range styles.profiles {
		if profile.Kind != core.StyleKindProfile {
			t.Errorf("expected kind %q, got %q", core.StyleKindProfile, profile.Kind)
		}
		if !strings.Contains(profile.Body, "スタイルガイド") {
			t.Errorf("profile body missing heading: %q", profile.Body)
		}
		if !strings.Contains(profile.Body, "カジュアルで親しみやすい") {
			t.Errorf("profile body missing tone: %q", profile.Body)
		}
		if len(profile.Embedding) == 0 {
			t.Error("expected profile embedding")
		}
	}
	for _, excerpt := range styles.excerpts {
		if excerpt.Kind != core.StyleKindExcerpt {
			t.Errorf("expected kind %q, got %q", core.StyleKindExcerpt, excerpt.Kind)
		}
		if len(excerpt.Embedding) == 0 {
			t.Error("expected excerpt embedding")
		}
	}
}

func TestSeedDirNothingSeeded(t *testing.T) {
	seeder := NewStyleSeeder(&fakeStyleRepo{}, &fakeEmbedder{}, &fakeStyleAnalyzer{}, Options{})

	if _, err := seeder.SeedDir(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected an error when no sample files exist")
	}
}

func TestSeedDirAnalyzerFailure(t *testing.T) {
	styles := &fakeStyleRepo{}
	analyzer := &fakeStyleAnalyzer{err: errors.New("model unavailable")}
	seeder := NewStyleSeeder(styles, &fakeEmbedder{}, analyzer, Options{})

	dir := t.TempDir()
	writeTestFile(t, dir, "culture.md", "本文です。")

	if _, err := seeder.SeedDir(context.Background(), dir); err == nil {
		t.Fatal("expected an error when every category fails")
	}
	if len(styles.profiles) != 0 {
		t.Errorf("expected no profiles, got %d", len(styles.profiles))
	}
}
