package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("default shutdown_timeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Gemini.ModelLite != "gemini-flash-lite-latest" {
		t.Errorf("default model_lite = %q", cfg.Gemini.ModelLite)
	}
	if cfg.Retrieval.RRFK != 60 {
		t.Errorf("default rrf_k = %d, want 60", cfg.Retrieval.RRFK)
	}
	if cfg.Retrieval.LaneK != 20 || cfg.Retrieval.FinalK != 10 {
		t.Errorf("default lane_k/final_k = %d/%d, want 20/10", cfg.Retrieval.LaneK, cfg.Retrieval.FinalK)
	}
	if !cfg.Generation.UseQueryGenerator || !cfg.Generation.UseAutoRewrite {
		t.Error("generation flags should default to enabled")
	}
	if cfg.Generation.MaxParallelSections != 4 {
		t.Errorf("default max_parallel_sections = %d, want 4", cfg.Generation.MaxParallelSections)
	}
	if cfg.Generation.DesiredLength != 2000 {
		t.Errorf("default desired_length = %d, want 2000", cfg.Generation.DesiredLength)
	}
	if cfg.Generation.RequestTimeout != 10*time.Minute {
		t.Errorf("default request_timeout = %v, want 10m", cfg.Generation.RequestTimeout)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("default chunking = %d/%d, want 1000/200", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Jobs.TTL != time.Hour {
		t.Errorf("default jobs.ttl = %v, want 1h", cfg.Jobs.TTL)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load(writeTempConfig(t, `
server:
  port: 9090
retrieval:
  rrf_k: 50
generation:
  use_auto_rewrite: false
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Retrieval.RRFK != 50 {
		t.Errorf("retrieval.rrf_k = %d, want 50", cfg.Retrieval.RRFK)
	}
	if cfg.Generation.UseAutoRewrite {
		t.Error("generation.use_auto_rewrite should be overridden to false")
	}
	// Untouched keys keep defaults
	if cfg.Retrieval.FinalK != 10 {
		t.Errorf("retrieval.final_k = %d, want default 10", cfg.Retrieval.FinalK)
	}
}

func TestLoad_EnvBinding(t *testing.T) {
	Reset()
	defer Reset()

	os.Setenv("DATABASE_URL", "postgres://env-test/db")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.ConnectionString != "postgres://env-test/db" {
		t.Errorf("database.url = %q, want env value", cfg.Database.ConnectionString)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad port", "server:\n  port: 0\n", "server.port"},
		{"bad overlap", "ingest:\n  chunk_size: 100\n  chunk_overlap: 100\n", "chunk_overlap"},
		{"bad rrf", "retrieval:\n  rrf_k: 0\n", "rrf_k"},
		{"bad sections", "generation:\n  max_parallel_sections: 0\n", "max_parallel_sections"},
	}

	for _, tc := range cases {
		Reset()
		_, err := Load(writeTempConfig(t, tc.yaml))
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q should mention %q", tc.name, err, tc.want)
		}
	}
	Reset()
}

func TestLoad_CachesGlobal(t *testing.T) {
	Reset()
	defer Reset()

	first, err := Load(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := Load("")
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if first != second {
		t.Error("Load should return the cached config on repeat calls")
	}
}

func TestRerankerAvailable(t *testing.T) {
	cfg := &Config{Reranker: Reranker{Enabled: true, URL: "http://localhost:9000"}}
	if !cfg.RerankerAvailable() {
		t.Error("reranker with URL and enabled should be available")
	}
	cfg.Reranker.URL = ""
	if cfg.RerankerAvailable() {
		t.Error("reranker without URL should not be available")
	}
	cfg.Reranker.URL = "http://localhost:9000"
	cfg.Reranker.Enabled = false
	if cfg.RerankerAvailable() {
		t.Error("disabled reranker should not be available")
	}
}

// writeTempConfig writes a yaml config file and returns its path. An empty
// body still produces a valid (defaults-only) file.
func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := t.TempDir() + "/notedraft.yaml"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
