// Package rerank scores retrieved passages against a query with an external
// cross-encoder service, with a no-op fallback when none is configured.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"notedraft/internal/logger"
)

// Result is one scored passage.
type Result struct {
	Index      int     `json:"index"`      // Position of the passage in the input slice
	Text       string  `json:"text"`       // The passage text
	Raw        float64 `json:"raw"`        // Raw cross-encoder score, higher is more relevant
	Normalized float64 `json:"normalized"` // Sigmoid of Raw, in (0,1)
}

// Reranker orders passages by relevance to a query.
type Reranker interface {
	// Rerank returns the topK most relevant passages, ordered by raw score
	// descending. Ties keep input order. topK <= 0 returns all passages.
	Rerank(ctx context.Context, query string, passages []string, topK int) ([]Result, error)

	// Available reports whether real scoring is backing this reranker.
	Available() bool
}

// Config holds reranker client settings.
type Config struct {
	URL     string
	Enabled bool
	Timeout time.Duration
}

// New returns an HTTP reranker when a service URL is configured and enabled,
// and a no-op reranker otherwise.
func New(cfg Config) Reranker {
	if !cfg.Enabled || cfg.URL == "" {
		return &NoopReranker{}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPReranker{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

// HTTPReranker scores passages via a cross-encoder scoring service.
type HTTPReranker struct {
	url    string
	client *http.Client
}

// Available reports that real scoring is available.
func (r *HTTPReranker) Available() bool { return true }

// Rerank posts the query and passages to the scoring service and returns the
// topK passages ordered by raw score descending, ties keeping input order.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, passages []string, topK int) ([]Result, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]any{
		"query":    query,
		"passages": passages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute rerank request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		Results []struct {
			Index int     `json:"index"`
			Score float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse rerank response: %w", err)
	}

	results := make([]Result, 0, len(apiResponse.Results))
	for _, item := range apiResponse.Results {
		if item.Index < 0 || item.Index >= len(passages) {
			return nil, fmt.Errorf("rerank response references passage %d of %d", item.Index, len(passages))
		}
		results = append(results, Result{
			Index:      item.Index,
			Text:       passages[item.Index],
			Raw:        item.Score,
			Normalized: Sigmoid(item.Score),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Raw != results[j].Raw {
			return results[i].Raw > results[j].Raw
		}
		return results[i].Index < results[j].Index
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}

	logger.Debug("Reranked passages", "query_len", len(query), "passages", len(passages), "returned", len(results))
	return results, nil
}

// NoopReranker passes passages through without scoring.
type NoopReranker struct{}

// Available reports that no real scoring is available.
func (r *NoopReranker) Available() bool { return false }

// Rerank returns the first topK passages in input order with neutral scores.
func (r *NoopReranker) Rerank(_ context.Context, _ string, passages []string, topK int) ([]Result, error) {
	n := len(passages)
	if topK > 0 && topK < n {
		n = topK
	}
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{
			Index:      i,
			Text:       passages[i],
			Raw:        0.0,
			Normalized: 0.5,
		}
	}
	return results, nil
}

// Sigmoid maps a raw cross-encoder score into (0,1).
func Sigmoid(raw float64) float64 {
	return 1.0 / (1.0 + math.Exp(-raw))
}
