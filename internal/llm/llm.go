package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/genai"

	"notedraft/internal/core"
	"notedraft/internal/logger"
)

const (
	// DefaultModelHigh is the default model for drafting-quality generation.
	DefaultModelHigh = "gemini-2.5-pro"
	// DefaultModelLite is the default model for extraction and checking chains.
	DefaultModelLite = "gemini-flash-lite-latest"
	// DefaultEmbeddingModel is the default model for generating embeddings
	DefaultEmbeddingModel = "gemini-embedding-001"
	// DefaultEmbeddingDimensions is the output dimension for embeddings (Matryoshka)
	DefaultEmbeddingDimensions = int32(768)

	// callTimeout bounds every individual upstream call.
	callTimeout = 60 * time.Second
	// maxAttempts bounds retries for transient upstream failures.
	maxAttempts = 3
)

// Tier selects the model class for a chat call.
type Tier string

const (
	// TierHigh routes to the drafting model (outline, titles, lead, sections, closing, rewrite).
	TierHigh Tier = "high"
	// TierLite routes to the fast model (parse, classify, querygen, analyzers, checks).
	TierLite Tier = "lite"
)

// Options configures a Client. Zero values fall back to env/viper and defaults.
type Options struct {
	APIKey         string
	ModelHigh      string
	ModelLite      string
	EmbeddingModel string
	// UseLiteModel false routes lite-tier calls to the high model.
	UseLiteModel bool
}

// ChatRequest describes one model call.
type ChatRequest struct {
	Tier        Tier
	Temperature float32
	System      string        // Optional system instruction
	Prompt      string        // User prompt
	Schema      *genai.Schema // Optional: schema for structured JSON output
	MaxTokens   int32         // Optional output token cap
}

// Client wraps the Gemini SDK with tier routing, timeouts and retries.
// A single Client is safe for concurrent use.
type Client struct {
	apiKey         string
	modelHigh      string
	modelLite      string
	embeddingModel string
	useLite        bool
	gClient        *genai.Client
}

// NewClient creates a new LLM client.
// It supports multiple ways to get the API key (in order of preference):
// 1. Options.APIKey
// 2. Environment variable: GEMINI_API_KEY (or alternatives)
// 3. Viper configuration: gemini.api_key
func NewClient(opts Options) (*Client, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			if apiKey = os.Getenv("GOOGLE_AI_API_KEY"); apiKey == "" {
				apiKey = viper.GetString("gemini.api_key")
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or gemini.api_key in config file.\nGet your API key from: https://makersuite.google.com/app/apikey")
	}

	modelHigh := opts.ModelHigh
	if modelHigh == "" {
		modelHigh = DefaultModelHigh
	}
	modelLite := opts.ModelLite
	if modelLite == "" {
		modelLite = DefaultModelLite
	}
	embeddingModel := opts.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	ctx := context.Background()
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		apiKey:         apiKey,
		modelHigh:      modelHigh,
		modelLite:      modelLite,
		embeddingModel: embeddingModel,
		useLite:        opts.UseLiteModel,
		gClient:        gClient,
	}, nil
}

// ModelFor resolves the model name for a tier, honoring the lite-model flag.
func (c *Client) ModelFor(tier Tier) string {
	if tier == TierLite && c.useLite {
		return c.modelLite
	}
	return c.modelHigh
}

// Chat generates text for the request, returning the raw response text.
// When req.Schema is set the response is JSON constrained to that schema.
// Transient upstream failures are retried up to maxAttempts with exponential
// backoff; on exhaustion the error wraps core.ErrUpstream. A call that
// exceeds the per-call deadline fails with core.ErrTimeout without retrying.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	modelName := c.ModelFor(req.Tier)

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.Prompt}},
		Role:  "user",
	}}

	temp := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return "", core.FromContext(ctx.Err())
			}
			logger.Warn("Retrying model call", "model", modelName, "attempt", attempt+1, "last_error", lastErr.Error())
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		resp, err := c.gClient.Models.GenerateContent(callCtx, modelName, contents, config)
		cancel()

		if err == nil {
			text := resp.Text()
			if text == "" {
				lastErr = fmt.Errorf("empty response from model")
				continue
			}
			return text, nil
		}

		if term := terminalError(ctx, err); term != nil {
			return "", fmt.Errorf("model call failed: %w", term)
		}
		lastErr = err
	}

	return "", fmt.Errorf("model call failed after %d attempts: %w: %w", maxAttempts, core.ErrUpstream, lastErr)
}

// ChatJSON runs Chat with a schema and decodes the JSON response into out.
// A response that does not decode wraps core.ErrSchema and is never retried.
func (c *Client) ChatJSON(ctx context.Context, req ChatRequest, out any) error {
	if req.Schema == nil {
		return fmt.Errorf("ChatJSON requires a response schema")
	}

	text, err := c.Chat(ctx, req)
	if err != nil {
		return err
	}

	if err := decodeStrict(text, out); err != nil {
		return fmt.Errorf("failed to decode model response: %w: %w", core.ErrSchema, err)
	}
	return nil
}

// Embed generates a 768-dimension embedding for the text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for all texts in one call.
// The result order matches the input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text %d is empty", i)
		}
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: text}},
			Role:  "user",
		}
	}

	// Configure embedding with 768 dimensions using Matryoshka
	dims := DefaultEmbeddingDimensions
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return nil, core.FromContext(ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		resp, err := c.gClient.Models.EmbedContent(callCtx, c.embeddingModel, contents, config)
		cancel()

		if err == nil {
			if resp == nil || len(resp.Embeddings) != len(texts) {
				return nil, fmt.Errorf("embedding count mismatch: %w", core.ErrUpstream)
			}
			vectors := make([][]float32, len(texts))
			for i, emb := range resp.Embeddings {
				if emb == nil || len(emb.Values) == 0 {
					return nil, fmt.Errorf("no embedding values returned for text %d: %w", i, core.ErrUpstream)
				}
				vectors[i] = emb.Values
			}
			return vectors, nil
		}

		if term := terminalError(ctx, err); term != nil {
			return nil, fmt.Errorf("embedding call failed: %w", term)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("embedding call failed after %d attempts: %w: %w", maxAttempts, core.ErrUpstream, lastErr)
}

func (c *Client) Close() {
	// The new SDK client does not require explicit closing
}

// backoffDelay returns the exponential delay before the given retry attempt.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// terminalError classifies an attempt error that must not be retried:
// the caller's context ending, the per-call deadline firing, or a
// non-transient API failure. It returns nil when the attempt may retry.
func terminalError(ctx context.Context, err error) error {
	// Caller's context ending is terminal, never retried.
	if ctxErr := core.FromContext(ctx.Err()); ctxErr != nil {
		return ctxErr
	}
	// The per-call deadline expired while the caller is still live.
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrTimeout, err)
	}
	if !isTransient(err) {
		return fmt.Errorf("%w: %w", core.ErrUpstream, err)
	}
	return nil
}

// isTransient reports whether an upstream error is worth retrying.
// Rate limits, server-side errors and transport failures are transient;
// client-side errors (bad request, auth, blocked content) are not.
func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 408, 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	// Everything else is a transport-level failure.
	return true
}

// decodeStrict unmarshals JSON, tolerating models that fence the payload.
func decodeStrict(text string, out any) error {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return json.Unmarshal([]byte(trimmed), out)
}
