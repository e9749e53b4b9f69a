package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"notedraft/internal/chains"
	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/verify"
)

// VerifyRequestBody is the request for POST /api/verify: an article text
// to check and the source material to ground the fact check against.
type VerifyRequestBody struct {
	Text     string `json:"text"`
	Material string `json:"material"`
}

// VerifyResponse carries both verdicts plus the text with review tags
// inserted after each unverified claim.
type VerifyResponse struct {
	StyleCheck   *core.StyleCheck   `json:"style_check"`
	Verification *core.Verification `json:"verification"`
	TaggedText   string             `json:"tagged_text"`
}

// handleVerify handles POST /api/verify. Unlike the pipeline's quality
// gate this surface is not best-effort: a failed check is the whole
// point of the call, so chain failures surface as upstream errors.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body VerifyRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondInvalid(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		s.respondInvalid(w, "text is required")
		return
	}
	if strings.TrimSpace(body.Material) == "" {
		s.respondInvalid(w, "material is required")
		return
	}

	ctx := r.Context()
	in, err := s.deps.Parser.Run(ctx, body.Material)
	if err != nil {
		logger.Error("Verify material parse failed", err)
		s.respondError(w, err)
		return
	}

	var (
		check        *core.StyleCheck
		verification *core.Verification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		check, err = s.deps.Style.Run(gctx, chains.StyleCheckInput{
			Body:  body.Text,
			Style: chains.DefaultStyleFeatures(),
		})
		if err != nil {
			return fmt.Errorf("style check failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		verification, err = s.deps.Fact.Run(gctx, chains.HallucinationInput{
			Body:  body.Text,
			Input: in,
		})
		if err != nil {
			return fmt.Errorf("hallucination detection failed: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := core.FromContext(ctx.Err()); ctxErr != nil {
			err = ctxErr
		}
		logger.Error("Verification failed", err)
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, VerifyResponse{
		StyleCheck:   check,
		Verification: verification,
		TaggedText:   verify.Tag(body.Text, verification.UnverifiedClaims),
	})
}
