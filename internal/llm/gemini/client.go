package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/llm"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateResponse struct {
	ModelVersion string `json:"modelVersion"`
	Candidates   []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate implements llm.Generator with models/{model}:generateContent in JSON
// mode, passing the schema as responseSchema so the model is constrained to it.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	rid := common.RequestIDFromContext(ctx)

	parts := []part{{Text: req.Instruction}}
	if req.Reference != "" {
		parts = append(parts, part{Text: req.Reference})
	}
	parts = append(parts, part{Text: req.Document})

	gen := map[string]any{
		"responseMimeType": "application/json",
		"temperature":      c.cfg.Temperature,
	}
	if req.Schema != nil {
		gen["responseSchema"] = ToResponseSchema(req.Schema)
	}
	body := map[string]any{
		"contents":         []content{{Role: "user", Parts: parts}},
		"generationConfig": gen,
	}
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("gemini: %w", err)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.logger.Error("llm.gemini.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return llm.GenerateResponse{}, fmt.Errorf("%w: decode gemini response: %v", common.ErrTransport, err)
	}
	if len(gr.Candidates) == 0 {
		reason := ""
		if gr.PromptFeedback != nil {
			reason = gr.PromptFeedback.BlockReason
		}
		c.logger.Error("llm.gemini.no_candidates", "req_id", rid, "block_reason", reason)
		return llm.GenerateResponse{}, fmt.Errorf("%w: no candidates in gemini response (block reason %q)", common.ErrTransport, reason)
	}

	cand := gr.Candidates[0]
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	model := gr.ModelVersion
	if model == "" {
		model = c.cfg.Model
	}
	return llm.GenerateResponse{
		Text:         b.String(),
		Model:        model,
		FinishReason: cand.FinishReason,
		RequestID:    rid,
	}, nil
}
