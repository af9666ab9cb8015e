package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/llm"
)

// Generate implements llm.Generator with chat/completions in JSON mode.
// The schema travels in a system message since json_object mode does not enforce it.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	rid := common.RequestIDFromContext(ctx)

	messages := []map[string]any{
		{"role": "system", "content": req.Instruction},
	}
	if req.Reference != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.Reference})
	}
	messages = append(messages,
		map[string]any{"role": "system", "content": "Return ONLY JSON that matches this JSON Schema:\n" + mustJSON(req.Schema)},
		map[string]any{"role": "user", "content": req.Document},
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        messages,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Model   string `json:"model"`
		Choices []struct {
			FinishReason string `json:"finish_reason"`
			Message      struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.openai.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return llm.GenerateResponse{}, fmt.Errorf("%w: decode openai response: %v", common.ErrTransport, err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices", "req_id", rid)
		return llm.GenerateResponse{}, fmt.Errorf("%w: no choices in openai response", common.ErrTransport)
	}
	return llm.GenerateResponse{
		Text:         cc.Choices[0].Message.Content,
		Model:        cc.Model,
		FinishReason: cc.Choices[0].FinishReason,
		RequestID:    rid,
	}, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
