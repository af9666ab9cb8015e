package llm

import (
	"context"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/artifact"
	"github.com/joseph-ayodele/acordao-extractor/internal/entity"
)

// GenerateRequest is one structured-generation call: instruction and optional
// reference material, the document body, and the JSON schema the answer must follow.
type GenerateRequest struct {
	Instruction string
	Reference   string
	Document    string
	Schema      map[string]any
}

// GenerateResponse carries the model's text as returned, before any parsing.
type GenerateResponse struct {
	Text         string
	Model        string
	FinishReason string
	RequestID    string
}

// Generator is the structured-generation service the adapter depends on.
// Implementations return an error for transport, quota and provider failures.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// Request asks the adapter to extract one document.
type Request struct {
	DocumentID string
	Text       string
	Slots      artifact.Slots
}

// Outcome is the adapter's tagged result. Exactly one of the Kind-specific
// fields is meaningful:
//   - OutcomeSuccess: Record
//   - OutcomeParseError: Payload (the untyped response) and Err
//   - OutcomeFailure: Err
type Outcome struct {
	Kind constants.Outcome

	Record  *entity.Decision
	Payload any
	Err     error

	// RawSlot names the slot holding the raw response, empty when none was persisted.
	RawSlot   string
	RequestID string
}

func success(rec *entity.Decision, rawSlot, reqID string) Outcome {
	return Outcome{Kind: constants.OutcomeSuccess, Record: rec, RawSlot: rawSlot, RequestID: reqID}
}

func parseError(payload any, err error, rawSlot, reqID string) Outcome {
	return Outcome{Kind: constants.OutcomeParseError, Payload: payload, Err: err, RawSlot: rawSlot, RequestID: reqID}
}

func failure(err error, rawSlot, reqID string) Outcome {
	return Outcome{Kind: constants.OutcomeFailure, Err: err, RawSlot: rawSlot, RequestID: reqID}
}
