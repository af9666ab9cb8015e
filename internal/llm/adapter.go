package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/entity"
)

// ArtifactWriter is the slice of the artifact store the adapter needs.
type ArtifactWriter interface {
	WriteText(slot, text string) (string, error)
}

// ErrorRecorder is the slice of the error journal the adapter needs.
type ErrorRecorder interface {
	Record(documentID, detail string) error
}

// AdapterConfig tunes response handling.
type AdapterConfig struct {
	// Lenient repairs scalar drift before giving up on a response.
	Lenient bool
}

// Adapter wraps one structured-generation call and classifies its result.
// It performs no retries.
type Adapter struct {
	gen      Generator
	prompt   *PromptSet
	schema   map[string]any
	compiled *jsonschema.Schema
	store    ArtifactWriter
	journal  ErrorRecorder
	cfg      AdapterConfig
	logger   *slog.Logger
}

// NewAdapter compiles the decision schema once and wires the collaborators.
func NewAdapter(gen Generator, prompt *PromptSet, store ArtifactWriter, journal ErrorRecorder, cfg AdapterConfig, logger *slog.Logger) (*Adapter, error) {
	if gen == nil || prompt == nil || store == nil || journal == nil {
		return nil, common.NewAppError("LLM_ERROR", "adapter requires generator, prompt, store and journal", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema := BuildDecisionJSONSchema()
	compiled, err := CompileSchema(schema)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		gen:      gen,
		prompt:   prompt,
		schema:   schema,
		compiled: compiled,
		store:    store,
		journal:  journal,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Prompt returns the prompt set the adapter sends.
func (a *Adapter) Prompt() *PromptSet { return a.prompt }

// Extract runs one document through the generator:
//   - Failure: the call failed or returned nothing; details go to the error journal.
//   - ParseError: a response came back but does not fit the schema; the raw
//     response is persisted and the untyped payload returned.
//   - Success: the response validated and decoded; the raw response is persisted.
//
// A raw-response write failure is returned as Failure with a persistence error.
func (a *Adapter) Extract(ctx context.Context, req Request) Outcome {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()

	a.logger.Info("llm.extract.start",
		"req_id", rid,
		"document", req.DocumentID,
		"text_len", len(req.Text),
	)

	resp, err := a.gen.Generate(ctx, a.prompt.Request(req.Text, a.schema))
	if err != nil {
		if ctx.Err() != nil {
			a.logger.Warn("llm.extract.canceled", "req_id", rid, "document", req.DocumentID, "error", err)
			return failure(err, "", rid)
		}
		a.logger.Error("llm.extract.call_failed",
			"req_id", rid, "document", req.DocumentID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return a.fail(req.DocumentID, rid, fmt.Errorf("generate: %w", err))
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		a.logger.Error("llm.extract.empty_response",
			"req_id", rid, "document", req.DocumentID, "finish_reason", resp.FinishReason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return a.fail(req.DocumentID, rid, fmt.Errorf("%w: empty response (finish reason %q)", common.ErrTransport, resp.FinishReason))
	}

	// persist before classifying so every answer is auditable
	if _, err := a.store.WriteText(req.Slots.Raw, resp.Text); err != nil {
		a.logger.Error("llm.extract.raw_persist_failed", "req_id", rid, "document", req.DocumentID, "error", err)
		return failure(err, "", rid)
	}
	rawSlot := req.Slots.Raw

	rec, payload, perr := a.decode(StripCodeFences(text), rid)
	if perr != nil {
		a.logger.Warn("llm.extract.parse_error",
			"req_id", rid, "document", req.DocumentID, "error", perr,
			"content", truncate(text, 512),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return parseError(payload, perr, rawSlot, rid)
	}

	a.logger.Info("llm.extract.ok",
		"req_id", rid,
		"document", req.DocumentID,
		"model", resp.Model,
		"acordao", rec.Number,
		"items", len(rec.Items),
		"excerpts", rec.ExcerptCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return success(rec, rawSlot, rid)
}

// decode validates content and returns the typed record, or the untyped
// payload with the reason it was rejected.
func (a *Adapter) decode(content, rid string) (*entity.Decision, any, error) {
	var payload any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, content, fmt.Errorf("%w: response is not JSON: %v", common.ErrSchemaMismatch, err)
	}

	candidate := payload
	if err := a.compiled.Validate(payload); err != nil {
		if !a.cfg.Lenient {
			return nil, payload, fmt.Errorf("%w: %v", common.ErrSchemaMismatch, err)
		}
		// coerce a fresh copy; payload stays as returned
		var fresh any
		_ = json.Unmarshal([]byte(content), &fresh)
		repaired, touched := CoerceToSchema(fresh, a.schema, a.logger)
		if vErr := a.compiled.Validate(repaired); vErr != nil {
			return nil, payload, fmt.Errorf("%w: %v", common.ErrSchemaMismatch, vErr)
		}
		a.logger.Warn("llm.extract.lenient_sanitize_applied", "req_id", rid, "touched", len(touched))
		candidate = repaired
	}

	b, err := json.Marshal(candidate)
	if err != nil {
		return nil, payload, fmt.Errorf("%w: re-encode: %v", common.ErrSchemaMismatch, err)
	}
	var rec entity.Decision
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, payload, fmt.Errorf("%w: decode record: %v", common.ErrSchemaMismatch, err)
	}
	return &rec, nil, nil
}

// fail journals the failure and returns a Failure outcome. A journal write
// error is escalated since it is the only trace of the failure.
func (a *Adapter) fail(documentID, rid string, cause error) Outcome {
	detail := fmt.Sprintf("req_id=%s\n%v", rid, cause)
	if err := a.journal.Record(documentID, detail); err != nil {
		return failure(errors.Join(cause, err), "", rid)
	}
	return failure(cause, "", rid)
}
