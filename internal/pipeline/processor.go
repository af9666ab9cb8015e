// Package pipeline runs batches: select documents, extract each one, persist
// the outcome, and report a summary.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/ledger"
	"github.com/joseph-ayodele/acordao-extractor/internal/llm"
	"github.com/joseph-ayodele/acordao-extractor/internal/selection"
)

// DocumentSource is the registry of source documents.
type DocumentSource interface {
	List() ([]string, error)
	Read(documentID string) (string, error)
	Exists(documentID string) bool
}

// Extractor classifies one document into a tagged outcome.
type Extractor interface {
	Extract(ctx context.Context, req llm.Request) llm.Outcome
}

// ArtifactStore is the versioned slot store.
type ArtifactStore interface {
	WriteText(slot, text string) (string, error)
	WriteJSON(slot string, v any) (string, error)
}

// ErrorJournal records failure details for operators.
type ErrorJournal interface {
	Record(documentID, detail string) error
}

// Deps are the collaborators of a Processor. Prompt is optional; when set it
// is snapshotted to the artifact store once per run.
type Deps struct {
	Source    DocumentSource
	Ledger    ledger.Log
	Extractor Extractor
	Store     ArtifactStore
	Journal   ErrorJournal
	Prompt    string
}

// Processor coordinates selection, extraction and persistence. Documents are
// processed one at a time; a single writer is assumed.
type Processor struct {
	source  DocumentSource
	ledger  ledger.Log
	extract *ExtractStage
	persist *PersistStage
	store   ArtifactStore
	prompt  string
	logger  *slog.Logger
}

func NewProcessor(deps Deps, logger *slog.Logger) (*Processor, error) {
	if deps.Source == nil || deps.Ledger == nil || deps.Extractor == nil || deps.Store == nil || deps.Journal == nil {
		return nil, common.NewAppError("PIPELINE_ERROR", "processor requires source, ledger, extractor, store and journal", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		source:  deps.Source,
		ledger:  deps.Ledger,
		extract: NewExtractStage(logger, deps.Source, deps.Extractor, deps.Journal),
		persist: NewPersistStage(logger, deps.Store, deps.Ledger, deps.Journal),
		store:   deps.Store,
		prompt:  deps.Prompt,
		logger:  logger,
	}, nil
}

// Run processes every document the mode selects. Per-document failures are
// recorded and the loop continues; a persistence failure aborts the run and is
// returned with the partial summary. Cancellation is honoured between documents.
func (p *Processor) Run(ctx context.Context, mode selection.Mode) (Summary, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = common.WithRunID(ctx, runID)
	sum := Summary{RunID: runID, Mode: mode}

	listing, err := p.source.List()
	if err != nil {
		return sum, common.WrapError(err, "list documents")
	}
	// the listing defines the batch; ledger rows for missing files are ignored
	history, err := p.ledger.Load(ctx)
	if err != nil {
		return sum, common.WrapError(err, "load ledger")
	}

	selected := selection.Select(mode, listing, history)
	sum.Listed = len(listing)
	sum.Selected = len(selected)
	p.logger.Info("pipeline.run.start",
		"run_id", runID,
		"mode", mode,
		"listed", len(listing),
		"history_rows", history.Len(),
		"selected", len(selected),
	)
	if len(selected) == 0 {
		p.logger.Info("pipeline.run.nothing_to_do", "run_id", runID, "mode", mode)
		sum.Duration = time.Since(start)
		return sum, nil
	}

	if err := p.snapshotPrompt(); err != nil {
		sum.Duration = time.Since(start)
		return sum, err
	}

	for i, doc := range selected {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline.run.interrupted", "run_id", runID, "remaining", len(selected)-i)
			sum.Interrupted = true
			sum.Duration = time.Since(start)
			return sum, err
		}
		p.logger.Info("pipeline.document.start", "run_id", runID, "document", doc, "position", i+1, "of", len(selected))

		res, err := p.process(ctx, doc, false)
		if res.Recorded {
			sum.add(res)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				sum.Interrupted = true
			} else {
				p.logger.Error("pipeline.run.aborted", "run_id", runID, "document", doc, "error", err)
				sum.Aborted = true
			}
			sum.Duration = time.Since(start)
			return sum, err
		}
	}

	sum.Duration = time.Since(start)
	p.logger.Info("pipeline.run.done",
		"run_id", runID,
		"attempted", sum.Attempted,
		"succeeded", sum.Succeeded,
		"parse_errors", sum.ParseErrors,
		"failed", sum.Failed,
		"elapsed_ms", sum.Duration.Milliseconds(),
	)
	return sum, nil
}

// ProcessOne processes a single named document regardless of its history.
// With test set, slots get a _temp suffix and no ledger row is written.
func (p *Processor) ProcessOne(ctx context.Context, documentID string, test bool) (Result, error) {
	if !p.source.Exists(documentID) {
		return Result{DocumentID: documentID}, common.NewAppError("PIPELINE_ERROR", "document "+documentID+" not found", common.ErrNotFound)
	}
	if !test {
		if err := p.snapshotPrompt(); err != nil {
			return Result{DocumentID: documentID}, err
		}
	}
	return p.process(ctx, documentID, test)
}

func (p *Processor) process(ctx context.Context, documentID string, test bool) (Result, error) {
	ctx = common.WithDocumentID(ctx, documentID)
	start := time.Now()

	att := p.extract.Run(ctx, documentID, test)
	if att.Outcome.Kind == constants.OutcomeFailure && ctx.Err() != nil {
		// killed mid-call: no ledger row, the document is retried next run
		p.logger.Warn("pipeline.document.canceled", "document", documentID)
		return Result{DocumentID: documentID, Outcome: att.Outcome.Kind, Err: att.Outcome.Err}, ctx.Err()
	}

	res, err := p.persist.Run(ctx, att, test)
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}

	log := p.logger.Info
	if res.Outcome != constants.OutcomeSuccess {
		log = p.logger.Warn
	}
	log("pipeline.document.done",
		"document", documentID,
		"status", res.Outcome,
		"artifact", res.ArtifactRef,
		"test", test,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

func (p *Processor) snapshotPrompt() error {
	if p.prompt == "" {
		return nil
	}
	if _, err := p.store.WriteText(constants.PromptSnapshotSlot, p.prompt); err != nil {
		return common.WrapError(err, "snapshot prompt")
	}
	return nil
}
