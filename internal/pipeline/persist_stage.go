package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/artifact"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/ledger"
)

// PersistStage writes the artifact an outcome calls for and appends the
// ledger row. Any write error here is a persistence failure.
type PersistStage struct {
	logger  *slog.Logger
	store   ArtifactStore
	ledger  ledger.Log
	journal ErrorJournal
}

func NewPersistStage(logger *slog.Logger, store ArtifactStore, lg ledger.Log, journal ErrorJournal) *PersistStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStage{logger: logger, store: store, ledger: lg, journal: journal}
}

func (s *PersistStage) Run(ctx context.Context, att Attempt, test bool) (Result, error) {
	out := att.Outcome
	res := Result{DocumentID: att.DocumentID, Outcome: out.Kind, Err: out.Err, RawSlot: out.RawSlot}

	if out.Err != nil && common.IsPersistence(out.Err) {
		return res, out.Err
	}

	switch out.Kind {
	case constants.OutcomeSuccess:
		if out.Record == nil {
			return res, common.NewAppError("PIPELINE_ERROR", "success without a record for "+att.DocumentID, common.ErrInternal)
		}
		rec := *out.Record
		rec.SourceFile = artifact.Stem(att.DocumentID)
		if _, err := s.store.WriteJSON(att.Slots.Structured, rec); err != nil {
			return res, err
		}
		res.ArtifactRef = att.Slots.Structured

	case constants.OutcomeParseError:
		if _, err := s.store.WriteJSON(att.Slots.Error, out.Payload); err != nil {
			return res, err
		}
		res.ArtifactRef = att.Slots.Error
		detail := fmt.Sprintf("parse error: %v\npayload saved to %s", out.Err, att.Slots.Error)
		if err := s.journal.Record(att.DocumentID, detail); err != nil {
			return res, common.PersistenceError("journal parse error", err)
		}

	case constants.OutcomeFailure:
		// nothing to store; details are already in the error journal

	default:
		return res, common.NewAppError("PIPELINE_ERROR", fmt.Sprintf("unknown outcome %q for %s", out.Kind, att.DocumentID), common.ErrInternal)
	}

	if test {
		return res, nil
	}
	// the work is done; record it even if the run is being canceled
	if _, err := s.ledger.Append(context.WithoutCancel(ctx), att.DocumentID, res.ArtifactRef, out.Kind); err != nil {
		return res, err
	}
	res.Recorded = true
	return res, nil
}
