package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/artifact"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/llm"
)

// Attempt is the result of the extract stage for one document.
type Attempt struct {
	DocumentID string
	Slots      artifact.Slots
	Outcome    llm.Outcome
}

// ExtractStage reads the source text and calls the extractor. Every problem,
// including a panic, becomes a Failure outcome for this document only.
type ExtractStage struct {
	logger    *slog.Logger
	source    DocumentSource
	extractor Extractor
	journal   ErrorJournal
}

func NewExtractStage(logger *slog.Logger, source DocumentSource, extractor Extractor, journal ErrorJournal) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{logger: logger, source: source, extractor: extractor, journal: journal}
}

func (s *ExtractStage) Run(ctx context.Context, documentID string, test bool) (att Attempt) {
	att = Attempt{DocumentID: documentID, Slots: artifact.SlotsFor(documentID, test)}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pipeline.extract.panic", "document", documentID, "panic", r)
			att.Outcome = s.fail(documentID, fmt.Errorf("panic: %v", r), fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	text, err := s.source.Read(documentID)
	if err != nil {
		s.logger.Error("pipeline.extract.read_failed", "document", documentID, "error", err)
		att.Outcome = s.fail(documentID, err, fmt.Sprintf("read source: %v", err))
		return att
	}

	att.Outcome = s.extractor.Extract(ctx, llm.Request{
		DocumentID: documentID,
		Text:       text,
		Slots:      att.Slots,
	})
	return att
}

func (s *ExtractStage) fail(documentID string, cause error, detail string) llm.Outcome {
	if err := s.journal.Record(documentID, detail); err != nil {
		return llm.Outcome{Kind: constants.OutcomeFailure, Err: common.PersistenceError("journal failure of "+documentID, err)}
	}
	return llm.Outcome{Kind: constants.OutcomeFailure, Err: cause}
}
