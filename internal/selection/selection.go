// Package selection decides which documents a run processes.
package selection

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/ledger"
)

// Mode is a selection policy.
type Mode string

const (
	// OnlyNew picks documents with no ledger history.
	OnlyNew Mode = "only_new"
	// All picks every document in the listing.
	All Mode = "all"
	// NewAndFailed picks documents with no history or whose latest outcome is
	// Failure or ParseError. Success is sticky.
	NewAndFailed Mode = "new_and_failed"
)

// Modes lists the accepted policies.
var Modes = []Mode{OnlyNew, All, NewAndFailed}

// ParseMode accepts the policy names with '_' or '-' separators.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch m {
	case "":
		return OnlyNew, nil
	case OnlyNew, All, NewAndFailed:
		return m, nil
	}
	return "", common.NewAppError("SELECTION_ERROR", fmt.Sprintf("unknown mode %q", s), common.ErrInvalidInput)
}

// Select filters listing by mode and keeps listing order. An empty result is
// not an error. It reads the history only.
func Select(mode Mode, listing []string, history *ledger.History) []string {
	out := make([]string, 0, len(listing))
	for _, doc := range listing {
		if eligible(mode, doc, history) {
			out = append(out, doc)
		}
	}
	return out
}

func eligible(mode Mode, doc string, history *ledger.History) bool {
	switch mode {
	case All:
		return true
	case NewAndFailed:
		latest, ok := history.Latest(doc)
		return !ok || latest.Outcome.IsFailed()
	default:
		return !history.Has(doc)
	}
}
