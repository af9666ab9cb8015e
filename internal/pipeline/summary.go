package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/selection"
)

// Result describes one processed document.
type Result struct {
	DocumentID  string
	Outcome     constants.Outcome
	ArtifactRef string
	RawSlot     string
	Err         error
	// Recorded is true once the ledger row was appended.
	Recorded bool
	Elapsed  time.Duration
}

// Summary is the end-of-run report.
type Summary struct {
	RunID       string
	Mode        selection.Mode
	Listed      int
	Selected    int
	Attempted   int
	Succeeded   int
	ParseErrors int
	Failed      int
	Aborted     bool
	Interrupted bool
	Duration    time.Duration
	Results     []Result
}

func (s *Summary) add(r Result) {
	s.Attempted++
	switch r.Outcome {
	case constants.OutcomeSuccess:
		s.Succeeded++
	case constants.OutcomeParseError:
		s.ParseErrors++
	case constants.OutcomeFailure:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

func (s Summary) String() string {
	var b strings.Builder
	switch {
	case s.Aborted:
		b.WriteString("Run aborted!\n")
	case s.Interrupted:
		b.WriteString("Run interrupted.\n")
	default:
		b.WriteString("Run complete!\n")
	}
	fmt.Fprintf(&b, "- Mode: %s\n", s.Mode)
	fmt.Fprintf(&b, "- Documents listed: %d\n", s.Listed)
	fmt.Fprintf(&b, "- Selected: %d\n", s.Selected)
	fmt.Fprintf(&b, "- Attempted: %d\n", s.Attempted)
	fmt.Fprintf(&b, "- Succeeded: %d\n", s.Succeeded)
	fmt.Fprintf(&b, "- Parse errors: %d\n", s.ParseErrors)
	fmt.Fprintf(&b, "- Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "- Elapsed: %s\n", s.Duration.Round(time.Second))
	return b.String()
}
