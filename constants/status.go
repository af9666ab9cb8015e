package constants

import "strings"

// Outcome is the terminal result of one extraction attempt as stored in the ledger.
type Outcome string

// Stable values (store these exact strings in the ledger).
const (
	OutcomeSuccess    Outcome = "Success"
	OutcomeFailure    Outcome = "Failure"
	OutcomeParseError Outcome = "ParseError"
)

// NoArtifact is written in the artifact column when a row has no artifact reference.
const NoArtifact = "N/A"

// legacyOutcomes maps labels written by older ledgers to the canonical values.
var legacyOutcomes = map[string]Outcome{
	"sucesso":       OutcomeSuccess,
	"falha":         OutcomeFailure,
	"erro no parse": OutcomeParseError,
	"parse_error":   OutcomeParseError,
}

// ParseOutcome resolves a ledger label. The second return is false for unknown labels.
func ParseOutcome(label string) (Outcome, bool) {
	s := strings.TrimSpace(label)
	switch Outcome(s) {
	case OutcomeSuccess, OutcomeFailure, OutcomeParseError:
		return Outcome(s), true
	}
	if o, ok := legacyOutcomes[strings.ToLower(s)]; ok {
		return o, true
	}
	return "", false
}

// IsFailed reports whether the outcome makes a document eligible for retry.
func (o Outcome) IsFailed() bool {
	return o == OutcomeFailure || o == OutcomeParseError
}
