package artifact

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/acordao-extractor/constants"
)

// Slots names the artifacts of one document.
type Slots struct {
	Raw        string
	Structured string
	Error      string
}

// SlotsFor derives slots from the document name: a.md -> a.txt, a.json, a.error.
// Temp slots carry a _temp suffix so ad-hoc runs never touch the real backup chain.
func SlotsFor(documentID string, temp bool) Slots {
	stem := Stem(documentID)
	s := Slots{
		Raw:        stem + constants.RawExt,
		Structured: stem + constants.StructuredExt,
		Error:      stem + constants.ErrorExt,
	}
	if temp {
		s.Raw += constants.TempSuffix
		s.Structured += constants.TempSuffix
		s.Error += constants.TempSuffix
	}
	return s
}

// Stem strips the directory and extension from a document name.
func Stem(documentID string) string {
	base := filepath.Base(documentID)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsCurrentStructured reports whether name is a live structured slot, not a
// backup or temp copy.
func IsCurrentStructured(name string) bool {
	return strings.HasSuffix(name, constants.StructuredExt) && !strings.HasPrefix(filepath.Base(name), ".")
}
