// Package ledger is the append-only processing history shared by runs and the monitor.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/constants"
)

// Entry is one immutable ledger row.
type Entry struct {
	DocumentID string
	// ArtifactRef is empty when the attempt produced no artifact.
	ArtifactRef string
	Timestamp   time.Time
	Outcome     constants.Outcome
	// Seq is the entry's position in the log; it breaks timestamp ties.
	Seq int
}

// Log is the append-only history the pipeline writes and the selection policy
// and monitor read. The CSV file is one implementation.
type Log interface {
	Append(ctx context.Context, documentID, artifactRef string, outcome constants.Outcome) (Entry, error)
	Load(ctx context.Context) (*History, error)
}

// History is a loaded ledger. Resolution walks every entry, so cost grows with
// total history rather than with the number of documents.
type History struct {
	entries []Entry
	byDoc   map[string][]Entry
	skipped int
}

// NewHistory indexes entries in the given order, which becomes their Seq.
func NewHistory(entries []Entry) *History {
	h := &History{
		entries: make([]Entry, len(entries)),
		byDoc:   make(map[string][]Entry),
	}
	for i, e := range entries {
		e.Seq = i
		h.entries[i] = e
		h.byDoc[e.DocumentID] = append(h.byDoc[e.DocumentID], e)
	}
	return h
}

// Entries returns every valid row in file order.
func (h *History) Entries() []Entry {
	if h == nil {
		return nil
	}
	return h.entries
}

// Len is the number of valid rows.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Skipped is the number of malformed rows ignored while loading.
func (h *History) Skipped() int {
	if h == nil {
		return 0
	}
	return h.skipped
}

// ByDocument returns the status history of one document in file order.
func (h *History) ByDocument(documentID string) []Entry {
	if h == nil {
		return nil
	}
	return h.byDoc[documentID]
}

// Has reports whether the document has any history.
func (h *History) Has(documentID string) bool {
	return len(h.ByDocument(documentID)) > 0
}

// Documents lists every document with history, sorted by name.
func (h *History) Documents() []string {
	if h == nil {
		return nil
	}
	docs := make([]string, 0, len(h.byDoc))
	for d := range h.byDoc {
		docs = append(docs, d)
	}
	sort.Strings(docs)
	return docs
}

// Latest returns the entry with the maximum timestamp for the document.
// Equal timestamps resolve to the row appended last.
func (h *History) Latest(documentID string) (Entry, bool) {
	entries := h.ByDocument(documentID)
	if len(entries) == 0 {
		return Entry{}, false
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Timestamp.After(best.Timestamp) || (e.Timestamp.Equal(best.Timestamp) && e.Seq > best.Seq) {
			best = e
		}
	}
	return best, true
}

// LatestAll resolves the latest entry of every document.
func (h *History) LatestAll() map[string]Entry {
	out := make(map[string]Entry)
	for _, d := range h.Documents() {
		if e, ok := h.Latest(d); ok {
			out[d] = e
		}
	}
	return out
}

// Timestamps returns every valid row's timestamp in file order.
func (h *History) Timestamps() []time.Time {
	out := make([]time.Time, 0, h.Len())
	for _, e := range h.Entries() {
		out = append(out, e.Timestamp)
	}
	return out
}
