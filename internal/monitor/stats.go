// Package monitor reports batch progress from the ledger, the document
// directory and the error log. It only reads; it never writes to any of them.
package monitor

import (
	"sort"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/ledger"
)

// DefaultMaxGap excludes idle periods from the pace estimate.
const DefaultMaxGap = 300 * time.Second

// OutcomeStat aggregates documents whose latest outcome is one status.
type OutcomeStat struct {
	Count        int
	LastDocument string
	LastAt       time.Time
}

// Stats is one snapshot of progress.
type Stats struct {
	Total       int
	WithHistory int
	Remaining   int
	ByOutcome   map[constants.Outcome]OutcomeStat
	MeanGap     time.Duration
	ETA         time.Duration
	LastError   string
	SkippedRows int
	ComputedAt  time.Time
}

// Fraction returns the share of listed documents that have history, in [0,1].
func (s Stats) Fraction() float64 {
	if s.Total == 0 {
		return 0
	}
	f := float64(s.WithHistory) / float64(s.Total)
	if f > 1 {
		return 1
	}
	return f
}

// Compute derives progress from a history snapshot and a directory listing.
// Remaining is clamped at zero when the ledger mentions documents that are no
// longer listed.
func Compute(history *ledger.History, listing []string, lastErr string, maxGap time.Duration) Stats {
	st := Stats{
		Total:       len(listing),
		WithHistory: len(history.Documents()),
		ByOutcome:   make(map[constants.Outcome]OutcomeStat, 3),
		LastError:   lastErr,
		SkippedRows: history.Skipped(),
	}
	st.Remaining = max(0, st.Total-st.WithHistory)

	lastSeq := make(map[constants.Outcome]int, 3)
	for doc, e := range history.LatestAll() {
		agg := st.ByOutcome[e.Outcome]
		agg.Count++
		if agg.LastDocument == "" || e.Timestamp.After(agg.LastAt) || (e.Timestamp.Equal(agg.LastAt) && e.Seq > lastSeq[e.Outcome]) {
			agg.LastDocument = doc
			agg.LastAt = e.Timestamp
			lastSeq[e.Outcome] = e.Seq
		}
		st.ByOutcome[e.Outcome] = agg
	}

	st.MeanGap = MeanGap(history.Timestamps(), maxGap)
	if st.MeanGap > 0 && st.Remaining > 0 {
		st.ETA = st.MeanGap * time.Duration(st.Remaining)
	}
	return st
}

// MeanGap averages the gaps between consecutive sorted timestamps, counting
// only gaps with 0 < gap < maxGap. It returns zero with fewer than two
// usable gaps.
func MeanGap(timestamps []time.Time, maxGap time.Duration) time.Duration {
	if len(timestamps) < 3 {
		return 0
	}
	ts := append([]time.Time(nil), timestamps...)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })

	var sum time.Duration
	n := 0
	for i := 1; i < len(ts); i++ {
		gap := ts[i].Sub(ts[i-1])
		if gap > 0 && gap < maxGap {
			sum += gap
			n++
		}
	}
	if n < 2 {
		return 0
	}
	return sum / time.Duration(n)
}
