package monitor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/errlog"
	"github.com/joseph-ayodele/acordao-extractor/internal/ingest"
	"github.com/joseph-ayodele/acordao-extractor/internal/ledger"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func entry(doc string, sec int, o constants.Outcome) ledger.Entry {
	return ledger.Entry{DocumentID: doc, ArtifactRef: constants.NoArtifact, Timestamp: at(sec), Outcome: o}
}

func TestMeanGap_SkipsIdlePeriods(t *testing.T) {
	ts := []time.Time{at(410), at(0), at(400), at(10)}
	assert.Equal(t, 10*time.Second, MeanGap(ts, DefaultMaxGap))
}

func TestMeanGap_NeedsTwoUsableGaps(t *testing.T) {
	assert.Zero(t, MeanGap(nil, DefaultMaxGap))
	assert.Zero(t, MeanGap([]time.Time{at(0), at(10)}, DefaultMaxGap))
	// only one gap survives the filter
	assert.Zero(t, MeanGap([]time.Time{at(0), at(10), at(1000)}, DefaultMaxGap))
	// zero gaps are ignored
	assert.Zero(t, MeanGap([]time.Time{at(0), at(0), at(0), at(20)}, DefaultMaxGap))
}

func TestCompute(t *testing.T) {
	h := ledger.NewHistory([]ledger.Entry{
		entry("a.md", 0, constants.OutcomeFailure),
		entry("b.md", 10, constants.OutcomeSuccess),
		entry("a.md", 20, constants.OutcomeSuccess),
		entry("c.md", 30, constants.OutcomeParseError),
	})
	listing := []string{"a.md", "b.md", "c.md", "d.md", "e.md"}

	st := Compute(h, listing, "boom", DefaultMaxGap)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 3, st.WithHistory)
	assert.Equal(t, 2, st.Remaining)
	assert.Equal(t, 2, st.ByOutcome[constants.OutcomeSuccess].Count)
	assert.Equal(t, "a.md", st.ByOutcome[constants.OutcomeSuccess].LastDocument)
	assert.Equal(t, 1, st.ByOutcome[constants.OutcomeParseError].Count)
	assert.Zero(t, st.ByOutcome[constants.OutcomeFailure].Count)
	assert.Equal(t, 10*time.Second, st.MeanGap)
	assert.Equal(t, 20*time.Second, st.ETA)
	assert.Equal(t, "boom", st.LastError)
	assert.InDelta(t, 0.6, st.Fraction(), 1e-9)
}

func TestCompute_RemainingClamped(t *testing.T) {
	h := ledger.NewHistory([]ledger.Entry{
		entry("gone1.md", 0, constants.OutcomeSuccess),
		entry("gone2.md", 5, constants.OutcomeSuccess),
		entry("gone3.md", 10, constants.OutcomeSuccess),
	})
	st := Compute(h, []string{"a.md"}, "", DefaultMaxGap)
	assert.Equal(t, 0, st.Remaining)
	assert.Zero(t, st.ETA)
	assert.Equal(t, float64(1), st.Fraction())
}

func TestCompute_EmptyHistory(t *testing.T) {
	st := Compute(nil, []string{"a.md"}, errlog.NoErrors, DefaultMaxGap)
	assert.Equal(t, 1, st.Remaining)
	assert.Zero(t, st.MeanGap)
	assert.Zero(t, st.ETA)
}

func TestFormatETA(t *testing.T) {
	assert.Equal(t, "--:--:--", FormatETA(0))
	assert.Equal(t, "00:00:20", FormatETA(20*time.Second))
	assert.Equal(t, "27:46:40", FormatETA(100000*time.Second))
}

func TestMonitor_Draw(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"a.md", "b.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, d), []byte("x"), 0o644))
	}
	lg := ledger.NewCSVStore(filepath.Join(dir, "controle.csv"), nil)
	_, err := lg.Append(context.Background(), "a.md", "a.json", constants.OutcomeSuccess)
	require.NoError(t, err)
	journal := errlog.New(filepath.Join(dir, "erros.log"), nil)

	var out bytes.Buffer
	m := New(ingest.NewSource(dir), lg, journal, Config{
		Settings: Settings{SourceDir: dir, Ledger: lg.Path(), ErrorLog: journal.Path(), Interval: time.Second},
		Plain:    true,
		Out:      &out,
	})

	st, err := m.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.WithHistory)
	assert.Equal(t, 1, st.Remaining)
	assert.Equal(t, errlog.NoErrors, st.LastError)

	require.NoError(t, m.Draw(context.Background()))
	text := out.String()
	assert.Contains(t, text, "Success")
	assert.Contains(t, text, "last: a.md")
	assert.Contains(t, text, "1/2")
	assert.Contains(t, text, errlog.NoErrors)
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	lg := ledger.NewCSVStore(filepath.Join(dir, "controle.csv"), nil)
	m := New(ingest.NewSource(dir), lg, errlog.New(filepath.Join(dir, "erros.log"), nil), Config{
		Settings: Settings{Interval: 10 * time.Millisecond},
		Plain:    true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, m.Run(ctx))
}
