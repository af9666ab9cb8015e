package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTestStore(t *testing.T) (*CSVStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)}
	path := filepath.Join(t.TempDir(), "controle.csv")
	return NewCSVStore(path, nil, WithClock(clock.now)), clock
}

func TestCSVStore_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store, clock := setupTestStore(t)

	t.Run("missing file is empty history", func(t *testing.T) {
		h, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, h.Len())
		assert.Empty(t, h.Documents())
	})

	_, err := store.Append(ctx, "a.md", "a.json", constants.OutcomeSuccess)
	require.NoError(t, err)
	clock.advance(5 * time.Second)
	_, err = store.Append(ctx, "b.md", "", constants.OutcomeFailure)
	require.NoError(t, err)

	t.Run("file layout", func(t *testing.T) {
		raw, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		assert.Equal(t,
			"document,artifact,processed_at,status\n"+
				"a.md,a.json,2025-03-01 10:00:00,Success\n"+
				"b.md,N/A,2025-03-01 10:00:05,Failure\n",
			string(raw))
	})

	t.Run("history", func(t *testing.T) {
		h, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, h.Len())
		assert.Equal(t, []string{"a.md", "b.md"}, h.Documents())

		b, ok := h.Latest("b.md")
		require.True(t, ok)
		assert.Equal(t, constants.OutcomeFailure, b.Outcome)
		assert.Empty(t, b.ArtifactRef)
		assert.Equal(t, 0, h.Skipped())
	})
}

func TestCSVStore_AppendOnly(t *testing.T) {
	ctx := context.Background()
	store, clock := setupTestStore(t)

	outcomes := []constants.Outcome{
		constants.OutcomeFailure,
		constants.OutcomeParseError,
		constants.OutcomeSuccess,
	}
	var prev *History
	for i, o := range outcomes {
		_, err := store.Append(ctx, "a.md", "", o)
		require.NoError(t, err)
		clock.advance(time.Second)

		h, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, i+1, h.Len())
		if prev != nil {
			// every earlier row is still present, unchanged
			for j, e := range prev.Entries() {
				assert.Equal(t, e, h.Entries()[j])
			}
		}
		latest, _ := h.Latest("a.md")
		assert.Equal(t, o, latest.Outcome)
		prev = h
	}
}

func TestHistory_LatestTieBreak(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	// same second: the later row wins
	_, err := store.Append(ctx, "a.md", "", constants.OutcomeFailure)
	require.NoError(t, err)
	_, err = store.Append(ctx, "a.md", "a.json", constants.OutcomeSuccess)
	require.NoError(t, err)

	h, err := store.Load(ctx)
	require.NoError(t, err)
	latest, ok := h.Latest("a.md")
	require.True(t, ok)
	assert.Equal(t, constants.OutcomeSuccess, latest.Outcome)
	assert.Equal(t, 1, latest.Seq)
}

func TestHistory_LatestUsesMaxTimestamp(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.Local)
	h := NewHistory([]Entry{
		{DocumentID: "a.md", Timestamp: base.Add(time.Minute), Outcome: constants.OutcomeSuccess},
		// appended later but carries an older clock reading
		{DocumentID: "a.md", Timestamp: base, Outcome: constants.OutcomeFailure},
	})
	latest, ok := h.Latest("a.md")
	require.True(t, ok)
	assert.Equal(t, constants.OutcomeSuccess, latest.Outcome)

	_, ok = h.Latest("missing.md")
	assert.False(t, ok)
}

func TestCSVStore_MalformedRows(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	content := "document,artifact,processed_at,status\n" +
		"a.md,a.json,2025-03-01 10:00:00,Success\n" +
		"short,row\n" +
		"b.md,N/A,not-a-date,Failure\n" +
		"c.md,N/A,2025-03-01 10:00:01,Exploded\n" +
		"d.md,d.error,2025-03-01 10:00:02,ParseError,extra\n" +
		"e.md,e.json,2025-03-01 10:00:03,Sucesso\n" +
		"f.md,N/A,2025-03-01 10:00:04,Erro no parse\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o644))

	h, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "d.md", "e.md", "f.md"}, h.Documents())
	assert.Equal(t, 3, h.Skipped())

	e, _ := h.Latest("e.md")
	assert.Equal(t, constants.OutcomeSuccess, e.Outcome)
	f, _ := h.Latest("f.md")
	assert.Equal(t, constants.OutcomeParseError, f.Outcome)
	d, _ := h.Latest("d.md")
	assert.Equal(t, "d.error", d.ArtifactRef)
}

func TestCSVStore_AppendKeepsLegacyHeader(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	require.NoError(t, os.WriteFile(store.Path(), []byte("arquivo,json,data_processamento,status\n"), 0o644))
	_, err := store.Append(ctx, "a.md", "a.json", constants.OutcomeSuccess)
	require.NoError(t, err)

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "arquivo,json,data_processamento,status\na.md,a.json,2025-03-01 10:00:00,Success\n", string(raw))
}

func TestCSVStore_AppendAfterUnterminatedLine(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	legacy := "arquivo,json,data_processamento,status\r\nx.md,x.json,2025-02-01 10:00:00,Sucesso"
	require.NoError(t, os.WriteFile(store.Path(), []byte(legacy), 0o644))
	_, err := store.Append(ctx, "b.md", "b.json", constants.OutcomeSuccess)
	require.NoError(t, err)

	h, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md", "x.md"}, h.Documents())
	assert.Zero(t, h.Skipped())

	x, ok := h.Latest("x.md")
	require.True(t, ok)
	assert.Equal(t, constants.OutcomeSuccess, x.Outcome)
	b, ok := h.Latest("b.md")
	require.True(t, ok)
	assert.Equal(t, "b.json", b.ArtifactRef)
}

func TestCSVStore_AppendFailureIsPersistence(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "missing", "controle.csv"), nil)
	_, err := store.Append(context.Background(), "a.md", "", constants.OutcomeFailure)
	require.Error(t, err)
	assert.True(t, common.IsPersistence(err))
}
