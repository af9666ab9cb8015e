package errlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_RecordAndLast(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "erros.log"), nil)
	j.now = func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local) }

	t.Run("missing file", func(t *testing.T) {
		last, err := j.Last()
		require.NoError(t, err)
		assert.Equal(t, NoErrors, last)
	})

	require.NoError(t, j.Record("a.md", "quota exceeded\nretry later\nthird line"))
	require.NoError(t, j.Record("b.md", "timeout\n"))

	last, err := j.Last()
	require.NoError(t, err)
	want := "[2025-03-01 09:30:00] Error processing b.md:\ntimeout\n" + dashes()
	assert.Equal(t, want, last)
}

func TestJournal_LastIgnoresDetailLines(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "erros.log"), nil)
	require.NoError(t, j.Record("a.md", "[upstream] message without marker"))

	last, err := j.Last()
	require.NoError(t, err)
	assert.Contains(t, last, "Error processing a.md:")
	assert.Contains(t, last, "[upstream] message without marker")
}

func dashes() string {
	b := make([]byte, separatorWidth)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
