package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/entity"
)

func setupTestStore(t *testing.T, step time.Duration) *Store {
	t.Helper()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)
	clock := func() time.Time {
		cur := now
		now = now.Add(step)
		return cur
	}
	return NewStore(t.TempDir(), nil, WithClock(clock))
}

func TestStore_WriteKeepsEveryVersion(t *testing.T) {
	for _, step := range []time.Duration{time.Second, 0} {
		t.Run(fmt.Sprintf("step=%s", step), func(t *testing.T) {
			s := setupTestStore(t, step)
			const n = 5
			for i := 0; i < n; i++ {
				_, err := s.WriteText("a.txt", fmt.Sprintf("v%d", i))
				require.NoError(t, err)
			}

			cur, err := s.Read("a.txt")
			require.NoError(t, err)
			assert.Equal(t, "v4", string(cur))

			versions, err := s.Versions("a.txt")
			require.NoError(t, err)
			require.Len(t, versions, n-1)

			// capture order reconstructs the full history
			for i, v := range versions {
				got, err := os.ReadFile(s.Path(v))
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("v%d", i), string(got), v)
			}
		})
	}
}

func TestStore_BackupNaming(t *testing.T) {
	s := setupTestStore(t, 0)

	backup, err := s.WriteText("a.txt", "first")
	require.NoError(t, err)
	assert.Empty(t, backup)

	backup, err = s.WriteText("a.txt", "second")
	require.NoError(t, err)
	assert.Equal(t, "a.txt_version20250301_100000", backup)

	backup, err = s.WriteText("a.txt", "third")
	require.NoError(t, err)
	assert.Equal(t, "a.txt_version20250301_100000.1", backup)
}

func TestStore_RenameFailureAbortsWrite(t *testing.T) {
	s := setupTestStore(t, time.Second)
	_, err := s.WriteText("a.json", "original")
	require.NoError(t, err)

	s.rename = func(oldpath, newpath string) error {
		if oldpath == s.Path("a.json") {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrPermission}
		}
		return os.Rename(oldpath, newpath)
	}

	_, err = s.WriteText("a.json", "replacement")
	require.Error(t, err)
	assert.True(t, common.IsPersistence(err))
	assert.True(t, errors.Is(err, os.ErrPermission))

	cur, err := s.Read("a.json")
	require.NoError(t, err)
	assert.Equal(t, "original", string(cur))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "no backup and no temp file left behind")
}

func TestStore_WriteJSON(t *testing.T) {
	s := setupTestStore(t, time.Second)
	d := entity.Decision{
		Number:      "123/2024",
		Responsible: []string{"Fulano & Cia"},
		Items:       []entity.DeliberationItem{},
	}
	_, err := s.WriteJSON("a.json", d)
	require.NoError(t, err)

	raw, err := s.Read("a.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n    \"acordao\": \"123/2024\"")
	assert.Contains(t, string(raw), "Fulano & Cia")

	// same record, same bytes
	_, err = s.WriteJSON("b.json", d)
	require.NoError(t, err)
	other, err := s.Read("b.json")
	require.NoError(t, err)
	assert.Equal(t, raw, other)
}

func TestStore_InvalidSlot(t *testing.T) {
	s := setupTestStore(t, time.Second)
	for _, slot := range []string{"", ".", "..", filepath.Join("sub", "a.json")} {
		_, err := s.WriteText(slot, "x")
		assert.ErrorIs(t, err, common.ErrInvalidInput, slot)
	}
}

func TestSlotsFor(t *testing.T) {
	assert.Equal(t, Slots{Raw: "a.txt", Structured: "a.json", Error: "a.error"}, SlotsFor("a.md", false))
	assert.Equal(t, Slots{Raw: "a.txt_temp", Structured: "a.json_temp", Error: "a.error_temp"}, SlotsFor("a.md", true))
	assert.Equal(t, "acordao 12.2024", Stem("dir/acordao 12.2024.md"))
	assert.True(t, IsCurrentStructured("a.json"))
	assert.False(t, IsCurrentStructured("a.json_version20250301_100000"))
	assert.False(t, IsCurrentStructured("a.json_temp"))
}

func TestStore_Retire(t *testing.T) {
	s := setupTestStore(t, time.Second)

	name, err := s.Retire("acordaos.db")
	require.NoError(t, err)
	assert.Empty(t, name)

	_, err = s.WriteText("acordaos.db", "old")
	require.NoError(t, err)
	name, err = s.Retire("acordaos.db")
	require.NoError(t, err)
	assert.Equal(t, "acordaos.db_version20250301_100000", name)
	assert.False(t, s.Exists("acordaos.db"))

	got, err := s.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}
