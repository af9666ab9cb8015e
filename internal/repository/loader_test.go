package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entgo.io/ent/dialect"

	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/entity"
)

func decision(number string, excerpts int) entity.Decision {
	exs := make([]entity.Excerpt, excerpts)
	for i := range exs {
		exs[i] = entity.Excerpt{
			Text:         "trecho",
			Irregularity: true,
			LegalBasis:   []entity.LegalBasis{{Norm: "Lei 8.666/93", Article: "art. 3"}},
		}
	}
	return entity.Decision{
		Number:      number,
		Process:     "P-1",
		City:        "Natal",
		Responsible: []string{"A", "B"},
		Items:       []entity.DeliberationItem{{Description: "determinar", Excerpts: exs}},
	}
}

func writeJSON(t *testing.T, dir, name string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o644))
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{URL: filepath.Join(t.TempDir(), "acordaos.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func count(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.SQL().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestTarget(t *testing.T) {
	d, dsn, path := Target("sqlite://data/a.db")
	assert.Equal(t, dialect.SQLite, d)
	assert.Equal(t, "data/a.db", path)
	assert.Contains(t, dsn, "foreign_keys(1)")

	d, dsn, path = Target("postgres://u:p@localhost/acordaos")
	assert.Equal(t, dialect.Postgres, d)
	assert.Equal(t, "postgres://u:p@localhost/acordaos", dsn)
	assert.Empty(t, path)
}

func TestLoader_LoadDir(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	writeJSON(t, dir, "a.json", decision("1/2024", 2))
	writeJSON(t, dir, "b.json", decision("2/2024", 1))
	writeJSON(t, dir, "a.json_version20250301_100000", decision("old", 1))
	writeJSON(t, dir, "a.json_temp", decision("temp", 1))
	writeJSON(t, dir, "empty.json", entity.Decision{Number: "3/2024"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	l := NewLoader(db, nil)
	rep, err := l.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Loaded)
	assert.Equal(t, 2, rep.Failed)

	n, err := l.CountDecisions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, count(t, db, TableExcerpts))
	assert.Equal(t, 3, count(t, db, TableLegalBases))

	var name, responsible, kind string
	require.NoError(t, db.SQL().QueryRow(
		"SELECT a.nome_arquivo, a.responsavel, i.tipo FROM acordaos a JOIN itens_deliberacao i ON i.acordao_id = a.id WHERE a.numero_acordao = '1/2024'",
	).Scan(&name, &responsible, &kind))
	assert.Equal(t, "a.pdf", name)
	assert.Equal(t, "A, B", responsible)
	assert.Equal(t, DefaultItemKind, kind)
}

func TestLoader_ReloadReplaces(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	writeJSON(t, dir, "a.json", decision("1/2024", 3))
	l := NewLoader(db, nil)

	res := l.LoadFile(context.Background(), filepath.Join(dir, "a.json"))
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Excerpts)

	writeJSON(t, dir, "a.json", decision("1/2024", 1))
	res = l.LoadFile(context.Background(), filepath.Join(dir, "a.json"))
	require.NoError(t, res.Err)

	assert.Equal(t, 1, count(t, db, TableDecisions))
	assert.Equal(t, 1, count(t, db, TableItems))
	assert.Equal(t, 1, count(t, db, TableExcerpts))
	assert.Equal(t, 1, count(t, db, TableLegalBases))
}

func TestLoader_BadFile(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte("not json"), 0o644))

	res := NewLoader(db, nil).LoadFile(context.Background(), filepath.Join(dir, "x.json"))
	assert.ErrorIs(t, res.Err, common.ErrInvalidInput)
}

func TestOpen_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acordaos.db")
	db, err := Open(context.Background(), Config{URL: "sqlite://" + path}, nil)
	require.NoError(t, err)
	db.Close()

	db, err = Open(context.Background(), Config{URL: path}, nil)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, path, db.Path())
}

func TestRetireFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acordaos.db")

	backup, err := RetireFile(path, nil)
	require.NoError(t, err)
	assert.Empty(t, backup)

	require.NoError(t, os.WriteFile(path, []byte("db"), 0o644))
	backup, err = RetireFile(path, nil)
	require.NoError(t, err)
	assert.FileExists(t, backup)
	assert.NoFileExists(t, path)
	assert.Contains(t, filepath.Base(backup), "acordaos.db_version")
}
