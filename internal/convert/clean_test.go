package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	in := "ACÓRDÃO Nº 10/2024\r\n" +
		"De ____/____/____\n" +
		"Processo:\tTC-1\n" +
		"<!-- image -->\n\n\n\n" +
		"O Tribunal   decide   determinar.   \n" +
		"Este documento foi assinado digitalmente por FULANO\n" +
		"Para conferência acesse o site https://example\n" +
		"e informe o código: ABC\n" +
		"---\n"

	assert.Equal(t, "ACÓRDÃO Nº 10/2024\n\nProcesso: TC-1\n\nO Tribunal decide determinar.\n\n---", Clean(in))
	assert.Equal(t, "", Clean(""))
}

func TestCleanDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("texto\n\n\n\nfim   \n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("limpo\n"), 0o644))

	c := NewConverter(Config{}, nil)
	n, err := c.CleanDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := os.ReadFile(filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "texto\n\nfim\n", string(got))
}
