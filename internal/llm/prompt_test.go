package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePromptDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadPromptSet_Placeholders(t *testing.T) {
	dir := writePromptDir(t, map[string]string{
		PromptFile:        "Classifique.\nTemas:\n{temas}\nTipologias:\n{tipologias}\nFormato: {{\"acordao\": \"...\"}}\n",
		ThemesFile:        "Licitações\nPessoal\n",
		"tipologias.json": `[{"codigo": "L01", "tipologia": "Dispensa indevida"}]`,
	})

	p, err := LoadPromptSet(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TypologyCount)
	assert.Empty(t, p.Reference())

	instr := p.Instruction()
	assert.Contains(t, instr, "Licitações\nPessoal")
	assert.Contains(t, instr, `"codigo": "L01"`)
	assert.Contains(t, instr, `Formato: {"acordao": "..."}`)
	assert.NotContains(t, instr, "{temas}")
	assert.Equal(t, instr, p.Combined())
}

func TestLoadPromptSet_YAMLReference(t *testing.T) {
	dir := writePromptDir(t, map[string]string{
		PromptFile: "Extraia os dados do acórdão.",
		"tipologias.yaml": "- codigo: L01\n  tipologia: Dispensa indevida\n" +
			"- codigo: P02\n  tipologia: Acúmulo de cargos\n",
	})

	p, err := LoadPromptSet(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TypologyCount)
	assert.Equal(t, "Extraia os dados do acórdão.", p.Instruction())

	ref := p.Reference()
	assert.Contains(t, ref, "Tipologias:")
	assert.Contains(t, ref, `"codigo": "P02"`)
	assert.NotContains(t, ref, "Temas:")

	req := p.Request("doc", map[string]any{"type": "object"})
	assert.Equal(t, "doc", req.Document)
	assert.Equal(t, ref, req.Reference)
}

func TestLoadPromptSet_Errors(t *testing.T) {
	_, err := LoadPromptSet(t.TempDir())
	assert.Error(t, err, "prompt.txt is required")

	dir := writePromptDir(t, map[string]string{
		PromptFile:        "x",
		"tipologias.json": "{not: [valid",
	})
	_, err = LoadPromptSet(dir)
	assert.Error(t, err)
}

func TestBuildDecisionJSONSchema(t *testing.T) {
	schema := BuildDecisionJSONSchema()

	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{
		"acordao": "1", "processo": "2", "data_sessao": "3", "orgao": "4",
		"municipio": "5", "exercicio": "6", "responsavel": [], "itens": []
	}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"acordao": "1"}`)))

	assert.Equal(t,
		[]string{"acordao", "processo", "data_sessao", "orgao", "municipio", "exercicio", "responsavel", "itens", "nome_arquivo"},
		OrderedProperties(schema))
}
