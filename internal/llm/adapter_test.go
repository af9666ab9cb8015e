package llm

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/artifact"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/entity"
	"github.com/joseph-ayodele/acordao-extractor/internal/errlog"
)

type fakeGenerator struct {
	text string
	err  error
	got  []GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (GenerateResponse, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return GenerateResponse{}, f.err
	}
	return GenerateResponse{Text: f.text, Model: "fake", FinishReason: "STOP"}, nil
}

func sampleDecision() entity.Decision {
	return entity.Decision{
		Number:      "1234/2024",
		Process:     "TC-000.111/2023-4",
		SessionDate: "2024-05-10",
		Body:        "Prefeitura Municipal",
		City:        "Natal",
		FiscalYear:  "2022",
		Responsible: []string{"Fulano de Tal"},
		Items: []entity.DeliberationItem{{
			Kind:        "determinação",
			Description: "Determinar ao órgão...",
			Excerpts: []entity.Excerpt{{
				Text:                  "pagamento sem licitação",
				Irregularity:          true,
				RelevantForIndex:      true,
				IrregularityTheme:     "Licitações",
				IrregularityCode:      "L01",
				IrregularityTypology:  "Dispensa indevida",
				Description:           "Contratação direta sem amparo legal",
				TypologyJustification: "Ausência de processo licitatório",
				LegalBasis:            []entity.LegalBasis{{Norm: "Lei 14.133/2021", Article: "art. 72", Description: "Contratação direta"}},
			}},
		}},
	}
}

func sampleJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(sampleDecision())
	require.NoError(t, err)
	return string(b)
}

type adapterFixture struct {
	adapter *Adapter
	gen     *fakeGenerator
	store   *artifact.Store
	journal *errlog.Journal
}

func setupAdapter(t *testing.T, lenient bool) *adapterFixture {
	t.Helper()
	dir := t.TempDir()
	gen := &fakeGenerator{}
	store := artifact.NewStore(filepath.Join(dir, "out"), nil)
	journal := errlog.New(filepath.Join(dir, "erros.log"), nil)
	prompt := &PromptSet{Template: "Extraia os dados. Temas: {temas}", Themes: "Licitações"}
	a, err := NewAdapter(gen, prompt, store, journal, AdapterConfig{Lenient: lenient}, nil)
	require.NoError(t, err)
	return &adapterFixture{adapter: a, gen: gen, store: store, journal: journal}
}

func extract(f *adapterFixture) Outcome {
	return f.adapter.Extract(context.Background(), Request{
		DocumentID: "a.md",
		Text:       "# Acórdão 1234/2024",
		Slots:      artifact.SlotsFor("a.md", false),
	})
}

func TestAdapter_Success(t *testing.T) {
	f := setupAdapter(t, false)
	f.gen.text = "```json\n" + sampleJSON(t) + "\n```"

	out := extract(f)
	require.Equal(t, constants.OutcomeSuccess, out.Kind, "err: %v", out.Err)
	require.NotNil(t, out.Record)
	assert.Equal(t, sampleDecision(), *out.Record)
	assert.Equal(t, "a.txt", out.RawSlot)
	assert.NotEmpty(t, out.RequestID)

	raw, err := f.store.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, f.gen.text, string(raw))

	require.Len(t, f.gen.got, 1)
	assert.Equal(t, "Extraia os dados. Temas: Licitações", f.gen.got[0].Instruction)
	assert.Equal(t, "# Acórdão 1234/2024", f.gen.got[0].Document)
	assert.NotNil(t, f.gen.got[0].Schema)
}

func TestAdapter_ParseError(t *testing.T) {
	t.Run("schema mismatch keeps untyped payload", func(t *testing.T) {
		f := setupAdapter(t, false)
		f.gen.text = `{"acordao": "1", "itens": "not a list"}`

		out := extract(f)
		require.Equal(t, constants.OutcomeParseError, out.Kind)
		assert.Nil(t, out.Record)
		assert.ErrorIs(t, out.Err, common.ErrSchemaMismatch)
		payload, ok := out.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "not a list", payload["itens"])
		assert.True(t, f.store.Exists("a.txt"), "raw response persisted for audit")
	})

	t.Run("non JSON text", func(t *testing.T) {
		f := setupAdapter(t, false)
		f.gen.text = "Desculpe, não consegui."

		out := extract(f)
		require.Equal(t, constants.OutcomeParseError, out.Kind)
		assert.Equal(t, "Desculpe, não consegui.", out.Payload)
		assert.True(t, f.store.Exists("a.txt"))
	})
}

func TestAdapter_Failure(t *testing.T) {
	t.Run("call error is journaled", func(t *testing.T) {
		f := setupAdapter(t, false)
		f.gen.err = errors.Join(common.ErrTransport, errors.New("429 quota exceeded"))

		out := extract(f)
		require.Equal(t, constants.OutcomeFailure, out.Kind)
		assert.Nil(t, out.Record)
		assert.Nil(t, out.Payload)
		assert.ErrorIs(t, out.Err, common.ErrTransport)
		assert.False(t, f.store.Exists("a.txt"))

		last, err := f.journal.Last()
		require.NoError(t, err)
		assert.Contains(t, last, "Error processing a.md:")
		assert.Contains(t, last, "req_id="+out.RequestID)
	})

	t.Run("empty content", func(t *testing.T) {
		f := setupAdapter(t, false)
		f.gen.text = "   "

		out := extract(f)
		require.Equal(t, constants.OutcomeFailure, out.Kind)
		_, err := os.Stat(f.journal.Path())
		assert.NoError(t, err)
	})

	t.Run("raw persist failure is a persistence error", func(t *testing.T) {
		f := setupAdapter(t, false)
		f.gen.text = sampleJSON(t)
		// a directory squatting on the slot makes the backup step fail
		require.NoError(t, os.MkdirAll(f.store.Path("a.txt"), 0o755))

		out := extract(f)
		require.Equal(t, constants.OutcomeFailure, out.Kind)
		assert.True(t, common.IsPersistence(out.Err))
	})
}

func TestAdapter_Lenient(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(sampleJSON(t)), &doc))
	doc["exercicio"] = 2022
	doc["responsavel"] = nil
	doc["extra"] = "x"
	items := doc["itens"].([]any)
	exc := items[0].(map[string]any)["trechos_identificados"].([]any)[0].(map[string]any)
	exc["irregularidade"] = "true"
	drifted, err := json.Marshal(doc)
	require.NoError(t, err)

	t.Run("strict rejects", func(t *testing.T) {
		f := setupAdapter(t, false)
		f.gen.text = string(drifted)
		assert.Equal(t, constants.OutcomeParseError, extract(f).Kind)
	})

	t.Run("lenient repairs", func(t *testing.T) {
		f := setupAdapter(t, true)
		f.gen.text = string(drifted)
		out := extract(f)
		require.Equal(t, constants.OutcomeSuccess, out.Kind, "err: %v", out.Err)
		assert.Equal(t, "2022", out.Record.FiscalYear)
		assert.Empty(t, out.Record.Responsible)
		assert.True(t, out.Record.Items[0].Excerpts[0].Irregularity)
	})
}

func TestNewAdapter_RequiresCollaborators(t *testing.T) {
	_, err := NewAdapter(nil, &PromptSet{}, nil, nil, AdapterConfig{}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                 `{"a":1}`,
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  ```json{\"a\":1}```  ": `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFences(in), strings.ReplaceAll(in, "\n", "\\n"))
	}
}
