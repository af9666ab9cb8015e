package cli

import (
	"github.com/joseph-ayodele/acordao-extractor/internal/artifact"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/errlog"
	"github.com/joseph-ayodele/acordao-extractor/internal/ingest"
	"github.com/joseph-ayodele/acordao-extractor/internal/ledger"
	"github.com/joseph-ayodele/acordao-extractor/internal/llm"
	"github.com/joseph-ayodele/acordao-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/acordao-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/acordao-extractor/internal/pipeline"
)

func (a *appContext) source() *ingest.Source {
	return ingest.NewSource(a.cfg.Paths.MarkdownDir)
}

func (a *appContext) ledger() *ledger.CSVStore {
	return ledger.NewCSVStore(a.cfg.Paths.LedgerFile, a.logger)
}

func (a *appContext) journal() *errlog.Journal {
	return errlog.New(a.cfg.Paths.ErrorLog, a.logger)
}

func (a *appContext) store() *artifact.Store {
	return artifact.NewStore(a.cfg.Paths.ArtifactDir, a.logger)
}

func (a *appContext) generator() llm.Generator {
	c := a.cfg.LLM
	var gen llm.Generator
	switch c.Provider {
	case common.ProviderOpenAI:
		gen = openai.NewClient(openai.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}, a.logger)
	default:
		gen = gemini.NewClient(gemini.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}, a.logger)
	}
	return llm.NewThrottled(gen, c.RequestsPerMinute, a.logger)
}

// processor wires the full extraction pipeline.
func (a *appContext) processor() (*pipeline.Processor, error) {
	if err := a.cfg.ValidateLLM(); err != nil {
		return nil, err
	}
	prompt, err := llm.LoadPromptSet(a.cfg.Paths.PromptDir)
	if err != nil {
		return nil, err
	}
	store := a.store()
	journal := a.journal()
	adapter, err := llm.NewAdapter(a.generator(), prompt, store, journal, llm.AdapterConfig{Lenient: a.cfg.LLM.Lenient}, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Info("pipeline.configured",
		"provider", a.cfg.LLM.Provider,
		"model", a.cfg.LLM.Model,
		"typologies", prompt.TypologyCount,
		"markdown_dir", a.cfg.Paths.MarkdownDir,
		"artifact_dir", a.cfg.Paths.ArtifactDir,
	)
	return pipeline.NewProcessor(pipeline.Deps{
		Source:    a.source(),
		Ledger:    a.ledger(),
		Extractor: adapter,
		Store:     store,
		Journal:   journal,
		Prompt:    prompt.Combined(),
	}, a.logger)
}
