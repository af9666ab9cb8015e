package entity

// Decision is the structured record extracted from one decision document.
// JSON names are the wire contract with the relational loader.
type Decision struct {
	// SourceFile is the structured artifact's document stem, stamped by the pipeline.
	SourceFile  string             `json:"nome_arquivo,omitempty"`
	Number      string             `json:"acordao"`
	Process     string             `json:"processo"`
	SessionDate string             `json:"data_sessao"`
	Body        string             `json:"orgao"`
	City        string             `json:"municipio"`
	FiscalYear  string             `json:"exercicio"`
	Responsible []string           `json:"responsavel"`
	Items       []DeliberationItem `json:"itens"`
}

// DeliberationItem is one ruling inside a decision (sanction, recommendation, ...).
type DeliberationItem struct {
	Kind        string    `json:"tipo"`
	Description string    `json:"descricao"`
	Excerpts    []Excerpt `json:"trechos_identificados"`
}

// Excerpt is a classified passage of the full text.
type Excerpt struct {
	Text                  string       `json:"trecho"`
	Irregularity          bool         `json:"irregularidade"`
	RelevantForIndex      bool         `json:"relevante_para_indice"`
	IrregularityTheme     string       `json:"tema_irregularidade"`
	IrregularityCode      string       `json:"codigo_irregularidade"`
	IrregularityTypology  string       `json:"tipologia_irregularidade"`
	Description           string       `json:"descricao"`
	TypologyJustification string       `json:"justificativa_tipologia"`
	LegalBasis            []LegalBasis `json:"fundamentacao_legal"`
}

// LegalBasis cites the norm that grounds an excerpt.
type LegalBasis struct {
	Norm        string `json:"norma"`
	Article     string `json:"artigo"`
	Description string `json:"descricao"`
}

// ExcerptCount returns the number of excerpts across all items.
func (d Decision) ExcerptCount() int {
	n := 0
	for _, it := range d.Items {
		n += len(it.Excerpts)
	}
	return n
}
