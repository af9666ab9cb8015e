package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type prop struct {
	name     string
	schema   map[string]any
	optional bool
}

// object builds an object schema whose required list keeps declaration order;
// providers that honour property ordering reuse it.
func object(description string, props ...prop) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]string, 0, len(props))
	for _, p := range props {
		properties[p.name] = p.schema
		if !p.optional {
			required = append(required, p.name)
		}
	}
	s := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
		"required":             required,
	}
	if description != "" {
		s["description"] = description
	}
	return s
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func boolean(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func array(description string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": description, "items": items}
}

// BuildDecisionJSONSchema returns the JSON Schema of entity.Decision as a generic map.
// It is sent to the provider as the structured output constraint and used locally to validate.
func BuildDecisionJSONSchema() map[string]any {
	legalBasis := object("Legal basis cited for an excerpt",
		prop{name: "norma", schema: str("Full name of the applicable norm or law")},
		prop{name: "artigo", schema: str("Article or section cited")},
		prop{name: "descricao", schema: str("Summary of the legal basis")},
	)
	excerpt := object("Passage extracted from the full text",
		prop{name: "trecho", schema: str("Verbatim excerpt")},
		prop{name: "irregularidade", schema: boolean("Whether the excerpt describes an irregularity")},
		prop{name: "relevante_para_indice", schema: boolean("Whether the excerpt is relevant for the index")},
		prop{name: "tema_irregularidade", schema: str("Irregularity theme")},
		prop{name: "codigo_irregularidade", schema: str("Typology code")},
		prop{name: "tipologia_irregularidade", schema: str("Typology name")},
		prop{name: "descricao", schema: str("Irregularity description")},
		prop{name: "justificativa_tipologia", schema: str("Why this typology was chosen")},
		prop{name: "fundamentacao_legal", schema: array("Legal bases", legalBasis)},
	)
	item := object("Deliberation item",
		prop{name: "tipo", schema: str("Kind of deliberation (irregularity, recommendation, sanction, determination)")},
		prop{name: "descricao", schema: str("Full text of the deliberation")},
		prop{name: "trechos_identificados", schema: array("Extracted excerpts", excerpt)},
	)
	return object("",
		prop{name: "acordao", schema: str("Decision number")},
		prop{name: "processo", schema: str("Process number")},
		prop{name: "data_sessao", schema: str("Session date")},
		prop{name: "orgao", schema: str("Audited body")},
		prop{name: "municipio", schema: str("Municipality of the audited body")},
		prop{name: "exercicio", schema: str("Fiscal year analysed")},
		prop{name: "responsavel", schema: array("Responsible parties", str("Name"))},
		prop{name: "itens", schema: array("Deliberations", item)},
		prop{name: "nome_arquivo", schema: str("Source file stem"), optional: true},
	)
}

// CompileSchema compiles schemaMap once for repeated validation.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := CompileSchema(schemaMap)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// OrderedProperties returns the property names of an object schema built here,
// required ones in declaration order followed by optional ones.
func OrderedProperties(schema map[string]any) []string {
	required, _ := schema["required"].([]string)
	props, _ := schema["properties"].(map[string]any)
	out := append([]string(nil), required...)
	seen := make(map[string]struct{}, len(out))
	for _, r := range out {
		seen[r] = struct{}{}
	}
	var rest []string
	for k := range props {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
