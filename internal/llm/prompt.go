package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Files read from the prompt directory.
const (
	PromptFile = "prompt.txt"
	ThemesFile = "temas.txt"
)

// typology catalogue candidates, first match wins
var typologyFiles = []string{"tipologias.json", "tipologias.yaml", "tipologias.yml"}

const (
	themesPlaceholder     = "{temas}"
	typologiesPlaceholder = "{tipologias}"
)

// PromptSet is the instruction template plus the reference taxonomy it is
// filled with. It is loaded once and passed to the adapter explicitly.
type PromptSet struct {
	Template   string
	Themes     string
	Typologies string
	// TypologyCount is the number of top-level entries in the catalogue.
	TypologyCount int
}

// LoadPromptSet reads prompt.txt, temas.txt and the typology catalogue from dir.
// The catalogue may be JSON or YAML; it is normalised to indented JSON.
func LoadPromptSet(dir string) (*PromptSet, error) {
	tmpl, err := os.ReadFile(filepath.Join(dir, PromptFile))
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	p := &PromptSet{Template: string(tmpl)}

	themes, err := os.ReadFile(filepath.Join(dir, ThemesFile))
	switch {
	case err == nil:
		p.Themes = strings.TrimSpace(string(themes))
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read themes: %w", err)
	}

	for _, name := range typologyFiles {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		rendered, count, err := renderCatalogue(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.Typologies, p.TypologyCount = rendered, count
		break
	}
	return p, nil
}

// renderCatalogue decodes JSON or YAML (YAML is a JSON superset) and re-encodes
// it as indented JSON so both file kinds reach the model identically.
func renderCatalogue(raw []byte) (string, int, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return "", 0, err
	}
	count := 0
	switch t := v.(type) {
	case []any:
		count = len(t)
	case map[string]any:
		count = len(t)
	case nil:
		return "", 0, nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", 0, err
	}
	return string(b), count, nil
}

// usesPlaceholders reports whether the template expects the taxonomy inline.
func (p *PromptSet) usesPlaceholders() bool {
	return strings.Contains(p.Template, themesPlaceholder) || strings.Contains(p.Template, typologiesPlaceholder)
}

// Instruction renders the template. Placeholders are substituted and doubled
// braces collapse, matching templates written for str.format-style rendering.
func (p *PromptSet) Instruction() string {
	if !p.usesPlaceholders() {
		return strings.TrimSpace(p.Template)
	}
	r := strings.NewReplacer(
		themesPlaceholder, p.Themes,
		typologiesPlaceholder, p.Typologies,
		"{{", "{",
		"}}", "}",
	)
	return strings.TrimSpace(r.Replace(p.Template))
}

// Reference is the taxonomy sent alongside the instruction when the template
// does not embed it.
func (p *PromptSet) Reference() string {
	if p.usesPlaceholders() {
		return ""
	}
	var b strings.Builder
	if p.Themes != "" {
		b.WriteString("Temas:\n")
		b.WriteString(p.Themes)
	}
	if p.Typologies != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Tipologias:\n")
		b.WriteString(p.Typologies)
	}
	return b.String()
}

// Combined is the full prompt text as the model sees it, minus the document.
func (p *PromptSet) Combined() string {
	if ref := p.Reference(); ref != "" {
		return p.Instruction() + "\n\n" + ref
	}
	return p.Instruction()
}

// Request builds the generation request for one document.
func (p *PromptSet) Request(document string, schema map[string]any) GenerateRequest {
	return GenerateRequest{
		Instruction: p.Instruction(),
		Reference:   p.Reference(),
		Document:    document,
		Schema:      schema,
	}
}
