package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/ingest"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reComments   = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// boilerplate matches whole lines the gazette adds to every decision: blank
// form fields and the digital-signature footer.
var boilerplate = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^.*_{3,}.*$`),
	regexp.MustCompile(`(?m)^\s*Este documento foi assinado digitalmente por.*$`),
	regexp.MustCompile(`(?m)^\s*Para confer.{1,2}ncia acesse o site.*$`),
	regexp.MustCompile(`(?m)^\s*e informe o código:.*$`),
	regexp.MustCompile(`(?m)^\s*Publicado no Diário Eletrônico.*$`),
}

// Clean strips boilerplate and collapses noisy whitespace. Line breaks are
// kept; runs of blank lines become one.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reComments.ReplaceAllString(s, "")
	for _, re := range boilerplate {
		s = re.ReplaceAllString(s, "")
	}
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanDir rewrites every markdown document in dir in place and returns how
// many changed.
func (c *Converter) CleanDir(ctx context.Context, dir string) (int, error) {
	docs, err := ingest.ListDocuments(dir, constants.SourceExt)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, name := range docs {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		path := filepath.Join(dir, name)
		b, err := os.ReadFile(path)
		if err != nil {
			return changed, fmt.Errorf("read %s: %w", name, err)
		}
		out := Clean(string(b)) + "\n"
		if out == string(b) {
			continue
		}
		if err := writeAtomic(path, []byte(out)); err != nil {
			return changed, fmt.Errorf("write %s: %w", name, err)
		}
		changed++
		c.logger.Debug("convert.clean.file", "document", name, "before_bytes", len(b), "after_bytes", len(out))
	}
	c.logger.Info("convert.clean.done", "dir", dir, "documents", len(docs), "changed", changed)
	return changed, nil
}
