// Package convert turns PDF decisions into the markdown documents the
// pipeline reads.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/ingest"
)

// PageBreak replaces the form feed pdftotext emits between pages.
const PageBreak = "\n\n---\n\n"

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Force     bool   // overwrite existing markdown
	Raw       bool   // keep pdftotext output as is, skipping Clean
}

// FileResult reports one PDF.
type FileResult struct {
	PDF      string
	Markdown string
	Pages    int
	Skipped  bool
	Err      error
}

// Report summarizes a directory conversion.
type Report struct {
	Converted int
	Skipped   int
	Failed    int
	Files     []FileResult
	Duration  time.Duration
}

type Converter struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewConverter(cfg Config, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Converter{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// ConvertDir converts every PDF in pdfDir into mdDir. A failing file is
// reported in the result and the loop moves on; only setup errors and
// cancellation are returned.
func (c *Converter) ConvertDir(ctx context.Context, pdfDir, mdDir string) (Report, error) {
	start := time.Now()
	var rep Report

	pdfs, err := ingest.ListDocuments(pdfDir, constants.PDFExt)
	if err != nil {
		return rep, err
	}
	if err := os.MkdirAll(mdDir, 0o755); err != nil {
		return rep, fmt.Errorf("create %s: %w", mdDir, err)
	}
	c.logger.Info("convert.dir.start", "pdf_dir", pdfDir, "md_dir", mdDir, "files", len(pdfs), "force", c.cfg.Force)

	for _, name := range pdfs {
		if err := ctx.Err(); err != nil {
			rep.Duration = time.Since(start)
			return rep, err
		}
		res := c.convertFile(ctx, filepath.Join(pdfDir, name), mdDir)
		switch {
		case res.Skipped:
			rep.Skipped++
		case res.Err != nil:
			rep.Failed++
			c.logger.Warn("convert.file.failed", "pdf", name, "error", res.Err)
		default:
			rep.Converted++
		}
		rep.Files = append(rep.Files, res)
	}

	rep.Duration = time.Since(start)
	c.logger.Info("convert.dir.done",
		"converted", rep.Converted,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"elapsed_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

func (c *Converter) convertFile(ctx context.Context, pdfPath, mdDir string) FileResult {
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	mdPath := filepath.Join(mdDir, stem+"."+constants.SourceExt)
	res := FileResult{PDF: pdfPath, Markdown: mdPath}

	if !c.cfg.Force {
		if _, err := os.Stat(mdPath); err == nil {
			res.Skipped = true
			return res
		}
	}

	text, pages, err := c.pdfToText(ctx, pdfPath)
	if err != nil {
		res.Err = err
		return res
	}
	if strings.TrimSpace(text) == "" {
		res.Err = common.NewAppError("CONVERT_ERROR", "no text layer in "+filepath.Base(pdfPath), common.ErrInvalidInput)
		return res
	}
	res.Pages = pages

	if err := writeAtomic(mdPath, []byte(text)); err != nil {
		res.Err = err
	}
	return res
}

func (c *Converter) pdfToText(ctx context.Context, path string) (string, int, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := c.runner.Run(ctx, c.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg == "" {
			return "", 0, fmt.Errorf("pdftotext %s: %w", filepath.Base(path), err)
		}
		return "", 0, fmt.Errorf("pdftotext %s: %w: %s", filepath.Base(path), err, msg)
	}
	text := strings.TrimRight(string(out), "\f\n")
	pageTexts := strings.Split(text, "\f")
	if !c.cfg.Raw {
		kept := pageTexts[:0]
		for _, p := range pageTexts {
			if p = Clean(p); p != "" {
				kept = append(kept, p)
			}
		}
		pageTexts = kept
	}
	if len(pageTexts) == 0 {
		return "", 0, nil
	}
	return strings.Join(pageTexts, PageBreak) + "\n", len(pageTexts), nil
}

func writeAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(b)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
