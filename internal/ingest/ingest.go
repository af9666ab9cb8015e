// Package ingest exposes the directory of normalized source documents: the
// document registry of a batch.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
)

// Source lists and reads documents of one extension from a flat directory.
type Source struct {
	Dir string
	Ext string // without '.'; defaults to md
}

// NewSource returns a markdown source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{Dir: dir, Ext: constants.SourceExt}
}

// List returns document names sorted by name. Hidden files and
// subdirectories are skipped. A missing directory is an error.
func (s *Source) List() ([]string, error) {
	return ListDocuments(s.Dir, s.ext())
}

// Read returns a document's text. Invalid UTF-8 is rejected so the model never
// sees mangled input.
func (s *Source) Read(documentID string) (string, error) {
	if documentID == "" || filepath.Base(documentID) != documentID {
		return "", common.NewAppError("INGEST_ERROR", fmt.Sprintf("invalid document name %q", documentID), common.ErrInvalidInput)
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, documentID))
	if errors.Is(err, os.ErrNotExist) {
		return "", common.NewAppError("INGEST_ERROR", "document "+documentID+" not found in "+s.Dir, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", documentID, err)
	}
	if !utf8.Valid(b) {
		return "", common.NewAppError("INGEST_ERROR", documentID+" is not valid UTF-8", common.ErrInvalidInput)
	}
	return string(b), nil
}

// Exists reports whether the document is present.
func (s *Source) Exists(documentID string) bool {
	st, err := os.Stat(filepath.Join(s.Dir, documentID))
	return err == nil && !st.IsDir()
}

func (s *Source) ext() string {
	if s.Ext == "" {
		return constants.SourceExt
	}
	return constants.NormalizeExt(s.Ext)
}

// ListDocuments returns the names of files in dir with extension ext.
func ListDocuments(dir, ext string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, common.NewAppError("INGEST_ERROR", "directory is required", common.ErrInvalidInput)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || IsHidden(e.Name()) {
			continue
		}
		if !AllowedExt(filepath.Ext(e.Name()), ext) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}
