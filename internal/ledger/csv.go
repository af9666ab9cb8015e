package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
)

// Header is the first row of every ledger file.
var Header = []string{"document", "artifact", "processed_at", "status"}

// CSVStore keeps the ledger in a four-column CSV file opened in append mode.
// A single writer is assumed.
type CSVStore struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a CSVStore.
type Option func(*CSVStore)

// WithClock replaces time.Now for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *CSVStore) { s.now = now }
}

// NewCSVStore returns a store backed by path. The file is created on first append.
func NewCSVStore(path string, logger *slog.Logger, opts ...Option) *CSVStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CSVStore{path: path, now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the ledger file location.
func (s *CSVStore) Path() string { return s.path }

// Append writes one row and syncs it to disk before returning.
func (s *CSVStore) Append(ctx context.Context, documentID, artifactRef string, outcome constants.Outcome) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if strings.TrimSpace(documentID) == "" {
		return Entry{}, common.NewAppError("LEDGER_ERROR", "document id is required", common.ErrInvalidInput)
	}

	stamp := s.now().Format(constants.LedgerTimeLayout)
	ts, _ := time.ParseInLocation(constants.LedgerTimeLayout, stamp, time.Local)

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return Entry{}, common.PersistenceError("open ledger "+s.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("ledger.close_error", "path", s.path, "error", cerr)
		}
	}()

	st, err := f.Stat()
	if err != nil {
		return Entry{}, common.PersistenceError("stat ledger", err)
	}

	ref := artifactRef
	if ref == "" {
		ref = constants.NoArtifact
	}

	// a torn or hand-edited last line must not swallow the new row
	if st.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, st.Size()-1); err != nil {
			return Entry{}, common.PersistenceError("read ledger tail", err)
		}
		if last[0] != '\n' {
			if _, err := f.Write([]byte("\n")); err != nil {
				return Entry{}, common.PersistenceError("terminate ledger line", err)
			}
		}
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return Entry{}, common.PersistenceError("write ledger header", err)
		}
	}
	if err := w.Write([]string{documentID, ref, stamp, string(outcome)}); err != nil {
		return Entry{}, common.PersistenceError("write ledger row", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Entry{}, common.PersistenceError("flush ledger", err)
	}
	if err := f.Sync(); err != nil {
		return Entry{}, common.PersistenceError("sync ledger", err)
	}

	s.logger.Debug("ledger.append", "document", documentID, "artifact", ref, "status", outcome, "processed_at", stamp)
	return Entry{DocumentID: documentID, ArtifactRef: artifactRef, Timestamp: ts, Outcome: outcome, Seq: -1}, nil
}

// Load reads the whole file. A missing file is an empty history; malformed rows
// are skipped and counted.
func (s *CSVStore) Load(ctx context.Context) (*History, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewHistory(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, skipped, err := s.read(ctx, f)
	if err != nil {
		return nil, err
	}
	h := NewHistory(entries)
	h.skipped = skipped
	if skipped > 0 {
		s.logger.Warn("ledger.malformed_rows_skipped", "path", s.path, "skipped", skipped, "error", common.ErrMalformedRow)
	}
	return h, nil
}

func (s *CSVStore) read(ctx context.Context, r io.Reader) ([]Entry, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var entries []Entry
	skipped := 0
	for row := 0; ; row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read ledger: %w", err)
		}

		e, ok := parseRow(rec)
		if !ok {
			// the first row is the header unless it parses as data
			if row > 0 {
				skipped++
			}
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped, nil
}

func parseRow(rec []string) (Entry, bool) {
	if len(rec) < 4 {
		return Entry{}, false
	}
	doc := strings.TrimSpace(rec[0])
	if doc == "" {
		return Entry{}, false
	}
	ts, err := time.ParseInLocation(constants.LedgerTimeLayout, strings.TrimSpace(rec[2]), time.Local)
	if err != nil {
		return Entry{}, false
	}
	outcome, ok := constants.ParseOutcome(rec[3])
	if !ok {
		return Entry{}, false
	}
	ref := strings.TrimSpace(rec[1])
	if ref == constants.NoArtifact {
		ref = ""
	}
	return Entry{DocumentID: doc, ArtifactRef: ref, Timestamp: ts, Outcome: outcome}, true
}
