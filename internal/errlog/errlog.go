// Package errlog is the human-readable failure journal: one block per failed
// document, appended and never rewritten.
package errlog

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
)

// Marker identifies a block header line.
const Marker = "Error processing"

// NoErrors is returned by Last when nothing has been recorded.
const NoErrors = "no errors recorded"

const separatorWidth = 80

// Journal appends failure blocks to a text file.
type Journal struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// New returns a journal writing to path.
func New(path string, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{path: path, now: time.Now, logger: logger}
}

// Path returns the journal file location.
func (j *Journal) Path() string { return j.path }

// Record appends:
//
//	[2006-01-02 15:04:05] Error processing <document>:
//	<detail>
//	--------...
func (j *Journal) Record(documentID, detail string) error {
	f, err := os.OpenFile(j.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return common.PersistenceError("open error log", err)
	}
	defer func() { _ = f.Close() }()

	block := fmt.Sprintf("[%s] %s %s:\n%s\n%s\n",
		j.now().Format(constants.LedgerTimeLayout),
		Marker, documentID,
		strings.TrimRight(detail, "\n"),
		strings.Repeat("-", separatorWidth),
	)
	if _, err := f.WriteString(block); err != nil {
		return common.PersistenceError("write error log", err)
	}
	return nil
}

// Last returns the header and the two following lines of the most recent block.
func (j *Journal) Last() (string, error) {
	f, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return NoErrors, nil
	}
	if err != nil {
		return "", fmt.Errorf("open error log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read error log: %w", err)
	}

	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "[") && strings.Contains(lines[i], Marker) {
			end := min(i+3, len(lines))
			return strings.TrimSpace(strings.Join(lines[i:end], "\n")), nil
		}
	}
	return NoErrors, nil
}
