// Package artifact writes per-document outputs to named slots without ever
// destroying a previous version.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
)

// Store owns one directory of slots. A single writer is assumed.
type Store struct {
	dir    string
	now    func() time.Time
	rename func(oldpath, newpath string) error
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for backup capture timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store rooted at dir. The directory is created on first write.
func NewStore(dir string, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{dir: dir, now: time.Now, rename: os.Rename, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing a slot.
func (s *Store) Path(slot string) string { return filepath.Join(s.dir, slot) }

// Exists reports whether the slot currently holds content.
func (s *Store) Exists(slot string) bool {
	st, err := os.Stat(s.Path(slot))
	return err == nil && !st.IsDir()
}

// Read returns the slot's current content.
func (s *Store) Read(slot string) ([]byte, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path(slot))
}

// WriteText stores a raw model response.
func (s *Store) WriteText(slot, text string) (string, error) {
	return s.Write(slot, []byte(text))
}

// WriteJSON stores v with four-space indentation. Field order follows the
// struct declaration and map keys are sorted, so re-runs diff cleanly.
func (s *Store) WriteJSON(slot string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", common.NewAppError("ARTIFACT_ERROR", "encode "+slot, err)
	}
	return s.Write(slot, buf.Bytes())
}

// Write replaces the slot's content. An existing occupant is first renamed to
// slot+"_version"+<capture time>; when that rename fails nothing is written.
// It returns the backup slot name, or "" when the slot was empty.
func (s *Store) Write(slot string, content []byte) (string, error) {
	if err := validSlot(slot); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", common.PersistenceError("create artifact dir "+s.dir, err)
	}

	target := s.Path(slot)
	tmp, err := os.CreateTemp(s.dir, "."+slot+".tmp.*")
	if err != nil {
		return "", common.PersistenceError("create temp for "+slot, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return "", common.PersistenceError("write "+slot, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", common.PersistenceError("chmod "+slot, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", common.PersistenceError("sync "+slot, err)
	}
	if err := tmp.Close(); err != nil {
		return "", common.PersistenceError("close "+slot, err)
	}

	backup, err := s.backup(slot)
	if err != nil {
		return "", err
	}

	if err := s.rename(tmpName, target); err != nil {
		return backup, common.PersistenceError("commit "+slot, err)
	}
	committed = true
	if err := fsyncDir(s.dir); err != nil {
		s.logger.Warn("artifact.fsync_dir_failed", "dir", s.dir, "error", err)
	}

	s.logger.Debug("artifact.written", "slot", slot, "bytes", len(content), "backup", backup)
	return backup, nil
}

// Retire moves the slot's occupant to a backup name and leaves the slot
// empty. It returns "" when there was nothing to move.
func (s *Store) Retire(slot string) (string, error) {
	if err := validSlot(slot); err != nil {
		return "", err
	}
	name, err := s.backup(slot)
	if err != nil || name == "" {
		return name, err
	}
	if err := fsyncDir(s.dir); err != nil {
		s.logger.Warn("artifact.fsync_dir_failed", "dir", s.dir, "error", err)
	}
	return name, nil
}

// backup moves the current occupant aside and returns its new name.
func (s *Store) backup(slot string) (string, error) {
	target := s.Path(slot)
	st, err := os.Lstat(target)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", common.PersistenceError("stat "+slot, err)
	}
	if st.IsDir() {
		return "", common.PersistenceError("slot "+slot+" is a directory", common.ErrInvalidInput)
	}

	base := slot + constants.BackupMarker + s.now().Format(constants.BackupTimeLayout)
	name := base
	for n := 1; ; n++ {
		if _, err := os.Lstat(s.Path(name)); errors.Is(err, os.ErrNotExist) {
			break
		}
		name = base + "." + strconv.Itoa(n)
	}

	if err := s.rename(target, s.Path(name)); err != nil {
		s.logger.Error("artifact.backup.failed", "slot", slot, "backup", name, "error", err)
		return "", common.PersistenceError("back up "+slot, err)
	}
	s.logger.Info("artifact.backup.created", "slot", slot, "backup", s.Path(name))
	return name, nil
}

type version struct {
	name  string
	stamp string
	seq   int
}

// Versions lists the slot's backups oldest first.
func (s *Store) Versions(slot string) ([]string, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	prefix := slot + constants.BackupMarker
	var vs []version
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		v, ok := parseVersion(e.Name(), strings.TrimPrefix(e.Name(), prefix))
		if ok {
			vs = append(vs, v)
		}
	}
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].stamp != vs[j].stamp {
			return vs[i].stamp < vs[j].stamp
		}
		return vs[i].seq < vs[j].seq
	})
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.name
	}
	return out, nil
}

func parseVersion(name, suffix string) (version, bool) {
	stamp, seqPart, hasSeq := strings.Cut(suffix, ".")
	if _, err := time.Parse(constants.BackupTimeLayout, stamp); err != nil {
		return version{}, false
	}
	v := version{name: name, stamp: stamp}
	if hasSeq {
		n, err := strconv.Atoi(seqPart)
		if err != nil || n < 1 {
			return version{}, false
		}
		v.seq = n
	}
	return v, true
}

func validSlot(slot string) error {
	if slot == "" || slot == "." || slot == ".." || filepath.Base(slot) != slot {
		return common.NewAppError("ARTIFACT_ERROR", fmt.Sprintf("invalid slot %q", slot), common.ErrInvalidInput)
	}
	return nil
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Sync()
}
