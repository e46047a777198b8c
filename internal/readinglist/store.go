package readinglist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// FileName is the document's file name inside the data directory.
const FileName = "reading-list.json"

const dirPerms = 0o755

// Store persists exactly one Document as a JSON file at a fixed path. The
// whole document is replaced atomically on every save; there is no
// per-item write path.
type Store struct {
	path string
}

// NewStore returns a store for the document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document file path.
func (s *Store) Path() string {
	return s.path
}

// LoadReport describes a non-fatal problem encountered while loading:
// either a corrupt file or a schema version mismatch. In both cases Load
// substituted a fresh document and the caller should tell the user that
// prior data was discarded.
type LoadReport struct {
	Corrupt      bool
	MigratedFrom string // old version tag, when a mismatch was discarded
	Err          error
}

// Load reads the persisted document. A missing file yields a fresh empty
// document; a corrupt file or a version mismatch also yields a fresh
// document, with the problem described in the returned report. The report
// is nil when nothing was discarded. Load never fails.
func (s *Store) Load() (*Document, *LoadReport) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		// Missing file is the first-run case. Any other read error is
		// treated the same way: the app must stay usable.
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return NewDocument(), &LoadReport{Corrupt: true, Err: fmt.Errorf("%w: %v", ErrCorruptDocument, err)}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return NewDocument(), &LoadReport{Corrupt: true, Err: fmt.Errorf("%w: %v", ErrCorruptDocument, err)}
	}

	if doc.Version != Version {
		// Conservative migration: discard unreadable legacy data and start
		// empty. Known lossy; the report lets callers surface it once.
		return NewDocument(), &LoadReport{MigratedFrom: doc.Version}
	}

	if doc.Items == nil {
		doc.Items = []Item{}
	}
	return &doc, nil
}

// Save stamps the document with the current time and schema version, then
// atomically replaces the file. Failures wrap ErrStorageWrite so callers
// can tell the user the mutation was not durably saved.
func (s *Store) Save(doc *Document) error {
	doc.LastUpdated = time.Now().UTC()
	doc.Version = Version

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerms); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}

// ModTime returns the document file's modification time, or the zero time
// if the file does not exist yet.
func (s *Store) ModTime() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
