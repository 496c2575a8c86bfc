package clipstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"

	"clipper/internal/logging"
	"clipper/internal/services"
)

// Store provides thread-safe access to clip records backed by a JSON snapshot.
type Store struct {
	path   string
	logger *slog.Logger
	lock   *flock.Flock
	now    func() time.Time

	mu      sync.RWMutex
	records map[string]Record
	loaded  bool
	closed  bool
}

// New creates a store for the snapshot at path without touching the disk.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "clipstore"),
		now:     time.Now,
		records: make(map[string]Record),
	}
}

// Open acquires the snapshot lock and loads the snapshot. Callers must Close
// the store on every exit path so pending mutations are saved.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := New(path, logger)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "clipstore", "open", "create snapshot directory", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "clipstore", "open", "acquire snapshot lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrStorage, "clipstore", "open", fmt.Sprintf("snapshot %s is in use by another clipper process", path), nil)
	}
	s.lock = lock
	if err := s.Load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

// Path returns the snapshot location.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory records with the snapshot on disk. A missing
// snapshot initializes an empty store and writes an empty snapshot.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrStorage, "clipstore", "load", "read snapshot", err)
		}
		s.records = make(map[string]Record)
		s.loaded = true
		if err := s.writeLocked(); err != nil {
			s.loaded = false
			return err
		}
		s.logger.Info("created empty clip snapshot", logging.String("path", s.path))
		return nil
	}

	records, err := decodeSnapshot(data)
	if err != nil {
		return services.Wrap(services.ErrStorage, "clipstore", "load", fmt.Sprintf("decode snapshot %s", s.path), err)
	}
	s.records = records
	s.loaded = true
	s.logger.Debug("loaded clip snapshot",
		logging.Int("record_count", len(records)),
		logging.String("path", s.path))
	return nil
}

func decodeSnapshot(data []byte) (map[string]Record, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("snapshot is empty")
	}
	if !utf8.Valid(data) {
		return nil, errors.New("snapshot is not valid UTF-8")
	}
	var raw map[string]Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	records := make(map[string]Record, len(raw))
	for key, rec := range raw {
		if strings.TrimSpace(rec.ID) == "" {
			rec.ID = key
		}
		if rec.ID != key {
			return nil, fmt.Errorf("record key %q does not match uid %q", key, rec.ID)
		}
		records[key] = rec
	}
	return records, nil
}

// Loaded reports whether a snapshot has been read successfully.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Find returns the record with the given identifier.
func (s *Store) Find(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, services.Wrap(services.ErrNotFound, "clipstore", "find", fmt.Sprintf("no clip with id %q", id), nil)
	}
	return rec, nil
}

// Insert adds a new record. Identifiers must be unique across the store.
func (s *Store) Insert(rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return services.Wrap(services.ErrValidation, "clipstore", "insert", "record id cannot be empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return services.Wrap(services.ErrValidation, "clipstore", "insert", fmt.Sprintf("clip id %q already exists", rec.ID), nil)
	}
	s.records[rec.ID] = rec
	return nil
}

// Update applies fn to the current record under the write lock. The record is
// only replaced when fn returns nil. The identifier cannot be changed.
func (s *Store) Update(id string, fn func(*Record) error) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, services.Wrap(services.ErrNotFound, "clipstore", "update", fmt.Sprintf("no clip with id %q", id), nil)
	}
	if err := fn(&rec); err != nil {
		return Record{}, err
	}
	rec.ID = id
	s.records[id] = rec
	return rec, nil
}

// FindDownloaded returns a record with the same source that already has a
// raw download, so the file can be shared instead of fetched again.
func (s *Store) FindDownloaded(source, excludeID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, rec := range s.records {
		if id == excludeID || rec.Source != source || rec.DownloadPath == "" {
			continue
		}
		return rec, true
	}
	return Record{}, false
}

// List returns all records, most recently edited first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EditedAt.Equal(out[j].EditedAt) {
			return out[i].EditedAt.After(out[j].EditedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Save stamps every record with the current time and atomically replaces the
// snapshot. It does nothing if the store was never loaded.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.logger.Debug("skipping save of unloaded clip store", logging.String("path", s.path))
		return nil
	}
	stamp := s.now().UTC().Truncate(time.Second)
	for id, rec := range s.records {
		rec.EditedAt = stamp
		s.records[id] = rec
	}
	return s.writeLocked()
}

// Close saves the store and releases the snapshot lock. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil
	}
	saveErr := s.Save()

	s.mu.Lock()
	s.closed = true
	lock := s.lock
	s.lock = nil
	s.mu.Unlock()

	if lock != nil {
		if err := lock.Unlock(); err != nil && saveErr == nil {
			return services.Wrap(services.ErrStorage, "clipstore", "close", "release snapshot lock", err)
		}
	}
	return saveErr
}

func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrStorage, "clipstore", "save", "encode snapshot", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "clipstore", "save", "create snapshot directory", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrStorage, "clipstore", "save", "write temp snapshot", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrStorage, "clipstore", "save", "replace snapshot", err)
	}
	return nil
}
