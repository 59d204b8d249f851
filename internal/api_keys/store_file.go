package api_keys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/opendatahub-io/key-ledger/internal/logger"
)

const jsonIndent = "    "

// FileStore keeps all records in one JSON object file and the action log in a
// JSON array file. Every operation reads the whole file and, when mutating,
// rewrites it in full. Writes are not atomic: a crash mid-write can truncate
// the file, which then loads as empty.
type FileStore struct {
	dataPath      string
	logPath       string
	maxLogEntries int
	logger        *logger.Logger

	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates both files (and their directories) when missing.
// maxLogEntries > 0 keeps only the newest entries after each append.
func NewFileStore(log *logger.Logger, dataPath, logPath string, maxLogEntries int) (*FileStore, error) {
	s := &FileStore{
		dataPath:      dataPath,
		logPath:       logPath,
		maxLogEntries: maxLogEntries,
		logger:        log,
	}

	if err := initFile(dataPath, "{}"); err != nil {
		return nil, err
	}
	if err := initFile(logPath, "[]"); err != nil {
		return nil, err
	}

	log.Info("Using file storage",
		"data_file", dataPath,
		"log_file", logPath,
	)
	return s, nil
}

func initFile(path, empty string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(empty), 0o644); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// loadKeys treats a missing, unreadable or malformed key file as an empty store.
func (s *FileStore) loadKeys() map[string]KeyRecord {
	keys := map[string]KeyRecord{}

	data, err := os.ReadFile(s.dataPath)
	if err != nil {
		s.logger.Warn("Key file unreadable, using empty store", "path", s.dataPath, "error", err)
		return keys
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		s.logger.Warn("Key file malformed, using empty store", "path", s.dataPath, "error", err)
		return map[string]KeyRecord{}
	}
	if keys == nil {
		keys = map[string]KeyRecord{}
	}
	return keys
}

func (s *FileStore) saveKeys(keys map[string]KeyRecord) error {
	data, err := json.MarshalIndent(keys, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("failed to encode keys: %w", err)
	}
	if err := os.WriteFile(s.dataPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write key file %s: %w", s.dataPath, err)
	}
	return nil
}

// loadLog treats a missing, unreadable or malformed log file as an empty log.
func (s *FileStore) loadLog() []LogEntry {
	entries := []LogEntry{}

	data, err := os.ReadFile(s.logPath)
	if err != nil {
		s.logger.Warn("Log file unreadable, using empty log", "path", s.logPath, "error", err)
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("Log file malformed, using empty log", "path", s.logPath, "error", err)
		return []LogEntry{}
	}
	if entries == nil {
		entries = []LogEntry{}
	}
	return entries
}

func (s *FileStore) saveLog(entries []LogEntry) error {
	data, err := json.MarshalIndent(entries, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("failed to encode action log: %w", err)
	}
	if err := os.WriteFile(s.logPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write log file %s: %w", s.logPath, err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context) (map[string]KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadKeys(), nil
}

func (s *FileStore) Get(_ context.Context, apiKey string) (*KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.loadKeys()[apiKey]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return &rec, nil
}

func (s *FileStore) Create(_ context.Context, apiKey string, rec KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.loadKeys()
	if _, exists := keys[apiKey]; exists {
		return ErrKeyExists
	}
	keys[apiKey] = rec
	return s.saveKeys(keys)
}

func (s *FileStore) MarkDeleted(_ context.Context, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.loadKeys()
	rec, ok := keys[apiKey]
	if !ok {
		return ErrKeyNotFound
	}
	rec.Deleted = true
	keys[apiKey] = rec
	return s.saveKeys(keys)
}

func (s *FileStore) Delete(_ context.Context, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.loadKeys()
	if _, ok := keys[apiKey]; !ok {
		return ErrKeyNotFound
	}
	delete(keys, apiKey)
	return s.saveKeys(keys)
}

func (s *FileStore) AppendLog(_ context.Context, entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.loadLog(), entry)
	if s.maxLogEntries > 0 && len(entries) > s.maxLogEntries {
		entries = entries[len(entries)-s.maxLogEntries:]
	}
	return s.saveLog(entries)
}

func (s *FileStore) Logs(_ context.Context) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLog(), nil
}
