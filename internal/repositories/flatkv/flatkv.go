// Package flatkv is the flat-file fallback backend used when the embedded
// database cannot be opened. It keeps all five collections in one JSON file
// rewritten atomically on every mutation, and caps the usage log at a
// rolling window so the file cannot grow without bound.
package flatkv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/models"
)

// MaxRecords is the rolling-window cap on the usage log in flat storage.
// The embedded database backend has no such cap.
const MaxRecords = 1000

type cacheEntry struct {
	Payload     []byte `json:"payload"`
	ExpiresAtMs int64  `json:"expires_at_ms"`
}

type prefEntry struct {
	Value string `json:"value"`
	TsMs  int64  `json:"ts_ms"`
}

type fileData struct {
	Secure       map[string]string     `json:"secure"`
	Records      []models.UsageRecord  `json:"records"`
	NextRecordID int64                 `json:"next_record_id"`
	Cache        map[string]cacheEntry `json:"cache"`
	Prefs        map[string]prefEntry  `json:"prefs"`
	Sync         []models.SyncItem     `json:"sync"`
	NextSyncID   int64                 `json:"next_sync_id"`
}

// Store is the shared state behind the per-collection repository views.
// A single mutex serializes every operation, which also gives the same
// issue-order guarantee the database backend provides.
type Store struct {
	mu   sync.Mutex
	path string
	data fileData
}

// Open loads the store file at path, creating empty state when absent.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	s.data = fileData{
		Secure:       map[string]string{},
		Cache:        map[string]cacheEntry{},
		Prefs:        map[string]prefEntry{},
		NextRecordID: 1,
		NextSyncID:   1,
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, common.WrapStorage(fmt.Errorf("failed to read flat store: %w", err))
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, common.WrapStorage(fmt.Errorf("failed to parse flat store: %w", err))
	}
	// maps may be nil after unmarshalling an older file
	if s.data.Secure == nil {
		s.data.Secure = map[string]string{}
	}
	if s.data.Cache == nil {
		s.data.Cache = map[string]cacheEntry{}
	}
	if s.data.Prefs == nil {
		s.data.Prefs = map[string]prefEntry{}
	}
	if s.data.NextRecordID == 0 {
		s.data.NextRecordID = 1
	}
	if s.data.NextSyncID == 0 {
		s.data.NextSyncID = 1
	}
	return s, nil
}

// Path returns the location of the underlying file.
func (s *Store) Path() string {
	return s.path
}

// save must be called with the mutex held. It rewrites the file atomically
// via a temp file and rename, so a crash mid-write never corrupts the store.
func (s *Store) save() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to serialize flat store: %w", err))
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".flatkv-*")
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return common.WrapStorage(fmt.Errorf("failed to write flat store: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return common.WrapStorage(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return common.WrapStorage(fmt.Errorf("failed to replace flat store: %w", err))
	}
	return nil
}

// Wipe removes the store file and resets in-memory state.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = fileData{
		Secure:       map[string]string{},
		Cache:        map[string]cacheEntry{},
		Prefs:        map[string]prefEntry{},
		NextRecordID: 1,
		NextSyncID:   1,
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return common.WrapStorage(err)
	}
	return nil
}

// SecureSnapshot returns a copy of all encrypted blobs, used for the
// one-time legacy import into the database backend.
func (s *Store) SecureSnapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.data.Secure))
	for k, v := range s.data.Secure {
		out[k] = v
	}
	return out
}

func nowMs(t time.Time) int64 { return t.UnixMilli() }
