package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/packrat-cache/packrat/internal/config"
	"github.com/packrat-cache/packrat/internal/types"
)

// FlatStore is the durable flat backend. It keeps one file per key under a
// directory tree and can only hold string data, so values pass through the
// tagged codec. The store enforces a small byte quota of its own, independent
// of the manager's aggregate capacity.
type FlatStore struct {
	dir    string
	quota  int64
	logger *slog.Logger

	mu    sync.Mutex
	used  int64
	index map[string]int64 // key -> recorded entry size

	closed atomic.Bool
}

// flatEntry is the JSON document written to disk. Every field is a string or
// a number, keeping the format trivially portable.
type flatEntry struct {
	Key          string `json:"key"`
	Value        string `json:"value"` // tagged codec document
	Size         int64  `json:"size"`
	CreatedAt    string `json:"createdAt"`
	LastAccessed string `json:"lastAccessed,omitempty"`
	AccessCount  int64  `json:"accessCount"`
	Priority     int    `json:"priority"`
}

// NewFlatStore creates a flat store rooted at the configured directory,
// creating it if needed and scanning existing entries to rebuild the
// usage accounting.
func NewFlatStore(cfg config.FlatConfig, logger *slog.Logger) (*FlatStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := cfg.Directory
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache dir: %w", err)
		}
		dir = filepath.Join(base, "packrat")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FlatStore{
		dir:    dir,
		quota:  cfg.Quota,
		logger: logger.With("component", "flat-store"),
		index:  make(map[string]int64),
	}

	if err := s.scan(); err != nil {
		return nil, err
	}

	return s, nil
}

// scan walks the store directory and rebuilds the key index and usage count
// from the entries already on disk. Unreadable files are skipped.
func (s *FlatStore) scan() error {
	return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable entry file", "path", path, "error", err)
			return nil
		}

		var fe flatEntry
		if err := json.Unmarshal(data, &fe); err != nil {
			s.logger.Warn("Skipping corrupt entry file", "path", path, "error", err)
			return nil
		}

		s.index[fe.Key] = fe.Size
		s.used += fe.Size
		return nil
	})
}

// entryPath maps a key to its file path. Keys are hashed so arbitrary key
// strings never leak into filesystem names, with a two-character fan-out to
// keep directories small.
func (s *FlatStore) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(s.dir, name[:2], name+".json")
}

// Name returns the backend name.
func (s *FlatStore) Name() string {
	return "flat"
}

// IsAvailable returns true if the store is not closed.
func (s *FlatStore) IsAvailable() bool {
	return !s.closed.Load()
}

// Get retrieves an entry without touching its access metadata.
func (s *FlatStore) Get(ctx context.Context, key string) (*types.Entry, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}

	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrEntryNotFound
		}
		return nil, types.NewBackendError("Get", key, s.Name(), err)
	}

	var fe flatEntry
	if err := json.Unmarshal(data, &fe); err != nil {
		return nil, types.NewBackendError("Get", key, s.Name(), err)
	}

	value, err := decodeValue(fe.Value)
	if err != nil {
		return nil, types.NewBackendError("Get", key, s.Name(), err)
	}

	meta := types.Metadata{
		Size:        fe.Size,
		AccessCount: fe.AccessCount,
		Priority:    fe.Priority,
	}
	if fe.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, fe.CreatedAt); err == nil {
			meta.CreatedAt = ts
		}
	}
	if fe.LastAccessed != "" {
		if ts, err := time.Parse(time.RFC3339Nano, fe.LastAccessed); err == nil {
			meta.LastAccessed = ts
		}
	}

	return &types.Entry{Key: key, Value: value, Metadata: meta}, nil
}

// Put stores an entry, enforcing the store quota. The replaced entry's size
// is credited back before the check, so overwrites only account for growth.
func (s *FlatStore) Put(ctx context.Context, key string, value []byte, meta types.Metadata) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return types.NewBackendError("Put", key, s.Name(), err)
	}

	fe := flatEntry{
		Key:         key,
		Value:       encoded,
		Size:        meta.Size,
		CreatedAt:   meta.CreatedAt.Format(time.RFC3339Nano),
		AccessCount: meta.AccessCount,
		Priority:    meta.Priority,
	}
	if !meta.LastAccessed.IsZero() {
		fe.LastAccessed = meta.LastAccessed.Format(time.RFC3339Nano)
	}

	doc, err := json.Marshal(fe)
	if err != nil {
		return types.NewBackendError("Put", key, s.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldSize := s.index[key]
	if s.quota > 0 && s.used-oldSize+meta.Size > s.quota {
		return types.NewBackendError("Put", key, s.Name(), types.ErrQuotaExceeded)
	}

	path := s.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.NewBackendError("Put", key, s.Name(), err)
	}

	// Write to a temp file and rename so readers never observe a torn entry.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return types.NewBackendError("Put", key, s.Name(), err)
	}
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return types.NewBackendError("Put", key, s.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return types.NewBackendError("Put", key, s.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return types.NewBackendError("Put", key, s.Name(), err)
	}

	s.used += meta.Size - oldSize
	s.index[key] = meta.Size
	return nil
}

// Remove deletes an entry. Removing a missing key is not an error.
func (s *FlatStore) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.entryPath(key)); err != nil {
		if !os.IsNotExist(err) {
			return types.NewBackendError("Remove", key, s.Name(), err)
		}
	}

	if size, ok := s.index[key]; ok {
		s.used -= size
		delete(s.index, key)
	}
	return nil
}

// Clear removes all entries.
func (s *FlatStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return types.NewBackendError("Clear", "", s.Name(), err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return types.NewBackendError("Clear", "", s.Name(), err)
		}
	}

	s.used = 0
	s.index = make(map[string]int64)
	return nil
}

// Keys returns all keys currently in the store.
func (s *FlatStore) Keys(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.index))
	for k := range s.index {
		keys = append(keys, k)
	}
	return keys, nil
}

// Usage returns the total recorded size of all stored entries.
func (s *FlatStore) Usage(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, types.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used, nil
}

// Quota returns the store's configured capacity in bytes.
func (s *FlatStore) Quota() int64 {
	return s.quota
}

// Close marks the store closed. On-disk entries are left in place for the
// next run.
func (s *FlatStore) Close() error {
	s.closed.Store(true)
	return nil
}

var _ types.Backend = (*FlatStore)(nil)
