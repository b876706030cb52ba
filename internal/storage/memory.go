package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/packrat-cache/packrat/internal/config"
	"github.com/packrat-cache/packrat/internal/types"
)

// VolatileStore is the in-memory terminal fallback backend, built on BigCache.
// It never fails to initialize and its writes only fail when the store has
// been closed.
type VolatileStore struct {
	cache  *bigcache.BigCache
	logger *slog.Logger

	puts    atomic.Int64
	removes atomic.Int64

	closed atomic.Bool
}

// volatileEntry is the serialized form of a cached entry inside BigCache,
// carrying the value together with its eviction metadata.
type volatileEntry struct {
	Value []byte         `json:"value"`
	Meta  types.Metadata `json:"meta"`
}

// NewVolatileStore creates a new volatile store with the given configuration.
func NewVolatileStore(cfg config.VolatileConfig, logger *slog.Logger) (*VolatileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vs := &VolatileStore{
		logger: logger.With("component", "volatile-store"),
	}

	// Entries live until explicitly removed or evicted by the manager.
	// BigCache insists on a life window, so give it one that never fires.
	lifeWindow := cfg.LifeWindow
	if lifeWindow <= 0 {
		lifeWindow = math.MaxInt64 / 2 * time.Nanosecond
	}

	shards := cfg.Shards
	if shards <= 0 {
		shards = 1024
	}

	bcConfig := bigcache.Config{
		Shards:             shards,
		LifeWindow:         lifeWindow,
		CleanWindow:        0,
		MaxEntriesInWindow: 1000 * 10 * 60,
		MaxEntrySize:       cfg.MaxEntrySize,
		HardMaxCacheSize:   0,
		Verbose:            false,
		Logger:             &bigcacheLogger{logger: vs.logger},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, err
	}

	vs.cache = bc
	return vs, nil
}

// Name returns the backend name.
func (s *VolatileStore) Name() string {
	return "volatile"
}

// IsAvailable returns true if the store is not closed.
func (s *VolatileStore) IsAvailable() bool {
	return !s.closed.Load()
}

// Get retrieves an entry without touching its access metadata.
func (s *VolatileStore) Get(ctx context.Context, key string) (*types.Entry, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}

	data, err := s.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, types.ErrEntryNotFound
		}
		return nil, types.NewBackendError("Get", key, s.Name(), err)
	}

	var ve volatileEntry
	if err := json.Unmarshal(data, &ve); err != nil {
		return nil, types.NewBackendError("Get", key, s.Name(), err)
	}

	return &types.Entry{Key: key, Value: ve.Value, Metadata: ve.Meta}, nil
}

// Put stores an entry with its metadata, replacing any existing one.
func (s *VolatileStore) Put(ctx context.Context, key string, value []byte, meta types.Metadata) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	data, err := json.Marshal(volatileEntry{Value: value, Meta: meta})
	if err != nil {
		return types.NewBackendError("Put", key, s.Name(), err)
	}

	if err := s.cache.Set(key, data); err != nil {
		return types.NewBackendError("Put", key, s.Name(), err)
	}

	s.puts.Add(1)
	return nil
}

// Remove deletes an entry. Removing a missing key is not an error.
func (s *VolatileStore) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	if err := s.cache.Delete(key); err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			return types.NewBackendError("Remove", key, s.Name(), err)
		}
	}

	s.removes.Add(1)
	return nil
}

// Clear removes all entries.
func (s *VolatileStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	return s.cache.Reset()
}

// Keys returns all keys currently in the store.
func (s *VolatileStore) Keys(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}

	var keys []string
	iter := s.cache.Iterator()
	for iter.SetNext() {
		entry, err := iter.Value()
		if err != nil {
			continue
		}
		keys = append(keys, entry.Key())
	}
	return keys, nil
}

// Usage returns the total size in bytes of all stored values, as recorded
// in their metadata.
func (s *VolatileStore) Usage(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, types.ErrClosed
	}

	var used int64
	iter := s.cache.Iterator()
	for iter.SetNext() {
		raw, err := iter.Value()
		if err != nil {
			continue
		}
		var ve volatileEntry
		if err := json.Unmarshal(raw.Value(), &ve); err != nil {
			continue
		}
		used += ve.Meta.Size
	}
	return used, nil
}

// EntryCount returns the number of entries in the store.
func (s *VolatileStore) EntryCount() int {
	return s.cache.Len()
}

// Close closes the store and releases resources.
func (s *VolatileStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.cache.Close()
}

type bigcacheLogger struct {
	logger *slog.Logger
}

func (l *bigcacheLogger) Printf(format string, args ...any) {
	l.logger.Debug("bigcache: " + format)
}

var _ types.Backend = (*VolatileStore)(nil)
