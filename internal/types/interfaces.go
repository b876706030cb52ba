package types

import (
	"context"
	"time"
)

type BackendInfo interface {
	Name() string
	IsAvailable() bool
}

type BackendReader interface {
	// Get returns the stored entry or ErrEntryNotFound. It is a pure read:
	// access metadata is never modified by the backend itself.
	Get(ctx context.Context, key string) (*Entry, error)
	Keys(ctx context.Context) ([]string, error)
}

type BackendWriter interface {
	Put(ctx context.Context, key string, value []byte, meta Metadata) error
	// Remove is idempotent: removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

type BackendMaintainer interface {
	Clear(ctx context.Context) error
	// Usage reports the bytes held by this backend, by entry size.
	Usage(ctx context.Context) (int64, error)
}

type BackendCloser interface {
	Close() error
}

// Backend is the uniform six-operation capability implemented by every
// storage variant. A backend is selected at construction time, never
// discovered dynamically.
type Backend interface {
	BackendInfo
	BackendReader
	BackendWriter
	BackendMaintainer
	BackendCloser
}

// BackendToucher is implemented by backends that can fold the access-metadata
// update into a single transactional operation. Backends without it get the
// manager's generic read-then-rewrite touch, which is deliberately non-atomic.
type BackendToucher interface {
	Touch(ctx context.Context, key string, at time.Time) error
}

type MetricsRecorder interface {
	RecordHit(backend, key string, latency time.Duration)
	RecordMiss(key string, latency time.Duration)
	RecordPut(backend, key string, size int64, latency time.Duration)
	RecordRemove(key string, latency time.Duration)
	RecordEviction(policy string, freedBytes int64, entries int)
	RecordBackendError(backend, op string, err error)
	RecordCircuitStateChange(from, to string)
}
