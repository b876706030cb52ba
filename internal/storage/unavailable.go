package storage

import (
	"context"

	"github.com/packrat-cache/packrat/internal/types"
)

// unavailableBackend stands in for a backend whose initialization failed
// permanently. It keeps the backend's slot in the fallback chain so errors
// carry its name in diagnostics, but every operation fails immediately.
type unavailableBackend struct {
	name string
	err  error
}

// NewUnavailableBackend wraps an initialization failure as a Backend.
func NewUnavailableBackend(name string, initErr error) types.Backend {
	return &unavailableBackend{name: name, err: initErr}
}

func (b *unavailableBackend) Name() string      { return b.name }
func (b *unavailableBackend) IsAvailable() bool { return false }

func (b *unavailableBackend) fail(op, key string) error {
	return types.NewBackendError(op, key, b.name, types.ErrBackendUnavailable)
}

func (b *unavailableBackend) Get(ctx context.Context, key string) (*types.Entry, error) {
	return nil, b.fail("Get", key)
}

func (b *unavailableBackend) Put(ctx context.Context, key string, value []byte, meta types.Metadata) error {
	return b.fail("Put", key)
}

func (b *unavailableBackend) Remove(ctx context.Context, key string) error {
	return b.fail("Remove", key)
}

func (b *unavailableBackend) Clear(ctx context.Context) error {
	return b.fail("Clear", "")
}

func (b *unavailableBackend) Keys(ctx context.Context) ([]string, error) {
	return nil, b.fail("Keys", "")
}

func (b *unavailableBackend) Usage(ctx context.Context) (int64, error) {
	return 0, b.fail("Usage", "")
}

func (b *unavailableBackend) Close() error { return nil }

var _ types.Backend = (*unavailableBackend)(nil)
