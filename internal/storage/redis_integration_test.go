package storage

import (
	"bytes"
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packrat-cache/packrat/internal/config"
	"github.com/packrat-cache/packrat/internal/types"
)

// redisTestAddress returns the Redis address to use for tests.
// It checks the REDIS_TEST_ADDRESS environment variable first,
// then falls back to localhost:6379.
func redisTestAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// skipIfRedisUnavailable skips the test if Redis is not available.
func skipIfRedisUnavailable(t *testing.T) *StructuredStore {
	t.Helper()

	cfg := config.ForTestingWithRedis(redisTestAddress()).Structured
	cfg.KeyPrefix = "packrat:test:"
	cfg.DialTimeout = 2 * time.Second

	ss, err := NewStructuredStore(cfg, nil, nil)
	if err != nil {
		t.Skipf("Redis unavailable: %v", err)
	}

	// Clean up test keys before running tests
	ctx := context.Background()
	_ = ss.Clear(ctx)

	return ss
}

func TestStructuredStorePutGet(t *testing.T) {
	ss := skipIfRedisUnavailable(t)
	defer ss.Close()
	ctx := context.Background()

	t.Run("returns not found for missing key", func(t *testing.T) {
		_, err := ss.Get(ctx, "missing-key")
		assert.ErrorIs(t, err, types.ErrEntryNotFound)
	})

	t.Run("round trips value and metadata", func(t *testing.T) {
		now := time.Now().Truncate(time.Millisecond)
		value := []byte(`{"name":"test"}`)
		meta := types.Metadata{Size: int64(len(value)), CreatedAt: now, AccessCount: 3, Priority: 8}

		require.NoError(t, ss.Put(ctx, "/api/users", value, meta))

		entry, err := ss.Get(ctx, "/api/users")
		require.NoError(t, err)
		assert.Equal(t, value, entry.Value)
		assert.Equal(t, meta.Size, entry.Metadata.Size)
		assert.Equal(t, int64(3), entry.Metadata.AccessCount)
		assert.Equal(t, 8, entry.Metadata.Priority)
		assert.True(t, entry.Metadata.CreatedAt.Equal(now))
	})

	t.Run("round trips binary values", func(t *testing.T) {
		value := []byte{0x00, 0xff, 0x80, 0x41}
		meta := types.Metadata{Size: 4, CreatedAt: time.Now()}

		require.NoError(t, ss.Put(ctx, "/bin", value, meta))

		entry, err := ss.Get(ctx, "/bin")
		require.NoError(t, err)
		assert.True(t, bytes.Equal(value, entry.Value))
	})

	t.Run("overwrite replaces the whole entry", func(t *testing.T) {
		require.NoError(t, ss.Put(ctx, "/ow", []byte("old"),
			types.Metadata{Size: 3, CreatedAt: time.Now(), AccessCount: 9}))
		require.NoError(t, ss.Put(ctx, "/ow", []byte("new"),
			types.Metadata{Size: 3, CreatedAt: time.Now()}))

		entry, err := ss.Get(ctx, "/ow")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), entry.Value)
		assert.Equal(t, int64(0), entry.Metadata.AccessCount)
	})
}

func TestStructuredStoreTouch(t *testing.T) {
	ss := skipIfRedisUnavailable(t)
	defer ss.Close()
	ctx := context.Background()

	require.NoError(t, ss.Put(ctx, "/touched", []byte("v"),
		types.Metadata{Size: 1, CreatedAt: time.Now()}))

	at := time.Now().Truncate(time.Millisecond)
	require.NoError(t, ss.Touch(ctx, "/touched", at))
	require.NoError(t, ss.Touch(ctx, "/touched", at.Add(time.Second)))

	entry, err := ss.Get(ctx, "/touched")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Metadata.AccessCount)
	assert.True(t, entry.Metadata.LastAccessed.Equal(at.Add(time.Second)))

	t.Run("missing key is not resurrected", func(t *testing.T) {
		require.NoError(t, ss.Touch(ctx, "/never-stored", time.Now()))
		_, err := ss.Get(ctx, "/never-stored")
		assert.ErrorIs(t, err, types.ErrEntryNotFound)
	})
}

func TestStructuredStoreRemoveClear(t *testing.T) {
	ss := skipIfRedisUnavailable(t)
	defer ss.Close()
	ctx := context.Background()

	require.NoError(t, ss.Put(ctx, "/a", []byte("1"), types.Metadata{Size: 1, CreatedAt: time.Now()}))
	require.NoError(t, ss.Put(ctx, "/b", []byte("2"), types.Metadata{Size: 1, CreatedAt: time.Now()}))

	require.NoError(t, ss.Remove(ctx, "/a"))
	_, err := ss.Get(ctx, "/a")
	assert.ErrorIs(t, err, types.ErrEntryNotFound)

	// Removing a missing key is idempotent.
	assert.NoError(t, ss.Remove(ctx, "/a"))

	require.NoError(t, ss.Clear(ctx))
	keys, err := ss.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStructuredStoreKeysUsage(t *testing.T) {
	ss := skipIfRedisUnavailable(t)
	defer ss.Close()
	ctx := context.Background()

	require.NoError(t, ss.Put(ctx, "/a", []byte("aa"), types.Metadata{Size: 2, CreatedAt: time.Now()}))
	require.NoError(t, ss.Put(ctx, "/b", []byte("bbb"), types.Metadata{Size: 3, CreatedAt: time.Now()}))

	keys, err := ss.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"/a", "/b"}, keys)

	used, err := ss.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), used)
}

func TestStructuredStoreInitFailure(t *testing.T) {
	cfg := config.StructuredConfig{
		Enabled:     true,
		Address:     "127.0.0.1:1", // nothing listens here
		KeyPrefix:   "packrat:test:",
		PoolSize:    1,
		DialTimeout: 200 * time.Millisecond,
	}

	_, err := NewStructuredStore(cfg, nil, nil)
	require.Error(t, err)

	var be *types.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "structured", be.Backend)
	assert.Equal(t, "Init", be.Op)
}
