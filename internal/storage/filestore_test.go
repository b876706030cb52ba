package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/packrat-cache/packrat/internal/config"
	"github.com/packrat-cache/packrat/internal/types"
)

func newTestFlatStore(t *testing.T, quota int64) *FlatStore {
	t.Helper()
	s, err := NewFlatStore(config.FlatConfig{Directory: t.TempDir(), Quota: quota}, nil)
	if err != nil {
		t.Fatalf("NewFlatStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFlatStorePutGet(t *testing.T) {
	s := newTestFlatStore(t, 1024)
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	value := []byte("body")
	meta := types.Metadata{Size: 4, CreatedAt: now, AccessCount: 2, Priority: 7}
	if err := s.Put(ctx, "/api/users?page=1", value, meta); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := s.Get(ctx, "/api/users?page=1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(entry.Value, value) {
		t.Errorf("Expected %q, got %q", value, entry.Value)
	}
	if entry.Metadata.Size != 4 || entry.Metadata.Priority != 7 || entry.Metadata.AccessCount != 2 {
		t.Errorf("Expected metadata to round trip, got %+v", entry.Metadata)
	}
	if !entry.Metadata.CreatedAt.Equal(now) {
		t.Errorf("Expected createdAt %v, got %v", now, entry.Metadata.CreatedAt)
	}
	if !entry.Metadata.LastAccessed.IsZero() {
		t.Errorf("Expected zero lastAccessed, got %v", entry.Metadata.LastAccessed)
	}
}

func TestFlatStoreBinaryValue(t *testing.T) {
	s := newTestFlatStore(t, 1024)
	ctx := context.Background()

	value := []byte{0x00, 0xff, 0x80, 0x41}
	if err := s.Put(ctx, "/bin", value, types.Metadata{Size: 4, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := s.Get(ctx, "/bin")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(entry.Value, value) {
		t.Errorf("Expected binary round trip, got %v", entry.Value)
	}
}

func TestFlatStoreGetMiss(t *testing.T) {
	s := newTestFlatStore(t, 1024)
	if _, err := s.Get(context.Background(), "/missing"); !errors.Is(err, types.ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
}

func TestFlatStoreQuota(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects writes beyond quota", func(t *testing.T) {
		s := newTestFlatStore(t, 10)
		if err := s.Put(ctx, "/a", []byte("123456"), types.Metadata{Size: 6, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		err := s.Put(ctx, "/b", []byte("123456"), types.Metadata{Size: 6, CreatedAt: time.Now()})
		if !types.IsQuotaExceeded(err) {
			t.Errorf("Expected ErrQuotaExceeded, got %v", err)
		}
		// The rejected write must not corrupt accounting.
		if used, _ := s.Usage(ctx); used != 6 {
			t.Errorf("Expected usage 6, got %d", used)
		}
	})

	t.Run("overwrite only counts growth", func(t *testing.T) {
		s := newTestFlatStore(t, 10)
		if err := s.Put(ctx, "/a", []byte("12345678"), types.Metadata{Size: 8, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		// 8 stored, replacing with 9 fits even though 8+9 > 10.
		if err := s.Put(ctx, "/a", []byte("123456789"), types.Metadata{Size: 9, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("Overwrite within quota failed: %v", err)
		}
		if used, _ := s.Usage(ctx); used != 9 {
			t.Errorf("Expected usage 9, got %d", used)
		}
	})
}

func TestFlatStoreRemove(t *testing.T) {
	s := newTestFlatStore(t, 1024)
	ctx := context.Background()

	_ = s.Put(ctx, "/k", []byte("abc"), types.Metadata{Size: 3, CreatedAt: time.Now()})
	if err := s.Remove(ctx, "/k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := s.Get(ctx, "/k"); !errors.Is(err, types.ErrEntryNotFound) {
		t.Errorf("Expected miss after remove, got %v", err)
	}
	if used, _ := s.Usage(ctx); used != 0 {
		t.Errorf("Expected zero usage, got %d", used)
	}

	if err := s.Remove(ctx, "/never-existed"); err != nil {
		t.Errorf("Expected nil for missing key, got %v", err)
	}
}

func TestFlatStoreClear(t *testing.T) {
	s := newTestFlatStore(t, 1024)
	ctx := context.Background()

	_ = s.Put(ctx, "/a", []byte("1"), types.Metadata{Size: 1, CreatedAt: time.Now()})
	_ = s.Put(ctx, "/b", []byte("2"), types.Metadata{Size: 1, CreatedAt: time.Now()})

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("Expected no keys, got %v", keys)
	}
	if used, _ := s.Usage(ctx); used != 0 {
		t.Errorf("Expected zero usage, got %d", used)
	}
}

func TestFlatStoreKeys(t *testing.T) {
	s := newTestFlatStore(t, 1024)
	ctx := context.Background()

	for _, k := range []string{"/a", "/b", "/c"} {
		_ = s.Put(ctx, k, []byte("x"), types.Metadata{Size: 1, CreatedAt: time.Now()})
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "/a" || keys[2] != "/c" {
		t.Errorf("Expected [/a /b /c], got %v", keys)
	}
}

func TestFlatStoreReopenRebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFlatStore(config.FlatConfig{Directory: dir, Quota: 1024}, nil)
	if err != nil {
		t.Fatalf("NewFlatStore failed: %v", err)
	}
	_ = s.Put(ctx, "/a", []byte("aa"), types.Metadata{Size: 2, CreatedAt: time.Now()})
	_ = s.Put(ctx, "/b", []byte("bbb"), types.Metadata{Size: 3, CreatedAt: time.Now()})
	_ = s.Close()

	reopened, err := NewFlatStore(config.FlatConfig{Directory: dir, Quota: 1024}, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	used, err := reopened.Usage(ctx)
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if used != 5 {
		t.Errorf("Expected rebuilt usage 5, got %d", used)
	}

	entry, err := reopened.Get(ctx, "/b")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(entry.Value) != "bbb" {
		t.Errorf("Expected persisted value, got %q", entry.Value)
	}
}

func TestFlatStoreSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFlatStore(config.FlatConfig{Directory: dir, Quota: 1024}, nil)
	if err != nil {
		t.Fatalf("NewFlatStore failed: %v", err)
	}
	_ = s.Put(ctx, "/good", []byte("ok"), types.Metadata{Size: 2, CreatedAt: time.Now()})
	_ = s.Close()

	// Drop a garbage file into the tree; reopen must survive it.
	if err := os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{broken"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	reopened, err := NewFlatStore(config.FlatConfig{Directory: dir, Quota: 1024}, nil)
	if err != nil {
		t.Fatalf("Reopen with corrupt file failed: %v", err)
	}
	defer reopened.Close()

	if used, _ := reopened.Usage(ctx); used != 2 {
		t.Errorf("Expected only the good entry counted, got %d", used)
	}
}

func TestFlatStoreClosed(t *testing.T) {
	s := newTestFlatStore(t, 1024)
	ctx := context.Background()

	_ = s.Close()
	if err := s.Put(ctx, "/k", []byte("x"), types.Metadata{Size: 1}); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if s.IsAvailable() {
		t.Error("Expected unavailable after close")
	}
}
