package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/packrat-cache/packrat/internal/config"
	"github.com/packrat-cache/packrat/internal/resilience"
	"github.com/packrat-cache/packrat/internal/types"
)

// Hash fields for a structured entry. The value travels alongside its
// eviction metadata so a single HGETALL reconstructs the whole entry.
const (
	fieldValue    = "value"
	fieldSize     = "size"
	fieldCreated  = "created"
	fieldAccessed = "accessed"
	fieldCount    = "count"
	fieldPriority = "priority"
)

// StructuredStore is the durable structured backend, backed by Redis. Each
// entry is a hash keyed by the prefixed cache key. Initialization fails
// permanently if the server cannot be reached.
type StructuredStore struct {
	client  *redis.Client
	config  config.StructuredConfig
	breaker resilience.Breaker
	logger  *slog.Logger

	closed atomic.Bool
}

// NewStructuredStore connects to Redis and verifies the connection. A failed
// ping is a permanent initialization failure; the caller decides how to
// degrade.
func NewStructuredStore(cfg config.StructuredConfig, breaker resilience.Breaker, logger *slog.Logger) (*StructuredStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = resilience.NewDisabledCircuitBreaker()
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	}

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		}
		if cfg.TLSSkipVerify {
			logger.Warn("TLS certificate verification is disabled - this is insecure for production use")
		}
	}

	client := redis.NewClient(opts)

	ss := &StructuredStore{
		client:  client,
		config:  cfg,
		breaker: breaker,
		logger:  logger.With("component", "structured-store"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, types.NewBackendError("Init", "", ss.Name(), err)
	}

	ss.logger.Info("Structured store connected", "address", cfg.Address)
	return ss, nil
}

// Name returns the backend name.
func (s *StructuredStore) Name() string {
	return "structured"
}

// IsAvailable returns true when the store is open and the breaker admits
// traffic.
func (s *StructuredStore) IsAvailable() bool {
	return !s.closed.Load() && s.breaker.State() != resilience.StateOpen
}

func (s *StructuredStore) prefixKey(key string) string {
	return s.config.KeyPrefix + key
}

// Get retrieves an entry without touching its access metadata.
func (s *StructuredStore) Get(ctx context.Context, key string) (*types.Entry, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}
	if !s.breaker.Allow() {
		return nil, types.NewBackendError("Get", key, s.Name(), resilience.ErrCircuitOpen)
	}

	fields, err := s.client.HGetAll(ctx, s.prefixKey(key)).Result()
	if err != nil {
		s.breaker.RecordFailure()
		return nil, types.NewBackendError("Get", key, s.Name(), err)
	}
	s.breaker.RecordSuccess()

	// HGETALL returns an empty map for a missing key.
	if len(fields) == 0 {
		return nil, types.ErrEntryNotFound
	}

	return &types.Entry{
		Key:      key,
		Value:    []byte(fields[fieldValue]),
		Metadata: metaFromFields(fields),
	}, nil
}

func metaFromFields(fields map[string]string) types.Metadata {
	meta := types.Metadata{}
	meta.Size, _ = strconv.ParseInt(fields[fieldSize], 10, 64)
	meta.AccessCount, _ = strconv.ParseInt(fields[fieldCount], 10, 64)
	meta.Priority, _ = strconv.Atoi(fields[fieldPriority])
	if ns, err := strconv.ParseInt(fields[fieldCreated], 10, 64); err == nil && ns > 0 {
		meta.CreatedAt = time.Unix(0, ns)
	}
	if ns, err := strconv.ParseInt(fields[fieldAccessed], 10, 64); err == nil && ns > 0 {
		meta.LastAccessed = time.Unix(0, ns)
	}
	return meta
}

// Put stores an entry with its metadata, replacing any existing one.
func (s *StructuredStore) Put(ctx context.Context, key string, value []byte, meta types.Metadata) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if !s.breaker.Allow() {
		return types.NewBackendError("Put", key, s.Name(), resilience.ErrCircuitOpen)
	}

	fields := map[string]any{
		fieldValue:    value,
		fieldSize:     meta.Size,
		fieldCreated:  meta.CreatedAt.UnixNano(),
		fieldCount:    meta.AccessCount,
		fieldPriority: meta.Priority,
	}
	if !meta.LastAccessed.IsZero() {
		fields[fieldAccessed] = meta.LastAccessed.UnixNano()
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.prefixKey(key))
	pipe.HSet(ctx, s.prefixKey(key), fields)
	if _, err := pipe.Exec(ctx); err != nil {
		s.breaker.RecordFailure()
		return types.NewBackendError("Put", key, s.Name(), err)
	}

	s.breaker.RecordSuccess()
	return nil
}

// Touch atomically bumps the access count and timestamp of an entry. Missing
// keys are ignored so a concurrent remove does not resurrect the hash.
func (s *StructuredStore) Touch(ctx context.Context, key string, at time.Time) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if !s.breaker.Allow() {
		return types.NewBackendError("Touch", key, s.Name(), resilience.ErrCircuitOpen)
	}

	prefixed := s.prefixKey(key)

	// EXISTS and the updates run in one round trip; the watch is advisory
	// since eviction tolerates a slightly stale count anyway.
	pipe := s.client.Pipeline()
	existsCmd := pipe.Exists(ctx, prefixed)
	pipe.HIncrBy(ctx, prefixed, fieldCount, 1)
	pipe.HSet(ctx, prefixed, fieldAccessed, at.UnixNano())
	if _, err := pipe.Exec(ctx); err != nil {
		s.breaker.RecordFailure()
		return types.NewBackendError("Touch", key, s.Name(), err)
	}
	s.breaker.RecordSuccess()

	if existsCmd.Val() == 0 {
		// The increments created a stray hash; clean it up.
		_ = s.client.Del(ctx, prefixed).Err()
	}
	return nil
}

// Remove deletes an entry. Removing a missing key is not an error.
func (s *StructuredStore) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if !s.breaker.Allow() {
		return types.NewBackendError("Remove", key, s.Name(), resilience.ErrCircuitOpen)
	}

	if err := s.client.Del(ctx, s.prefixKey(key)).Err(); err != nil {
		s.breaker.RecordFailure()
		return types.NewBackendError("Remove", key, s.Name(), err)
	}
	s.breaker.RecordSuccess()
	return nil
}

// Clear removes all entries under the store's key prefix.
func (s *StructuredStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if !s.breaker.Allow() {
		return types.NewBackendError("Clear", "", s.Name(), resilience.ErrCircuitOpen)
	}

	var cursor uint64
	var deleted int64
	pattern := s.prefixKey("*")

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, s.config.ScanCount).Result()
		if err != nil {
			s.breaker.RecordFailure()
			return types.NewBackendError("Clear", "", s.Name(), err)
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				s.breaker.RecordFailure()
				return types.NewBackendError("Clear", "", s.Name(), err)
			}
			deleted += int64(len(keys))
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	s.breaker.RecordSuccess()
	s.logger.Debug("Cleared structured store", "deleted", deleted)
	return nil
}

// Keys returns all keys currently in the store, with the prefix stripped.
func (s *StructuredStore) Keys(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}
	if !s.breaker.Allow() {
		return nil, types.NewBackendError("Keys", "", s.Name(), resilience.ErrCircuitOpen)
	}

	var cursor uint64
	var keys []string
	pattern := s.prefixKey("*")

	for {
		batch, nextCursor, err := s.client.Scan(ctx, cursor, pattern, s.config.ScanCount).Result()
		if err != nil {
			s.breaker.RecordFailure()
			return nil, types.NewBackendError("Keys", "", s.Name(), err)
		}

		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, s.config.KeyPrefix))
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	s.breaker.RecordSuccess()
	return keys, nil
}

// Usage sums the recorded sizes of all entries via pipelined HGET calls.
func (s *StructuredStore) Usage(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, types.ErrClosed
	}
	if !s.breaker.Allow() {
		return 0, types.NewBackendError("Usage", "", s.Name(), resilience.ErrCircuitOpen)
	}

	var cursor uint64
	var used int64
	pattern := s.prefixKey("*")

	for {
		batch, nextCursor, err := s.client.Scan(ctx, cursor, pattern, s.config.ScanCount).Result()
		if err != nil {
			s.breaker.RecordFailure()
			return 0, types.NewBackendError("Usage", "", s.Name(), err)
		}

		if len(batch) > 0 {
			pipe := s.client.Pipeline()
			cmds := make([]*redis.StringCmd, len(batch))
			for i, k := range batch {
				cmds[i] = pipe.HGet(ctx, k, fieldSize)
			}
			if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
				s.breaker.RecordFailure()
				return 0, types.NewBackendError("Usage", "", s.Name(), err)
			}
			for _, cmd := range cmds {
				if size, err := cmd.Int64(); err == nil {
					used += size
				}
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	s.breaker.RecordSuccess()
	return used, nil
}

// Close closes the Redis client. Entries persist on the server.
func (s *StructuredStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}

var (
	_ types.Backend        = (*StructuredStore)(nil)
	_ types.BackendToucher = (*StructuredStore)(nil)
)
