// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cache is the query-result cache shared by the preview pipeline.

Every cached value is addressed by a [Key] made of an operation name and its
arguments, so two callers asking the same question share one answer.
Concurrent misses for the same key are collapsed into a single load with
singleflight; the value is then written to the backend (Redis in production)
with a TTL. Writes are last-writer-wins.

A failing backend never fails the caller: lookups degrade to a direct load.
*/
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
)

// ErrMiss is returned by a [Backend] when no value is stored under a key.
var ErrMiss = errors.New("cache: miss")

// # Keys

// Key identifies a cached query result.
type Key struct {
	Op   string
	Args []string
}

// NewKey builds a key from an operation and its arguments.
func NewKey(op string, args ...string) Key {
	return Key{Op: op, Args: args}
}

// String renders the storage key. Arguments are hashed so arbitrarily large
// inputs (source code) still produce short keys.
func (k Key) String() string {
	digest := sha256.Sum256([]byte(strings.Join(k.Args, "\x00")))
	return constants.RedisPrefixCache + k.Op + ":" + hex.EncodeToString(digest[:16])
}

// # Backends

// Backend stores opaque bytes with a TTL.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisBackend stores entries in Redis.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps a connected client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get returns [ErrMiss] for absent or expired keys.
func (backend *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := backend.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis_cache_get_failed: %w", err)
	}
	return value, nil
}

// Set writes value with the given TTL.
func (backend *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := backend.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_cache_set_failed: %w", err)
	}
	return nil
}

// MemoryBackend is a process-local backend used by the CLI and in tests.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]memoryEntry{}, now: time.Now}
}

func (backend *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	entry, ok := backend.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !entry.expiresAt.IsZero() && backend.now().After(entry.expiresAt) {
		delete(backend.entries, key)
		return nil, ErrMiss
	}
	return entry.value, nil
}

func (backend *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = backend.now().Add(ttl)
	}
	backend.entries[key] = entry
	return nil
}

// # Store

// Store combines a backend with in-flight request collapsing.
type Store struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Registry
	logger  *slog.Logger
}

// New builds a cache store. A zero ttl stores entries without expiry.
func New(backend Backend, ttl time.Duration, registry *metrics.Registry, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		ttl:     ttl,
		metrics: registry,
		logger:  logger,
	}
}

/*
GetOrLoad returns the cached value for key or computes it with load.

Description: A hit is decoded from JSON. On a miss, concurrent callers with
the same key share one load; the result is written back before returning.
The shared load is detached from the caller that started it and bounded by
constants.CacheLoadTimeout, so one cancelled caller never fails the others.
Each caller still returns early when its own ctx is done. Load errors are
never cached.

Parameters:
  - ctx: context.Context
  - store: *Store
  - key: Key (operation + arguments)
  - load: func (computes the value on a miss)

Returns:
  - T: The cached or freshly loaded value
  - error: The load error, if any
*/
func GetOrLoad[T any](ctx context.Context, store *Store, key Key, load func(context.Context) (T, error)) (T, error) {
	storageKey := key.String()

	if raw, err := store.backend.Get(ctx, storageKey); err == nil {
		var value T
		if decodeErr := json.Unmarshal(raw, &value); decodeErr == nil {
			store.metrics.CacheLookups.WithLabelValues(key.Op, "hit").Inc()
			return value, nil
		}
		store.logger.Warn("cache_entry_corrupt", slog.String("op", key.Op))
	} else if !errors.Is(err, ErrMiss) {
		store.logger.Warn("cache_backend_unavailable", slog.String("op", key.Op), slog.Any("error", err))
	}

	store.metrics.CacheLookups.WithLabelValues(key.Op, "miss").Inc()

	results := store.group.DoChan(storageKey, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.CacheLoadTimeout)
		defer cancel()

		value, loadErr := load(loadCtx)
		if loadErr != nil {
			return value, loadErr
		}

		if encoded, encodeErr := json.Marshal(value); encodeErr == nil {
			if setErr := store.backend.Set(loadCtx, storageKey, encoded, store.ttl); setErr != nil {
				store.logger.Warn("cache_write_failed", slog.String("op", key.Op), slog.Any("error", setErr))
			}
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case result := <-results:
		if result.Shared {
			store.metrics.CacheLookups.WithLabelValues(key.Op, "shared").Inc()
		}
		value, _ := result.Val.(T)
		return value, result.Err
	}
}
