// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehtisham-afzal/21st/internal/platform/cache"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
)

func newStore() *cache.Store {
	return cache.New(cache.NewMemoryBackend(), time.Minute, metrics.NewNop(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

/*
TestKey_String checks that keys depend on both operation and arguments.
*/
func TestKey_String(t *testing.T) {
	a := cache.NewKey("resolve", "alice/ui/button")
	b := cache.NewKey("resolve", "alice/ui/button")
	c := cache.NewKey("resolve", "bob/ui/button")
	d := cache.NewKey("compile", "alice/ui/button")

	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), c.String())
	assert.NotEqual(t, a.String(), d.String())
	assert.Contains(t, a.String(), "cache:resolve:")
}

/*
TestGetOrLoad_CachesValue verifies that a second lookup does not call load.
*/
func TestGetOrLoad_CachesValue(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	key := cache.NewKey("css", "abc")

	var calls int32
	load := func(context.Context) (map[string]string, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]string{"css": ".a{}"}, nil
	}

	first, err := cache.GetOrLoad(ctx, store, key, load)
	require.NoError(t, err)
	second, err := cache.GetOrLoad(ctx, store, key, load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

/*
TestGetOrLoad_ErrorsNotCached verifies that failed loads are retried.
*/
func TestGetOrLoad_ErrorsNotCached(t *testing.T) {
	store := newStore()
	key := cache.NewKey("css", "broken")

	var calls int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("upstream down")
	}

	_, err := cache.GetOrLoad(context.Background(), store, key, load)
	assert.Error(t, err)
	_, err = cache.GetOrLoad(context.Background(), store, key, load)
	assert.Error(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

/*
TestGetOrLoad_CollapsesConcurrentMisses verifies singleflight deduplication.
*/
func TestGetOrLoad_CollapsesConcurrentMisses(t *testing.T) {
	store := newStore()
	key := cache.NewKey("resolve", "slow")

	release := make(chan struct{})
	var calls int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "tree", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.GetOrLoad(context.Background(), store, key, load)
		}(i)
	}

	// Let every goroutine reach the in-flight load before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, result := range results {
		assert.Equal(t, "tree", result)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

/*
TestGetOrLoad_CancelledCallerDoesNotFailWaiters verifies a shared load survives
the cancellation of the caller that started it.
*/
func TestGetOrLoad_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	store := newStore()
	key := cache.NewKey("resolve", "shared")

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var loadErr atomic.Value
	load := func(ctx context.Context) (string, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
			return "", err
		}
		return "tree", nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetOrLoad(firstCtx, store, key, load)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		value string
		err   error
	}
	second := make(chan outcome, 1)
	go func() {
		value, err := cache.GetOrLoad(context.Background(), store, key, load)
		second <- outcome{value: value, err: err}
	}()

	// Let the second caller join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	result := <-second
	require.NoError(t, result.err)
	assert.Equal(t, "tree", result.value)
	assert.Nil(t, loadErr.Load())
}

/*
TestMemoryBackend_Expiry verifies TTL handling of the in-process backend.
*/
func TestMemoryBackend_Expiry(t *testing.T) {
	backend := cache.NewMemoryBackend()
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := backend.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}
