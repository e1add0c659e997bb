package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "a", []byte(`{"x":1}`)))
	v, ok, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, string(v))

	n, err := kv.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = kv.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = kv.Incr(ctx, "a")
	assert.ErrorIs(t, err, ErrNotCounter)

	require.NoError(t, kv.Delete(ctx, "a", "c", "never-set"))
	_, ok, err = kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	n, err = kv.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestMemoryKVCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf))
	buf[0] = 'z'
	v, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestBoltKV(t *testing.T) {
	kv, err := NewBoltKV(t.TempDir())
	require.NoError(t, err)
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestBoltKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := NewBoltKV(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "player:1:save_v2", []byte(`{"taps":3}`)))
	_, err = kv.Incr(ctx, "player:1:serial:rare")
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	again, err := NewBoltKV(dir)
	require.NoError(t, err)
	defer again.Close()
	v, ok, err := again.Get(ctx, "player:1:save_v2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"taps":3}`, string(v))

	n, err := again.Incr(ctx, "player:1:serial:rare")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBoltKVLockedByAnotherHandle(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewBoltKV(dir)
	require.NoError(t, err)
	defer kv.Close()

	_, err = NewBoltKV(dir)
	assert.Error(t, err)
}

func TestBoltKVRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, boltFile), []byte("not a database"), 0o600))
	_, err := NewBoltKV(dir)
	assert.Error(t, err)
}

func exerciseSetMany(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, kv.SetMany(ctx, map[string][]byte{
		"p:save": []byte(`{"balance":5}`),
		"p:taps": []byte("7"),
	}))
	require.NoError(t, kv.SetMany(ctx, nil))
	v, ok, err := kv.Get(ctx, "p:save")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"balance":5}`, string(v))
	v, _, err = kv.Get(ctx, "p:taps")
	require.NoError(t, err)
	assert.Equal(t, "7", string(v))
}

func TestSetMany(t *testing.T) {
	t.Run("memory", func(t *testing.T) { exerciseSetMany(t, NewMemoryKV()) })
	t.Run("bolt", func(t *testing.T) {
		kv, err := NewBoltKV(t.TempDir())
		require.NoError(t, err)
		defer kv.Close()
		exerciseSetMany(t, kv)
	})
}

func TestIncrConcurrent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := kv.Incr(ctx, "ctr")
			assert.NoError(t, err)
			_, dup := seen.LoadOrStore(n, true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
	v, _, _ := kv.Get(ctx, "ctr")
	assert.Equal(t, "50", string(v))
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	kv, err := NewRedisKV(addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer kv.Close()
	ctx := context.Background()
	defer kv.Delete(ctx, "a", "c", "p:save", "p:taps")
	exerciseKV(t, kv)
	exerciseSetMany(t, kv)
}

func TestOpenFallsBackToMemory(t *testing.T) {
	kv, err := Open(Options{})
	require.NoError(t, err)
	_, ok := kv.(*MemoryKV)
	assert.True(t, ok)
}
