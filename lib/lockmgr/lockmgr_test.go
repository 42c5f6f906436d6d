package lockmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/kvkit/lib/serializer"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/ValentinKolb/kvkit/lib/store/cstore"
	"github.com/ValentinKolb/kvkit/lib/store/rstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryStore() store.Store[string, []byte] {
	return cstore.NewStore[string, []byte](nil)
}

func TestAcquireRelease(t *testing.T) {
	m := NewLockManager(memoryStore())
	ctx := t.Context()

	ok, owner, err := m.AcquireLock(ctx, "resource", 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, owner, ownerIDLength)

	ok, other, err := m.AcquireLock(ctx, "resource", 0)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held")
	assert.Nil(t, other)

	ok, err = m.ReleaseLock(ctx, "resource", []byte("intruder"))
	require.NoError(t, err)
	assert.False(t, ok, "only the owner can release")

	ok, err = m.ReleaseLock(ctx, "resource", owner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.ReleaseLock(ctx, "resource", owner)
	require.NoError(t, err)
	assert.True(t, ok, "releasing a missing lock succeeds")

	ok, _, err = m.AcquireLock(ctx, "resource", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManagersShareStore(t *testing.T) {
	s := memoryStore()
	ok, owner, err := NewLockManager(s).AcquireLock(t.Context(), "k", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = NewLockManager(s).ReleaseLock(t.Context(), "k", owner)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentAcquire(t *testing.T) {
	m := NewLockManager(memoryStore())
	var winners atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := m.AcquireLock(context.Background(), "contended", 0)
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestAcquireLockWait(t *testing.T) {
	m := NewLockManager(memoryStore())
	ctx := t.Context()

	_, owner, err := m.AcquireLock(ctx, "k", 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = m.ReleaseLock(context.Background(), "k", owner)
	}()

	next, err := m.AcquireLockWait(ctx, "k", 0)
	require.NoError(t, err)
	assert.NotEqual(t, owner, next)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = m.AcquireLockWait(short, "k", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLockExpiresOnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := rstore.NewStore[string, []byte](t.Context(),
		&rstore.Options{Addr: mr.Addr(), ConnectTimeout: time.Second, KeyPrefix: "lock:"},
		serializer.NewRawSerializer[string](), serializer.NewRawSerializer[[]byte]())
	require.NoError(t, err)
	defer s.Close()

	m := NewLockManager(s)
	ok, _, err := m.AcquireLock(t.Context(), "job", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, mr.TTL("lock:job"))

	ok, _, err = m.AcquireLock(t.Context(), "job", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(11 * time.Second)
	ok, _, err = m.AcquireLock(t.Context(), "job", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired locks can be taken again")
}
