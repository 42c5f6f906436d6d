package lockmgr

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/cenkalti/backoff/v4"
)

// ownerIDLength is the size of an owner id in bytes
const ownerIDLength = 32

// Manager implements LockManager over a store
type Manager struct {
	store      store.Store[string, []byte]
	maxBackoff time.Duration
}

// NewLockManager creates a lock manager over s.
func NewLockManager(s store.Store[string, []byte]) *Manager {
	return &Manager{
		store:      s,
		maxBackoff: time.Second,
	}
}

func (m *Manager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	ownerID := make([]byte, ownerIDLength)
	if _, err := rand.Read(ownerID); err != nil {
		return false, nil, err
	}

	// only one writer can create the key
	err := m.store.Set(ctx, key, ownerID, store.IfNotExist(), store.WithExpiration(ttl))
	if errors.Is(err, store.ErrConditionFailed) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, ownerID, nil
}

func (m *Manager) AcquireLockWait(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = m.maxBackoff
	b.MaxElapsedTime = 0 // bounded by ctx

	var ownerID []byte
	err := backoff.Retry(func() error {
		ok, id, err := m.AcquireLock(ctx, key, ttl)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return store.ErrConditionFailed
		}
		ownerID = id
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return ownerID, nil
}

func (m *Manager) ReleaseLock(ctx context.Context, key string, ownerID []byte) (bool, error) {
	value, err := m.store.Get(ctx, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	// held by someone else
	if !bytes.Equal(ownerID, value) {
		return false, nil
	}

	if err := m.store.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}
