package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a key stays held for longer than the wait budget.
var ErrLockTimeout = errors.New("cache: lock wait timeout")

// Locker hands out TTL-bounded exclusive locks on top of a Store. Locks expire
// on their own, so a crashed holder blocks others for at most TTL.
type Locker struct {
	Store Store
	TTL   time.Duration
	// Wait bounds how long Acquire retries; zero means TTL.
	Wait time.Duration
}

func (l *Locker) Acquire(ctx context.Context, name string) (release func(), err error) {
	if l == nil || l.Store == nil {
		return func() {}, nil
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	wait := l.Wait
	if wait <= 0 {
		wait = ttl
	}
	token := []byte(uuid.NewString())
	key := "lock:" + name
	deadline := time.Now().Add(wait)
	backoff := 10 * time.Millisecond

	for {
		ok, err := l.Store.SetNX(ctx, key, token, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_, _ = l.Store.CompareAndDelete(context.WithoutCancel(ctx), key, token)
			}, nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}
}
