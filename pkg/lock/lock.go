// Package lock serialises work on a single aggregate (one load, one invoice)
// across goroutines and API instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
)

// Locker runs fn while holding the named lock.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// LoadKey names the lock guarding carrier assignment and bidding on a load.
func LoadKey(loadID uuid.UUID) string {
	return "load:" + loadID.String()
}

// InvoiceKey names the lock guarding invoice issuance for a load.
func InvoiceKey(loadID uuid.UUID) string {
	return "invoice:" + loadID.String()
}

// Local is an in-process keyed mutex. Waiters honour context cancellation.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal builds an empty keyed mutex.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// WithLock implements Locker.
func (l *Local) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return errors.New("lock key is required")
	}
	s := l.acquireSlot(key)
	defer l.releaseSlot(key, s)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		return waitAborted(ctx, key)
	}
	defer func() { <-s.ch }()

	return fn(ctx)
}

func (l *Local) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) releaseSlot(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// size reports how many keys are tracked; used by tests.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// waitAborted reports a caller that gave up while queued on key. The
// context error stays in the chain.
func waitAborted(ctx context.Context, key string) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, ctx.Err(), fmt.Sprintf("%s is busy, retry", key))
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	LockKey(name string) string
}

const defaultPollInterval = 25 * time.Millisecond

// Redis is a distributed Locker backed by SET NX with an owner token.
type Redis struct {
	store redisStore
	ttl   time.Duration
	wait  time.Duration
	poll  time.Duration
}

// NewRedis constructs a Redis-backed Locker. ttl bounds how long a crashed
// holder can block others; wait bounds how long callers queue.
func NewRedis(store redisStore, ttl, wait time.Duration) (*Redis, error) {
	if store == nil {
		return nil, errors.New("redis store required for lock")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	if wait < 0 {
		wait = 0
	}
	return &Redis{store: store, ttl: ttl, wait: wait, poll: defaultPollInterval}, nil
}

// WithLock implements Locker. A lock that cannot be obtained within the wait
// window surfaces as CodeConflict so the caller can retry.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return errors.New("lock key is required")
	}
	redisKey := r.store.LockKey(key)
	owner := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.store.SetNX(ctx, redisKey, owner, r.ttl)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire lock")
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("%s is busy, retry", key))
		}
		timer := time.NewTimer(r.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return waitAborted(ctx, key)
		case <-timer.C:
		}
	}

	fnErr := fn(ctx)

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if _, err := r.store.ReleaseIfOwner(releaseCtx, redisKey, owner); err != nil {
		return errors.Join(fnErr, fmt.Errorf("release lock %s: %w", key, err))
	}
	return fnErr
}
