package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"github.com/bsm/redislock"
)

const cycleLockKey = "lock:prpo:cycle"

var (
	// ErrCycleBusy means another instance holds the cycle lock.
	ErrCycleBusy = errors.New("another processing cycle is running")
	// ErrLockLost is the cause of the cycle context when the lock could not be refreshed.
	ErrLockLost = errors.New("cycle lock lost")
)

// CycleLock keeps a single processing cycle active across instances.
// Without redis it does nothing: a single instance is assumed.
type CycleLock struct {
	locker *redislock.Client
	ttl    time.Duration
}

func NewCycleLock(locker *redislock.Client, ttl time.Duration) *CycleLock {
	return &CycleLock{locker: locker, ttl: ttl}
}

// Acquire obtains the lock and returns a context bound to it plus the release func.
// The lock is refreshed every ttl/2 since a cycle may outlive ttl; when a refresh
// fails the returned context is cancelled with ErrLockLost.
func (l *CycleLock) Acquire(ctx context.Context) (context.Context, func(), error) {
	if l == nil || l.locker == nil {
		return ctx, func() {}, nil
	}
	lock, err := l.locker.Obtain(ctx, cycleLockKey, l.ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, nil, ErrCycleBusy
	} else if err != nil {
		return nil, nil, err
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go keepAlive(l.ttl/2, done, cancel, func() error {
		return lock.Refresh(context.Background(), l.ttl, nil)
	})

	return lockCtx, func() {
		close(done)
		cancel(nil)
		_ = lock.Release(context.Background())
	}, nil
}

// keepAlive calls refresh every interval until done is closed. The first failure
// cancels the holder with ErrLockLost and stops the loop.
func keepAlive(interval time.Duration, done <-chan struct{}, cancel context.CancelCauseFunc, refresh func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := refresh(); err != nil {
				config.LogError(config.GetLogger(), "lock.go", "keepAlive", "refresh cycle lock", cycleLockKey, err)
				cancel(ErrLockLost)
				return
			}
		}
	}
}
