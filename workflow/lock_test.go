package workflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCycleLockWithoutRedis(t *testing.T) {
	ctx := context.Background()
	lockCtx, release, err := NewCycleLock(nil, time.Minute).Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()
	if lockCtx != ctx {
		t.Fatalf("expected the caller's context back")
	}
}

func TestKeepAliveCancelsWhenRefreshFails(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	done := make(chan struct{})
	defer close(done)

	go keepAlive(time.Millisecond, done, cancel, func() error { return errors.New("redis: connection refused") })

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected the holder to be cancelled")
	}
	if !errors.Is(context.Cause(ctx), ErrLockLost) {
		t.Fatalf("cause = %v, want ErrLockLost", context.Cause(ctx))
	}
}

func TestKeepAliveStopsOnRelease(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	done := make(chan struct{})
	refreshed := make(chan struct{}, 1)

	go keepAlive(time.Millisecond, done, cancel, func() error {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return nil
	})
	<-refreshed
	close(done)

	time.Sleep(10 * time.Millisecond)
	if ctx.Err() != nil {
		t.Fatalf("a healthy lock must not cancel the holder: %v", context.Cause(ctx))
	}
}
