package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"github.com/sirupsen/logrus"
)

type Reconnector interface {
	ConnectionChecker
	Reconnect(ctx context.Context) error
}

// Loop runs a cycle every PollInterval while both stores are up.
// When either is down no file is touched until Reconnect succeeds.
type Loop struct {
	Cycle          *Cycle
	Connections    Reconnector
	Lock           *CycleLock
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	Logger         *logrus.Logger
}

// Run blocks until ctx is done or a cycle fails for a reason other than a lost connection.
func (l *Loop) Run(ctx context.Context) error {
	log := l.Logger
	if log == nil {
		log = config.GetLogger()
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		log.Info("checking database connections")
		if err := l.Connections.Ping(ctx); err != nil {
			log.WithField("error", err.Error()).Warn("lost database connections, reconnecting")
			if !sleep(ctx, l.ReconnectDelay) {
				return nil
			}
			l.reconnect(ctx, log)
			continue
		}

		err := l.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case err == nil, errors.Is(err, ErrCycleBusy):
			if err != nil {
				log.Info(err.Error())
			}
		case errors.Is(err, ErrLockLost):
			log.Warn("cycle lock lost, remaining files left for the next cycle")
		case errors.Is(err, config.ErrConnectionLost):
			if !sleep(ctx, l.ReconnectDelay) {
				return nil
			}
			l.reconnect(ctx, log)
			continue
		default:
			config.LogError(log, "loop.go", "Run", "processing cycle", nil, err)
			return err
		}

		log.WithField("seconds", l.PollInterval.Seconds()).Info("sleeping")
		if !sleep(ctx, l.PollInterval) {
			return nil
		}
	}
}

// RunOnce runs a single cycle under the cycle lock.
func (l *Loop) RunOnce(ctx context.Context) error {
	lockCtx, release, err := l.Lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	result, err := l.Cycle.Run(lockCtx)
	if result != nil {
		log := l.Logger
		if log == nil {
			log = config.GetLogger()
		}
		log.WithFields(logrus.Fields{
			"processed": result.Processed,
			"failed":    result.Failed,
		}).Info("cycle finished")
	}
	return err
}

func (l *Loop) reconnect(ctx context.Context, log *logrus.Logger) {
	if err := l.Connections.Reconnect(ctx); err != nil {
		log.WithField("error", err.Error()).Error("reconnect failed")
		return
	}
	log.Info("database connections restored")
}

// sleep waits d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
