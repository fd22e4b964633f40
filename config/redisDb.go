package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// SetRedisClient installs a client built elsewhere.
func SetRedisClient(c *redis.Client) {
	rdb = c
	if c == nil {
		locker = nil
		return
	}
	locker = redislock.New(c)
}

func GetRedisObject(ctx context.Context, key string, dest interface{}) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err = json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(ctx context.Context, key string, obj interface{}, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, objInByte, exp).Err()
}

// ConnectRedisWithRetry connects the shared Redis client and lock client.
// Redis is optional: an empty address leaves both nil and every helper becomes a no-op.
func ConnectRedisWithRetry(ctx context.Context, redisAddr string) error {
	if redisAddr == "" {
		GetLogger().Info("REDIS_ADDRESS not set; running without cache and cycle lock")
		return nil
	}

	var attempt int
	for {
		attempt++
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: "",
			DB:       0, // use default DB
			PoolSize: 10,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			SetRedisClient(client)
			GetLogger().WithFields(logrus.Fields{"attempt": attempt, "addr": redisAddr}).Info("connected to redis")
			return nil
		}
		_ = client.Close()

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		GetLogger().WithFields(logrus.Fields{
			"attempt": attempt,
			"addr":    redisAddr,
			"retry":   sleep.String(),
		}).Warnf("failed to connect redis: %v", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("connect redis: %w", ctx.Err())
		case <-time.After(sleep):
		}
	}
}
