package utils

import (
	"context"
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
)

// GetCacheLifespan reads CACHE_LIFESPAN in hours, default 1.
func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

// RedisCache is a read-through cache on the shared redis client.
// With no client configured every Get misses and every Set is dropped.
type RedisCache struct{}

func (RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return config.GetRedisObject(ctx, key, dest)
}

func (RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return config.SetRedisObject(ctx, key, value, ttl)
}
