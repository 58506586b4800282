package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlacklistCache — lookaside-кэш отозванных jti поверх персистентного
// блэклиста в БД. Источник истины — PostgreSQL; кэш лишь снимает
// повторные обращения к таблице на горячем пути refresh-запросов.
type BlacklistCache interface {
	// Add помечает jti отозванным с TTL (обычно ExpiresAt-now).
	Add(ctx context.Context, jti string, ttl time.Duration) error
	// Contains сообщает, известен ли jti кэшу как отозванный.
	// false означает «в кэше нет», а не «токен не отозван».
	Contains(ctx context.Context, jti string) (bool, error)
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:bl:".
func NewRedisCache(redisURL, prefix string) (BlacklistCache, error) {
	if prefix == "" {
		prefix = "auth:bl:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(jti string) string { return c.prefix + jti }

func (c *redisCache) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Токен уже истёк — проверка exp отбросит его и без кэша.
		return nil
	}

	return c.rdb.Set(ctx, c.key(jti), "1", ttl).Err()
}

func (c *redisCache) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key(jti)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (c *redisCache) Close() error { return c.rdb.Close() }
