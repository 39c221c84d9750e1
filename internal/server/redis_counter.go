package server

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCounterStore shares login attempt counts across replicas with an
// INCR/EXPIRE window per key.
type redisCounterStore struct {
	client  *redis.Client
	timeout time.Duration
}

func newRedisCounterStore(addr, password string, timeout time.Duration) *redisCounterStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	return &redisCounterStore{client: client, timeout: timeout}
}

func (s *redisCounterStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, err
		}
	}
	if count <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		return false, window, nil
	}
	return false, ttl, nil
}

func (s *redisCounterStore) Close() error {
	return s.client.Close()
}
