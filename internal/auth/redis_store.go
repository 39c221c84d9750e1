package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "shilohnova:session:"

// RedisSessionConfig configures the Redis-backed session store.
type RedisSessionConfig struct {
	Addr        string
	Username    string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	OpTimeout   time.Duration
}

// RedisSessionStore persists session tokens in Redis with a per-key TTL, so
// expiry enforcement is shared with the server. Suitable when the process is
// restarted without invalidating live sessions.
type RedisSessionStore struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewRedisSessionStore connects to Redis and verifies the connection before
// returning the store.
func NewRedisSessionStore(cfg RedisSessionConfig) (*RedisSessionStore, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis session store: address required")
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis session store: ping: %w", err)
	}
	return &RedisSessionStore{client: client, opTimeout: opTimeout}, nil
}

// Close releases the underlying Redis client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

func (s *RedisSessionStore) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

// Save stores the token with a TTL matching its expiry.
func (s *RedisSessionStore) Save(token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redis session store: expiry is in the past")
	}
	ctx, cancel := s.operationContext()
	defer cancel()
	if err := s.client.Set(ctx, sessionKeyPrefix+token, expiresAt.UTC().Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("redis session store: save: %w", err)
	}
	return nil
}

// Get retrieves the session record for the provided token.
func (s *RedisSessionStore) Get(token string) (SessionRecord, bool, error) {
	ctx, cancel := s.operationContext()
	defer cancel()
	value, err := s.client.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, fmt.Errorf("redis session store: get: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return SessionRecord{}, false, fmt.Errorf("redis session store: decode expiry: %w", err)
	}
	return SessionRecord{Token: token, ExpiresAt: expiresAt}, true, nil
}

// Delete removes the session token from the store.
func (s *RedisSessionStore) Delete(token string) error {
	ctx, cancel := s.operationContext()
	defer cancel()
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis session store: delete: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis evicts expired keys through per-key TTLs.
func (s *RedisSessionStore) PurgeExpired(time.Time) error {
	return nil
}
