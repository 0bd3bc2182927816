package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"ytdash/internal/logger"
)

// KeyPrefix namespaces manifests in a shared Redis database.
const KeyPrefix = "ytdash:manifest:"

const opTimeout = 2 * time.Second

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string        // Redis server address (host:port)
	Password string        // Redis password (optional)
	DB       int           // Redis database number
	TTL      time.Duration // 0 keeps manifests until evicted by Redis
}

// RedisStore is a Redis-backed manifest store. Failures are logged and reported as misses,
// so a broken Redis degrades the service to synthesizing every request.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
	puts   atomic.Int64
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, log logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if log == nil {
		log = logger.Nop()
	}
	log.Infof("Connected to Redis manifest store at %s (db %d)", cfg.Addr, cfg.DB)
	return newRedisStore(client, cfg.TTL, log), nil
}

func newRedisStore(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: log}
}

// Get retrieves a manifest.
func (s *RedisStore) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, KeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		s.misses.Add(1)
		return "", false
	}
	if err != nil {
		s.logger.Warnf("Redis get failed for %s: %v", key, err)
		s.misses.Add(1)
		return "", false
	}
	s.hits.Add(1)
	return val, true
}

// Put stores a manifest with the configured TTL.
func (s *RedisStore) Put(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, KeyPrefix+key, value, s.ttl).Err(); err != nil {
		s.logger.Warnf("Redis set failed for %s: %v", key, err)
		return
	}
	s.puts.Add(1)
}

// ContainsKey reports whether a manifest is stored for key.
func (s *RedisStore) ContainsKey(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := s.client.Exists(ctx, KeyPrefix+key).Result()
	if err != nil {
		s.logger.Warnf("Redis exists failed for %s: %v", key, err)
		return false
	}
	return n > 0
}

// Stats returns the store counters. Size and capacity are not tracked for Redis.
func (s *RedisStore) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Puts:   s.puts.Load(),
	}
}

// HealthCheck checks if Redis is available.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
