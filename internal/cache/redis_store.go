package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/errkind"
)

// RedisStore is a Store backed by Redis, grounded on the teacher's
// tenant/project-scoped Redis caches: a universal client built from
// config.RedisConfig, keys namespaced by an explicit prefix, values
// JSON-encoded, TTL applied per-key at write time.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore builds a RedisStore and pings it once to fail fast on a bad
// address. Returns an error wrapped as errkind.Cache on connection failure.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSInsecureSkipVerify {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errkind.Wrap(errkind.Cache, err, "redis ping failed")
	}
	return &RedisStore{client: client}, nil
}

func metaKey(prefix, resultsID string) string {
	return fmt.Sprintf("%s:%s:meta", prefix, resultsID)
}

func chunkKey(prefix, resultsID string, k int) string {
	return fmt.Sprintf("%s:%s:chunk:%d", prefix, resultsID, k)
}

func (s *RedisStore) PutMeta(ctx context.Context, prefix, resultsID string, meta Meta, ttl time.Duration) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return errkind.Wrap(errkind.Cache, err, "marshal meta")
	}
	if err := s.client.Set(ctx, metaKey(prefix, resultsID), data, ttl).Err(); err != nil {
		return errkind.Wrap(errkind.Cache, err, "put meta")
	}
	return nil
}

func (s *RedisStore) GetMeta(ctx context.Context, prefix, resultsID string) (Meta, bool, error) {
	val, err := s.client.Get(ctx, metaKey(prefix, resultsID)).Result()
	if err == redis.Nil {
		return Meta{}, false, nil
	}
	if err != nil {
		return Meta{}, false, errkind.Wrap(errkind.Cache, err, "get meta")
	}
	var meta Meta
	if err := json.Unmarshal([]byte(val), &meta); err != nil {
		return Meta{}, false, errkind.Wrap(errkind.Cache, err, "unmarshal meta")
	}
	return meta, true, nil
}

func (s *RedisStore) PutChunk(ctx context.Context, prefix, resultsID string, k int, results json.RawMessage, ttl time.Duration) error {
	if err := s.client.Set(ctx, chunkKey(prefix, resultsID, k), []byte(results), ttl).Err(); err != nil {
		return errkind.Wrap(errkind.Cache, err, "put chunk")
	}
	return nil
}

func (s *RedisStore) GetChunk(ctx context.Context, prefix, resultsID string, k int) (json.RawMessage, bool, error) {
	val, err := s.client.Get(ctx, chunkKey(prefix, resultsID, k)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errkind.Wrap(errkind.Cache, err, "get chunk")
	}
	return json.RawMessage(val), true, nil
}

func (s *RedisStore) Invalidate(ctx context.Context, prefix, resultsID string) error {
	pattern := fmt.Sprintf("%s:%s:*", prefix, resultsID)
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return errkind.Wrap(errkind.Cache, err, "invalidate")
		}
	}
	if err := iter.Err(); err != nil {
		return errkind.Wrap(errkind.Cache, err, "invalidate scan")
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
