package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"music-edge/internal/config"
)

// RedisStore keeps entries as fields of a single hash, <prefix>:kv_store.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// OpenRedis connects to Redis and verifies the connection with a PING.
func OpenRedis(ctx context.Context, cfg config.StorageConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	return &RedisStore{rdb: rdb, key: cfg.RedisPrefix + ":kv_store"}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, keys []string) (map[string]*string, error) {
	if len(keys) == 0 {
		all, err := s.rdb.HGetAll(ctx, s.key).Result()
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", s.key, err)
		}
		data := make(map[string]*string, len(all))
		for k, v := range all {
			data[k] = &v
		}
		return data, nil
	}

	vals, err := s.rdb.HMGet(ctx, s.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget %s: %w", s.key, err)
	}
	data := make(map[string]*string, len(keys))
	for i, k := range keys {
		if v, ok := vals[i].(string); ok {
			data[k] = &v
		} else {
			data[k] = nil
		}
	}
	return data, nil
}

// Upsert implements Store. The write is one MULTI/EXEC transaction.
func (s *RedisStore) Upsert(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	fields := make([]any, 0, 2*len(entries))
	for k, v := range entries {
		fields = append(fields, k, v)
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, fields...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("hset %s: %w", s.key, err)
	}
	return nil
}

// Delete implements Store. The write is one MULTI/EXEC transaction.
func (s *RedisStore) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.key, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("hdel %s: %w", s.key, err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
