package repository

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"bagStore/models"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, redis_conn *redis.Client) (*RedisStore, error) {
	if redis_conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	err := redis_conn.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		rdb: redis_conn,
	}, nil
}

func (s *RedisStore) Client() *redis.Client {
	return s.rdb
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		log.Printf("RedisStore.Get: %v", err)
		return nil, false, models.ErrServerError
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.rdb.Set(ctx, key, value, ttl).Err()
	if err != nil {
		log.Printf("RedisStore.Set: %v", err)
		return models.ErrServerError
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.rdb.Del(ctx, keys...).Err()
	if err != nil {
		log.Printf("RedisStore.Delete: %v", err)
		return models.ErrServerError
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	iter := s.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("RedisStore.Keys: %v", err)
		return nil, models.ErrServerError
	}
	return keys, nil
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		n, err := s.rdb.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			log.Printf("RedisStore.DeletePrefix: %v", err)
			return removed, models.ErrServerError
		}
		removed += int(n)
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
