package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"beacon-base/internal/codec"

	"github.com/redis/go-redis/v9"
)

// RedisStore guarda valores JSON sin TTL.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedis conecta y hace PING.
func NewRedis(ctx context.Context, addr string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) SaveFix(ctx context.Context, id string, fix codec.Fix) error {
	b, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("encode fix: %w", err)
	}
	if err := s.rdb.Set(ctx, fixKey(id), b, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", fixKey(id), err)
	}
	return nil
}

func (s *RedisStore) LatestFix(ctx context.Context, id string) (codec.Fix, error) {
	b, err := s.rdb.Get(ctx, fixKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return codec.Fix{}, ErrNotFound
	}
	if err != nil {
		return codec.Fix{}, fmt.Errorf("redis GET %s: %w", fixKey(id), err)
	}
	var fix codec.Fix
	if err := json.Unmarshal(b, &fix); err != nil {
		return codec.Fix{}, fmt.Errorf("decode fix %s: %w", id, err)
	}
	return fix, nil
}

func (s *RedisStore) SaveImage(ctx context.Context, png []byte) error {
	if err := s.rdb.Set(ctx, imageKey, png, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", imageKey, err)
	}
	return nil
}

func (s *RedisStore) LastImage(ctx context.Context) ([]byte, error) {
	b, err := s.rdb.Get(ctx, imageKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", imageKey, err)
	}
	return b, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
