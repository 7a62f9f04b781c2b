package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

const historyKey = "receipts:history"

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context) ([]domain.Receipt, error) {
	data, err := r.client.Get(ctx, historyKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var receipts []domain.Receipt
	if err2 := json.Unmarshal(data, &receipts); err2 != nil {
		return nil, fmt.Errorf("unmarshal receipts failed: %w", err2)
	}

	return receipts, nil
}

func (r RedisCache) Set(ctx context.Context, receipts []domain.Receipt) error {
	data, err := json.Marshal(receipts)
	if err != nil {
		return fmt.Errorf("marshal receipts failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if ret := r.client.Set(ctx, historyKey, data, ttl); ret.Err() != nil {
		return fmt.Errorf("redis set failed: %w", ret.Err())
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, historyKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
