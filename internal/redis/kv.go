package redisclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/careportal/internal/kv"
)

// KV stores portal snapshots as plain Redis strings, one key per
// collection, optionally namespaced by a prefix.
type KV struct {
	client *redis.Client
	prefix string
}

var (
	_ kv.Store  = (*KV)(nil)
	_ kv.Pinger = (*KV)(nil)
)

func NewKV(client *redis.Client, prefix string) *KV {
	return &KV{client: client, prefix: prefix}
}

func (k *KV) key(name string) string {
	return k.prefix + name
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := k.client.Get(ctx, k.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", k.key(key), err)
	}
	return b, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := k.client.Set(ctx, k.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", k.key(key), err)
	}
	return nil
}

func (k *KV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx).Err()
}
