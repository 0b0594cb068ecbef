package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/careportal/internal/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS portal_snapshots (
	key        text PRIMARY KEY,
	body       bytea NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// KV keeps one row per collection snapshot in portal_snapshots.
type KV struct {
	pool   *pgxpool.Pool
	prefix string
}

var (
	_ kv.Store  = (*KV)(nil)
	_ kv.Pinger = (*KV)(nil)
)

func NewKV(pool *pgxpool.Pool, prefix string) *KV {
	return &KV{pool: pool, prefix: prefix}
}

// EnsureSchema creates the snapshot table if it is missing.
func (k *KV) EnsureSchema(ctx context.Context) error {
	if _, err := k.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create portal_snapshots: %w", err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT body FROM portal_snapshots WHERE key = $1`

	var body []byte
	err := k.pool.QueryRow(ctx, q, k.prefix+key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot %s: %w", key, err)
	}
	return body, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO portal_snapshots (key, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`
	if _, err := k.pool.Exec(ctx, q, k.prefix+key, value); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", key, err)
	}
	return nil
}

func (k *KV) Ping(ctx context.Context) error {
	return k.pool.Ping(ctx)
}
