package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/careportal/internal/config"
	"github.com/hackgods/careportal/internal/db"
	"github.com/hackgods/careportal/internal/kv"
	redisclient "github.com/hackgods/careportal/internal/redis"
)

// Backend is the snapshot store selected by STORE_BACKEND together
// with the connections behind it.
type Backend struct {
	KV kv.Store
	// Redis is set only for the redis backend.
	Redis *redis.Client

	closers []func()
}

// Open connects the configured backend. Close releases it.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		b.KV = kv.NewMemory()
		log.Warn().Msg("using in-memory store; data is lost on exit")

	case config.BackendRedis:
		rdb, err := redisclient.NewRedisClient(ctx, redisclient.ClientOptions{
			Addr:       cfg.RedisAddr,
			Username:   cfg.RedisUsername,
			Password:   cfg.RedisPassword,
			ClientName: "careportal",
		})
		if err != nil {
			return nil, err
		}
		b.Redis = rdb
		b.closers = append(b.closers, func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("error closing redis")
			}
		})
		b.KV = redisclient.NewKV(rdb, cfg.StoreKeyPrefix)
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	case config.BackendPostgres:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := db.ConnectPostgres(pgCtx, db.PoolOptions{DSN: cfg.PostgresDSN, AppName: "careportal"})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		store := db.NewKV(pool, cfg.StoreKeyPrefix)
		if err := store.EnsureSchema(pgCtx); err != nil {
			b.Close()
			return nil, err
		}
		b.KV = store
		log.Info().Msg("connected to Postgres")

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.StoreCompress {
		compressed, err := kv.NewCompressed(b.KV)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.KV = compressed
		b.closers = append(b.closers, func() {
			if err := compressed.Close(); err != nil {
				log.Error().Err(err).Msg("error closing compressor")
			}
		})
	}

	return b, nil
}

// Pinger returns the health probe for the store, if it has one.
func (b *Backend) Pinger() (kv.Pinger, bool) {
	p, ok := b.KV.(kv.Pinger)
	return p, ok
}

func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
