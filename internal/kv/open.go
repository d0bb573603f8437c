package kv

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Options struct {
	Backend     string
	SQLitePath  string
	RedisAddr   string
	DatabaseURL string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend. The returned closer releases its
// connections.
func Open(ctx context.Context, opts Options) (Store, io.Closer, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemStore(), nopCloser{}, nil

	case BackendSQLite:
		s, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %q: %w", opts.SQLitePath, err)
		}
		return s, s, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		s := NewRedisStore(client)
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %q: %w", opts.RedisAddr, err)
		}
		return s, client, nil

	case BackendPostgres:
		s, err := OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, s, nil

	default:
		return nil, nil, fmt.Errorf("unknown kv backend %q", opts.Backend)
	}
}
