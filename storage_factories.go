package peers

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-peers/core"
	redisstore "github.com/goliatone/go-peers/store/redis"
	sqlstore "github.com/goliatone/go-peers/store/sql"
)

const defaultRedisURL = "redis://localhost:6379/0"

// OpenStorage builds the backend named by cfg.Storage.Driver. The returned
// close function releases the underlying connection and is never nil.
func OpenStorage(ctx context.Context, cfg Config) (Storage, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", core.StorageDriverMemory:
		return core.NewMemoryStorage(), noop, nil
	case core.StorageDriverSQLite, "sqlite3", core.StorageDriverPostgres, "postgresql", "pgx":
		db, err := sqlstore.Open(cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, noop, err
		}
		storage, err := sqlstore.NewStorage(db)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return storage, db.Close, nil
	case core.StorageDriverRedis:
		url := strings.TrimSpace(cfg.Storage.DSN)
		if url == "" {
			url = defaultRedisURL
		}
		client, err := redisstore.NewClient(ctx, url)
		if err != nil {
			return nil, noop, err
		}
		storage, err := redisstore.NewStorage(client, redisstore.WithPrefix(cfg.Redis.Prefix))
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return storage, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("peers: unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// Open validates cfg, opens its storage backend, builds the service and runs
// Init. Explicit options are applied after the storage option.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Service, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	storage, closeFn, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := NewService(cfg, append([]Option{WithStorage(storage)}, opts...)...)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	if err := svc.Init(ctx); err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}
