// Package repository implements game.GameStore over memory, PostgreSQL,
// SQLite and Redis. Every store keeps the game as one JSON document and
// applies partial saves path by path.
package repository

import (
	"context"
	"fmt"

	"github.com/vikinglords/vikinglords-server/internal/config"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"go.uber.org/zap"
)

var (
	_ game.GameStore = (*MemoryStore)(nil)
	_ game.GameStore = (*PostgresStore)(nil)
	_ game.GameStore = (*SQLiteStore)(nil)
	_ game.GameStore = (*RedisStore)(nil)
)

// Open builds the store selected by cfg.Driver. The returned func releases
// its connections.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (game.GameStore, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemoryStore(logger), func() {}, nil

	case config.DriverPostgres:
		db, err := NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
		return NewPostgresStore(db), db.Close, nil

	case config.DriverSQLite:
		store, err := OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.DriverRedis:
		client, err := NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store := NewRedisStore(client, logger)
		return store, func() { _ = store.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
