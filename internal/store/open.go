package store

import (
	"context"
	"fmt"

	"pizzawars/internal/config"
	"pizzawars/internal/db"
	"pizzawars/internal/game"
)

// Open builds the configured store. The returned func releases it.
func Open(ctx context.Context, cfg config.StoreConfig) (game.Store, func(), error) {
	switch cfg.Kind {
	case config.StorePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	case config.StoreSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StoreMemory:
		return NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
