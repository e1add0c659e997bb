package db

import (
	"context"
	"fmt"
	"time"

	"idle_tapper/internal/logger"
	"idle_tapper/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens and pings the remote store pool.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected")
	return pool, nil
}

// Migrate applies every embedded migration. Statements are idempotent, so
// re-running is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	all, err := migrations.All()
	if err != nil {
		return nil, err
	}
	applied := make([]string, 0, len(all))
	for _, m := range all {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply %s: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}
