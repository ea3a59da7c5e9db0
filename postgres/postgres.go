// Package postgres provides the durable repository implementations backed by
// PostgreSQL via pgx. Each repository satisfies the corresponding domain Repo
// interface; the in-memory fakes remain the development and test stand-ins.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Connect opens a connection pool and verifies it with a bounded ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("[Connect] databaseURL is required")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[Connect] pgxpool.New")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "[Connect] pool.Ping")
	}

	return pool, nil
}
