// Package db provides Postgres helpers for exporting the downstream table:
// connection, table bootstrap and keyed upsert.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of *pgxpool.Pool the helpers use.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Pool = (*pgxpool.Pool)(nil)

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "db: open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "db: ping")
	}
	return pool, nil
}

// TableExists reports whether a (possibly schema-qualified) table exists.
func TableExists(ctx context.Context, pool Pool, table string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "db: check table %s", table)
	}
	return exists, nil
}

// CreateTable creates table with the given column definitions unless it
// already exists.
func CreateTable(ctx context.Context, pool Pool, table, columns string) error {
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", sanitizeTable(table), columns)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "db: create table %s", table)
	}
	return nil
}
