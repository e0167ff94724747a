// Package storage is the Postgres persistence layer for the We Vote server.
//
// One file per table. Every method takes a context and wraps driver errors
// with the operation name; lookups that match nothing return ErrNotFound.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wevote/wevoteserver/internal/model"
)

// DB wraps a pgxpool.Pool and the site prefix used to mint we_vote_ids.
type DB struct {
	pool       *pgxpool.Pool
	sitePrefix string
	logger     *slog.Logger
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so row helpers can
// run inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New creates a DB with a connection pool and verifies connectivity.
func New(ctx context.Context, dsn, sitePrefix string, logger *slog.Logger) (*DB, error) {
	if err := model.ValidateSitePrefix(sitePrefix); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return &DB{
		pool:       pool,
		sitePrefix: sitePrefix,
		logger:     logger,
	}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// inTx runs fn inside a transaction, retrying serialization failures.
func (db *DB) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	return WithRetry(ctx, 3, defaultRetryDelay, func() error {
		tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
		if err != nil {
			return fmt.Errorf("storage: begin %s tx: %w", op, err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("storage: commit %s tx: %w", op, err)
		}
		return nil
	})
}
