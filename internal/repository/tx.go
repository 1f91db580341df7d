// Package repository implements the durable store for the booking core
// on MySQL.  All timestamps are UTC; expiry comparisons happen in SQL
// against UTC_TIMESTAMP() so the database, not application clocks,
// decides what a reader sees.  Multi-row mutations run inside WithTx so
// partial writes are never observable.
package repository

import (
	"context"
	"database/sql"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods run against whichever the context supplies, so the
// same method works standalone or inside a WithTx callback.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx runs fn inside a transaction carried on the context.  Nested
// calls join the outer transaction.  fn returning an error rolls the
// whole unit back; otherwise it commits.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// q resolves the querier for ctx: the ambient transaction when inside
// WithTx, the plain pool otherwise.
func q(ctx context.Context, db *sql.DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
