// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package db wraps every request in a database transaction which is
// committed or rolled back once the response is known.
//
//	tx := db.Transaction(db.SQL(sqlDB, nil))
//
//	rest.Operation(
//	    http.MethodPost,
//	    rest.BasePath("/notes"),
//	    handler,
//	    rest.Intercept(tx),
//	)
//
// Handlers reach the transaction through [From]. The response produced by
// the handler is held back until the transaction is finished so clients never
// observe a success whose commit failed.
package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
)

// Tx is a started transaction exposing the handle queries are run on.
type Tx[T any] interface {
	Handle() T
	Commit(context.Context) error
	Rollback(context.Context) error
}

// Conn starts transactions.
type Conn[T any] interface {
	Begin(context.Context) (Tx[T], error)
}

// ConnFunc is a function adapter that implements [Conn].
type ConnFunc[T any] func(context.Context) (Tx[T], error)

// Begin implements [Conn].
func (f ConnFunc[T]) Begin(ctx context.Context) (Tx[T], error) {
	return f(ctx)
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Handle() *sql.Tx { return t.tx }

func (t sqlTx) Commit(context.Context) error { return t.tx.Commit() }

func (t sqlTx) Rollback(context.Context) error { return t.tx.Rollback() }

// SQL starts [*sql.Tx] transactions on db. opts may be nil.
func SQL(db *sql.DB, opts *sql.TxOptions) Conn[*sql.Tx] {
	return ConnFunc[*sql.Tx](func(ctx context.Context) (Tx[*sql.Tx], error) {
		tx, err := db.BeginTx(ctx, opts)
		if err != nil {
			return nil, err
		}
		return sqlTx{tx: tx}, nil
	})
}

// PgxBeginner is implemented by [*pgx.Conn] and pgxpool.Pool.
type PgxBeginner interface {
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
}

type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) Handle() pgx.Tx { return t.tx }

func (t pgxTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// Pgx starts [pgx.Tx] transactions on b.
func Pgx(b PgxBeginner, opts pgx.TxOptions) Conn[pgx.Tx] {
	return ConnFunc[pgx.Tx](func(ctx context.Context) (Tx[pgx.Tx], error) {
		tx, err := b.BeginTx(ctx, opts)
		if err != nil {
			return nil, err
		}
		return pgxTx{tx: tx}, nil
	})
}

type gormTx struct {
	tx *gorm.DB
}

func (t gormTx) Handle() *gorm.DB { return t.tx }

func (t gormTx) Commit(context.Context) error { return t.tx.Commit().Error }

func (t gormTx) Rollback(context.Context) error { return t.tx.Rollback().Error }

// Gorm starts transactions on db. The returned handle is a [*gorm.DB] bound
// to the transaction and the request context. opts may be nil.
func Gorm(db *gorm.DB, opts *sql.TxOptions) Conn[*gorm.DB] {
	return ConnFunc[*gorm.DB](func(ctx context.Context) (Tx[*gorm.DB], error) {
		var txOpts []*sql.TxOptions
		if opts != nil {
			txOpts = append(txOpts, opts)
		}

		tx := db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true}).Begin(txOpts...)
		if tx.Error != nil {
			return nil, tx.Error
		}
		return gormTx{tx: tx}, nil
	})
}

// ErrTxnRetained is reported when a handler finished while still retaining
// the transaction handle. The transaction is rolled back.
var ErrTxnRetained = errors.New("db: transaction handle still retained after the handler returned")

// ErrTxnFinished is the value [Txn.Get] panics with once the transaction
// has been committed or rolled back.
var ErrTxnFinished = errors.New("db: transaction already finished")
