// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package db

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Txn is the transaction of a single request.
//
// Handlers which hand the transaction to work outliving the call, e.g. a
// goroutine, must bracket that work with [Txn.Retain] and [Txn.Release].
// A transaction still retained when the handler returns is never committed.
type Txn[T any] struct {
	id uuid.UUID
	tx Tx[T]

	mu       sync.Mutex
	retained int
	finished bool
}

func newTxn[T any](tx Tx[T]) *Txn[T] {
	return &Txn[T]{
		id: uuid.New(),
		tx: tx,
	}
}

// ID identifies the transaction in logs and traces.
func (t *Txn[T]) ID() uuid.UUID {
	return t.id
}

// Get returns the handle queries are run on. It panics with
// [ErrTxnFinished] after the transaction is committed or rolled back.
func (t *Txn[T]) Get() T {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		panic(ErrTxnFinished)
	}
	return t.tx.Handle()
}

// Retain marks the handle as held by work other than the handler.
func (t *Txn[T]) Retain() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.retained++
}

// Release undoes one call to [Txn.Retain].
func (t *Txn[T]) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.retained > 0 {
		t.retained--
	}
}

// finish marks the transaction finished and reports whether it was still retained.
func (t *Txn[T]) finish() (retained bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.finished = true
	return t.retained > 0
}

type txnCtxKey[T any] struct{}

func withTxn[T any](ctx context.Context, txn *Txn[T]) context.Context {
	return context.WithValue(ctx, txnCtxKey[T]{}, txn)
}

// From returns the transaction started for the request.
func From[T any](ctx context.Context) (*Txn[T], bool) {
	txn, ok := ctx.Value(txnCtxKey[T]{}).(*Txn[T])
	return txn, ok
}

// MustFrom is like [From] but panics if ctx carries no transaction.
func MustFrom[T any](ctx context.Context) *Txn[T] {
	txn, ok := From[T](ctx)
	if !ok {
		panic("db: no transaction in context")
	}
	return txn
}
