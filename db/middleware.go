// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package db

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/rest"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/z5labs/restkit/db"

// SuccessFunc decides from the handler's response whether to commit.
type SuccessFunc func(status int, header http.Header) bool

// DefaultSuccess commits unless the status is a client or server error.
func DefaultSuccess(status int, _ http.Header) bool {
	return status < 400 || status > 599
}

// Options configure a [Middleware].
type Options struct {
	success SuccessFunc
	log     *slog.Logger
}

// Option configures a [Middleware].
type Option func(*Options)

// CommitWhen replaces [DefaultSuccess]. The two are never combined.
func CommitWhen(f SuccessFunc) Option {
	return func(o *Options) {
		o.success = f
	}
}

// Logger sets the logger transaction outcomes are reported to.
func Logger(log *slog.Logger) Option {
	return func(o *Options) {
		o.log = log
	}
}

// Middleware runs requests inside a transaction started on a [Conn].
//
// It implements [rest.ServerInterceptor] and offers [Middleware.Handler] for
// plain [http.Handler]s.
type Middleware[T any] struct {
	conn      Conn[T]
	success   SuccessFunc
	log       *slog.Logger
	tracer    trace.Tracer
	commits   metric.Int64Counter
	rollbacks metric.Int64Counter
}

// Transaction creates a [Middleware] beginning transactions on conn.
func Transaction[T any](conn Conn[T], opts ...Option) *Middleware[T] {
	o := &Options{
		success: DefaultSuccess,
		log:     restkit.Logger(instrumentationName),
	}
	for _, opt := range opts {
		opt(o)
	}

	meter := otel.Meter(instrumentationName)
	commits, err := meter.Int64Counter("restkit.db.commits", metric.WithDescription("Committed request transactions."))
	if err != nil {
		commits = noop.Int64Counter{}
	}
	rollbacks, err := meter.Int64Counter("restkit.db.rollbacks", metric.WithDescription("Rolled back request transactions."))
	if err != nil {
		rollbacks = noop.Int64Counter{}
	}

	return &Middleware[T]{
		conn:      conn,
		success:   o.success,
		log:       o.log,
		tracer:    otel.Tracer(instrumentationName),
		commits:   commits,
		rollbacks: rollbacks,
	}
}

// Intercept implements [rest.ServerInterceptor].
//
// A handler error rolls the transaction back and is returned unchanged. Any
// failure to begin, commit or roll back is returned as a
// [rest.InternalServerError] and replaces the handler's response.
func (m *Middleware[T]) Intercept(next func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) (err error) {
		ctx, span := m.tracer.Start(r.Context(), "db.Transaction")
		defer span.End()
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}()

		tx, err := m.conn.Begin(ctx)
		if err != nil {
			m.log.ErrorContext(ctx, "failed to begin transaction", slog.Any("error", err))
			return rest.InternalServerError{Cause: err}
		}

		txn := newTxn(tx)
		span.SetAttributes(attribute.String("db.txn.id", txn.ID().String()))

		finished := false
		defer func() {
			if finished {
				return
			}
			txn.finish()
			_ = m.rollback(ctx, txn, "panic")
		}()

		resp := newBufferedResponse()
		err = next(resp, r.WithContext(withTxn(ctx, txn)))
		retained := txn.finish()

		err = m.complete(ctx, txn, resp, err, retained)
		finished = true
		if err != nil {
			return err
		}

		return resp.flush(w)
	}
}

// complete commits or rolls back txn once the handler has returned.
func (m *Middleware[T]) complete(ctx context.Context, txn *Txn[T], resp *bufferedResponse, err error, retained bool) error {
	if err != nil {
		rerr := m.rollback(ctx, txn, "handler error")
		if rerr != nil {
			return rest.InternalServerError{Cause: errors.Join(err, rerr)}
		}
		return err
	}

	if retained {
		m.log.ErrorContext(ctx, "transaction handle retained after handler returned", slog.String("txn", txn.ID().String()))
		return rest.InternalServerError{Cause: errors.Join(ErrTxnRetained, m.rollback(ctx, txn, "retained"))}
	}

	if m.success(resp.status, resp.header) {
		err = m.commit(ctx, txn)
	} else {
		err = m.rollback(ctx, txn, "unsuccessful response")
	}
	if err != nil {
		return rest.InternalServerError{Cause: err}
	}
	return nil
}

func (m *Middleware[T]) commit(ctx context.Context, txn *Txn[T]) error {
	err := txn.tx.Commit(ctx)
	if err != nil {
		m.log.ErrorContext(ctx, "failed to commit transaction", slog.String("txn", txn.ID().String()), slog.Any("error", err))
		return err
	}

	m.commits.Add(ctx, 1)
	m.log.DebugContext(ctx, "committed transaction", slog.String("txn", txn.ID().String()))
	return nil
}

func (m *Middleware[T]) rollback(ctx context.Context, txn *Txn[T], reason string) error {
	ctx = context.WithoutCancel(ctx)

	err := txn.tx.Rollback(ctx)
	if err != nil {
		m.log.ErrorContext(
			ctx,
			"failed to roll back transaction",
			slog.String("txn", txn.ID().String()),
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		return err
	}

	m.rollbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	m.log.DebugContext(ctx, "rolled back transaction", slog.String("txn", txn.ID().String()), slog.String("reason", reason))
	return nil
}

// Handler wraps next in a transaction. Errors are rendered like the
// default error handler of [rest] operations.
func (m *Middleware[T]) Handler(next http.Handler) http.Handler {
	serve := m.Intercept(func(w http.ResponseWriter, r *http.Request) error {
		next.ServeHTTP(w, r)
		return nil
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := serve(w, r)
		if err == nil {
			return
		}

		var hrw rest.HttpResponseWriter
		if !errors.As(err, &hrw) {
			hrw = rest.InternalServerError{Cause: err}
		}
		hrw.WriteHttpResponse(r.Context(), w)
	})
}
