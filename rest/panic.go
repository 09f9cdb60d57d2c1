// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/z5labs/restkit"
)

// PanicHandler turns a recovered panic into the response sent to the client.
type PanicHandler interface {
	HandlePanic(ctx context.Context, recovered any) HttpResponseWriter
}

// PanicHandlerFunc is a function adapter that implements [PanicHandler].
type PanicHandlerFunc func(context.Context, any) HttpResponseWriter

// HandlePanic implements [PanicHandler].
func (f PanicHandlerFunc) HandlePanic(ctx context.Context, recovered any) HttpResponseWriter {
	return f(ctx, recovered)
}

// DefaultPanicHandler responds with a 500 and {"error":"internal_server_error"}.
type DefaultPanicHandler struct{}

// HandlePanic implements [PanicHandler].
func (DefaultPanicHandler) HandlePanic(ctx context.Context, recovered any) HttpResponseWriter {
	return InternalServerError{Cause: PanicError{Value: recovered}}
}

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
}

// Error implements the [error] interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("recovered from panic: %v", e.Value)
}

// Unwrap returns the recovered value when it is an error.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// CatchPanic returns middleware which recovers panics raised by next and
// writes the response chosen by ph. [http.ErrAbortHandler] is re-panicked
// so the server still aborts the connection.
func CatchPanic(ph PanicHandler) func(http.Handler) http.Handler {
	log := restkit.Logger("github.com/z5labs/restkit/rest")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				log.ErrorContext(
					ctx,
					"recovered from panic",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				ph.HandlePanic(ctx, rec).WriteHttpResponse(ctx, w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
