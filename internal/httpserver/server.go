// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configure a [Server].
type Options struct {
	errorLog        slog.Handler
	shutdownTimeout time.Duration
	onShutdown      []func(context.Context) error
}

// Option sets a value on [Options].
type Option func(*Options)

// ErrorLog routes errors reported by [http.Server] to h.
func ErrorLog(h slog.Handler) Option {
	return func(o *Options) {
		o.errorLog = h
	}
}

// ShutdownTimeout bounds how long in flight requests get to finish.
func ShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.shutdownTimeout = d
	}
}

// OnShutdown registers f to run once the server has stopped accepting requests.
// Hooks run in reverse registration order.
func OnShutdown(f func(context.Context) error) Option {
	return func(o *Options) {
		o.onShutdown = append(o.onShutdown, f)
	}
}

// Server serves a [http.Handler] until its context is cancelled.
type Server struct {
	ls              net.Listener
	server          *http.Server
	shutdownTimeout time.Duration
	onShutdown      []func(context.Context) error
}

// New creates a [Server] which serves h on ls.
func New(ls net.Listener, h http.Handler, opts ...Option) *Server {
	o := &Options{
		errorLog:        slog.DiscardHandler,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Server{
		ls: ls,
		server: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          slog.NewLogLogger(o.errorLog, slog.LevelError),
		},
		shutdownTimeout: o.shutdownTimeout,
		onShutdown:      o.onShutdown,
	}
}

// Run implements [bedrock.App].
func (s *Server) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := s.server.Serve(s.ls)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		<-egCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		errs := []error{s.server.Shutdown(shutdownCtx)}
		for i := len(s.onShutdown) - 1; i >= 0; i-- {
			errs = append(errs, s.onShutdown[i](shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return eg.Wait()
}
