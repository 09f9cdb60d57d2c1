// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package restkit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"syscall"

	"github.com/z5labs/restkit/internal/httpserver"

	"github.com/z5labs/bedrock"
	"github.com/z5labs/bedrock/app"
	"github.com/z5labs/bedrock/appbuilder"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// BuildFunc constructs the root handler of a service.
type BuildFunc[T Configer] func(context.Context, T) (http.Handler, error)

// Builder returns a [bedrock.AppBuilder] which initializes OpenTelemetry from
// the config and serves the handler returned by f over HTTP. The built
// [bedrock.App] stops serving on SIGINT or SIGTERM.
//
// Hooks registered by f through [OnShutdown] run after the server stops and
// before telemetry is flushed. They also run if building fails.
func Builder[T Configer](f BuildFunc[T]) bedrock.AppBuilder[T] {
	return appbuilder.Recover(
		bedrock.AppBuilderFunc[T](func(ctx context.Context, cfg T) (bedrock.App, error) {
			base := cfg.RestkitConfig()

			shutdownOTel, err := base.initOTel(ctx)
			if err != nil {
				return nil, err
			}

			buildCtx, hs := withHooks(ctx)

			h, err := f(buildCtx, cfg)
			if err != nil {
				return nil, errors.Join(err, hs.run(ctx), shutdownOTel(ctx))
			}

			ls, err := base.HTTP.Listener(ctx)
			if err != nil {
				return nil, errors.Join(err, hs.run(ctx), shutdownOTel(ctx))
			}

			var a bedrock.App = httpserver.New(
				ls,
				otelhttp.NewHandler(h, "restkit"),
				httpserver.ErrorLog(LogHandler("restkit")),
				httpserver.ShutdownTimeout(base.HTTP.ShutdownTimeout),
				httpserver.OnShutdown(shutdownOTel),
				httpserver.OnShutdown(hs.run),
			)
			a = app.Recover(a)
			a = app.InterruptOn(a, os.Interrupt, syscall.SIGTERM)
			return a, nil
		}),
	)
}

// Run loads T from the environment, then builds and runs the service until it
// receives SIGINT or SIGTERM. Panics during build or run are recovered and
// reported as errors.
func Run[T Configer](ctx context.Context, f BuildFunc[T]) error {
	err := run(ctx, f)
	if err == nil {
		return nil
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	log.ErrorContext(ctx, "failed to run service", slog.Any("error", err))
	return err
}

func run[T Configer](ctx context.Context, f BuildFunc[T]) error {
	cfg, err := ConfigFromEnv[T]()
	if err != nil {
		return err
	}

	builder := appbuilder.InterruptOn(Builder(f), os.Interrupt, syscall.SIGTERM)

	a, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
