// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// OTLP transports selectable with [Config.Protocol].
const (
	ProtocolGRPC         = "grpc"
	ProtocolHTTPProtobuf = "http/protobuf"
)

// UnknownProtocolError is returned by [Initialize] for an unsupported OTLP protocol.
type UnknownProtocolError struct {
	Protocol string
}

// Error implements the [error] interface.
func (e UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown otlp protocol: %q", e.Protocol)
}

// Config selects where telemetry is sent.
//
// An empty Endpoint keeps the global tracer and meter providers as no-ops
// and writes log records to Stdout as JSON.
type Config struct {
	ServiceName    string
	ServiceVersion string

	Endpoint       string
	Protocol       string
	Insecure       bool
	SamplingRatio  float64
	MetricInterval time.Duration
	LogLevel       slog.Level

	Stdout io.Writer
}

// ShutdownFunc flushes and stops every provider registered by [Initialize].
type ShutdownFunc func(context.Context) error

// Initialize registers the global trace, metric and log providers.
func Initialize(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	r, err := resource.New(
		ctx,
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName(cfg.ServiceName)),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	var cc *grpc.ClientConn
	if len(cfg.Endpoint) > 0 {
		cc, err = newClientConn(cfg)
		if err != nil {
			return nil, err
		}
		if cc != nil {
			shutdowns = append(shutdowns, func(context.Context) error {
				return cc.Close()
			})
		}

		tp, err := initTraceProvider(ctx, cfg, cc, r)
		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)

		mp, err := initMeterProvider(ctx, cfg, cc, r)
		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)

		err = runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}
	}

	lp, err := initLogProvider(ctx, cfg, cc, r)
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}
	global.SetLoggerProvider(lp)
	shutdowns = append(shutdowns, lp.Shutdown)

	return shutdown, nil
}

func serviceName(name string) string {
	if len(name) > 0 {
		return name
	}
	return "unknown_service:go"
}

// newClientConn returns the connection shared by the gRPC exporters, or nil
// when telemetry is exported over HTTP.
func newClientConn(cfg Config) (*grpc.ClientConn, error) {
	switch cfg.Protocol {
	case "", ProtocolHTTPProtobuf:
		return nil, nil
	case ProtocolGRPC:
	default:
		return nil, UnknownProtocolError{Protocol: cfg.Protocol}
	}

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	return grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(creds))
}

func initTraceProvider(ctx context.Context, cfg Config, cc *grpc.ClientConn, r *resource.Resource) (*trace.TracerProvider, error) {
	var exp trace.SpanExporter
	var err error
	if cc != nil {
		exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(cc))
	} else {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplingRatio))),
		trace.WithResource(r),
	), nil
}

func initMeterProvider(ctx context.Context, cfg Config, cc *grpc.ClientConn, r *resource.Resource) (*metric.MeterProvider, error) {
	var exp metric.Exporter
	var err error
	if cc != nil {
		exp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(cc))
	} else {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err = otlpmetrichttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	reader := metric.NewPeriodicReader(
		exp,
		metric.WithInterval(cfg.MetricInterval),
		metric.WithProducer(runtime.NewProducer()),
	)

	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(r),
	), nil
}

func initLogProvider(ctx context.Context, cfg Config, cc *grpc.ClientConn, r *resource.Resource) (*log.LoggerProvider, error) {
	if len(cfg.Endpoint) == 0 {
		out := cfg.Stdout
		if out == nil {
			out = os.Stdout
		}

		exp := newSlogExporter(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: cfg.LogLevel,
		}))

		return log.NewLoggerProvider(
			log.WithProcessor(log.NewSimpleProcessor(exp)),
			log.WithResource(r),
		), nil
	}

	var exp log.Exporter
	var err error
	if cc != nil {
		exp, err = otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(cc))
	} else {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err = otlploghttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	return log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exp)),
		log.WithResource(r),
	), nil
}
