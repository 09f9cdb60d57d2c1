// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package restkit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/z5labs/restkit/internal/otel"

	"github.com/caarlos0/env/v11"
)

// Configer is implemented by any config struct embedding [Config].
type Configer interface {
	RestkitConfig() Config
}

// Config is the environment driven configuration shared by every service.
// Embed it in a service specific struct and load both with [ConfigFromEnv].
type Config struct {
	Service ServiceConfig `envPrefix:"SERVICE_"`
	HTTP    HTTPConfig    `envPrefix:"HTTP_"`
	OTel    OTelConfig    `envPrefix:"OTEL_"`
}

// RestkitConfig implements [Configer].
func (c Config) RestkitConfig() Config {
	return c
}

// ServiceConfig names the service in telemetry and the OpenAPI document.
type ServiceConfig struct {
	Name    string `env:"NAME"`
	Version string `env:"VERSION"`
}

// HTTPConfig configures the listener and graceful shutdown of the HTTP server.
type HTTPConfig struct {
	Host            string        `env:"HOST"`
	Port            uint          `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Listener opens the TCP listener described by the config.
func (c HTTPConfig) Listener(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", c.Host, c.Port))
}

// OTelConfig configures telemetry export. Leaving the endpoint empty logs
// JSON to stdout and disables trace and metric export. Protocol selects the
// OTLP transport, either "grpc" or "http/protobuf".
type OTelConfig struct {
	Endpoint       string        `env:"EXPORTER_OTLP_ENDPOINT"`
	Protocol       string        `env:"EXPORTER_OTLP_PROTOCOL" envDefault:"http/protobuf"`
	Insecure       bool          `env:"EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SamplingRatio  float64       `env:"TRACES_SAMPLER_RATIO" envDefault:"1"`
	MetricInterval time.Duration `env:"METRIC_EXPORT_INTERVAL" envDefault:"60s"`
	LogLevel       slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
}

// ConfigFromEnv parses T from the process environment.
func ConfigFromEnv[T any]() (T, error) {
	var cfg T
	err := env.Parse(&cfg)
	return cfg, err
}

func (c Config) initOTel(ctx context.Context) (otel.ShutdownFunc, error) {
	return otel.Initialize(ctx, otel.Config{
		ServiceName:    c.Service.Name,
		ServiceVersion: c.Service.Version,
		Endpoint:       c.OTel.Endpoint,
		Protocol:       c.OTel.Protocol,
		Insecure:       c.OTel.Insecure,
		SamplingRatio:  c.OTel.SamplingRatio,
		MetricInterval: c.OTel.MetricInterval,
		LogLevel:       c.OTel.LogLevel,
	})
}
