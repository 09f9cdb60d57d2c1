// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package restkit provides the shared logging, configuration and run helpers
// used by the rest, db and patch packages.
//
// The interesting pieces live in the subpackages:
//   - [github.com/z5labs/restkit/openapi] merges response descriptors that share a status code
//   - [github.com/z5labs/restkit/rest] registers operations, auth extractors and panic handling
//   - [github.com/z5labs/restkit/db] wraps every request in a database transaction
//   - [github.com/z5labs/restkit/patch] models optional fields of partial updates
package restkit

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a [slog.Logger] which forwards records to the globally
// registered OpenTelemetry log provider.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns the [slog.Handler] backing [Logger].
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}
