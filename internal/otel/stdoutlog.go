// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// slogExporter hands OpenTelemetry log records back to a plain [slog.Handler]
// so services without a collector still get structured output.
type slogExporter struct {
	handler slog.Handler
}

func newSlogExporter(h slog.Handler) *slogExporter {
	return &slogExporter{handler: h}
}

// severityOffset maps otel severities onto slog levels, e.g. SeverityInfo -> LevelInfo.
const severityOffset = log.SeverityDebug - log.Severity(slog.LevelDebug)

// Export implements [sdklog.Exporter].
func (s *slogExporter) Export(ctx context.Context, records []sdklog.Record) error {
	for _, record := range records {
		level := slog.Level(record.Severity() - severityOffset)
		if !s.handler.Enabled(ctx, level) {
			continue
		}

		sr := slog.NewRecord(record.Timestamp(), level, record.Body().AsString(), 0)
		record.WalkAttributes(func(kv log.KeyValue) bool {
			sr.AddAttrs(slog.Attr{Key: kv.Key, Value: toSlogValue(kv.Value)})
			return true
		})

		scope := record.InstrumentationScope()
		if len(scope.Name) > 0 {
			sr.AddAttrs(slog.String("logger", scope.Name))
		}
		if record.TraceID().IsValid() {
			sr.AddAttrs(slog.Group(
				"otel",
				slog.String("trace_id", record.TraceID().String()),
				slog.String("span_id", record.SpanID().String()),
			))
		}

		if err := s.handler.Handle(ctx, sr); err != nil {
			return err
		}
	}
	return nil
}

func toSlogValue(v log.Value) slog.Value {
	switch v.Kind() {
	case log.KindBool:
		return slog.BoolValue(v.AsBool())
	case log.KindInt64:
		return slog.Int64Value(v.AsInt64())
	case log.KindFloat64:
		return slog.Float64Value(v.AsFloat64())
	case log.KindString:
		return slog.StringValue(v.AsString())
	case log.KindBytes:
		return slog.AnyValue(v.AsBytes())
	case log.KindSlice:
		items := v.AsSlice()
		vals := make([]any, len(items))
		for i, item := range items {
			vals[i] = toSlogValue(item).Any()
		}
		return slog.AnyValue(vals)
	case log.KindMap:
		kvs := v.AsMap()
		attrs := make([]slog.Attr, 0, len(kvs))
		for _, kv := range kvs {
			attrs = append(attrs, slog.Attr{Key: kv.Key, Value: toSlogValue(kv.Value)})
		}
		return slog.GroupValue(attrs...)
	default:
		return slog.StringValue(v.String())
	}
}

// ForceFlush implements [sdklog.Exporter].
func (s *slogExporter) ForceFlush(context.Context) error { return nil }

// Shutdown implements [sdklog.Exporter].
func (s *slogExporter) Shutdown(context.Context) error { return nil }
