// Package service implements the lending rules and orchestrates units of
// work between HTTP handlers and the repository layer.
package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Shivanand-hulikatti/lending-library/internal/service"

func tracer() trace.Tracer { return otel.Tracer(tracerName) }

// startSpan opens a span named after the operation.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// canonicalID returns id in the lowercase hyphenated form records are stored
// under. Anything that is not a UUID cannot name a record, so callers treat
// ok == false as not found.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// hasControl reports whether s carries a control character. Titles and
// names are copied into mail headers.
func hasControl(s string) bool {
	return strings.ContainsFunc(s, unicode.IsControl)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
