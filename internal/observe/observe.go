/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package observe ties a gateway operation to one trace span and, on failure,
// exactly one error log record.
package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/suparena/storagegateway/internal/logging"
)

// Instrumentation scope used for every gateway span.
const tracerName = "github.com/suparena/storagegateway"

// Observer is shared by all operations of one gateway instance.
type Observer struct {
	tracer trace.Tracer
	logger *slog.Logger
	base   []attribute.KeyValue
}

// New creates an Observer. A nil logger discards; base attributes are attached
// to every span and log record (for example the table or backend name).
func New(logger *slog.Logger, base ...attribute.KeyValue) *Observer {
	return &Observer{
		tracer: otel.Tracer(tracerName),
		logger: logging.OrDiscard(logger),
		base:   base,
	}
}

// Op is a single in-flight gateway call.
type Op struct {
	o     *Observer
	name  string
	span  trace.Span
	attrs []attribute.KeyValue
}

// Start opens a span named after the operation.
func (o *Observer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Op) {
	all := make([]attribute.KeyValue, 0, len(o.base)+len(attrs))
	all = append(all, o.base...)
	all = append(all, attrs...)
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(all...))
	return ctx, &Op{o: o, name: name, span: span, attrs: all}
}

// End closes the span and returns err unchanged. A non-nil err marks the span
// failed and is logged once at error level.
func (op *Op) End(err error) error {
	defer op.span.End()
	if err == nil {
		op.span.SetStatus(codes.Ok, "")
		return nil
	}
	op.span.RecordError(err)
	op.span.SetStatus(codes.Error, err.Error())

	args := make([]any, 0, len(op.attrs)+2)
	args = append(args, slog.String("op", op.name))
	for _, kv := range op.attrs {
		args = append(args, slog.String(string(kv.Key), kv.Value.Emit()))
	}
	args = append(args, slog.Any("error", err))
	op.o.logger.Error("storage operation failed", args...)
	return err
}

// Info logs a non-failure event in the context of the operation.
func (op *Op) Info(msg string, args ...any) {
	base := make([]any, 0, len(op.attrs)+1+len(args))
	base = append(base, slog.String("op", op.name))
	for _, kv := range op.attrs {
		base = append(base, slog.String(string(kv.Key), kv.Value.Emit()))
	}
	op.o.logger.Info(msg, append(base, args...)...)
}
