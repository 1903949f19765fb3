package otelhelper

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorCodeKey holds the machine-readable code of a failed operation, such as
// "already_claimed" or "compile_error".
const ErrorCodeKey = "caseflow.error.code"

type coded interface {
	ErrorCode() string
}

// SetError marks span as failed. Errors carrying an ErrorCode anywhere in their chain
// also tag the span and its error event with that code.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	var c coded
	if errors.As(err, &c) && c.ErrorCode() != "" {
		code := attribute.String(ErrorCodeKey, c.ErrorCode())
		span.SetAttributes(code)
		attrs = append(attrs, code)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}
