package servreg

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/junioryono/servreg"

// Span names.
const (
	SpanStart   = "servreg.start"
	SpanStop    = "servreg.stop"
	SpanSetup   = "servreg.setup"
	SpanDispose = "servreg.dispose"
)

// Attribute keys.
const (
	AttrContract      = "servreg.contract"
	AttrRole          = "servreg.role"
	AttrOrder         = "servreg.order"
	AttrFireAndForget = "servreg.fire_and_forget"
	AttrDisposalKind  = "servreg.disposal_kind"
)

func contractAttr(t reflect.Type) attribute.KeyValue {
	return attribute.String(AttrContract, formatType(t))
}

func roleAttr(r Role) attribute.KeyValue {
	return attribute.String(AttrRole, r.String())
}

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName)
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// startSpan starts a span carrying attrs.
func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
