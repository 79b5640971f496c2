package servreg

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spansNamed(spans []sdktrace.ReadOnlySpan, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func attrValue(s sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	setupType := reflect.TypeFor[*countingSetup]()
	disposableType := reflect.TypeFor[failingDisposable]()
	c := mapContainer{
		setupType:      &countingSetup{},
		disposableType: failingDisposable{},
	}
	regs := Registries{
		AsyncSetup:  []reflect.Type{setupType},
		Disposables: []reflect.Type{disposableType},
	}

	o, err := NewOrchestrator(c, nil, regs, DefaultSetupOptions(), WithTracerProvider(tp))
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	require.NoError(t, o.Stop(context.Background()))

	spans := sr.Ended()

	start := spansNamed(spans, SpanStart)
	require.Len(t, start, 1)
	order, ok := attrValue(start[0], AttrOrder)
	require.True(t, ok)
	assert.Equal(t, "Concurrent", order.AsString())
	fireAndForget, ok := attrValue(start[0], AttrFireAndForget)
	require.True(t, ok)
	assert.False(t, fireAndForget.AsBool())

	setups := spansNamed(spans, SpanSetup)
	require.Len(t, setups, 1)
	assert.Equal(t, start[0].SpanContext().SpanID(), setups[0].Parent().SpanID())
	contract, _ := attrValue(setups[0], AttrContract)
	assert.Equal(t, "*servreg.countingSetup", contract.AsString())
	role, _ := attrValue(setups[0], AttrRole)
	assert.Equal(t, "AsyncSetup", role.AsString())
	assert.Equal(t, codes.Unset, setups[0].Status().Code)

	require.Len(t, spansNamed(spans, SpanStop), 1)
	disposals := spansNamed(spans, SpanDispose)
	require.Len(t, disposals, 1)
	kind, _ := attrValue(disposals[0], AttrDisposalKind)
	assert.Equal(t, "sync", kind.AsString())
	assert.Equal(t, codes.Error, disposals[0].Status().Code)
}

func TestTracing_SetupFailure(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	setupType := reflect.TypeFor[*countingSetup]()
	c := mapContainer{setupType: &countingSetup{err: errors.New("boom")}}

	o, err := NewOrchestrator(c, nil, Registries{AsyncSetup: []reflect.Type{setupType}},
		DefaultSetupOptions(), WithTracerProvider(tp))
	require.NoError(t, err)

	err = o.Start(context.Background())
	require.Error(t, err)

	setups := spansNamed(sr.Ended(), SpanSetup)
	require.Len(t, setups, 1)
	assert.Equal(t, codes.Error, setups[0].Status().Code)
	assert.Contains(t, setups[0].Status().Description, "boom")
	require.NotEmpty(t, setups[0].Events())
	assert.Equal(t, "exception", setups[0].Events()[0].Name)

	start := spansNamed(sr.Ended(), SpanStart)
	require.Len(t, start, 1)
	assert.Equal(t, codes.Error, start[0].Status().Code)
}

func TestTracing_DefaultProvider(t *testing.T) {
	o, err := NewOrchestrator(mapContainer{}, nil, Registries{}, DefaultSetupOptions())
	require.NoError(t, err)
	assert.NotNil(t, o.tracer)
	assert.NoError(t, o.Start(context.Background()))
}
