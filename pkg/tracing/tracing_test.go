package tracing

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/jaeger-client-go"
)

func TestInitTracer_Disabled(t *testing.T) {
	prev := opentracing.GlobalTracer()
	t.Cleanup(func() { opentracing.SetGlobalTracer(prev) })

	tracer, closeFn, err := InitTracer(Config{})
	require.NoError(t, err)
	assert.IsType(t, opentracing.NoopTracer{}, tracer)
	closeFn()

	span, ctx := StartSpan(context.Background(), "noop")
	defer span.Finish()
	assert.Empty(t, TraceID(ctx))
}

func TestStartSpan_JaegerIDs(t *testing.T) {
	prev := opentracing.GlobalTracer()
	t.Cleanup(func() { opentracing.SetGlobalTracer(prev) })

	reporter := jaeger.NewInMemoryReporter()
	tracer, closer := jaeger.NewTracer("test", jaeger.NewConstSampler(true), reporter)
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	parent, ctx := StartSpan(context.Background(), "run")
	child, childCtx := StartSpan(ctx, "pair")

	assert.NotEmpty(t, TraceID(ctx))
	assert.Equal(t, TraceID(ctx), TraceID(childCtx))
	assert.NotEqual(t, ctx.Value(SpanIDKey), childCtx.Value(SpanIDKey))

	child.Finish()
	parent.Finish()
	assert.Equal(t, 2, reporter.SpansSubmitted())
}
