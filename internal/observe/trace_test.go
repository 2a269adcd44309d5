package observe

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withTestTracer installs an in-memory tracer provider as the global one for
// the duration of the test and returns its exporter.
func withTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	return exp
}

func TestCorrelationIDOutsideSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID without span = %q, want empty", got)
	}
}

func TestCorrelationIDMatchesTraceID(t *testing.T) {
	withTestTracer(t)

	ctx, span := StartSpan(context.Background(), "topic.extract")
	defer span.End()

	want := span.SpanContext().TraceID().String()
	if got := CorrelationID(ctx); got != want {
		t.Errorf("CorrelationID = %q, want the span's trace id %q", got, want)
	}
}

func TestStartSpanExportsName(t *testing.T) {
	exp := withTestTracer(t)

	_, span := StartSpan(context.Background(), "fact.verify")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name != "fact.verify" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "fact.verify")
	}
}

func TestStartSpanNestsUnderParent(t *testing.T) {
	exp := withTestTracer(t)

	ctx, parent := StartSpan(context.Background(), "fact.check")
	_, child := StartSpan(ctx, "fact.search_evidence")
	child.End()
	parent.End()

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	// The syncer exports in end order: child first.
	if got, want := spans[0].Parent.SpanID(), parent.SpanContext().SpanID(); got != want {
		t.Errorf("child parent span id = %s, want %s", got, want)
	}
	if spans[0].SpanContext.TraceID() != spans[1].SpanContext.TraceID() {
		t.Error("child and parent are in different traces")
	}
}

func TestLoggerAttachesTraceContext(t *testing.T) {
	withTestTracer(t)

	var buf strings.Builder
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	ctx, span := StartSpan(context.Background(), "topic.update")
	defer span.End()

	Logger(ctx).Warn("topic update failed", "err", "boom")

	logged := buf.String()
	wantTrace := "trace_id=" + span.SpanContext().TraceID().String()
	wantSpan := "span_id=" + span.SpanContext().SpanID().String()
	if !strings.Contains(logged, wantTrace) {
		t.Errorf("log output missing %s: %s", wantTrace, logged)
	}
	if !strings.Contains(logged, wantSpan) {
		t.Errorf("log output missing %s: %s", wantSpan, logged)
	}
}

func TestLoggerWithoutSpanIsPlain(t *testing.T) {
	var buf strings.Builder
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	Logger(context.Background()).Info("pipeline running")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log output has trace_id without an active span: %s", buf.String())
	}
}
