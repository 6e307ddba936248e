// Package telemetry wires the spec's tracing hook surface (spec §6) to
// OpenTelemetry: a span per execution plus a span per HTTP step,
// carrying the fixed attribute set the spec names. Transport/exporter
// selection is an external concern per spec §1 non-goals, but the
// teacher's repo always ships a concrete OTel provider rather than a
// bare interface, so this package does too — falling back to a no-op
// handle (core.NoOpTelemetry) when telemetry is disabled (spec §9).
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"utdlrunner/core"
)

// Provider implements core.Telemetry with OpenTelemetry, exporting
// spans via OTLP/HTTP when an endpoint is configured, or to stdout
// otherwise (useful for `--otel` without a collector).
type Provider struct {
	tracer         oteltrace.Tracer
	traceProvider  *sdktrace.TracerProvider
	shutdownOnce   sync.Once
	mu             sync.RWMutex
	shutdown       bool
}

// NewProvider builds a Provider for serviceName. An empty endpoint
// selects the stdout exporter; otherwise spans export via OTLP/HTTP to
// endpoint (typically host:4318).
func NewProvider(ctx context.Context, serviceName, endpoint string) (*Provider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("telemetry: service name cannot be empty")
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	if endpoint == "" {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{
		tracer:        tp.Tracer("utdlrunner"),
		traceProvider: tp,
	}, nil
}

// StartSpan implements core.Telemetry.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.shutdown {
		return core.NoOpTelemetry{}.StartSpan(ctx, name)
	}
	childCtx, span := p.tracer.Start(ctx, name, oteltrace.WithSpanKind(oteltrace.SpanKindClient))
	return childCtx, &otelSpan{span: span}
}

// Shutdown flushes and stops the exporter. Safe to call more than once.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		p.mu.Unlock()
		err = p.traceProvider.Shutdown(ctx)
	})
	return err
}

type otelSpan struct {
	span oteltrace.Span
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(toAttribute(key, value))
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
}

func (s *otelSpan) End() {
	s.span.End()
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
