package core

import "context"

// Logger is the minimal structured-logging contract every package in
// this module depends on. Concrete loggers live in pkg/logger.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Telemetry is the hook surface the scheduler and executors call
// through. Transport (where spans go) is an external collaborator
// per spec §1/§6; an implementation that drops every span on the
// floor is a valid Telemetry.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is a single telemetry span. The attribute set each call site
// sets is fixed by spec §6 (e.g. step.id, http.method, http.url,
// http.status_code, http.duration_ms, otel.kind).
type Span interface {
	SetAttribute(key string, value interface{})
	RecordError(err error)
	End()
}

// NoOpLogger discards everything. Used when no logger is configured.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

// NoOpTelemetry is the fallback handle used when telemetry is
// disabled (spec §9: "fall back to a no-op handle when telemetry is
// disabled").
type NoOpTelemetry struct{}

func (NoOpTelemetry) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, noOpSpan{}
}

type noOpSpan struct{}

func (noOpSpan) SetAttribute(string, interface{}) {}
func (noOpSpan) RecordError(error)                {}
func (noOpSpan) End()                             {}
