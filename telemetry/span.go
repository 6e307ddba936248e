package telemetry

import (
	"utdlrunner/core"
	"utdlrunner/plan"
)

// AnnotateHTTPStep sets the fixed attribute set spec §6 names on an
// http_request step's span: step.id, http.method, http.url,
// http.status_code, http.duration_ms, otel.kind=client.
func AnnotateHTTPStep(span core.Span, stepID string, details *plan.HTTPDetails) {
	span.SetAttribute("step.id", stepID)
	span.SetAttribute("otel.kind", "client")
	if details == nil {
		return
	}
	span.SetAttribute("http.method", details.Method)
	span.SetAttribute("http.url", details.URL)
	span.SetAttribute("http.status_code", details.StatusCode)
	span.SetAttribute("http.duration_ms", details.LatencyMs)
}
