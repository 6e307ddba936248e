// Package plan defines the UTDL document model: the immutable tree a
// plan file deserializes into, and the result types the scheduler and
// reporter build while executing it. Nothing in this package mutates a
// Plan after it is loaded.
package plan

import "encoding/json"

// SupportedSpecVersion is the only spec_version this runner accepts.
const SupportedSpecVersion = "0.1"

// Plan is the top-level UTDL document.
type Plan struct {
	SpecVersion string `json:"spec_version"`
	Meta        Meta   `json:"meta"`
	Config      Config `json:"config"`
	Steps       []Step `json:"steps"`
}

// Meta carries the plan's identity.
type Meta struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// Config carries execution-wide defaults, seeded into the Context
// before the first step runs.
type Config struct {
	BaseURL          string                     `json:"base_url"`
	DefaultTimeoutMs int                        `json:"default_timeout_ms"`
	GlobalHeaders    map[string]string          `json:"global_headers,omitempty"`
	Variables        map[string]json.RawMessage `json:"variables,omitempty"`
}

// Action names a step can carry. Sleep is a synonym of Wait.
const (
	ActionHTTPRequest = "http_request"
	ActionWait        = "wait"
	ActionSleep       = "sleep"
)

// Step is one DAG node.
type Step struct {
	ID             string          `json:"id"`
	Description    string          `json:"description,omitempty"`
	DependsOn      []string        `json:"depends_on,omitempty"`
	Action         string          `json:"action"`
	Params         json.RawMessage `json:"params,omitempty"`
	Assertions     []Assertion     `json:"assertions,omitempty"`
	Extract        []Extraction    `json:"extract,omitempty"`
	RecoveryPolicy *RecoveryPolicy `json:"recovery_policy,omitempty"`
}

// Assertion kinds.
const (
	AssertStatusCode  = "status_code"
	AssertStatusRange = "status_range"
	AssertJSONBody    = "json_body"
	AssertHeader      = "header"
	AssertLatency     = "latency"
	AssertJSONSchema  = "json_schema"
)

// Assertion operators.
const (
	OpEq           = "eq"
	OpNeq          = "neq"
	OpLt           = "lt"
	OpGt           = "gt"
	OpLte          = "lte"
	OpGte          = "gte"
	OpContains     = "contains"
	OpExists       = "exists"
	OpNotExists    = "not_exists"
	OpMatchesRegex = "matches_regex"
	OpValid        = "valid"
	OpInvalid      = "invalid"
	OpIn           = "in"
	OpNotIn        = "not_in"
)

// Assertion is one typed check against the step's response.
type Assertion struct {
	Kind     string          `json:"kind"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value,omitempty"`
	Path     string          `json:"path,omitempty"`
}

// Extraction sources.
const (
	SourceBody       = "body"
	SourceHeader     = "header"
	SourceStatusCode = "status_code"
)

// Extraction pulls one value out of a step's response into the Context.
type Extraction struct {
	Source    string `json:"source"`
	Path      string `json:"path,omitempty"`
	Target    string `json:"target"`
	AllValues bool   `json:"all_values,omitempty"`
	Critical  bool   `json:"critical,omitempty"`
}

// Recovery strategies.
const (
	StrategyRetry    = "retry"
	StrategyFailFast = "fail_fast"
	StrategyIgnore   = "ignore"
)

// RecoveryPolicy governs how a step's failure is retried or tolerated.
// Its absence is equivalent to {fail_fast, max_attempts: 1}.
type RecoveryPolicy struct {
	Strategy      string  `json:"strategy"`
	MaxAttempts   int     `json:"max_attempts"`
	BackoffMs     int64   `json:"backoff_ms"`
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultRecoveryPolicy is substituted when a Step omits RecoveryPolicy.
func DefaultRecoveryPolicy() RecoveryPolicy {
	return RecoveryPolicy{Strategy: StrategyFailFast, MaxAttempts: 1, BackoffFactor: 2.0}
}

// Effective returns p's fields with zero-value defaults filled in, or
// the package default when p is nil.
func (p *RecoveryPolicy) Effective() RecoveryPolicy {
	if p == nil {
		return DefaultRecoveryPolicy()
	}
	rp := *p
	if rp.Strategy == "" {
		rp.Strategy = StrategyFailFast
	}
	if rp.MaxAttempts <= 0 {
		rp.MaxAttempts = 1
	}
	if rp.BackoffFactor <= 0 {
		rp.BackoffFactor = 2.0
	}
	return rp
}

// Status is a step's terminal (or in-flight) execution state.
type Status string

const (
	StatusReady   Status = "ready"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// HTTPDetails records the wire-level facts of an http_request step,
// regardless of pass/fail outcome.
type HTTPDetails struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	StatusCode      int               `json:"status_code"`
	LatencyMs       int64             `json:"latency_ms"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
}

// ExtractionResult records the outcome of one Extraction rule.
type ExtractionResult struct {
	Target  string          `json:"target"`
	Success bool            `json:"success"`
	Value   json.RawMessage `json:"value,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StepResult is what a single step's execution (including all
// retry attempts) produces.
type StepResult struct {
	StepID        string                     `json:"step_id"`
	Status        Status                     `json:"status"`
	DurationMs    int64                      `json:"duration_ms"`
	Attempt       int                        `json:"attempt"`
	Error         string                     `json:"error,omitempty"`
	ContextBefore map[string]json.RawMessage `json:"context_before,omitempty"`
	ContextAfter  map[string]json.RawMessage `json:"context_after,omitempty"`
	Extractions   []ExtractionResult         `json:"extractions,omitempty"`
	HTTPDetails   *HTTPDetails               `json:"http_details,omitempty"`
}

// ExecutionReport is the scheduler's final output, ready for
// serialization per the field schema external consumers expect.
type ExecutionReport struct {
	ExecutionID string      `json:"execution_id"`
	PlanID      string      `json:"plan_id"`
	Status      string      `json:"status"`
	StartTime   string      `json:"start_time"`
	EndTime     string      `json:"end_time"`
	Summary     Summary     `json:"summary"`
	Steps       []StepResult `json:"steps"`
}

// Summary is the aggregate over all StepResults in an ExecutionReport.
type Summary struct {
	TotalSteps   int   `json:"total_steps"`
	Passed       int   `json:"passed"`
	Failed       int   `json:"failed"`
	Skipped      int   `json:"skipped"`
	TotalRetries int   `json:"total_retries"`
	DurationMs   int64 `json:"duration_ms"`
}
