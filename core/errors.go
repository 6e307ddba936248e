// Package core holds the ambient error taxonomy and logging/telemetry
// contracts shared by every other package in this module.
package core

import (
	"errors"
	"fmt"
)

// Code identifies an error's place in the taxonomy from spec §7.
type Code string

const (
	// 1xxx Validation
	ErrEmptyPlan          Code = "E1001"
	ErrUnsupportedSpecVer Code = "E1002"
	ErrUnknownAction      Code = "E1003"
	ErrMissingParam       Code = "E1004"
	ErrUnknownDependency  Code = "E1005"
	ErrCircularDependency Code = "E1006"
	ErrInvalidHTTPMethod  Code = "E1007"
	ErrEmptyStepID        Code = "E1008"
	ErrInvalidPlanFormat  Code = "E1009"

	// 2xxx HTTP execution
	ErrTimeout         Code = "E2001"
	ErrConnectionError Code = "E2002"
	ErrErrorStatus     Code = "E2003"
	ErrInvalidJSON     Code = "E2004"
	ErrTLSError        Code = "E2005"

	// 3xxx Assertion + extraction
	ErrAssertionStatusCode      Code = "E3001"
	ErrAssertionJSONBody        Code = "E3002"
	ErrAssertionHeader          Code = "E3003"
	ErrAssertionLatency         Code = "E3004"
	ErrAssertionPathNotFound    Code = "E3005"
	ErrExtractionPathNotFound   Code = "E3006"
	ErrExtractionHeaderNotFound Code = "E3007"
	ErrExtractionRegexNoMatch   Code = "E3008"
	ErrExtractionInvalidSource  Code = "E3009"
	ErrExtractionInvalidRegex   Code = "E3010"

	// 4xxx Configuration
	ErrEnvVarNotFound      Code = "E4001"
	ErrContextVarNotFound  Code = "E4002"
	ErrPlanFileNotFound    Code = "E4003"
	ErrFilePermissionError Code = "E4004"

	// 5xxx Internal
	ErrInternalError       Code = "E5001"
	ErrNoExecutorForAction Code = "E5002"
	ErrSerializationError  Code = "E5003"
)

// Sentinel errors for comparison with errors.Is, the way the teacher's
// core/errors.go exposes package-level sentinels alongside a structured type.
var (
	ErrCancelled          = errors.New("cancelled")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
	ErrLimitExceeded      = errors.New("limit exceeded")
)

// RunnerError is a structured error carrying a taxonomy code plus
// enough context (step id, operation) to render the "[E<code>] <msg>"
// line the CLI boundary prints (spec §7). It intentionally never
// degrades to a plain string at a layer boundary.
type RunnerError struct {
	Op      string
	Code    Code
	StepID  string
	Message string
	Err     error
}

func (e *RunnerError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.StepID != "" {
		prefix = fmt.Sprintf("%s step=%s", prefix, e.StepID)
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s", prefix, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %v", prefix, e.Err)
	default:
		return prefix
	}
}

func (e *RunnerError) Unwrap() error {
	return e.Err
}

// New constructs a RunnerError with the given taxonomy code.
func New(code Code, message string) *RunnerError {
	return &RunnerError{Code: code, Message: message}
}

// Wrap constructs a RunnerError wrapping an underlying cause.
func Wrap(code Code, err error) *RunnerError {
	return &RunnerError{Code: code, Err: err}
}

// WithStep attaches a step id to a RunnerError, returning a copy.
func (e *RunnerError) WithStep(stepID string) *RunnerError {
	cp := *e
	cp.StepID = stepID
	return &cp
}

// WithOp attaches an operation name to a RunnerError, returning a copy.
func (e *RunnerError) WithOp(op string) *RunnerError {
	cp := *e
	cp.Op = op
	return &cp
}

// CodeOf extracts the taxonomy code from err, if any.
func CodeOf(err error) (Code, bool) {
	var re *RunnerError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}
