// Package validate implements the UTDL validator (spec §4.6): a
// structural check plus a three-color DFS cycle detection over the
// plan's dependency graph. The validator never mutates the plan and
// collects every error it finds rather than stopping at the first.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"utdlrunner/core"
	"utdlrunner/plan"
)

// Error is one structured validation failure.
type Error struct {
	Code    core.Code
	StepID  string
	Message string
}

func (e Error) String() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step=%s %s", e.Code, e.StepID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// topLevelFields is the exact set of keys a plan document may carry at
// its root (spec §3.1/§6: "Unknown top-level fields are rejected by
// the validator").
var topLevelFields = map[string]bool{
	"spec_version": true,
	"meta":         true,
	"config":       true,
	"steps":        true,
}

var knownActions = map[string]bool{
	plan.ActionHTTPRequest: true,
	plan.ActionWait:        true,
	plan.ActionSleep:       true,
	"graphql":              true,
}

var knownHTTPMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// ValidateRaw checks raw for unknown top-level fields before
// unmarshaling it into a Plan, then runs Validate on the result. It
// returns the decoded Plan alongside any errors so callers don't need
// a second unmarshal pass.
func ValidateRaw(raw []byte) (plan.Plan, []Error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return plan.Plan{}, []Error{{Code: core.ErrInvalidPlanFormat, Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}

	var errs []Error
	for k := range top {
		if !topLevelFields[k] {
			errs = append(errs, Error{Code: core.ErrInvalidPlanFormat, Message: fmt.Sprintf("unknown top-level field %q", k)})
		}
	}

	var p plan.Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		errs = append(errs, Error{Code: core.ErrInvalidPlanFormat, Message: fmt.Sprintf("invalid plan: %v", err)})
		return p, errs
	}

	errs = append(errs, Validate(p)...)
	return p, errs
}

// Validate runs every check in spec §4.6 against p, returning the
// (possibly empty) ordered list of errors found.
func Validate(p plan.Plan) []Error {
	var errs []Error

	if p.SpecVersion != plan.SupportedSpecVersion {
		errs = append(errs, Error{
			Code:    core.ErrUnsupportedSpecVer,
			Message: fmt.Sprintf("unsupported spec_version %q, expected %q", p.SpecVersion, plan.SupportedSpecVersion),
		})
	}

	if len(p.Steps) == 0 {
		errs = append(errs, Error{Code: core.ErrEmptyPlan, Message: "plan has no steps"})
		return errs
	}

	ids := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if strings.TrimSpace(s.ID) == "" {
			errs = append(errs, Error{Code: core.ErrEmptyStepID, Message: "step has an empty id"})
			continue
		}
		ids[s.ID] = true
	}

	for _, s := range p.Steps {
		errs = append(errs, validateStep(s)...)
	}

	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				errs = append(errs, Error{Code: core.ErrCircularDependency, StepID: s.ID,
					Message: fmt.Sprintf("step %q depends on itself", s.ID)})
				continue
			}
			if !ids[dep] {
				errs = append(errs, Error{Code: core.ErrUnknownDependency, StepID: s.ID,
					Message: fmt.Sprintf("unknown dependency %q", dep)})
			}
		}
	}

	errs = append(errs, detectCycles(p.Steps)...)

	return errs
}

func validateStep(s plan.Step) []Error {
	var errs []Error

	if !knownActions[s.Action] {
		errs = append(errs, Error{Code: core.ErrUnknownAction, StepID: s.ID,
			Message: fmt.Sprintf("unknown action %q", s.Action)})
		return errs
	}

	switch s.Action {
	case plan.ActionHTTPRequest:
		errs = append(errs, validateHTTPParams(s)...)
	case plan.ActionWait, plan.ActionSleep:
		errs = append(errs, validateWaitParams(s)...)
	}

	return errs
}

func validateHTTPParams(s plan.Step) []Error {
	var params struct {
		Method string `json:"method"`
		Path   string `json:"path"`
	}
	if len(s.Params) == 0 {
		return []Error{{Code: core.ErrMissingParam, StepID: s.ID, Message: "http_request requires method and path"}}
	}
	if err := json.Unmarshal(s.Params, &params); err != nil {
		return []Error{{Code: core.ErrInvalidPlanFormat, StepID: s.ID, Message: "http_request params is not valid JSON: " + err.Error()}}
	}
	var errs []Error
	if params.Method == "" || params.Path == "" {
		errs = append(errs, Error{Code: core.ErrMissingParam, StepID: s.ID, Message: "http_request requires method and path"})
	}
	if params.Method != "" && !knownHTTPMethods[strings.ToUpper(params.Method)] {
		errs = append(errs, Error{Code: core.ErrInvalidHTTPMethod, StepID: s.ID,
			Message: fmt.Sprintf("invalid HTTP method %q", params.Method)})
	}
	return errs
}

func validateWaitParams(s plan.Step) []Error {
	var params struct {
		DurationMs *float64 `json:"duration_ms"`
		Ms         *float64 `json:"ms"`
	}
	if len(s.Params) == 0 {
		return []Error{{Code: core.ErrMissingParam, StepID: s.ID, Message: "wait requires duration_ms"}}
	}
	if err := json.Unmarshal(s.Params, &params); err != nil {
		return []Error{{Code: core.ErrInvalidPlanFormat, StepID: s.ID, Message: "wait params is not valid JSON: " + err.Error()}}
	}
	d := params.DurationMs
	if d == nil {
		d = params.Ms
	}
	if d == nil || *d < 0 {
		return []Error{{Code: core.ErrMissingParam, StepID: s.ID, Message: "wait requires a non-negative duration_ms"}}
	}
	return nil
}

// detectCycles runs three-color DFS over the dependency graph.
// unvisited (absent from color) / in-progress (gray) / done (black).
func detectCycles(steps []plan.Step) []Error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(steps))
	deps := make(map[string][]string, len(steps))
	for _, s := range steps {
		deps[s.ID] = s.DependsOn
	}

	var errs []Error
	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, dep := range deps[id] {
			if _, known := deps[dep]; !known {
				continue // already reported as UnknownDependency
			}
			if dep == id {
				continue // already reported as a trivial self-loop
			}
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				errs = append(errs, Error{Code: core.ErrCircularDependency, StepID: id,
					Message: fmt.Sprintf("cycle detected through dependency %q", dep)})
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, s := range steps {
		if color[s.ID] == white {
			visit(s.ID)
		}
	}
	return errs
}
