package executor

import (
	"context"
	"encoding/json"

	"utdlrunner/core"
	"utdlrunner/plan"
	"utdlrunner/runctx"
)

// GraphQLExecutor is an illustrative stub (spec §1 non-goals: "gRPC/
// GraphQL beyond an illustrative stub"): it accepts a graphql action,
// marshals {query, variables} as a POST body, and reuses the HTTP
// executor's request/response plumbing rather than a distinct wire
// format. It demonstrates how a new protocol adapter plugs into the
// registry, not a complete GraphQL client (no introspection, no
// fragment support).
type GraphQLExecutor struct {
	http *HTTPExecutor
}

// NewGraphQLExecutor builds a GraphQLExecutor delegating transport to
// an HTTPExecutor.
func NewGraphQLExecutor() *GraphQLExecutor {
	return &GraphQLExecutor{http: NewHTTPExecutor()}
}

const ActionGraphQL = "graphql"

func (e *GraphQLExecutor) CanHandle(action string) bool {
	return action == ActionGraphQL
}

type graphqlParams struct {
	Path      string                 `json:"path"`
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
	Headers   map[string]string      `json:"headers,omitempty"`
	TimeoutMs *int                   `json:"timeout_ms,omitempty"`
}

func (e *GraphQLExecutor) Execute(ctx context.Context, step plan.Step, vars *runctx.Context) (plan.StepResult, error) {
	var gp graphqlParams
	if len(step.Params) > 0 {
		if err := json.Unmarshal(step.Params, &gp); err != nil {
			return plan.StepResult{}, core.New(core.ErrMissingParam, "invalid graphql params: "+err.Error()).WithStep(step.ID)
		}
	}
	if gp.Query == "" {
		return plan.StepResult{}, core.New(core.ErrMissingParam, "graphql action requires query").WithStep(step.ID)
	}

	body := map[string]interface{}{"query": gp.Query}
	if gp.Variables != nil {
		body["variables"] = gp.Variables
	}
	httpBody, err := json.Marshal(map[string]interface{}{
		"method":     "POST",
		"path":       gp.Path,
		"headers":    gp.Headers,
		"body":       body,
		"timeout_ms": gp.TimeoutMs,
	})
	if err != nil {
		return plan.StepResult{}, core.Wrap(core.ErrSerializationError, err).WithStep(step.ID)
	}

	delegated := step
	delegated.Params = httpBody
	delegated.Action = plan.ActionHTTPRequest
	return e.http.Execute(ctx, delegated, vars)
}
