package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"utdlrunner/assertion"
	"utdlrunner/core"
	"utdlrunner/extract"
	"utdlrunner/plan"
	"utdlrunner/runctx"
)

const defaultTimeoutMs = 30000

// HTTPExecutor handles the http_request action (spec §4.5.1).
type HTTPExecutor struct {
	client *http.Client
}

// NewHTTPExecutor builds an HTTPExecutor sharing one http.Client
// across every invocation, the way the teacher's WorkflowHTTPClient
// does for service calls.
func NewHTTPExecutor() *HTTPExecutor {
	return &HTTPExecutor{client: &http.Client{}}
}

func (e *HTTPExecutor) CanHandle(action string) bool {
	return action == plan.ActionHTTPRequest
}

type httpParams struct {
	Method      string                 `json:"method"`
	Path        string                 `json:"path"`
	Headers     map[string]string      `json:"headers,omitempty"`
	Body        interface{}            `json:"body,omitempty"`
	QueryParams map[string]interface{} `json:"query_params,omitempty"`
	TimeoutMs   *int                   `json:"timeout_ms,omitempty"`
}

func (e *HTTPExecutor) Execute(ctx context.Context, step plan.Step, vars *runctx.Context) (plan.StepResult, error) {
	var params httpParams
	if len(step.Params) > 0 {
		if err := json.Unmarshal(step.Params, &params); err != nil {
			return plan.StepResult{}, core.New(core.ErrMissingParam, "invalid http_request params: "+err.Error()).WithStep(step.ID)
		}
	}

	contextBefore := vars.Snapshot()

	reqURL, err := buildURL(vars, params)
	if err != nil {
		return plan.StepResult{}, withStep(err, step.ID)
	}

	headers, err := buildHeaders(vars, params.Headers)
	if err != nil {
		return plan.StepResult{}, withStep(err, step.ID)
	}

	var bodyReader io.Reader
	var rawBody []byte
	if params.Body != nil {
		interpolated, err := vars.InterpolateValue(params.Body)
		if err != nil {
			return plan.StepResult{}, withStep(err, step.ID)
		}
		rawBody, err = json.Marshal(interpolated)
		if err != nil {
			return plan.StepResult{}, core.Wrap(core.ErrSerializationError, err).WithStep(step.ID)
		}
		bodyReader = bytes.NewReader(rawBody)
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}

	timeout := effectiveTimeout(vars, params.TimeoutMs)
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := strings.ToUpper(params.Method)
	req, err := http.NewRequestWithContext(reqCtx, method, reqURL, bodyReader)
	if err != nil {
		return plan.StepResult{}, core.Wrap(core.ErrConnectionError, err).WithStep(step.ID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return plan.StepResult{
			StepID:        step.ID,
			Status:        plan.StatusFailed,
			DurationMs:    elapsed,
			Error:         err.Error(),
			ContextBefore: contextBefore,
			ContextAfter:  contextBefore,
			HTTPDetails: &plan.HTTPDetails{
				Method:         method,
				URL:            reqURL,
				StatusCode:     0,
				LatencyMs:      elapsed,
				RequestHeaders: headers,
			},
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	responseHeaders := flattenHeaders(resp.Header)

	var parsedBody interface{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &parsedBody); err != nil {
			parsedBody = nil
		}
	}

	httpResp := extract.Response{
		Body:       parsedBody,
		RawBody:    string(respBody),
		Headers:    responseHeaders,
		StatusCode: resp.StatusCode,
	}

	details := &plan.HTTPDetails{
		Method:          method,
		URL:             reqURL,
		StatusCode:      resp.StatusCode,
		LatencyMs:       elapsed,
		RequestHeaders:  headers,
		ResponseHeaders: responseHeaders,
	}

	assertRes := assertion.EvaluateAll(step.Assertions, httpResp, elapsed)
	if !assertRes.Passed {
		return plan.StepResult{
			StepID:        step.ID,
			Status:        plan.StatusFailed,
			DurationMs:    elapsed,
			Error:         assertRes.Message,
			ContextBefore: contextBefore,
			ContextAfter:  contextBefore,
			HTTPDetails:   details,
		}, nil
	}

	extractionResults, extractedValues := extract.Process(step.Extract, httpResp)
	var criticalErr string
	for i, rule := range step.Extract {
		if rule.Critical && !extractionResults[i].Success {
			criticalErr = fmt.Sprintf("critical extraction failed for target %q: %s", rule.Target, extractionResults[i].Error)
		}
	}
	vars.Extend(extractedValues)
	contextAfter := vars.Snapshot()

	status := plan.StatusPassed
	stepErr := ""
	if criticalErr != "" {
		status = plan.StatusFailed
		stepErr = criticalErr
	}

	return plan.StepResult{
		StepID:        step.ID,
		Status:        status,
		DurationMs:    elapsed,
		Error:         stepErr,
		ContextBefore: contextBefore,
		ContextAfter:  contextAfter,
		Extractions:   extractionResults,
		HTTPDetails:   details,
	}, nil
}

func buildURL(vars *runctx.Context, params httpParams) (string, error) {
	path, err := vars.InterpolateString(params.Path)
	if err != nil {
		return "", err
	}

	var base string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		base = path
	} else {
		baseURL, _ := vars.Get("base_url")
		baseStr, _ := baseURL.(string)
		base = strings.TrimSuffix(baseStr, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	if len(params.QueryParams) == 0 {
		return base, nil
	}

	q := make(url.Values, len(params.QueryParams))
	for k, v := range params.QueryParams {
		var sval string
		if s, ok := v.(string); ok {
			interpolated, err := vars.InterpolateString(s)
			if err != nil {
				return "", err
			}
			sval = interpolated
		} else {
			sval = fmt.Sprintf("%v", v)
		}
		q.Set(k, sval)
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode(), nil
}

// buildHeaders merges global_headers (applied first) with step headers
// (which override on conflict), interpolating every value exactly once
// (spec §4.5.1: "Apply global_headers first, then step headers").
func buildHeaders(vars *runctx.Context, stepHeaders map[string]string) (map[string]string, error) {
	merged := map[string]string{}

	if raw, ok := vars.Get("global_headers"); ok {
		switch gh := raw.(type) {
		case map[string]string:
			for k, v := range gh {
				merged[k] = v
			}
		case map[string]interface{}:
			for k, v := range gh {
				if s, ok := v.(string); ok {
					merged[k] = s
				}
			}
		}
	}
	for k, v := range stepHeaders {
		merged[k] = v
	}

	headers := make(map[string]string, len(merged))
	for k, v := range merged {
		interpolated, err := vars.InterpolateString(v)
		if err != nil {
			return nil, err
		}
		headers[k] = interpolated
	}
	return headers, nil
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// withStep attaches a step id to a RunnerError without disturbing
// other error types.
func withStep(err error, stepID string) error {
	if re, ok := err.(*core.RunnerError); ok {
		return re.WithStep(stepID)
	}
	return err
}

func effectiveTimeout(vars *runctx.Context, stepTimeoutMs *int) time.Duration {
	if stepTimeoutMs != nil {
		return time.Duration(*stepTimeoutMs) * time.Millisecond
	}
	if v, ok := vars.Get("timeout_ms"); ok {
		if f, ok := v.(float64); ok && f > 0 {
			return time.Duration(f) * time.Millisecond
		}
	}
	return defaultTimeoutMs * time.Millisecond
}
