package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"utdlrunner/plan"
	"utdlrunner/runctx"
)

func newVars(baseURL string) *runctx.Context {
	c := runctx.New(nil)
	c.Set("base_url", baseURL)
	c.Set("execution_id", "exec-1")
	return c
}

func TestHTTPExecutorHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer srv.Close()

	vars := newVars(srv.URL)
	step := plan.Step{
		ID:     "get-user",
		Action: plan.ActionHTTPRequest,
		Params: rawJSON(map[string]interface{}{"method": "GET", "path": "/users/1"}),
		Assertions: []plan.Assertion{
			{Kind: plan.AssertStatusCode, Operator: plan.OpEq, Value: rawJSON(200)},
		},
		Extract: []plan.Extraction{
			{Source: plan.SourceBody, Path: "$.id", Target: "user_id"},
		},
	}

	exec := NewHTTPExecutor()
	res, err := exec.Execute(context.Background(), step, vars)
	require.NoError(t, err)
	require.Equal(t, plan.StatusPassed, res.Status)
	require.Equal(t, srv.URL+"/users/1", res.HTTPDetails.URL)

	v, ok := vars.Get("user_id")
	require.True(t, ok)
	require.Equal(t, float64(42), v)
}

func TestHTTPExecutorAssertionFailureSkipsExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	vars := newVars(srv.URL)
	step := plan.Step{
		ID:     "s1",
		Action: plan.ActionHTTPRequest,
		Params: rawJSON(map[string]interface{}{"method": "GET", "path": "/x"}),
		Assertions: []plan.Assertion{
			{Kind: plan.AssertStatusCode, Operator: plan.OpEq, Value: rawJSON(200)},
		},
		Extract: []plan.Extraction{
			{Source: plan.SourceBody, Path: "$.id", Target: "should_not_be_set"},
		},
	}

	exec := NewHTTPExecutor()
	res, err := exec.Execute(context.Background(), step, vars)
	require.NoError(t, err)
	require.Equal(t, plan.StatusFailed, res.Status)
	_, ok := vars.Get("should_not_be_set")
	require.False(t, ok)
}

func TestHTTPExecutorQueryParamsAndHeaders(t *testing.T) {
	var gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Trace")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	vars := newVars(srv.URL)
	vars.Set("global_headers", map[string]interface{}{"X-Trace": "abc"})
	step := plan.Step{
		ID:     "s1",
		Action: plan.ActionHTTPRequest,
		Params: rawJSON(map[string]interface{}{
			"method":       "GET",
			"path":         "/x",
			"query_params": map[string]interface{}{"q": "v"},
		}),
	}
	exec := NewHTTPExecutor()
	_, err := exec.Execute(context.Background(), step, vars)
	require.NoError(t, err)
	require.Equal(t, "q=v", gotQuery)
	require.Equal(t, "abc", gotHeader)
}

func TestHTTPExecutorNetworkErrorProducesFailedStatusZero(t *testing.T) {
	vars := newVars("http://127.0.0.1:1")
	step := plan.Step{
		ID:     "s1",
		Action: plan.ActionHTTPRequest,
		Params: rawJSON(map[string]interface{}{"method": "GET", "path": "/x", "timeout_ms": 100}),
	}
	exec := NewHTTPExecutor()
	res, err := exec.Execute(context.Background(), step, vars)
	require.NoError(t, err)
	require.Equal(t, plan.StatusFailed, res.Status)
	require.Equal(t, 0, res.HTTPDetails.StatusCode)
}

func rawJSON(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
