package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"utdlrunner/plan"
	"utdlrunner/runctx"
)

func newTestContext() *runctx.Context {
	return runctx.New(nil)
}

func testConfig() plan.Config {
	return plan.Config{
		BaseURL:       "http://example.test",
		GlobalHeaders: map[string]string{"Authorization": "bearer xyz"},
		Variables:     map[string]json.RawMessage{"region": json.RawMessage(`"us-east-1"`)},
	}
}

func TestExecuteCmdHasExpectedMetadata(t *testing.T) {
	cmd := executeCmd()
	require.Equal(t, "execute", cmd.Use)
	require.NotEmpty(t, cmd.Short)
}

func TestSeedVarsSetsBaseURLAndHeaders(t *testing.T) {
	vars := newTestContext()
	seedVars(vars, testConfig())

	v, _ := vars.Get("base_url")
	require.Equal(t, "http://example.test", v)

	gh, ok := vars.Get("global_headers")
	require.True(t, ok)
	require.Equal(t, "bearer xyz", gh.(map[string]string)["Authorization"])

	region, ok := vars.Get("region")
	require.True(t, ok)
	require.Equal(t, "us-east-1", region)
}

func TestRunExecuteEndToEndWritesPassingReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.json")
	outPath := filepath.Join(dir, "report.json")

	planJSON := `{
		"spec_version": "0.1",
		"meta": {"id": "p1", "name": "smoke", "created_at": "2026-01-01T00:00:00Z"},
		"config": {"base_url": "` + srv.URL + `"},
		"steps": [
			{"id": "ping", "action": "http_request", "params": {"method": "GET", "path": "/"},
			 "assertions": [{"kind": "status_code", "operator": "eq", "value": 200}]}
		]
	}`
	require.NoError(t, os.WriteFile(planPath, []byte(planJSON), 0o644))

	cmd := executeCmd()
	cmd.SetArgs([]string{"--file", planPath, "--output", outPath, "--silent"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &report))
	require.Equal(t, "passed", report["status"])
}

func TestRunExecuteFailsValidationExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(planPath, []byte(`{"spec_version":"0.1","steps":[]}`), 0o644))

	cmd := executeCmd()
	cmd.SetArgs([]string{"--file", planPath, "--silent"})
	err := cmd.Execute()
	require.Error(t, err)
}
