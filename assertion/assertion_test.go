package assertion

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"utdlrunner/extract"
	"utdlrunner/plan"
)

func raw(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestEvaluateAllStatusCodeEq(t *testing.T) {
	resp := extract.Response{StatusCode: 200}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertStatusCode, Operator: plan.OpEq, Value: raw(200)}}, resp, 0)
	require.True(t, res.Passed)
}

func TestEvaluateAllStatusCodeFailureMessage(t *testing.T) {
	resp := extract.Response{StatusCode: 500}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertStatusCode, Operator: plan.OpEq, Value: raw(200)}}, resp, 0)
	require.False(t, res.Passed)
	require.Contains(t, res.Message, "status_code")
	require.Contains(t, res.Message, "200")
	require.Contains(t, res.Message, "500")
}

func TestEvaluateAllReturnsOnFirstFailure(t *testing.T) {
	resp := extract.Response{StatusCode: 200}
	res := EvaluateAll([]plan.Assertion{
		{Kind: plan.AssertStatusCode, Operator: plan.OpEq, Value: raw(500)},
		{Kind: plan.AssertStatusCode, Operator: plan.OpEq, Value: raw(200)},
	}, resp, 0)
	require.False(t, res.Passed)
	require.Contains(t, res.Message, "expected=500")
}

func TestStatusRangeAlias(t *testing.T) {
	resp := extract.Response{StatusCode: 204}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertStatusRange, Operator: plan.OpEq, Value: raw("2xx")}}, resp, 0)
	require.True(t, res.Passed)
}

func TestStatusRangeLiteral(t *testing.T) {
	resp := extract.Response{StatusCode: 418}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertStatusRange, Operator: plan.OpEq, Value: raw("400-499")}}, resp, 0)
	require.True(t, res.Passed)
}

func TestStatusRangeUnrecognizedIsFailureNotSilentPass(t *testing.T) {
	resp := extract.Response{StatusCode: 0}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertStatusRange, Operator: plan.OpEq, Value: raw("bogus")}}, resp, 0)
	require.False(t, res.Passed)
}

func TestJSONBodyExists(t *testing.T) {
	resp := extract.Response{Body: map[string]interface{}{"id": float64(1)}}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertJSONBody, Operator: plan.OpExists, Path: "$.id"}}, resp, 0)
	require.True(t, res.Passed)
}

func TestJSONBodyEqNumeric(t *testing.T) {
	resp := extract.Response{Body: map[string]interface{}{"count": float64(3)}}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertJSONBody, Operator: plan.OpEq, Path: "$.count", Value: raw(3)}}, resp, 0)
	require.True(t, res.Passed)
}

func TestJSONBodyContains(t *testing.T) {
	resp := extract.Response{Body: map[string]interface{}{"msg": "hello world"}}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertJSONBody, Operator: plan.OpContains, Path: "$.msg", Value: raw("world")}}, resp, 0)
	require.True(t, res.Passed)
}

func TestHeaderAssertionCaseInsensitive(t *testing.T) {
	resp := extract.Response{Headers: map[string]string{"Content-Type": "application/json"}}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertHeader, Operator: plan.OpEq, Path: "content-type", Value: raw("application/json")}}, resp, 0)
	require.True(t, res.Passed)
}

func TestLatencyAssertion(t *testing.T) {
	resp := extract.Response{}
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertLatency, Operator: plan.OpLt, Value: raw(500)}}, resp, 120)
	require.True(t, res.Passed)
}

func TestUnknownKindSkippedNonFatal(t *testing.T) {
	resp := extract.Response{StatusCode: 200}
	res := EvaluateAll([]plan.Assertion{{Kind: "bogus_kind", Operator: plan.OpEq, Value: raw(1)}}, resp, 0)
	require.True(t, res.Passed)
}

func TestJSONSchemaValid(t *testing.T) {
	resp := extract.Response{Body: map[string]interface{}{"id": float64(1), "name": "bob"}}
	schema := raw(map[string]interface{}{
		"type":     "object",
		"required": []string{"id", "name"},
	})
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertJSONSchema, Operator: plan.OpValid, Value: schema}}, resp, 0)
	require.True(t, res.Passed)
}

func TestJSONSchemaInvalid(t *testing.T) {
	resp := extract.Response{Body: map[string]interface{}{"name": "bob"}}
	schema := raw(map[string]interface{}{
		"type":     "object",
		"required": []string{"id", "name"},
	})
	res := EvaluateAll([]plan.Assertion{{Kind: plan.AssertJSONSchema, Operator: plan.OpValid, Value: schema}}, resp, 0)
	require.False(t, res.Passed)
}
