package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"utdlrunner/plan"
)

func TestProcessBodyJSONPath(t *testing.T) {
	resp := Response{Body: map[string]interface{}{"id": float64(42)}}
	results, values := Process([]plan.Extraction{{Source: plan.SourceBody, Path: "$.id", Target: "user_id"}}, resp)
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	require.Equal(t, float64(42), values["user_id"])
}

func TestProcessBodyNestedArrayIndex(t *testing.T) {
	resp := Response{Body: map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"name": "alice"},
			map[string]interface{}{"name": "bob"},
		},
	}}
	results, values := Process([]plan.Extraction{{Source: plan.SourceBody, Path: "users[1].name", Target: "n"}}, resp)
	require.True(t, results[0].Success)
	require.Equal(t, "bob", values["n"])
}

func TestProcessBodyWildcard(t *testing.T) {
	resp := Response{Body: map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"name": "alice"},
			map[string]interface{}{"name": "bob"},
		},
	}}
	results, values := Process([]plan.Extraction{{Source: plan.SourceBody, Path: "users[*].name", Target: "names"}}, resp)
	require.True(t, results[0].Success)
	require.Equal(t, []interface{}{"alice", "bob"}, values["names"])
}

func TestProcessBodyPathNotFound(t *testing.T) {
	resp := Response{Body: map[string]interface{}{"id": float64(1)}}
	results, _ := Process([]plan.Extraction{{Source: plan.SourceBody, Path: "$.missing", Target: "x"}}, resp)
	require.False(t, results[0].Success)
	require.Contains(t, results[0].Error, "path not found")
}

func TestProcessHeaderCaseInsensitive(t *testing.T) {
	resp := Response{Headers: map[string]string{"Content-Type": "application/json"}}
	results, values := Process([]plan.Extraction{{Source: plan.SourceHeader, Path: "content-type", Target: "ct"}}, resp)
	require.True(t, results[0].Success)
	require.Equal(t, "application/json", values["ct"])
}

func TestProcessStatusCode(t *testing.T) {
	resp := Response{StatusCode: 201}
	results, values := Process([]plan.Extraction{{Source: plan.SourceStatusCode, Target: "sc"}}, resp)
	require.True(t, results[0].Success)
	require.Equal(t, float64(201), values["sc"])
}

func TestProcessRegexSingleCapture(t *testing.T) {
	resp := Response{RawBody: `token=abc123;`}
	results, values := Process([]plan.Extraction{{Source: plan.SourceBody, Path: `regex:token=(\w+);`, Target: "tok"}}, resp)
	require.True(t, results[0].Success)
	require.Equal(t, "abc123", values["tok"])
}

func TestProcessRegexAllValuesNoCaptureUsesFullMatch(t *testing.T) {
	resp := Response{RawBody: `a1 a2 a3`}
	results, values := Process([]plan.Extraction{{Source: plan.SourceBody, Path: `regex:a\d`, Target: "all", AllValues: true}}, resp)
	require.True(t, results[0].Success)
	require.Equal(t, []interface{}{"a1", "a2", "a3"}, values["all"])
}

func TestProcessRegexNoMatch(t *testing.T) {
	resp := Response{RawBody: `nothing here`}
	results, _ := Process([]plan.Extraction{{Source: plan.SourceBody, Path: `regex:token=(\w+)`, Target: "tok"}}, resp)
	require.False(t, results[0].Success)
	require.Contains(t, results[0].Error, "E3008")
}

func TestProcessUnknownSource(t *testing.T) {
	resp := Response{}
	results, _ := Process([]plan.Extraction{{Source: "bogus", Target: "x"}}, resp)
	require.False(t, results[0].Success)
	require.Contains(t, results[0].Error, "E3009")
}
