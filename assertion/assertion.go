// Package assertion implements the assertion engine (spec §4.3): a
// per-kind operator table evaluated in declared order against a
// step's HTTP response, returning on the first failure.
package assertion

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"utdlrunner/core"
	"utdlrunner/extract"
	"utdlrunner/plan"
)

// Result is the outcome of evaluating one Assertion against a response.
type Result struct {
	Passed  bool
	Message string
}

// EvaluateAll runs assertions in declared order against resp and
// duration. It returns on the first failure; an empty-message Result
// means every assertion (or every recognized one) passed.
func EvaluateAll(assertions []plan.Assertion, resp extract.Response, durationMs int64) Result {
	for _, a := range assertions {
		res, recognized := evaluateOne(a, resp, durationMs)
		if !recognized {
			continue
		}
		if !res.Passed {
			return res
		}
	}
	return Result{Passed: true}
}

func evaluateOne(a plan.Assertion, resp extract.Response, durationMs int64) (Result, bool) {
	switch a.Kind {
	case plan.AssertStatusCode:
		return evalStatusCode(a, resp.StatusCode), true
	case plan.AssertStatusRange:
		return evalStatusRange(a, resp.StatusCode), true
	case plan.AssertJSONBody:
		return evalJSONBody(a, resp.Body), true
	case plan.AssertHeader:
		return evalHeader(a, resp.Headers), true
	case plan.AssertLatency:
		return evalLatency(a, durationMs), true
	case plan.AssertJSONSchema:
		return evalJSONSchema(a, resp.Body), true
	default:
		return Result{}, false
	}
}

func fail(a plan.Assertion, expected, observed interface{}) Result {
	msg := fmt.Sprintf("assertion failed: kind=%s operator=%s expected=%v observed=%v", a.Kind, a.Operator, expected, observed)
	if a.Path != "" {
		msg += fmt.Sprintf(" path=%s", a.Path)
	}
	return Result{Passed: false, Message: msg}
}

func pass() Result { return Result{Passed: true} }

func decodeValue(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func evalStatusCode(a plan.Assertion, status int) Result {
	expected, ok := decodeValue(a.Value).(float64)
	if !ok {
		return fail(a, a.Value, status)
	}
	observed := float64(status)
	if compareNumeric(a.Operator, observed, expected) {
		return pass()
	}
	return fail(a, expected, observed)
}

func compareNumeric(op string, observed, expected float64) bool {
	switch op {
	case plan.OpEq:
		return observed == expected
	case plan.OpNeq:
		return observed != expected
	case plan.OpLt:
		return observed < expected
	case plan.OpGt:
		return observed > expected
	case plan.OpLte:
		return observed <= expected
	case plan.OpGte:
		return observed >= expected
	default:
		return false
	}
}

var statusRangeAliases = map[string][2]int{
	"1xx":           {100, 199},
	"2xx":           {200, 299},
	"3xx":           {300, 399},
	"4xx":           {400, 499},
	"5xx":           {500, 599},
	"success":       {200, 299},
	"redirect":      {300, 399},
	"client_error":  {400, 499},
	"server_error":  {500, 599},
}

func parseStatusRange(raw interface{}) (int, int, bool) {
	s, ok := raw.(string)
	if !ok {
		return 0, 0, false
	}
	if r, ok := statusRangeAliases[strings.ToLower(s)]; ok {
		return r[0], r[1], true
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func evalStatusRange(a plan.Assertion, status int) Result {
	lo, hi, ok := parseStatusRange(decodeValue(a.Value))
	if !ok {
		// An unrecognized range value is a hard assertion failure,
		// not a silently-passing (0,0) membership check.
		return fail(a, a.Value, status)
	}
	inRange := status >= lo && status <= hi
	switch a.Operator {
	case plan.OpEq, plan.OpIn:
		if inRange {
			return pass()
		}
	case plan.OpNeq, plan.OpNotIn:
		if !inRange {
			return pass()
		}
	}
	return fail(a, a.Value, status)
}

func evalJSONBody(a plan.Assertion, body interface{}) Result {
	matches, found := extract.ResolveJSONPath(body, a.Path)

	switch a.Operator {
	case plan.OpExists:
		if found {
			return pass()
		}
		return fail(a, "exists", "missing")
	case plan.OpNotExists:
		if !found {
			return pass()
		}
		return fail(a, "not_exists", "present")
	}

	if !found {
		return Result{Passed: false, Message: fmt.Sprintf(
			"assertion failed: kind=json_body operator=%s path not found: %s", a.Operator, a.Path)}
	}
	observed := matches

	expected := decodeValue(a.Value)
	switch a.Operator {
	case plan.OpEq:
		if jsonEqual(observed, expected) {
			return pass()
		}
	case plan.OpNeq:
		if !jsonEqual(observed, expected) {
			return pass()
		}
	case plan.OpContains:
		os, ok1 := observed.(string)
		es, ok2 := expected.(string)
		if ok1 && ok2 && strings.Contains(os, es) {
			return pass()
		}
	case plan.OpMatchesRegex, "regex":
		os, ok := observed.(string)
		pattern, ok2 := expected.(string)
		if ok && ok2 {
			re, err := regexp.Compile(pattern)
			if err == nil && re.MatchString(os) {
				return pass()
			}
		}
	case plan.OpGt, plan.OpLt, plan.OpLte, "le", plan.OpGte, "ge":
		of, ok1 := coerceNumber(observed)
		ef, ok2 := coerceNumber(expected)
		if ok1 && ok2 && compareNumeric(normalizeNumOp(a.Operator), of, ef) {
			return pass()
		}
	}
	return fail(a, expected, observed)
}

func normalizeNumOp(op string) string {
	switch op {
	case "le":
		return plan.OpLte
	case "ge":
		return plan.OpGte
	default:
		return op
	}
}

func coerceNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func jsonEqual(a, b interface{}) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(ab) == string(bb)
}

func evalHeader(a plan.Assertion, headers map[string]string) Result {
	var value string
	var found bool
	for k, v := range headers {
		if strings.EqualFold(k, a.Path) {
			value, found = v, true
			break
		}
	}
	switch a.Operator {
	case plan.OpExists:
		if found {
			return pass()
		}
		return fail(a, "exists", "missing")
	case plan.OpNotExists:
		if !found {
			return pass()
		}
		return fail(a, "not_exists", "present")
	}
	if !found {
		return fail(a, a.Value, "missing")
	}
	expected, _ := decodeValue(a.Value).(string)
	switch a.Operator {
	case plan.OpEq:
		if value == expected {
			return pass()
		}
	case plan.OpNeq:
		if value != expected {
			return pass()
		}
	case plan.OpContains:
		if strings.Contains(value, expected) {
			return pass()
		}
	}
	return fail(a, expected, value)
}

func evalLatency(a plan.Assertion, durationMs int64) Result {
	expected, ok := decodeValue(a.Value).(float64)
	if !ok {
		return fail(a, a.Value, durationMs)
	}
	observed := float64(durationMs)
	if compareNumeric(a.Operator, observed, expected) {
		return pass()
	}
	return fail(a, expected, observed)
}

func evalJSONSchema(a plan.Assertion, body interface{}) Result {
	target := body
	if a.Path != "" {
		sub, found := extract.ResolveJSONPath(body, a.Path)
		if !found {
			return Result{Passed: false, Message: fmt.Sprintf(
				"assertion failed: kind=json_schema path not found: %s", a.Path)}
		}
		target = sub
	}

	schemaLoader := gojsonschema.NewBytesLoader(a.Value)
	docBytes, err := json.Marshal(target)
	if err != nil {
		return Result{Passed: false, Message: fmt.Sprintf(
			"assertion failed: kind=json_schema cannot marshal document: %v", err)}
	}
	documentLoader := gojsonschema.NewBytesLoader(docBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return Result{Passed: false, Message: fmt.Sprintf(
			"assertion failed: kind=json_schema uncompilable schema: %v", err)}
	}

	conforms := result.Valid()
	switch a.Operator {
	case plan.OpValid, "conforms", plan.OpEq:
		if conforms {
			return pass()
		}
	case plan.OpInvalid, "not_conforms", plan.OpNeq:
		if !conforms {
			return pass()
		}
	}

	var detail strings.Builder
	for i, e := range result.Errors() {
		if i > 0 {
			detail.WriteString("; ")
		}
		detail.WriteString(e.String())
	}
	return Result{Passed: false, Message: fmt.Sprintf(
		"assertion failed: kind=json_schema operator=%s schema errors: %s", a.Operator, detail.String())}
}

// CodeForKind maps an assertion kind to its taxonomy code, for callers
// that need to tag a Result with a structured error.
func CodeForKind(kind string) core.Code {
	switch kind {
	case plan.AssertStatusCode:
		return core.ErrAssertionStatusCode
	case plan.AssertJSONBody:
		return core.ErrAssertionJSONBody
	case plan.AssertHeader:
		return core.ErrAssertionHeader
	case plan.AssertLatency:
		return core.ErrAssertionLatency
	default:
		return core.ErrAssertionStatusCode
	}
}
