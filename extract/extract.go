// Package extract implements the Extractor (spec §4.2): pulling values
// out of an HTTP response (body via JSONPath-lite or regex, headers,
// or the status code) into the shared variable context.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"utdlrunner/core"
	"utdlrunner/plan"
)

// Response is the minimal view of an HTTP response the Extractor
// (and the assertion engine) need.
type Response struct {
	Body       interface{} // parsed JSON, or nil
	RawBody    string      // stringified body, for regex extraction
	Headers    map[string]string
	StatusCode int
}

// Process runs every extraction rule against resp, returning one
// ExtractionResult per rule plus the map of values successfully
// extracted (target → value), ready to be merged into the Context.
func Process(rules []plan.Extraction, resp Response) ([]plan.ExtractionResult, map[string]interface{}) {
	results := make([]plan.ExtractionResult, 0, len(rules))
	values := make(map[string]interface{})

	for _, rule := range rules {
		v, err := extractOne(rule, resp)
		if err != nil {
			results = append(results, plan.ExtractionResult{
				Target:  rule.Target,
				Success: false,
				Error:   err.Error(),
			})
			continue
		}
		b, merr := json.Marshal(v)
		if merr != nil {
			results = append(results, plan.ExtractionResult{
				Target:  rule.Target,
				Success: false,
				Error:   merr.Error(),
			})
			continue
		}
		results = append(results, plan.ExtractionResult{
			Target:  rule.Target,
			Success: true,
			Value:   json.RawMessage(b),
		})
		values[rule.Target] = v
	}
	return results, values
}

func extractOne(rule plan.Extraction, resp Response) (interface{}, error) {
	switch rule.Source {
	case plan.SourceBody, "":
		return extractFromBody(rule, resp)
	case plan.SourceHeader:
		return extractFromHeader(rule, resp)
	case plan.SourceStatusCode, "status", "statuscode":
		return float64(resp.StatusCode), nil
	default:
		return nil, core.New(core.ErrExtractionInvalidSource,
			fmt.Sprintf("unknown extraction source: %s", rule.Source))
	}
}

func extractFromBody(rule plan.Extraction, resp Response) (interface{}, error) {
	if strings.HasPrefix(rule.Path, "regex:") {
		return extractRegex(rule, resp.RawBody)
	}
	segments := parsePath(rule.Path)
	matches, ok := resolvePath(resp.Body, segments)
	if !ok || len(matches) == 0 {
		return nil, core.New(core.ErrExtractionPathNotFound,
			fmt.Sprintf("path not found: %s", rule.Path))
	}
	if rule.AllValues || hasWildcard(segments) {
		return matches, nil
	}
	return matches[0], nil
}

func extractRegex(rule plan.Extraction, body string) (interface{}, error) {
	pattern := strings.TrimPrefix(rule.Path, "regex:")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, core.New(core.ErrExtractionInvalidRegex,
			fmt.Sprintf("invalid regex %q: %v", pattern, err))
	}

	if rule.AllValues {
		all := re.FindAllStringSubmatch(body, -1)
		if len(all) == 0 {
			return nil, core.New(core.ErrExtractionRegexNoMatch,
				fmt.Sprintf("no match for regex %q", pattern))
		}
		out := make([]interface{}, 0, len(all))
		for _, m := range all {
			out = append(out, captureOrFull(m))
		}
		return out, nil
	}

	m := re.FindStringSubmatch(body)
	if m == nil {
		return nil, core.New(core.ErrExtractionRegexNoMatch,
			fmt.Sprintf("no match for regex %q", pattern))
	}
	return captureOrFull(m), nil
}

// captureOrFull returns the first capture group when present, else
// the full match (spec §9 open question: treated as intentional).
func captureOrFull(m []string) string {
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}

func extractFromHeader(rule plan.Extraction, resp Response) (interface{}, error) {
	for k, v := range resp.Headers {
		if strings.EqualFold(k, rule.Path) {
			return v, nil
		}
	}
	return nil, core.New(core.ErrExtractionHeaderNotFound,
		fmt.Sprintf("header not found: %s", rule.Path))
}
