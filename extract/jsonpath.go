package extract

import (
	"strconv"
	"strings"
)

// pathSegment is one hop of a JSONPath-lite expression: a field name,
// a numeric index, or the wildcard index.
type pathSegment struct {
	field      string
	index      int
	isIndex    bool
	isWildcard bool
}

// parsePath splits a JSONPath-lite expression into segments. The
// optional "$." prefix is stripped; bracketed indices are split out
// of the field segment they trail (spec §4.2.1: "users[0].name" →
// {users, [0], name}).
func parsePath(path string) []pathSegment {
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return nil
	}
	var segments []pathSegment
	for _, dotPart := range strings.Split(path, ".") {
		if dotPart == "" {
			continue
		}
		segments = append(segments, splitBrackets(dotPart)...)
	}
	return segments
}

// splitBrackets turns "users[0][*]" into [{field:"users"}, {index:0},
// {wildcard}].
func splitBrackets(part string) []pathSegment {
	var segments []pathSegment
	for len(part) > 0 {
		open := strings.IndexByte(part, '[')
		if open == -1 {
			segments = append(segments, pathSegment{field: part})
			return segments
		}
		if open > 0 {
			segments = append(segments, pathSegment{field: part[:open]})
		}
		close := strings.IndexByte(part[open:], ']')
		if close == -1 {
			segments = append(segments, pathSegment{field: part})
			return segments
		}
		close += open
		inner := part[open+1 : close]
		if inner == "*" {
			segments = append(segments, pathSegment{isWildcard: true})
		} else if n, err := strconv.Atoi(inner); err == nil {
			segments = append(segments, pathSegment{index: n, isIndex: true})
		}
		part = part[close+1:]
	}
	return segments
}

// resolvePath walks doc through segments. A wildcard segment yields
// all elements of the array at that position; the function returns
// them flattened across any remaining segments.
func resolvePath(doc interface{}, segments []pathSegment) ([]interface{}, bool) {
	if len(segments) == 0 {
		return []interface{}{doc}, true
	}
	seg := segments[0]
	rest := segments[1:]

	switch {
	case seg.isWildcard:
		arr, ok := doc.([]interface{})
		if !ok {
			return nil, false
		}
		var out []interface{}
		for _, item := range arr {
			vals, ok := resolvePath(item, rest)
			if ok {
				out = append(out, vals...)
			}
		}
		return out, len(out) > 0 || len(arr) == 0

	case seg.isIndex:
		arr, ok := doc.([]interface{})
		if !ok || seg.index < 0 || seg.index >= len(arr) {
			return nil, false
		}
		return resolvePath(arr[seg.index], rest)

	default:
		obj, ok := doc.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := obj[seg.field]
		if !ok {
			return nil, false
		}
		return resolvePath(v, rest)
	}
}

// hasWildcard reports whether path contains a [*] segment.
func hasWildcard(segments []pathSegment) bool {
	for _, s := range segments {
		if s.isWildcard {
			return true
		}
	}
	return false
}

// ResolveJSONPath resolves a JSONPath-lite expression against doc,
// exported for the assertion engine's json_body/json_schema path
// resolution so both packages share one grammar implementation.
func ResolveJSONPath(doc interface{}, path string) (interface{}, bool) {
	segments := parsePath(path)
	matches, ok := resolvePath(doc, segments)
	if !ok || len(matches) == 0 {
		return nil, false
	}
	if hasWildcard(segments) {
		return matches, true
	}
	return matches[0], true
}
