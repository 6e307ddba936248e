// Package runctx implements the shared variable store every step reads
// and writes through: the Context and its placeholder-interpolation
// grammar (spec §4.1). A single Context instance is shared across all
// concurrently-running steps behind a reader-writer lock; callers
// snapshot it for context_before/context_after rather than cloning it
// per task.
package runctx

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"utdlrunner/core"
)

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z0-9_.:\-]+)\}`)

// Context is the process-lifetime variable-name → JSON value mapping
// seeded from a plan's config.variables and augmented with base_url,
// execution_id, and global_headers.
type Context struct {
	mu     sync.RWMutex
	values map[string]interface{}
	logger core.Logger
}

// New builds an empty Context. Use Extend to seed it.
func New(logger core.Logger) *Context {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Context{values: make(map[string]interface{}), logger: logger}
}

// Set overwrites key's value, emitting a warning when it replaces a
// differing existing value (spec §4.1).
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.values[key]; ok && !valuesEqual(existing, value) {
		c.logger.Warn("context variable overwritten with a different value", map[string]interface{}{
			"key": key,
		})
	}
	c.values[key] = value
}

// Extend merges m into the Context; each key follows the same
// overwrite-warning rule as Set.
func (c *Context) Extend(m map[string]interface{}) {
	for k, v := range m {
		c.Set(k, v)
	}
}

// Get returns key's value and whether it was present.
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Snapshot returns a deep-copy-by-serialization view of the current
// Context, suitable for StepResult.context_before/context_after.
func (c *Context) Snapshot() map[string]json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(c.values))
	for k, v := range c.values {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		out[k] = json.RawMessage(b)
	}
	return out
}

// Keys returns the currently defined variable names, for error
// messages naming what IS available.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

// InterpolateString substitutes every ${TOKEN} placeholder in s.
func (c *Context) InterpolateString(s string) (string, error) {
	return c.interpolate(s, 0)
}

const maxInterpolationDepth = 8

func (c *Context) interpolate(s string, depth int) (string, error) {
	if depth > maxInterpolationDepth {
		return "", core.New(core.ErrInternalError, "interpolation nesting too deep").WithOp("interpolate")
	}
	var outErr error
	result := placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		if outErr != nil {
			return match
		}
		token := match[2 : len(match)-1]
		resolved, err := c.resolveToken(token, depth)
		if err != nil {
			outErr = err
			return match
		}
		return resolved
	})
	if outErr != nil {
		return "", outErr
	}
	return result, nil
}

func (c *Context) resolveToken(token string, depth int) (string, error) {
	if fn, ok := dynamicFunctions[token]; ok {
		return fn(), nil
	}

	if rest, ok := strings.CutPrefix(token, "env:"); ok {
		v, ok := os.LookupEnv(rest)
		if !ok {
			return "", core.New(core.ErrEnvVarNotFound, fmt.Sprintf("env var missing: %s", rest))
		}
		return v, nil
	}

	if rest, ok := strings.CutPrefix(token, "base64:"); ok {
		text, err := c.interpolate(rest, depth+1)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString([]byte(text)), nil
	}

	if rest, ok := strings.CutPrefix(token, "sha256:"); ok {
		text, err := c.interpolate(rest, depth+1)
		if err != nil {
			return "", err
		}
		sum := sha256.Sum256([]byte(text))
		return fmt.Sprintf("%x", sum), nil
	}

	// Legacy bare ENV_NAME lookup, kept for compatibility: tried before
	// the context map so an OS environment variable shadows a
	// same-named context variable (spec §4.1 resolution order, step 5
	// before step 6).
	if v, ok := os.LookupEnv(token); ok {
		return v, nil
	}
	if v, ok := c.Get(token); ok {
		return renderValue(v), nil
	}

	return "", core.New(core.ErrContextVarNotFound,
		fmt.Sprintf("unknown token %q; defined variables: %s", token, strings.Join(c.Keys(), ", ")))
}

// renderValue is the canonical JSON textual form used when a resolved
// context value is not itself a string (spec §4.1 resolution step 6).
func renderValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// InterpolateValue recurses through JSON-shaped values, interpolating
// only string leaves; object keys are never interpolated.
func (c *Context) InterpolateValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return c.InterpolateString(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			resolved, err := c.InterpolateValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			resolved, err := c.InterpolateValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

var dynamicFunctions = map[string]func() string{
	"random_uuid": func() string { return uuid.NewString() },
	"timestamp":   func() string { return strconv.FormatInt(time.Now().UTC().Unix(), 10) },
	"timestamp_ms": func() string {
		return strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	},
	"now":       func() string { return time.Now().UTC().Format(time.RFC3339) },
	"now_local": func() string { return time.Now().Format(time.RFC3339) },
	"random_int": func() string {
		return strconv.FormatUint(uint64(rand.Uint32()), 10)
	},
}

func valuesEqual(a, b interface{}) bool {
	ab, aerr := json.Marshal(a)
	bb, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(ab) == string(bb)
}
