// Package responses implements the custom-response override table:
// operator-registered responses that short-circuit normal CRUD handling
// when a request matches on method, path pattern, and body predicates.
package responses

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"
)

// Config is one custom response override.
type Config struct {
	Method string `json:"method"`
	Path   string `json:"path"`

	// Match holds ANDed body predicates. Plain keys compare the named
	// top-level field by string form; keys starting with "$" are JSONPath
	// expressions evaluated against the body.
	Match map[string]any `json:"match,omitempty"`

	// When is an optional expression over {method, path, body} that must
	// evaluate to true for the override to apply.
	When string `json:"when,omitempty"`

	Status  int               `json:"status"`
	Body    any               `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type configFile struct {
	Responses []Config `json:"responses"`
}

type entry struct {
	cfg   Config
	when  *vm.Program
	paths map[string]jp.Expr
}

// Provider resolves requests against registered overrides in registration
// order; the first satisfying entry wins, so operators order overrides by
// specificity.
type Provider struct {
	entries []*entry
}

// NewProvider creates an empty Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Count reports the number of registered overrides.
func (p *Provider) Count() int {
	return len(p.entries)
}

// Register appends an override. Compilation failures in JSONPath or when
// expressions are configuration errors and reported immediately.
func (p *Provider) Register(cfg Config) error {
	if cfg.Status == 0 {
		cfg.Status = 200
	}

	e := &entry{cfg: cfg}

	for key := range cfg.Match {
		if !strings.HasPrefix(key, "$") {
			continue
		}
		x, err := jp.ParseString(key)
		if err != nil {
			return fmt.Errorf("invalid JSONPath %q in custom response: %w", key, err)
		}
		if e.paths == nil {
			e.paths = make(map[string]jp.Expr)
		}
		e.paths[key] = x
	}

	if cfg.When != "" {
		program, err := expr.Compile(cfg.When, expr.AsBool())
		if err != nil {
			return fmt.Errorf("invalid when expression %q: %w", cfg.When, err)
		}
		e.when = program
	}

	p.entries = append(p.entries, e)
	return nil
}

// LoadFromFile reads a {responses: [...]} JSON file and registers each
// entry in file order.
func (p *Provider) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("custom responses file not found: %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse custom responses file %s: %w", path, err)
	}

	for _, cfg := range file.Responses {
		if err := p.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}

// FindMatch returns the first override matching the request, or nil.
// body may be nil when the request had no parsable JSON body; overrides
// with body predicates then never match.
func (p *Provider) FindMatch(method, path string, body map[string]any) *Config {
	for _, e := range p.entries {
		if e.matches(method, path, body) {
			return &e.cfg
		}
	}
	return nil
}

func (e *entry) matches(method, path string, body map[string]any) bool {
	if !strings.EqualFold(e.cfg.Method, method) {
		return false
	}
	if !matchPath(e.cfg.Path, path) {
		return false
	}

	if len(e.cfg.Match) > 0 {
		if body == nil {
			// A body predicate with nothing to test against fails closed.
			return false
		}
		if !e.matchesBody(body) {
			return false
		}
	}

	if e.when != nil {
		env := map[string]any{
			"method": strings.ToUpper(method),
			"path":   path,
			"body":   body,
		}
		if env["body"] == nil {
			env["body"] = map[string]any{}
		}
		result, err := expr.Run(e.when, env)
		if err != nil {
			return false
		}
		ok, isBool := result.(bool)
		if !isBool || !ok {
			return false
		}
	}

	return true
}

func (e *entry) matchesBody(body map[string]any) bool {
	for key, expected := range e.cfg.Match {
		if x, ok := e.paths[key]; ok {
			results := x.Get(body)
			if len(results) == 0 || !valuesEqual(expected, results[0]) {
				return false
			}
			continue
		}

		actual, ok := body[key]
		if !ok || !valuesEqual(expected, actual) {
			return false
		}
	}
	return true
}

// matchPath compares trailing-slash-normalized paths exactly, or as a
// prefix for trailing-wildcard patterns where the prefix boundary must be
// end-of-string or a slash.
func matchPath(pattern, path string) bool {
	pattern = normalizePath(pattern)
	path = normalizePath(path)

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if !strings.HasPrefix(strings.ToLower(path), strings.ToLower(prefix)) {
			return false
		}
		return len(path) == len(prefix) || path[len(prefix)] == '/'
	}

	return strings.EqualFold(pattern, path)
}

func normalizePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

// valuesEqual compares predicate and body values by their string forms,
// so 1 matches 1.0 stored as a number and "true" matches true.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return stringForm(a) == stringForm(b)
}

func stringForm(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
