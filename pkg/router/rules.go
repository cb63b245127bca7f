// Package router implements the front door's fixed route table.
//
// The table is built once at startup from declarative configuration,
// validated for ambiguity at load time, and never changes afterwards.
// Every inbound path resolves to exactly one rule by longest-prefix
// match; a mandatory "/" catch-all guarantees totality.
package router

import (
	"fmt"
	"sort"
	"strings"
)

// TargetKind says where a matched request is dispatched.
type TargetKind int

const (
	// TargetStatic serves the request from the static asset root.
	TargetStatic TargetKind = iota

	// TargetUpstream forwards the request to the upstream pool.
	TargetUpstream
)

// String returns the kind name used in configuration and logs.
func (k TargetKind) String() string {
	switch k {
	case TargetStatic:
		return "static"
	case TargetUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// ParseTargetKind parses a configuration target name.
func ParseTargetKind(s string) (TargetKind, error) {
	switch s {
	case "static":
		return TargetStatic, nil
	case "upstream":
		return TargetUpstream, nil
	default:
		return 0, fmt.Errorf("unknown route target %q (want static or upstream)", s)
	}
}

// Rule maps a path prefix to a dispatch target. Rules are immutable once
// the table is built.
type Rule struct {
	// Prefix is the path prefix, always starting with "/".
	// "/" matches everything and acts as the catch-all.
	Prefix string

	// Kind is the dispatch target.
	Kind TargetKind

	// StripPrefix controls whether the matched prefix is removed from
	// the path before forwarding. Only meaningful for upstream targets.
	StripPrefix bool
}

// Table is an ordered, pre-validated rule list, longest prefix first.
type Table struct {
	rules []Rule
}

// NewTable validates and orders the given rules.
//
// Validation errors:
//   - empty rule list
//   - a prefix not starting with "/"
//   - two rules with the same prefix (ambiguous: a path matching both
//     would have no unique longest match)
//   - no "/" catch-all (some paths would match no rule)
func NewTable(rules []Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("route table: no rules configured")
	}

	seen := make(map[string]bool, len(rules))
	haveCatchAll := false
	for _, r := range rules {
		if !strings.HasPrefix(r.Prefix, "/") {
			return nil, fmt.Errorf("route table: prefix %q must start with /", r.Prefix)
		}
		if seen[r.Prefix] {
			return nil, fmt.Errorf("route table: duplicate prefix %q", r.Prefix)
		}
		seen[r.Prefix] = true
		if r.Prefix == "/" {
			haveCatchAll = true
		}
	}
	if !haveCatchAll {
		return nil, fmt.Errorf(`route table: missing "/" catch-all rule`)
	}

	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Prefix) > len(ordered[j].Prefix)
	})

	return &Table{rules: ordered}, nil
}

// Match returns the rule for the given request path. The catch-all
// guarantees a match for every path, so Match never fails on a table
// built by NewTable.
func (t *Table) Match(path string) Rule {
	for _, r := range t.rules {
		if matchesPrefix(path, r.Prefix) {
			return r
		}
	}
	// Unreachable for validated tables; return the catch-all anyway.
	return t.rules[len(t.rules)-1]
}

// Rules returns the ordered rules, longest prefix first.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// StripPath removes the rule's prefix from the path when the rule says
// so, keeping the result rooted at "/".
func StripPath(path string, r Rule) string {
	if !r.StripPrefix || r.Prefix == "/" {
		return path
	}
	stripped := strings.TrimPrefix(path, r.Prefix)
	if !strings.HasPrefix(stripped, "/") {
		stripped = "/" + stripped
	}
	return stripped
}

// matchesPrefix reports whether path falls under prefix at a path
// segment boundary: "/api" matches "/api" and "/api/status" but not
// "/apiculture".
func matchesPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
