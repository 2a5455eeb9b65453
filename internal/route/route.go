package route

import (
	"fmt"
	"sort"
	"strings"
)

// PatternKind discriminates how a site pattern matches request paths.
type PatternKind int

const (
	// KindExact matches exactly one path.
	KindExact PatternKind = iota
	// KindPrefix matches a path and everything mounted under it.
	KindPrefix
	// KindCatchAll matches any path not claimed by a more specific rule.
	KindCatchAll
)

// Pattern is a compiled site pattern. The kind ordering doubles as the
// match priority: Exact beats Prefix beats CatchAll.
type Pattern struct {
	Kind PatternKind
	Path string
}

// Exact returns a pattern matching only path.
func Exact(path string) Pattern {
	return Pattern{Kind: KindExact, Path: path}
}

// Prefix returns a pattern matching path and everything under it.
func Prefix(path string) Pattern {
	return Pattern{Kind: KindPrefix, Path: strings.TrimSuffix(path, "/")}
}

// CatchAll returns the pattern matching any path.
func CatchAll() Pattern {
	return Pattern{Kind: KindCatchAll}
}

// ParsePattern compiles a pattern string: "/*" is a catch-all, a trailing
// "/*" makes a prefix pattern, anything else matches exactly.
func ParsePattern(s string) (Pattern, error) {
	if s == "" {
		return Pattern{}, fmt.Errorf("pattern cannot be empty")
	}
	if !strings.HasPrefix(s, "/") {
		return Pattern{}, fmt.Errorf("pattern %q must start with '/'", s)
	}
	if s == "/*" {
		return CatchAll(), nil
	}
	if prefix, ok := strings.CutSuffix(s, "/*"); ok {
		if prefix == "" {
			return CatchAll(), nil
		}
		return Prefix(prefix), nil
	}
	return Exact(s), nil
}

// Matches reports whether the pattern claims the given request path.
// Prefix patterns only match on '/' boundaries: "/admin" claims "/admin"
// and "/admin/users" but not "/administrator".
func (p Pattern) Matches(path string) bool {
	switch p.Kind {
	case KindExact:
		return path == p.Path
	case KindPrefix:
		return path == p.Path || strings.HasPrefix(path, p.Path+"/")
	case KindCatchAll:
		return true
	}
	return false
}

// Strip removes the mount prefix from a request path so it can be looked
// up in a site's asset store. Only prefix patterns strip anything.
func (p Pattern) Strip(path string) string {
	if p.Kind != KindPrefix {
		return path
	}
	stripped := strings.TrimPrefix(path, p.Path)
	if !strings.HasPrefix(stripped, "/") {
		stripped = "/" + stripped
	}
	return stripped
}

func (p Pattern) String() string {
	switch p.Kind {
	case KindExact:
		return p.Path
	case KindPrefix:
		return p.Path + "/*"
	default:
		return "/*"
	}
}

// Rule is one mountable frontend site: a pattern plus the site's asset
// root and optional dev server wiring.
type Rule struct {
	Pattern      Pattern
	DevTarget    string
	DevCommand   []string
	WorkingDir   string
	FallbackFile string

	index int
}

// Index returns the rule's registration position, assigned by NewTable.
// Registration order is part of the resolution contract: it breaks ties
// between otherwise equal-priority rules.
func (r *Rule) Index() int {
	return r.index
}

// Table resolves request paths to the single best-matching rule.
// It is immutable after construction and safe for concurrent use.
type Table struct {
	rules []*Rule // sorted by priority, highest first
}

// NewTable validates the rules and builds a resolution table. Rules keep
// their registration order via Rule.Index; resolution priority is
// Exact > Prefix (longer pattern wins) > CatchAll, with registration
// order breaking any remaining ties.
func NewTable(rules []*Rule) (*Table, error) {
	seen := make(map[string]struct{}, len(rules))
	catchAlls := 0
	for i, r := range rules {
		r.index = i
		if r.Pattern.Kind != KindCatchAll && r.Pattern.Path == "" {
			return nil, fmt.Errorf("rule %d: pattern cannot be empty", i)
		}
		if r.Pattern.Kind != KindCatchAll && !strings.HasPrefix(r.Pattern.Path, "/") {
			return nil, fmt.Errorf("rule %d: pattern %q must start with '/'", i, r.Pattern)
		}
		if r.Pattern.Kind == KindCatchAll {
			catchAlls++
			if catchAlls > 1 {
				return nil, fmt.Errorf("rule %d: only one catch-all rule is permitted", i)
			}
		}
		key := r.Pattern.String()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("rule %d: duplicate pattern %q", i, key)
		}
		seen[key] = struct{}{}
	}

	sorted := make([]*Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(a, b int) bool {
		ra, rb := sorted[a], sorted[b]
		if ra.Pattern.Kind != rb.Pattern.Kind {
			return ra.Pattern.Kind < rb.Pattern.Kind
		}
		if ra.Pattern.Kind == KindPrefix && len(ra.Pattern.Path) != len(rb.Pattern.Path) {
			return len(ra.Pattern.Path) > len(rb.Pattern.Path)
		}
		return ra.index < rb.index
	})

	return &Table{rules: sorted}, nil
}

// Resolve returns the highest-priority rule matching path, or false when
// no rule (including a catch-all) claims it. A miss means the request is
// not this system's concern and should pass through to the host.
func (t *Table) Resolve(path string) (*Rule, bool) {
	for _, r := range t.rules {
		if r.Pattern.Matches(path) {
			return r, true
		}
	}
	return nil, false
}

// Len returns the number of registered rules.
func (t *Table) Len() int {
	return len(t.rules)
}
