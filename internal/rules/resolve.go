package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DiagnosticKind classifies a rule-loading problem.
type DiagnosticKind string

const (
	// DiagInvalidPattern marks a glob pattern that fails compilation.
	// The pattern is excluded from matching; the rule stays loaded.
	DiagInvalidPattern DiagnosticKind = "invalid_pattern"

	// DiagDeadRule marks a rule with no valid paths, no triggers, and
	// no always_inject flag. It can never match any context. Paths
	// that fail glob compilation do not count as valid.
	DiagDeadRule DiagnosticKind = "dead_rule"

	// DiagDuplicateName marks a rule name declared more than once.
	// The last declaration wins.
	DiagDuplicateName DiagnosticKind = "duplicate_name"

	// DiagUnknownCategory marks an unrecognized category string in a
	// rule document. The rule falls back to the project category.
	DiagUnknownCategory DiagnosticKind = "unknown_category"

	// DiagPriorityClamped marks a priority outside [0, 100] in a rule
	// document. The value is clamped into range.
	DiagPriorityClamped DiagnosticKind = "priority_clamped"
)

// Diagnostic reports a non-fatal problem found while loading rules.
type Diagnostic struct {
	Kind   DiagnosticKind
	Rule   string
	Detail string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: rule %q: %s", d.Kind, d.Rule, d.Detail)
}

// Context describes the situation a caller wants guidance for: the file
// being worked on and free-form task keywords. Either part may be empty.
type Context struct {
	// Path is a repo-relative file path, slash-separated.
	Path string

	// Triggers holds task keywords. Matching is case-insensitive.
	Triggers []string
}

// RuleSet is an immutable compiled snapshot of a rule collection.
// Build one with NewRuleSet; the zero value resolves nothing.
type RuleSet struct {
	rules    []*Rule
	patterns map[string][]string
	triggers map[string]map[string]bool
	byName   map[string]*Rule
	diags    []Diagnostic
}

// NewRuleSet compiles rules into a resolvable set.
//
// Compilation validates every glob pattern, drops invalid ones from
// matching, detects rules that can never match, and deduplicates rule
// names with last-declaration-wins semantics. All problems surface as
// Diagnostics; none abort the build.
func NewRuleSet(rules []*Rule) *RuleSet {
	s := &RuleSet{
		patterns: make(map[string][]string),
		triggers: make(map[string]map[string]bool),
		byName:   make(map[string]*Rule),
	}

	index := make(map[string]int)
	for _, r := range rules {
		if r == nil {
			continue
		}
		if at, dup := index[r.Name]; dup {
			s.diags = append(s.diags, Diagnostic{
				Kind:   DiagDuplicateName,
				Rule:   r.Name,
				Detail: "declared more than once; keeping the last declaration",
			})
			s.rules[at] = r
		} else {
			index[r.Name] = len(s.rules)
			s.rules = append(s.rules, r)
		}
	}

	for _, r := range s.rules {
		s.byName[r.Name] = r
		s.compile(r)
	}
	return s
}

func (s *RuleSet) compile(r *Rule) {
	valid := make([]string, 0, len(r.Paths))
	for _, p := range r.Paths {
		if !doublestar.ValidatePattern(p) {
			s.diags = append(s.diags, Diagnostic{
				Kind:   DiagInvalidPattern,
				Rule:   r.Name,
				Detail: fmt.Sprintf("glob %q does not compile", p),
			})
			continue
		}
		valid = append(valid, p)
	}
	s.patterns[r.Name] = valid

	if len(r.Triggers) > 0 {
		folded := make(map[string]bool, len(r.Triggers))
		for _, t := range r.Triggers {
			folded[strings.ToLower(t)] = true
		}
		s.triggers[r.Name] = folded
	}

	if !r.AlwaysInject && len(valid) == 0 && len(r.Triggers) == 0 {
		s.diags = append(s.diags, Diagnostic{
			Kind:   DiagDeadRule,
			Rule:   r.Name,
			Detail: "no valid paths, no triggers, not always injected; can never match",
		})
	}
}

// Len returns the number of distinct rules in the set.
func (s *RuleSet) Len() int { return len(s.rules) }

// Rules returns every rule in declaration order. Callers must not
// mutate the returned slice or its elements.
func (s *RuleSet) Rules() []*Rule { return s.rules }

// Find returns the rule with the given name, or nil.
func (s *RuleSet) Find(name string) *Rule { return s.byName[name] }

// Diagnostics returns the problems found during compilation.
func (s *RuleSet) Diagnostics() []Diagnostic { return s.diags }

// Resolve returns the rules applying to ctx, ordered by priority
// descending, then category default priority descending, then name
// ascending. The same context against the same set always yields the
// same list.
func (s *RuleSet) Resolve(ctx Context) []*Rule {
	folded := make(map[string]bool, len(ctx.Triggers))
	for _, t := range ctx.Triggers {
		folded[strings.ToLower(t)] = true
	}

	var matched []*Rule
	for _, r := range s.rules {
		if s.matches(r, ctx.Path, folded) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		ar, br := a.Category.DefaultPriority(), b.Category.DefaultPriority()
		if ar != br {
			return ar > br
		}
		return a.Name < b.Name
	})
	return matched
}

func (s *RuleSet) matches(r *Rule, path string, ctxTriggers map[string]bool) bool {
	if r.AlwaysInject {
		return true
	}
	if path != "" {
		for _, p := range s.patterns[r.Name] {
			if ok, _ := doublestar.Match(p, path); ok {
				return true
			}
		}
	}
	if len(ctxTriggers) > 0 {
		for t := range s.triggers[r.Name] {
			if ctxTriggers[t] {
				return true
			}
		}
	}
	return false
}
