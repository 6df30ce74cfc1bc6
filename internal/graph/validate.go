package graph

import (
	"fmt"
	"sort"
	"strings"
)

// IntegrityError aggregates every referential-integrity violation found
// in one validation pass, so a caller sees the complete problem set at
// once instead of fixing and re-running one failure at a time.
//
// Individual violations are inspected with errors.As against the
// concrete violation types below.
type IntegrityError struct {
	Violations []error
}

func (e *IntegrityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph integrity: %d violation(s)", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.Error())
	}
	return b.String()
}

// Unwrap exposes the individual violations to errors.Is and errors.As.
func (e *IntegrityError) Unwrap() []error {
	return e.Violations
}

// DanglingModuleReference reports an entity referring to a module id
// that does not exist in the map.
type DanglingModuleReference struct {
	// From locates the referrer, e.g. `module auth` or `edge auth->ghost`.
	From      string
	MissingID string
}

func (e *DanglingModuleReference) Error() string {
	return fmt.Sprintf("%s references missing module %q", e.From, e.MissingID)
}

// DanglingGroupReference reports an entity referring to a group id that
// does not exist in the map.
type DanglingGroupReference struct {
	From      string
	MissingID string
}

func (e *DanglingGroupReference) Error() string {
	return fmt.Sprintf("%s references missing group %q", e.From, e.MissingID)
}

// DanglingDomainReference reports an entity referring to a domain id
// that does not exist in the map.
type DanglingDomainReference struct {
	From      string
	MissingID string
}

func (e *DanglingDomainReference) Error() string {
	return fmt.Sprintf("%s references missing domain %q", e.From, e.MissingID)
}

// DuplicateModuleID reports a module id declared more than once.
type DuplicateModuleID struct {
	ID string
}

func (e *DuplicateModuleID) Error() string {
	return fmt.Sprintf("module id %q declared more than once", e.ID)
}

// CyclicGroupNesting reports a parent-group chain that loops back on
// itself. Chain holds the group ids in cycle order.
type CyclicGroupNesting struct {
	Chain []string
}

func (e *CyclicGroupNesting) Error() string {
	return "cyclic group nesting: " + renderCycle(e.Chain)
}

// GroupDepthMismatch reports a group whose recorded depth disagrees with
// its position in the nesting tree. Root groups must record depth 0 and
// a child exactly its parent's depth plus one.
type GroupDepthMismatch struct {
	GroupID     string
	Depth       int
	ParentID    string
	ParentDepth int
}

func (e *GroupDepthMismatch) Error() string {
	if e.ParentID == "" {
		return fmt.Sprintf("group %q records depth %d but has no parent", e.GroupID, e.Depth)
	}
	return fmt.Sprintf("group %q records depth %d but parent %q sits at depth %d",
		e.GroupID, e.Depth, e.ParentID, e.ParentDepth)
}

// DependencyCycle reports a cycle among runtime dependency edges. Chain
// holds the module ids in cycle order.
type DependencyCycle struct {
	Chain []string
}

func (e *DependencyCycle) Error() string {
	return "runtime dependency cycle: " + renderCycle(e.Chain)
}

// Validate traverses every module, group, domain, and dependency edge
// and checks all referential-integrity rules in a single pass. It
// returns nil on a clean map, or an *IntegrityError carrying every
// violation found. A map that fails validation must not be used for
// resolution.
//
// Checked rules: module ids are unique; module dependencies, group
// members, group leaders, edge endpoints, and layer members reference
// existing modules; group parents and domain members reference existing
// groups; group domain tags reference existing domains; recorded group
// depths match the nesting tree (root = 0, child = parent + 1); parent
// chains are acyclic; runtime dependency edges form no cycle. Non-runtime
// edges (build, test, optional) do not participate in the acyclicity
// requirement.
func (m *ModuleMap) Validate() error {
	var violations []error
	add := func(v error) { violations = append(violations, v) }

	modules := make(map[string]bool, len(m.Modules))
	for i := range m.Modules {
		id := m.Modules[i].ID
		if modules[id] {
			add(&DuplicateModuleID{ID: id})
			continue
		}
		modules[id] = true
	}
	groups := make(map[string]*ModuleGroup, len(m.Groups))
	for i := range m.Groups {
		groups[m.Groups[i].ID] = &m.Groups[i]
	}
	domains := make(map[string]bool, len(m.Domains))
	for i := range m.Domains {
		domains[m.Domains[i].ID] = true
	}

	for i := range m.Modules {
		mod := &m.Modules[i]
		from := fmt.Sprintf("module %s", mod.ID)
		for _, dep := range mod.Dependencies {
			if !modules[dep.ModuleID] {
				add(&DanglingModuleReference{From: from, MissingID: dep.ModuleID})
			}
		}
	}

	for i := range m.Groups {
		g := &m.Groups[i]
		from := fmt.Sprintf("group %s", g.ID)
		for _, id := range g.ModuleIDs {
			if !modules[id] {
				add(&DanglingModuleReference{From: from, MissingID: id})
			}
		}
		if g.LeaderModule != "" && !modules[g.LeaderModule] {
			add(&DanglingModuleReference{From: from, MissingID: g.LeaderModule})
		}
		if g.DomainID != "" && !domains[g.DomainID] {
			add(&DanglingDomainReference{From: from, MissingID: g.DomainID})
		}
		switch {
		case g.ParentGroupID == "":
			if g.Depth != 0 {
				add(&GroupDepthMismatch{GroupID: g.ID, Depth: g.Depth})
			}
		default:
			parent, ok := groups[g.ParentGroupID]
			if !ok {
				add(&DanglingGroupReference{From: from, MissingID: g.ParentGroupID})
			} else if g.Depth != parent.Depth+1 {
				add(&GroupDepthMismatch{
					GroupID:     g.ID,
					Depth:       g.Depth,
					ParentID:    parent.ID,
					ParentDepth: parent.Depth,
				})
			}
		}
	}

	for i := range m.Domains {
		d := &m.Domains[i]
		from := fmt.Sprintf("domain %s", d.ID)
		for _, id := range d.GroupIDs {
			if _, ok := groups[id]; !ok {
				add(&DanglingGroupReference{From: from, MissingID: id})
			}
		}
	}

	if m.DependencyGraph != nil {
		for _, e := range m.DependencyGraph.Edges {
			from := fmt.Sprintf("edge %s->%s", e.From, e.To)
			if !modules[e.From] {
				add(&DanglingModuleReference{From: from, MissingID: e.From})
			}
			if !modules[e.To] {
				add(&DanglingModuleReference{From: from, MissingID: e.To})
			}
		}
		for _, l := range m.DependencyGraph.Layers {
			from := fmt.Sprintf("layer %s", l.Name)
			for _, id := range l.Modules {
				if !modules[id] {
					add(&DanglingModuleReference{From: from, MissingID: id})
				}
			}
		}
	}

	for _, chain := range m.groupNestingCycles(groups) {
		add(&CyclicGroupNesting{Chain: chain})
	}
	for _, chain := range m.runtimeDependencyCycles(modules) {
		add(&DependencyCycle{Chain: chain})
	}

	if len(violations) == 0 {
		return nil
	}
	return &IntegrityError{Violations: violations}
}

// groupNestingCycles follows every parent chain. A chain must terminate
// within |groups| steps; revisiting an id already on the chain is a
// cycle. Cycles are deduplicated by their canonical rotation.
func (m *ModuleMap) groupNestingCycles(groups map[string]*ModuleGroup) [][]string {
	var cycles [][]string
	reported := map[string]bool{}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, start := range ids {
		onChain := map[string]int{}
		chain := []string{}
		id := start
		for steps := 0; steps <= len(groups); steps++ {
			g, ok := groups[id]
			if !ok || g.ParentGroupID == "" {
				break
			}
			if pos, seen := onChain[id]; seen {
				cycle := canonicalCycle(chain[pos:])
				key := strings.Join(cycle, "\x00")
				if !reported[key] {
					reported[key] = true
					cycles = append(cycles, cycle)
				}
				break
			}
			onChain[id] = len(chain)
			chain = append(chain, id)
			id = g.ParentGroupID
		}
	}
	return cycles
}

// runtimeDependencyCycles runs a depth-first search over runtime-typed
// edges only, taking the union of per-module dependency lists and the
// dependency graph's edge set. Back edges yield the full cycle chain for
// diagnostics.
func (m *ModuleMap) runtimeDependencyCycles(modules map[string]bool) [][]string {
	adj := map[string][]string{}
	seenEdge := map[string]bool{}
	addEdge := func(from, to string) {
		if !modules[from] || !modules[to] {
			return
		}
		key := from + "\x00" + to
		if seenEdge[key] {
			return
		}
		seenEdge[key] = true
		adj[from] = append(adj[from], to)
	}
	for i := range m.Modules {
		for _, dep := range m.Modules[i].Dependencies {
			if dep.IsRuntime() {
				addEdge(m.Modules[i].ID, dep.ModuleID)
			}
		}
	}
	if m.DependencyGraph != nil {
		for _, e := range m.DependencyGraph.Edges {
			if e.IsRuntime() {
				addEdge(e.From, e.To)
			}
		}
	}
	for _, targets := range adj {
		sort.Strings(targets)
	}

	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var stack []string
	var cycles [][]string
	reported := map[string]bool{}

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				for i, on := range stack {
					if on == next {
						cycle := canonicalCycle(stack[i:])
						key := strings.Join(cycle, "\x00")
						if !reported[key] {
							reported[key] = true
							cycles = append(cycles, cycle)
						}
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}
	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

// canonicalCycle rotates the chain so its smallest id comes first,
// keeping cycle order, so the same cycle found from different starting
// points reports identically.
func canonicalCycle(chain []string) []string {
	if len(chain) == 0 {
		return nil
	}
	min := 0
	for i, id := range chain {
		if id < chain[min] {
			min = i
		}
	}
	out := make([]string, 0, len(chain))
	out = append(out, chain[min:]...)
	out = append(out, chain[:min]...)
	return out
}

func renderCycle(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	return strings.Join(chain, " -> ") + " -> " + chain[0]
}
