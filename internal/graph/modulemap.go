package graph

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is the schema version written into every graph document
// this package produces. Documents are accepted when their major version
// matches; see internal/schema.
const SchemaVersion = "1.0.0"

// ModuleMap is the architecture knowledge graph of one project: its
// modules, the groups and domains clustering them, and the dependency
// structure between modules.
//
// A ModuleMap is built once by an external producer, validated on load,
// and then treated as an immutable snapshot for the lifetime of a
// resolution session. Reflecting new source data means building a new
// snapshot, never mutating this one, so concurrent readers need no
// synchronization. Lookups scan the entity slices directly; counts are
// bounded by the size of the analyzed project, not by query volume.
type ModuleMap struct {
	SchemaVersion   string           `json:"schema_version"`
	Generator       GeneratorInfo    `json:"generator"`
	Project         ProjectMetadata  `json:"project"`
	Modules         []Module         `json:"modules"`
	Groups          []ModuleGroup    `json:"groups,omitempty"`
	Domains         []Domain         `json:"domains,omitempty"`
	DependencyGraph *DependencyGraph `json:"dependency_graph,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// New creates a module map stamped with the current schema version and
// generation time. Domains and the dependency graph are optional and set
// directly on the returned value.
func New(generator GeneratorInfo, project ProjectMetadata, modules []Module, groups []ModuleGroup) *ModuleMap {
	m := &ModuleMap{
		SchemaVersion: SchemaVersion,
		Generator:     generator,
		Project:       project,
		Modules:       modules,
		Groups:        groups,
		GeneratedAt:   time.Now().UTC(),
	}
	m.Normalize()
	return m
}

// Normalize replaces nil required collections with empty ones.
// Required collections always serialize as arrays; a document decoded
// with them missing would otherwise re-encode as null, which readers of
// the document format reject. Optional collections stay nil and are
// omitted. Called by New and the decode paths; safe to call again.
func (m *ModuleMap) Normalize() {
	if m.Modules == nil {
		m.Modules = []Module{}
	}
	if m.Project.Languages == nil {
		m.Project.Languages = []DetectedLanguage{}
	}
	for i := range m.Modules {
		if m.Modules[i].Paths == nil {
			m.Modules[i].Paths = []string{}
		}
	}
	for i := range m.Groups {
		if m.Groups[i].ModuleIDs == nil {
			m.Groups[i].ModuleIDs = []string{}
		}
	}
	for i := range m.Domains {
		if m.Domains[i].GroupIDs == nil {
			m.Domains[i].GroupIDs = []string{}
		}
	}
	if m.DependencyGraph != nil {
		for i := range m.DependencyGraph.Layers {
			if m.DependencyGraph.Layers[i].Modules == nil {
				m.DependencyGraph.Layers[i].Modules = []string{}
			}
		}
	}
}

// FindModule returns the module with the given id, or nil. Absence is a
// normal outcome, not an error.
func (m *ModuleMap) FindModule(id string) *Module {
	for i := range m.Modules {
		if m.Modules[i].ID == id {
			return &m.Modules[i]
		}
	}
	return nil
}

// FindGroup returns the group with the given id, or nil.
func (m *ModuleMap) FindGroup(id string) *ModuleGroup {
	for i := range m.Groups {
		if m.Groups[i].ID == id {
			return &m.Groups[i]
		}
	}
	return nil
}

// FindDomain returns the domain with the given id, or nil.
func (m *ModuleMap) FindDomain(id string) *Domain {
	for i := range m.Domains {
		if m.Domains[i].ID == id {
			return &m.Domains[i]
		}
	}
	return nil
}

// FindGroupContaining returns the group whose member list contains the
// module id, or nil. A module belongs to at most one group; when an
// unvalidated map lists it in several, the first group in declaration
// order wins.
func (m *ModuleMap) FindGroupContaining(moduleID string) *ModuleGroup {
	for i := range m.Groups {
		for _, id := range m.Groups[i].ModuleIDs {
			if id == moduleID {
				return &m.Groups[i]
			}
		}
	}
	return nil
}

// FindModulesInGroup returns the group's member modules in declaration
// order. Unresolvable ids are skipped; an absent group yields nil.
func (m *ModuleMap) FindModulesInGroup(groupID string) []*Module {
	group := m.FindGroup(groupID)
	if group == nil {
		return nil
	}
	var members []*Module
	for _, id := range group.ModuleIDs {
		if mod := m.FindModule(id); mod != nil {
			members = append(members, mod)
		}
	}
	return members
}

// FindGroupsInDomain returns the domain's member groups in declaration
// order. Unresolvable ids are skipped; an absent domain yields nil.
func (m *ModuleMap) FindGroupsInDomain(domainID string) []*ModuleGroup {
	domain := m.FindDomain(domainID)
	if domain == nil {
		return nil
	}
	var members []*ModuleGroup
	for _, id := range domain.GroupIDs {
		if g := m.FindGroup(id); g != nil {
			members = append(members, g)
		}
	}
	return members
}

// FindDomainContainingGroup returns the domain whose member list contains
// the group id, or nil. A group tagged with a DomainID resolves through
// that tag first.
func (m *ModuleMap) FindDomainContainingGroup(groupID string) *Domain {
	if g := m.FindGroup(groupID); g != nil && g.DomainID != "" {
		if d := m.FindDomain(g.DomainID); d != nil {
			return d
		}
	}
	for i := range m.Domains {
		for _, id := range m.Domains[i].GroupIDs {
			if id == groupID {
				return &m.Domains[i]
			}
		}
	}
	return nil
}

// FindChildGroups returns the groups nested directly under the given
// parent, in declaration order.
func (m *ModuleMap) FindChildGroups(parentID string) []*ModuleGroup {
	if parentID == "" {
		return nil
	}
	var children []*ModuleGroup
	for i := range m.Groups {
		if m.Groups[i].ParentGroupID == parentID {
			children = append(children, &m.Groups[i])
		}
	}
	return children
}

// ModuleOwning returns the module whose path prefix contains the file,
// or nil when no module claims it. Overlapping ownership is not
// validated; the longest matching prefix wins, with ties broken by
// module id order so attribution stays deterministic.
func (m *ModuleMap) ModuleOwning(path string) *Module {
	var best *Module
	bestLen := -1
	for i := range m.Modules {
		mod := &m.Modules[i]
		for _, prefix := range mod.Paths {
			if prefix == "" || !hasPathPrefix(path, prefix) {
				continue
			}
			l := len(strings.TrimRight(prefix, "/"))
			switch {
			case l > bestLen:
				best, bestLen = mod, l
			case l == bestLen && best != nil && mod.ID < best.ID:
				best = mod
			}
		}
	}
	return best
}

// Dependents returns the ids of modules that directly depend on the
// given module, sorted.
func (m *ModuleMap) Dependents(moduleID string) []string {
	var out []string
	for i := range m.Modules {
		for _, dep := range m.Modules[i].Dependencies {
			if dep.ModuleID == moduleID {
				out = append(out, m.Modules[i].ID)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// TransitiveDependents walks the dependency edges in reverse from the
// given module, returning dependent ids grouped by distance (index 0 =
// direct dependents). maxDepth <= 0 means unbounded.
func (m *ModuleMap) TransitiveDependents(moduleID string, maxDepth int) [][]string {
	seen := map[string]bool{moduleID: true}
	frontier := []string{moduleID}
	var waves [][]string
	for len(frontier) > 0 {
		if maxDepth > 0 && len(waves) >= maxDepth {
			break
		}
		next := map[string]bool{}
		for _, id := range frontier {
			for _, dep := range m.Dependents(id) {
				if !seen[dep] {
					next[dep] = true
				}
			}
		}
		if len(next) == 0 {
			break
		}
		wave := make([]string, 0, len(next))
		for id := range next {
			seen[id] = true
			wave = append(wave, id)
		}
		sort.Strings(wave)
		waves = append(waves, wave)
		frontier = wave
	}
	return waves
}

// ToJSON renders the map as indented JSON. Optional collections are
// omitted when empty; required collections encode empty as [], never
// null.
func (m *ModuleMap) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
