// Package graph provides the architecture knowledge graph data model for
// modmap.
//
// It defines the entities that describe a project's internal structure
// (modules, module groups, domains) together with the typed dependency
// graph between modules, plus referential-integrity validation and the
// lookup methods a resolution session needs.
package graph

import (
	"fmt"
	"strings"
)

// DependencyType classifies an edge between two modules.
type DependencyType string

const (
	DependencyRuntime  DependencyType = "runtime"
	DependencyBuild    DependencyType = "build"
	DependencyTest     DependencyType = "test"
	DependencyOptional DependencyType = "optional"
)

// IssueSeverity ranks a known issue.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityHigh     IssueSeverity = "high"
	SeverityMedium   IssueSeverity = "medium"
	SeverityLow      IssueSeverity = "low"
)

// IssueCategory classifies a known issue.
type IssueCategory string

const (
	IssueSecurity        IssueCategory = "security"
	IssuePerformance     IssueCategory = "performance"
	IssueCorrectness     IssueCategory = "correctness"
	IssueMaintainability IssueCategory = "maintainability"
	IssueConcurrency     IssueCategory = "concurrency"
	IssueCompatibility   IssueCategory = "compatibility"
)

// InterfaceKind classifies how a domain exposes a capability to consumers.
type InterfaceKind string

const (
	InterfaceAPI           InterfaceKind = "api"
	InterfaceEvent         InterfaceKind = "event"
	InterfaceSharedLibrary InterfaceKind = "shared_library"
	InterfaceDatabase      InterfaceKind = "database"
)

// ModuleDependency is a typed reference from one module to another.
type ModuleDependency struct {
	// ModuleID is the id of the module depended on.
	ModuleID string `json:"module_id"`

	// Type is the dependency type. Empty means runtime.
	Type DependencyType `json:"dependency_type,omitempty"`
}

// RuntimeDep returns a runtime dependency on the given module id.
func RuntimeDep(moduleID string) ModuleDependency {
	return ModuleDependency{ModuleID: moduleID, Type: DependencyRuntime}
}

// BuildDep returns a build-time dependency on the given module id.
func BuildDep(moduleID string) ModuleDependency {
	return ModuleDependency{ModuleID: moduleID, Type: DependencyBuild}
}

// TestDep returns a test-only dependency on the given module id.
func TestDep(moduleID string) ModuleDependency {
	return ModuleDependency{ModuleID: moduleID, Type: DependencyTest}
}

// OptionalDep returns an optional dependency on the given module id.
func OptionalDep(moduleID string) ModuleDependency {
	return ModuleDependency{ModuleID: moduleID, Type: DependencyOptional}
}

// IsRuntime reports whether the dependency participates in the runtime
// acyclicity requirement. An unset type counts as runtime.
func (d ModuleDependency) IsRuntime() bool {
	return d.Type == "" || d.Type == DependencyRuntime
}

// EvidenceLocation points at the source region backing a structural claim.
type EvidenceLocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`

	// StartColumn and EndColumn are optional; zero means unknown.
	StartColumn int `json:"start_column,omitempty"`
	EndColumn   int `json:"end_column,omitempty"`
}

// Evidence returns a single-line location.
func Evidence(file string, line int) EvidenceLocation {
	return EvidenceLocation{File: file, StartLine: line, EndLine: line}
}

// EvidenceRange returns a multi-line location.
func EvidenceRange(file string, startLine, endLine int) EvidenceLocation {
	return EvidenceLocation{File: file, StartLine: startLine, EndLine: endLine}
}

// Reference renders the location as "file:line" or "file:start-end".
func (e EvidenceLocation) Reference() string {
	if e.StartLine == e.EndLine {
		return fmt.Sprintf("%s:%d", e.File, e.StartLine)
	}
	return fmt.Sprintf("%s:%d-%d", e.File, e.StartLine, e.EndLine)
}

// Convention is a named coding convention observed within a module.
type Convention struct {
	Name      string             `json:"name"`
	Pattern   string             `json:"pattern"`
	Rationale string             `json:"rationale,omitempty"`
	Evidence  []EvidenceLocation `json:"evidence,omitempty"`
}

// String renders the convention as "name: pattern", the form embedded in
// manifest context overlays.
func (c Convention) String() string {
	return c.Name + ": " + c.Pattern
}

// KnownIssue is a recurring defect or hazard tracked against a module.
type KnownIssue struct {
	ID          string             `json:"id"`
	Description string             `json:"description"`
	Severity    IssueSeverity      `json:"severity"`
	Category    IssueCategory      `json:"category"`
	Prevention  string             `json:"prevention,omitempty"`
	Evidence    []EvidenceLocation `json:"evidence,omitempty"`
}

// String renders the issue as "[SEVERITY] id: description".
func (k KnownIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(k.Severity)), k.ID, k.Description)
}

// ModuleMetrics carries the measured health scores of a module. All
// values are ratios in [0,1].
type ModuleMetrics struct {
	CoverageRatio float64 `json:"coverage_ratio"`
	ValueScore    float64 `json:"value_score"`
	RiskScore     float64 `json:"risk_score"`
}

// PriorityScore derives the injection weight of a module from its value
// and risk scores. Computed on demand, never stored.
func (m ModuleMetrics) PriorityScore() float64 {
	return m.ValueScore*0.6 + m.RiskScore*0.4
}

// Module is the smallest owned unit of code in the architecture model.
type Module struct {
	// ID uniquely identifies the module within a graph.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Paths lists the path prefixes the module owns.
	Paths []string `json:"paths"`

	// KeyFiles lists the most load-bearing files of the module.
	KeyFiles []string `json:"key_files,omitempty"`

	// Dependencies lists typed references to other modules.
	Dependencies []ModuleDependency `json:"dependencies,omitempty"`

	// Dependents is the denormalized reverse of Dependencies across the
	// graph, derived rather than independently maintained.
	Dependents []string `json:"dependents,omitempty"`

	// Responsibility is a free-text statement of what the module does.
	Responsibility string `json:"responsibility"`

	// PrimaryLanguage is the dominant implementation language.
	PrimaryLanguage string `json:"primary_language"`

	// ModuleMetrics fields are inlined into the module object.
	ModuleMetrics

	// Conventions lists coding conventions observed in the module.
	Conventions []Convention `json:"conventions,omitempty"`

	// KnownIssues lists recurring defects tracked against the module.
	KnownIssues []KnownIssue `json:"known_issues,omitempty"`

	// Evidence backs the module boundary decision with source locations.
	Evidence []EvidenceLocation `json:"evidence,omitempty"`
}

// ContainsFile reports whether the path falls under one of the module's
// registered path prefixes. Prefix containment, not glob matching.
func (m *Module) ContainsFile(path string) bool {
	return pathInScope(path, m.Paths)
}

// ModuleGroup is a named cluster of modules, optionally nested under a
// parent group and optionally owned by a domain.
type ModuleGroup struct {
	// ID uniquely identifies the group within a graph.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// ModuleIDs lists the member modules.
	ModuleIDs []string `json:"module_ids"`

	// Responsibility is a free-text statement of the group's purpose.
	Responsibility string `json:"responsibility"`

	// BoundaryRules lists free-text constraints on crossing the group
	// boundary.
	BoundaryRules []string `json:"boundary_rules,omitempty"`

	// LeaderModule optionally names the module that anchors the group.
	LeaderModule string `json:"leader_module,omitempty"`

	// ParentGroupID nests this group under another. Empty means root.
	ParentGroupID string `json:"parent_group_id,omitempty"`

	// Depth is the nesting level. Root groups sit at depth 0 and a child
	// must record exactly its parent's depth plus one.
	Depth int `json:"depth,omitempty"`

	// DomainID optionally assigns the group to a domain.
	DomainID string `json:"domain_id,omitempty"`
}

// DomainInterface describes how a domain exposes a capability.
type DomainInterface struct {
	Name      string        `json:"name"`
	Kind      InterfaceKind `json:"kind"`
	Consumers []string      `json:"consumers,omitempty"`
}

// Domain is a named cluster of groups bounding a business or technical
// capability.
type Domain struct {
	// ID uniquely identifies the domain within a graph.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// GroupIDs lists the member groups.
	GroupIDs []string `json:"group_ids"`

	// BoundaryRules lists free-text constraints on crossing the domain
	// boundary.
	BoundaryRules []string `json:"boundary_rules,omitempty"`

	// Interfaces lists the surfaces the domain exposes to consumers.
	Interfaces []DomainInterface `json:"interfaces,omitempty"`

	// OwnerTeam optionally names the owning team.
	OwnerTeam string `json:"owner_team,omitempty"`
}

// DependencyEdge is a directed, typed edge between two modules.
type DependencyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Type is the edge type. Empty means runtime.
	Type DependencyType `json:"edge_type,omitempty"`
}

// IsRuntime reports whether the edge participates in the runtime
// acyclicity requirement. An unset type counts as runtime.
func (e DependencyEdge) IsRuntime() bool {
	return e.Type == "" || e.Type == DependencyRuntime
}

// ArchitectureLayer assigns modules to a named layer.
type ArchitectureLayer struct {
	Name    string   `json:"name"`
	Modules []string `json:"modules"`
}

// DependencyGraph is the module-level dependency structure: directed
// typed edges plus an optional layer assignment.
type DependencyGraph struct {
	Edges  []DependencyEdge    `json:"edges,omitempty"`
	Layers []ArchitectureLayer `json:"layers,omitempty"`
}

// GeneratorInfo identifies the tool that produced a document.
type GeneratorInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// String renders the generator as "name vX.Y.Z".
func (g GeneratorInfo) String() string {
	return g.Name + " v" + g.Version
}

func pathInScope(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if hasPathPrefix(path, p) {
			return true
		}
	}
	return false
}

// hasPathPrefix reports whether path sits at or below prefix, honoring
// segment boundaries so "src/auth" does not contain "src/auth2/x.go".
func hasPathPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
