// Package manifest joins a validated module map with resolved rule
// references, plugin asset inventories, per-entity context overlays,
// and tracked file fingerprints into one persisted document. The
// manifest is what downstream consumers load: it answers "what guidance
// applies where" without re-walking the rules tree or the repository.
package manifest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/junyeong-ai/modmap/internal/graph"
	"github.com/junyeong-ai/modmap/internal/schema"
)

// Version is the manifest document's own schema version. It is
// independent of the embedded graph document's schema_version, which is
// what the compatibility gate checks on load.
const Version = "1.0.0"

// DefaultGenerator identifies manifests produced without an explicit
// generator string.
const DefaultGenerator = "modmap"

// ModuleContext is the per-module overlay: the guidance scoped to one
// module plus its position in the group/domain hierarchy.
type ModuleContext struct {
	// Rules lists output paths of rule documents scoped to the module.
	Rules []string `json:"rules,omitempty"`

	// Skills lists skill document paths bound to the module.
	Skills []string `json:"skills,omitempty"`

	// Conventions holds rendered "name: pattern" lines.
	Conventions []string `json:"conventions,omitempty"`

	// Issues holds rendered "[SEVERITY] id: description" lines.
	Issues []string `json:"issues,omitempty"`

	// GroupID names the containing group, when the module belongs to one.
	GroupID string `json:"group_id,omitempty"`

	// DomainID names the domain owning the containing group.
	DomainID string `json:"domain_id,omitempty"`
}

// IsEmpty reports whether every field is unset. Empty contexts are
// dropped from the manifest rather than serialized as hollow objects.
func (c *ModuleContext) IsEmpty() bool {
	return len(c.Rules) == 0 && len(c.Skills) == 0 &&
		len(c.Conventions) == 0 && len(c.Issues) == 0 &&
		c.GroupID == "" && c.DomainID == ""
}

// GroupContext is the per-group overlay.
type GroupContext struct {
	Rules []string `json:"rules,omitempty"`

	// Constraints carries the group's boundary rules.
	Constraints []string `json:"constraints,omitempty"`

	MemberModules []string `json:"member_modules,omitempty"`

	// DomainID names the owning domain, when assigned.
	DomainID string `json:"domain_id,omitempty"`
}

// IsEmpty reports whether every field is unset.
func (c *GroupContext) IsEmpty() bool {
	return len(c.Rules) == 0 && len(c.Constraints) == 0 &&
		len(c.MemberModules) == 0 && c.DomainID == ""
}

// DomainContext is the per-domain overlay.
type DomainContext struct {
	Rules []string `json:"rules,omitempty"`

	// Constraints carries the domain's boundary rules.
	Constraints []string `json:"constraints,omitempty"`

	MemberGroups []string `json:"member_groups,omitempty"`

	// Interfaces lists the names of the domain's exposed interfaces.
	Interfaces []string `json:"interfaces,omitempty"`
}

// IsEmpty reports whether every field is unset.
func (c *DomainContext) IsEmpty() bool {
	return len(c.Rules) == 0 && len(c.Constraints) == 0 &&
		len(c.MemberGroups) == 0 && len(c.Interfaces) == 0
}

// TrackedFile is one fingerprint record: a root-relative slash path,
// the lowercase hex SHA-256 of the file's content, and its modification
// time in epoch seconds.
type TrackedFile struct {
	Path     string `json:"path"`
	Hash     string `json:"hash"`
	Modified int64  `json:"modified"`
}

// Manifest is the assembled project manifest document.
type Manifest struct {
	// Version is the manifest's own schema version.
	Version string `json:"version"`

	// CreatedAt records when the manifest was assembled, in UTC.
	CreatedAt time.Time `json:"created_at"`

	// Generator identifies the producing tool, "name vX.Y.Z".
	Generator string `json:"generator"`

	// Project embeds the validated graph document the manifest was
	// assembled from.
	Project graph.ModuleMap `json:"project"`

	// Rules, Skills, and Agents are flat sorted path lists of every
	// discovered rule and plugin document.
	Rules  []string `json:"rules,omitempty"`
	Skills []string `json:"skills,omitempty"`
	Agents []string `json:"agents,omitempty"`

	// Modules, Groups, and Domains hold per-entity context overlays
	// keyed by entity id. Entities whose overlay came out empty are
	// absent.
	Modules map[string]*ModuleContext `json:"modules,omitempty"`
	Groups  map[string]*GroupContext  `json:"groups,omitempty"`
	Domains map[string]*DomainContext `json:"domains,omitempty"`

	// Tracked fingerprints the files the manifest was assembled from.
	Tracked []TrackedFile `json:"tracked,omitempty"`
}

// New creates a manifest around a validated module map, stamped with
// the current time. The generator string falls back to
// DefaultGenerator when empty.
func New(project *graph.ModuleMap, generator string) *Manifest {
	if generator == "" {
		generator = DefaultGenerator
	}
	return &Manifest{
		Version:   Version,
		CreatedAt: time.Now().UTC(),
		Generator: generator,
		Project:   *project,
	}
}

// ModuleContextFor returns the overlay for a module id, or nil when the
// module has none.
func (m *Manifest) ModuleContextFor(id string) *ModuleContext {
	return m.Modules[id]
}

// GroupContextFor returns the overlay for a group id, or nil.
func (m *Manifest) GroupContextFor(id string) *GroupContext {
	return m.Groups[id]
}

// DomainContextFor returns the overlay for a domain id, or nil.
func (m *Manifest) DomainContextFor(id string) *DomainContext {
	return m.Domains[id]
}

// ToJSON renders the manifest as indented JSON. Optional collections
// are omitted when empty; the embedded project's required collections
// encode empty as [], never null.
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Load parses a manifest document, gating on the embedded project's
// schema version before structural decoding. The manifest's own version
// field is informational and not gated.
func Load(data []byte) (*Manifest, error) {
	var probe struct {
		Project struct {
			SchemaVersion string `json:"schema_version"`
		} `json:"project"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := schema.ValidateVersion(probe.Project.SchemaVersion); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.Project.Normalize()
	return &m, nil
}
