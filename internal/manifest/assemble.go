package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/junyeong-ai/modmap/internal/graph"
	"github.com/junyeong-ai/modmap/internal/plugin"
	"github.com/junyeong-ai/modmap/internal/rules"
	"github.com/junyeong-ai/modmap/internal/schema"
	"github.com/junyeong-ai/modmap/internal/tracker"
)

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// Persister receives the assembled manifest and its rules. Satisfied by
// the storage backends; nil skips persistence.
type Persister interface {
	PutManifest(ctx context.Context, m *Manifest) error
	PutRule(ctx context.Context, r *rules.Rule) error
}

// Options configures an assembly run. MapPath is required; the asset
// directories may be absent on disk, which simply yields empty
// inventories.
type Options struct {
	// MapPath locates the graph document to assemble from.
	MapPath string

	// RulesDir, SkillsDir, and AgentsDir are the asset roots.
	RulesDir  string
	SkillsDir string
	AgentsDir string

	// Root is the base directory fingerprint paths are made relative
	// to. Defaults to ".".
	Root string

	// OutPath, when set, is where the manifest JSON is written.
	OutPath string

	// Generator identifies the producing tool in the manifest.
	Generator string

	// Store, when non-nil, receives the manifest and every rule.
	Store Persister

	// Progress, when non-nil, is invoked at the start and end of each
	// phase.
	Progress ProgressCallback
}

// Result summarizes an assembly run.
type Result struct {
	Modules int
	Groups  int
	Domains int
	Rules   int
	Skills  int
	Agents  int
	Tracked int

	// Diagnostics collects non-fatal rule-loading findings.
	Diagnostics []rules.Diagnostic

	DurationSecs float64
}

// Assemble builds the manifest from a graph document plus the rule and
// plugin asset trees. Phases run in order: load the gated and validated
// module map, load rules, build per-entity contexts, inventory plugin
// assets, fingerprint the inputs, persist. Asset inventory failures
// warn and continue; everything else fails the run.
func Assemble(ctx context.Context, opts Options) (*Manifest, *Result, error) {
	started := time.Now()
	progress := opts.Progress
	if progress == nil {
		progress = func(string, float64) {}
	}
	result := &Result{}

	progress("Loading module map", 0.0)
	data, err := os.ReadFile(opts.MapPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading module map: %w", err)
	}
	mm, err := schema.LoadModuleMap(data)
	if err != nil {
		return nil, nil, err
	}
	progress("Loading module map", 1.0)

	progress("Loading rules", 0.0)
	ruleList, diags, err := rules.LoadDir(opts.RulesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading rules: %w", err)
	}
	set := rules.NewRuleSet(ruleList)
	diags = append(diags, set.Diagnostics()...)
	progress("Loading rules", 1.0)

	m := New(mm, opts.Generator)

	progress("Building contexts", 0.0)
	buildContexts(m, mm, set)
	progress("Building contexts", 1.0)

	progress("Scanning plugin assets", 0.0)
	// Warnings stay off stdout; serve mode shares it with the wire.
	skills, err := plugin.LoadSkills(opts.SkillsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: loading skills: %v\n", err)
	}
	agents, err := plugin.LoadAgents(opts.AgentsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: loading agents: %v\n", err)
	}
	m.Rules = rulePaths(set)
	m.Skills = skillPaths(skills)
	m.Agents = agentPaths(agents)
	progress("Scanning plugin assets", 1.0)

	progress("Fingerprinting inputs", 0.0)
	root := opts.Root
	if root == "" {
		root = "."
	}
	inputs := []string{opts.MapPath, opts.RulesDir, opts.SkillsDir, opts.AgentsDir}
	records, err := tracker.Snapshot(root, inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("fingerprinting inputs: %w", err)
	}
	for _, rec := range records {
		m.Tracked = append(m.Tracked, TrackedFile{
			Path:     rec.Path,
			Hash:     rec.Hash,
			Modified: rec.Modified,
		})
	}
	progress("Fingerprinting inputs", 1.0)

	result.Modules = len(mm.Modules)
	result.Groups = len(mm.Groups)
	result.Domains = len(mm.Domains)
	result.Rules = set.Len()
	result.Skills = len(skills)
	result.Agents = len(agents)
	result.Tracked = len(m.Tracked)
	result.Diagnostics = diags

	progress("Persisting manifest", 0.0)
	if opts.Store != nil {
		if err := opts.Store.PutManifest(ctx, m); err != nil {
			return nil, nil, fmt.Errorf("storing manifest: %w", err)
		}
		for _, r := range set.Rules() {
			if err := opts.Store.PutRule(ctx, r); err != nil {
				return nil, nil, fmt.Errorf("storing rule %s: %w", r.Name, err)
			}
		}
	}
	if opts.OutPath != "" {
		out, err := m.ToJSON()
		if err != nil {
			return nil, nil, fmt.Errorf("encoding manifest: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(opts.OutPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("writing manifest: %w", err)
		}
		if err := os.WriteFile(opts.OutPath, out, 0o644); err != nil {
			return nil, nil, fmt.Errorf("writing manifest: %w", err)
		}
	}
	progress("Persisting manifest", 1.0)

	result.DurationSecs = time.Since(started).Seconds()
	return m, result, nil
}

// buildContexts fills the per-entity overlay maps. A rule whose name
// equals an entity id and whose category matches the entity kind is
// scoped to that entity; module overlays additionally pick up any
// non-always-inject rule whose globs match one of the module's key
// files. Entities whose overlay comes out empty stay absent.
func buildContexts(m *Manifest, mm *graph.ModuleMap, set *rules.RuleSet) {
	modules := make(map[string]*ModuleContext)
	for i := range mm.Modules {
		mod := &mm.Modules[i]
		mc := &ModuleContext{Rules: moduleRulePaths(set, mod)}
		for _, c := range mod.Conventions {
			mc.Conventions = append(mc.Conventions, c.String())
		}
		for _, k := range mod.KnownIssues {
			mc.Issues = append(mc.Issues, k.String())
		}
		if g := mm.FindGroupContaining(mod.ID); g != nil {
			mc.GroupID = g.ID
			if d := mm.FindDomainContainingGroup(g.ID); d != nil {
				mc.DomainID = d.ID
			}
		}
		if !mc.IsEmpty() {
			modules[mod.ID] = mc
		}
	}
	if len(modules) > 0 {
		m.Modules = modules
	}

	groups := make(map[string]*GroupContext)
	for i := range mm.Groups {
		g := &mm.Groups[i]
		gc := &GroupContext{
			Constraints:   g.BoundaryRules,
			MemberModules: g.ModuleIDs,
		}
		if r := set.Find(g.ID); r != nil && r.Category == rules.CategoryGroup {
			gc.Rules = []string{r.OutputPath()}
		}
		if d := mm.FindDomainContainingGroup(g.ID); d != nil {
			gc.DomainID = d.ID
		}
		if !gc.IsEmpty() {
			groups[g.ID] = gc
		}
	}
	if len(groups) > 0 {
		m.Groups = groups
	}

	domains := make(map[string]*DomainContext)
	for i := range mm.Domains {
		d := &mm.Domains[i]
		dc := &DomainContext{
			Constraints:  d.BoundaryRules,
			MemberGroups: d.GroupIDs,
		}
		if r := set.Find(d.ID); r != nil && r.Category == rules.CategoryDomain {
			dc.Rules = []string{r.OutputPath()}
		}
		for _, iface := range d.Interfaces {
			dc.Interfaces = append(dc.Interfaces, iface.Name)
		}
		if !dc.IsEmpty() {
			domains[d.ID] = dc
		}
	}
	if len(domains) > 0 {
		m.Domains = domains
	}
}

// moduleRulePaths collects output paths of the rules scoped to one
// module: the module-category rule named after it, plus any rule whose
// globs match one of its key files. Always-inject rules apply globally
// and are not repeated per module.
func moduleRulePaths(set *rules.RuleSet, mod *graph.Module) []string {
	seen := make(map[string]bool)
	if r := set.Find(mod.ID); r != nil && r.Category == rules.CategoryModule {
		seen[r.OutputPath()] = true
	}
	for _, kf := range mod.KeyFiles {
		for _, r := range set.Resolve(rules.Context{Path: kf}) {
			if r.AlwaysInject {
				continue
			}
			seen[r.OutputPath()] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func rulePaths(set *rules.RuleSet) []string {
	var paths []string
	for _, r := range set.Rules() {
		paths = append(paths, r.OutputPath())
	}
	sort.Strings(paths)
	return paths
}

func skillPaths(skills []*plugin.Skill) []string {
	var paths []string
	for _, s := range skills {
		paths = append(paths, s.DocumentPath())
	}
	sort.Strings(paths)
	return paths
}

func agentPaths(agents []*plugin.Agent) []string {
	var paths []string
	for _, a := range agents {
		paths = append(paths, a.DocumentPath())
	}
	sort.Strings(paths)
	return paths
}
