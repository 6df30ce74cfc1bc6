package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/junyeong-ai/modmap/internal/rules"
	"github.com/junyeong-ai/modmap/internal/storage"
	"github.com/junyeong-ai/modmap/internal/tracker"
)

// Tool handlers. Absence inside a valid query (no matching rules, no
// owning module) renders a normal result; only protocol-level failures
// become JSON-RPC errors.

func handleResolve(snap *snapshot, path string, triggers []string, limit int) (string, error) {
	matched := snap.set.Resolve(rules.Context{Path: path, Triggers: triggers})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	if len(matched) == 0 {
		return "No rules apply to this context.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Resolved %d rules", len(matched)))
	if path != "" {
		sb.WriteString(fmt.Sprintf(" for `%s`", path))
	}
	if len(triggers) > 0 {
		sb.WriteString(fmt.Sprintf(" (triggers: %s)", strings.Join(triggers, ", ")))
	}
	sb.WriteString(":\n\n")

	for i, r := range matched {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s, priority %d)\n", i+1, r.Name, r.Category, r.Priority))
		sb.WriteString(fmt.Sprintf("   Path: %s\n", r.OutputPath()))
		if snippet := firstLine(r.Content); snippet != "" {
			sb.WriteString(fmt.Sprintf("   > %s\n", snippet))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Next: Read the rule documents in order; higher entries inject first.")
	return sb.String(), nil
}

func handleModule(snap *snapshot, path string) (string, error) {
	if path == "" {
		return "No path provided", nil
	}

	mm := &snap.man.Project
	mod := mm.ModuleOwning(path)
	if mod == nil {
		return fmt.Sprintf("No module owns `%s`.", path), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Module: %s (`%s`)\n\n", mod.Name, mod.ID))
	if mod.Responsibility != "" {
		sb.WriteString(mod.Responsibility + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("**Paths:** %s\n", strings.Join(mod.Paths, ", ")))
	if mod.PrimaryLanguage != "" {
		sb.WriteString(fmt.Sprintf("**Language:** %s\n", mod.PrimaryLanguage))
	}
	sb.WriteString(fmt.Sprintf("**Priority score:** %.2f (value %.2f, risk %.2f)\n",
		mod.PriorityScore(), mod.ValueScore, mod.RiskScore))

	if g := mm.FindGroupContaining(mod.ID); g != nil {
		sb.WriteString(fmt.Sprintf("**Group:** %s", g.ID))
		if d := mm.FindDomainContainingGroup(g.ID); d != nil {
			sb.WriteString(fmt.Sprintf(" (domain: %s)", d.ID))
		}
		sb.WriteString("\n")
	}

	if deps := mm.Dependents(mod.ID); len(deps) > 0 {
		sb.WriteString(fmt.Sprintf("**Dependents:** %s\n", strings.Join(deps, ", ")))
	}

	if len(mod.Conventions) > 0 {
		sb.WriteString("\n## Conventions\n")
		for _, c := range mod.Conventions {
			sb.WriteString("- " + c.String() + "\n")
		}
	}
	if len(mod.KnownIssues) > 0 {
		sb.WriteString("\n## Known Issues\n")
		for _, k := range mod.KnownIssues {
			sb.WriteString("- " + k.String() + "\n")
		}
	}

	if mc := snap.man.ModuleContextFor(mod.ID); mc != nil && len(mc.Rules) > 0 {
		sb.WriteString("\n## Scoped Rules\n")
		for _, p := range mc.Rules {
			sb.WriteString("- " + p + "\n")
		}
	}

	sb.WriteString("\nNext: Use `modmap_impact` before changing this module.")
	return sb.String(), nil
}

func handleImpact(snap *snapshot, moduleID string, depth int) (string, error) {
	if moduleID == "" {
		return "No module provided", nil
	}

	mm := &snap.man.Project
	if mm.FindModule(moduleID) == nil {
		return fmt.Sprintf("Module `%s` not found in the map.", moduleID), nil
	}

	waves := mm.TransitiveDependents(moduleID, depth)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Impact analysis for **%s** (depth %d)\n\n", moduleID, depth))

	if len(waves) == 0 {
		sb.WriteString("No dependents found; changes stay local to this module.\n")
		return sb.String(), nil
	}

	total := 0
	for _, wave := range waves {
		total += len(wave)
	}
	sb.WriteString(fmt.Sprintf("## Affected Modules (%d)\n\n", total))

	for i, wave := range waves {
		label := "Direct"
		if i == 1 {
			label = "Indirect"
		} else if i > 1 {
			label = "Transitive"
		}
		sb.WriteString(fmt.Sprintf("### Distance %d (%s)\n", i+1, label))
		for _, id := range wave {
			line := "- " + id
			if m := mm.FindModule(id); m != nil && m.Name != id {
				line += " (" + m.Name + ")"
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Next: Review each affected module before making changes.")
	return sb.String(), nil
}

func handleSearch(ctx context.Context, store Store, snap *snapshot, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	results, err := storage.HybridSearch(ctx, store, query, snap.vec.Embed(query), limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No rules match '%s'.", query), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d rules for '%s':\n\n", len(results), query))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s, priority %d)\n", i+1, r.Name, r.Category, r.Priority))
		sb.WriteString(fmt.Sprintf("   Path: %s\n", r.Path))
		sb.WriteString(fmt.Sprintf("   Score: %.3f\n", r.Score))
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", r.Snippet))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Next: Use `modmap_resolve` with a file path to see rules in injection order.")
	return sb.String(), nil
}

func handleStatus(ctx context.Context, store Store, snap *snapshot, root string) (string, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Status\n\n")
	sb.WriteString(fmt.Sprintf("**Assembled:** %s by %s\n",
		snap.man.CreatedAt.Format("2006-01-02 15:04:05 MST"), snap.man.Generator))
	sb.WriteString(fmt.Sprintf("**Modules:** %d | **Groups:** %d | **Domains:** %d\n",
		len(snap.man.Project.Modules), len(snap.man.Project.Groups), len(snap.man.Project.Domains)))
	sb.WriteString(fmt.Sprintf("**Rules:** %d | **Embeddings:** %d\n\n", stats.Rules, stats.Embeddings))

	if counts := ruleCountsByCategory(snap.set); len(counts) > 0 {
		sb.WriteString("## Rules by Category\n")
		for _, c := range counts {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", c.category, c.count))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Drift\n")
	diff, err := manifestDrift(snap, root)
	if err != nil {
		sb.WriteString(fmt.Sprintf("Drift check failed: %v\n", err))
	} else if diff.IsClean() {
		sb.WriteString("Inputs match the assembled manifest.\n")
	} else {
		sb.WriteString(fmt.Sprintf("%d added, %d modified, %d removed since assembly.\n",
			len(diff.Added), len(diff.Modified), len(diff.Removed)))
		for _, p := range diff.Modified {
			sb.WriteString("- modified: " + p + "\n")
		}
		for _, p := range diff.Added {
			sb.WriteString("- added: " + p + "\n")
		}
		for _, p := range diff.Removed {
			sb.WriteString("- removed: " + p + "\n")
		}
		sb.WriteString("\nNext: Re-run assemble to refresh the manifest.\n")
	}

	return sb.String(), nil
}

// manifestDrift compares the manifest's tracked fingerprints against
// the files currently on disk.
func manifestDrift(snap *snapshot, root string) (*tracker.DiffResult, error) {
	recorded := make([]tracker.Record, 0, len(snap.man.Tracked))
	inputs := make([]string, 0, len(snap.man.Tracked))
	for _, tf := range snap.man.Tracked {
		recorded = append(recorded, tracker.Record{Path: tf.Path, Hash: tf.Hash, Modified: tf.Modified})
		inputs = append(inputs, filepath.Join(root, filepath.FromSlash(tf.Path)))
	}

	current, err := tracker.Snapshot(root, inputs)
	if err != nil {
		return nil, err
	}
	return tracker.Diff(recorded, current), nil
}

type categoryCount struct {
	category rules.Category
	count    int
}

// ruleCountsByCategory tallies the rule set in descending category
// rank order.
func ruleCountsByCategory(set *rules.RuleSet) []categoryCount {
	tally := make(map[rules.Category]int)
	for _, r := range set.Rules() {
		tally[r.Category]++
	}

	counts := make([]categoryCount, 0, len(tally))
	for c, n := range tally {
		counts = append(counts, categoryCount{category: c, count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		ri, rj := counts[i].category.DefaultPriority(), counts[j].category.DefaultPriority()
		if ri != rj {
			return ri > rj
		}
		return counts[i].category < counts[j].category
	})
	return counts
}

// Resource handlers.

func getOverview(snap *snapshot) string {
	mm := &snap.man.Project

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", mm.Project.Name))
	sb.WriteString(fmt.Sprintf("**Type:** %s\n", mm.Project.Type))
	sb.WriteString(fmt.Sprintf("**Generator:** %s\n", mm.Generator))
	sb.WriteString(fmt.Sprintf("**Modules:** %d | **Groups:** %d | **Domains:** %d\n",
		len(mm.Modules), len(mm.Groups), len(mm.Domains)))

	if mm.DependencyGraph != nil && len(mm.DependencyGraph.Layers) > 0 {
		sb.WriteString("\n## Layers\n\n")
		for _, layer := range mm.DependencyGraph.Layers {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", layer.Name, strings.Join(layer.Modules, ", ")))
		}
	}

	if len(mm.Domains) > 0 {
		sb.WriteString("\n## Domains\n\n")
		for _, d := range mm.Domains {
			sb.WriteString(fmt.Sprintf("- **%s** (%d groups)\n", d.Name, len(d.GroupIDs)))
		}
	}

	sb.WriteString("\n## Modules\n\n")
	for i := range mm.Modules {
		mod := &mm.Modules[i]
		sb.WriteString(fmt.Sprintf("- **%s** (%s) score %.2f\n", mod.ID, mod.Name, mod.PriorityScore()))
	}

	return sb.String()
}

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# Module Map Document Schema\n\n")
	sb.WriteString("A JSON document carrying the project architecture model.\n")
	sb.WriteString("Documents are accepted when their `schema_version` shares the reader's major version.\n")
	sb.WriteString("\n## Entities\n\n")
	sb.WriteString("| Entity | Description | Key Fields |\n")
	sb.WriteString("|--------|-------------|------------|\n")
	sb.WriteString("| `module` | Smallest owned unit of code | id, paths, dependencies, conventions, known_issues |\n")
	sb.WriteString("| `group` | Named cluster of modules, optionally nested | id, module_ids, parent_group_id, depth, domain_id |\n")
	sb.WriteString("| `domain` | Business or technical capability boundary | id, group_ids, boundary_rules, interfaces |\n")
	sb.WriteString("\n## Dependency Graph\n\n")
	sb.WriteString("| Field | Description |\n")
	sb.WriteString("|-------|-------------|\n")
	sb.WriteString("| `edges` | Directed typed edges between modules; runtime edges must be acyclic |\n")
	sb.WriteString("| `layers` | Named architecture layers with member modules |\n")
	sb.WriteString("\n## Integrity\n\n")
	sb.WriteString("Every module, group, and domain reference must point at a declared entity.\n")
	sb.WriteString("Group nesting records explicit depths: root groups at 0, children at parent + 1.\n")
	return sb.String()
}

func getRuleInventory(snap *snapshot) string {
	var sb strings.Builder
	sb.WriteString("# Rule Inventory\n\n")

	list := snap.set.Rules()
	if len(list) == 0 {
		sb.WriteString("No rules loaded.\n")
		return sb.String()
	}

	byCategory := make(map[rules.Category][]*rules.Rule)
	for _, r := range list {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	for _, c := range []rules.Category{
		rules.CategoryProject, rules.CategoryTech, rules.CategoryFramework,
		rules.CategoryModule, rules.CategoryGroup, rules.CategoryDomain,
	} {
		group := byCategory[c]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })

		sb.WriteString(fmt.Sprintf("## %s (%d)\n\n", c, len(group)))
		for _, r := range group {
			sb.WriteString(fmt.Sprintf("- **%s** priority %d", r.Name, r.Priority))
			if r.AlwaysInject {
				sb.WriteString(" [always]")
			}
			sb.WriteString(fmt.Sprintf(" at %s\n", r.OutputPath()))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// firstLine returns the first non-empty content line.
func firstLine(content []string) string {
	for _, line := range content {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
