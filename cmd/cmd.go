// Package cmd provides the modmap CLI command implementations.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/junyeong-ai/modmap/internal/embeddings"
	"github.com/junyeong-ai/modmap/internal/graph"
	"github.com/junyeong-ai/modmap/internal/manifest"
	"github.com/junyeong-ai/modmap/internal/rules"
	"github.com/junyeong-ai/modmap/internal/schema"
	"github.com/junyeong-ai/modmap/internal/storage"
	"github.com/junyeong-ai/modmap/internal/tracker"
	"github.com/junyeong-ai/modmap/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Workspace layout under the project root. Source-of-truth inputs
// (modmap.json, rules/, skills/, agents/) live at the root; everything
// under .modmap is derived and safe to delete.
const (
	workspaceDir = ".modmap"
	storeSubdir  = "store"
)

// Globals holds flags shared by every command.
type Globals struct {
	Dir     string           `help:"Project root directory" default:"." type:"path"`
	Version kong.VersionFlag `help:"Show version information"`
}

// path resolves a possibly relative path against the project root.
func (g *Globals) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(g.Dir, p)
}

// workspace returns a path inside the derived-state directory.
func (g *Globals) workspace(parts ...string) string {
	return filepath.Join(append([]string{g.Dir, workspaceDir}, parts...)...)
}

// ValidateCmd checks a module map document.
type ValidateCmd struct {
	Map string `arg:"" optional:"" default:"modmap.json" help:"Path to the module map document"`
}

// Run executes the validate command.
func (c *ValidateCmd) Run(g *Globals) error {
	path := g.path(c.Map)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading module map: %w", err)
	}

	mm, err := schema.LoadModuleMap(data)
	if err != nil {
		var integrity *graph.IntegrityError
		if errors.As(err, &integrity) {
			color.Red("✗ %s failed validation (%d violations)", path, len(integrity.Violations))
			for _, v := range integrity.Violations {
				fmt.Printf("  - %v\n", v)
			}
			return fmt.Errorf("module map invalid")
		}
		return err
	}

	color.Green("✓ %s is valid", path)
	fmt.Printf("  Schema:   %s\n", mm.SchemaVersion)
	fmt.Printf("  Modules:  %d\n", len(mm.Modules))
	fmt.Printf("  Groups:   %d\n", len(mm.Groups))
	fmt.Printf("  Domains:  %d\n", len(mm.Domains))
	return nil
}

// ResolveCmd resolves the rules applying to a work context.
type ResolveCmd struct {
	Path    string   `arg:"" optional:"" help:"Repo-relative file path being worked on"`
	Trigger []string `short:"t" help:"Task keywords, matched case-insensitively"`
	Rules   string   `default:"rules" help:"Rules directory"`
	JSON    bool     `help:"Emit JSON instead of text"`
}

// Run executes the resolve command.
func (c *ResolveCmd) Run(g *Globals) error {
	set, err := loadRuleSet(g, c.Rules)
	if err != nil {
		return err
	}

	matched := set.Resolve(rules.Context{Path: c.Path, Triggers: c.Trigger})

	if c.JSON {
		type entry struct {
			Name     string `json:"name"`
			Category string `json:"category"`
			Priority int    `json:"priority"`
			Path     string `json:"path"`
		}
		entries := make([]entry, 0, len(matched))
		for _, r := range matched {
			entries = append(entries, entry{
				Name:     r.Name,
				Category: string(r.Category),
				Priority: r.Priority,
				Path:     r.OutputPath(),
			})
		}
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(matched) == 0 {
		fmt.Println("No rules apply to this context.")
		return nil
	}
	fmt.Printf("Resolved %d rules:\n", len(matched))
	for i, r := range matched {
		fmt.Printf("%2d. %s (%s, priority %d) %s\n", i+1, r.Name, r.Category, r.Priority, r.OutputPath())
	}
	return nil
}

// ModuleCmd shows the module owning a file path.
type ModuleCmd struct {
	Path string `arg:"" help:"Repo-relative file path"`
	Map  string `default:"modmap.json" help:"Path to the module map document"`
}

// Run executes the module command.
func (c *ModuleCmd) Run(g *Globals) error {
	mm, err := loadModuleMap(g, c.Map)
	if err != nil {
		return err
	}

	mod := mm.ModuleOwning(c.Path)
	if mod == nil {
		return fmt.Errorf("no module owns %s", c.Path)
	}

	color.Green("%s (%s)", mod.Name, mod.ID)
	if mod.Responsibility != "" {
		fmt.Printf("  %s\n", mod.Responsibility)
	}
	fmt.Printf("  Paths:     %s\n", strings.Join(mod.Paths, ", "))
	if mod.PrimaryLanguage != "" {
		fmt.Printf("  Language:  %s\n", mod.PrimaryLanguage)
	}
	fmt.Printf("  Score:     %.2f (value %.2f, risk %.2f)\n",
		mod.PriorityScore(), mod.ValueScore, mod.RiskScore)
	if grp := mm.FindGroupContaining(mod.ID); grp != nil {
		hierarchy := grp.ID
		if d := mm.FindDomainContainingGroup(grp.ID); d != nil {
			hierarchy += " / " + d.ID
		}
		fmt.Printf("  Group:     %s\n", hierarchy)
	}
	if deps := mm.Dependents(mod.ID); len(deps) > 0 {
		fmt.Printf("  Dependents: %s\n", strings.Join(deps, ", "))
	}
	for _, conv := range mod.Conventions {
		fmt.Printf("  Convention: %s\n", conv.String())
	}
	for _, issue := range mod.KnownIssues {
		fmt.Printf("  Issue:      %s\n", issue.String())
	}
	return nil
}

// ImpactCmd shows the blast radius of changing a module.
type ImpactCmd struct {
	Module string `arg:"" help:"Module id to analyze"`
	Depth  int    `default:"3" help:"Maximum traversal depth"`
	Map    string `default:"modmap.json" help:"Path to the module map document"`
}

// Run executes the impact command.
func (c *ImpactCmd) Run(g *Globals) error {
	mm, err := loadModuleMap(g, c.Map)
	if err != nil {
		return err
	}
	if mm.FindModule(c.Module) == nil {
		return fmt.Errorf("module %s not found in the map", c.Module)
	}

	waves := mm.TransitiveDependents(c.Module, c.Depth)
	if len(waves) == 0 {
		color.Green("No dependents; changes to %s stay local", c.Module)
		return nil
	}

	total := 0
	for _, wave := range waves {
		total += len(wave)
	}
	fmt.Printf("Impact of changing %s: %d modules\n", c.Module, total)
	for i, wave := range waves {
		label := "direct"
		if i == 1 {
			label = "indirect"
		} else if i > 1 {
			label = "transitive"
		}
		fmt.Printf("  Distance %d (%s): %s\n", i+1, label, strings.Join(wave, ", "))
	}
	return nil
}

// AssembleCmd builds the manifest and populates the store.
type AssembleCmd struct {
	Map          string `default:"modmap.json" help:"Path to the module map document"`
	Rules        string `default:"rules" help:"Rules directory"`
	Skills       string `default:"skills" help:"Skills directory"`
	Agents       string `default:"agents" help:"Agents directory"`
	Out          string `default:".modmap/manifest.json" help:"Manifest output path"`
	NoStore      bool   `help:"Skip persisting to the embedded store"`
	NoEmbeddings bool   `help:"Skip rule embedding generation"`
}

// Run executes the assemble command.
func (c *AssembleCmd) Run(g *Globals) error {
	ctx := context.Background()

	if err := os.MkdirAll(g.workspace(), 0o755); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}

	opts := manifest.Options{
		MapPath:   g.path(c.Map),
		RulesDir:  g.path(c.Rules),
		SkillsDir: g.path(c.Skills),
		AgentsDir: g.path(c.Agents),
		Root:      g.Dir,
		OutPath:   g.path(c.Out),
		Generator: "modmap v" + Version,
		Progress: func(phase string, pct float64) {
			fmt.Printf("\r\033[K%s (%.0f%%)", phase, pct*100)
		},
	}

	var store *storage.BadgerStore
	if !c.NoStore {
		var err error
		store, err = storage.OpenBadger(g.workspace(storeSubdir), false)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts.Store = store
	}

	_, result, err := manifest.Assemble(ctx, opts)
	if err != nil {
		fmt.Println()
		return err
	}
	fmt.Println()

	if store != nil && !c.NoEmbeddings {
		list, err := store.ListRules(ctx)
		if err != nil {
			return err
		}
		for name, vector := range embeddings.EmbedRules(list) {
			if err := store.PutEmbedding(ctx, name, vector); err != nil {
				return fmt.Errorf("storing embedding %s: %w", name, err)
			}
		}
	}

	if err := writeMeta(g); err != nil {
		return err
	}

	color.Green("\n✓ Assembly complete")
	fmt.Printf("  Modules:   %d\n", result.Modules)
	fmt.Printf("  Groups:    %d\n", result.Groups)
	fmt.Printf("  Domains:   %d\n", result.Domains)
	fmt.Printf("  Rules:     %d\n", result.Rules)
	fmt.Printf("  Skills:    %d\n", result.Skills)
	fmt.Printf("  Agents:    %d\n", result.Agents)
	fmt.Printf("  Tracked:   %d\n", result.Tracked)
	fmt.Printf("  Duration:  %.2fs\n", result.DurationSecs)

	for _, d := range result.Diagnostics {
		color.Yellow("  Warning: %s", d)
	}
	return nil
}

// RulesCmd lists the loaded rules.
type RulesCmd struct {
	Rules    string `default:"rules" help:"Rules directory"`
	Category string `help:"Filter by category"`
}

// Run executes the rules command.
func (c *RulesCmd) Run(g *Globals) error {
	list, diags, err := rules.LoadDir(g.path(c.Rules))
	if err != nil {
		return err
	}

	if c.Category != "" {
		category, ok := rules.ParseCategory(c.Category)
		if !ok {
			return fmt.Errorf("unknown category: %s", c.Category)
		}
		filtered := list[:0]
		for _, r := range list {
			if r.Category == category {
				filtered = append(filtered, r)
			}
		}
		list = filtered
	}

	if len(list) == 0 {
		fmt.Println("No rules found.")
	}
	for _, r := range list {
		flags := ""
		if r.AlwaysInject {
			flags = " [always]"
		}
		fmt.Printf("%-30s %-10s %3d%s  %s\n", r.Name, r.Category, r.Priority, flags, r.OutputPath())
	}
	for _, d := range diags {
		color.Yellow("Warning: %s", d)
	}
	return nil
}

// ExportCmd writes the stored rules back to their canonical tree.
type ExportCmd struct {
	Out string `default:"rules" help:"Output directory"`
}

// Run executes the export command.
func (c *ExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	store, err := openStore(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	list, err := store.ListRules(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no rules in the store; run 'modmap assemble' first")
	}

	if err := rules.WriteDir(g.path(c.Out), list); err != nil {
		return err
	}
	color.Green("✓ Exported %d rules to %s", len(list), g.path(c.Out))
	return nil
}

// TrackCmd reports drift between the manifest and the files on disk.
type TrackCmd struct{}

// Run executes the track command.
func (c *TrackCmd) Run(g *Globals) error {
	diff, err := loadDrift(g)
	if err != nil {
		return err
	}

	if diff.IsClean() {
		color.Green("✓ Inputs match the assembled manifest")
		return nil
	}

	color.Yellow("Manifest is stale: %d added, %d modified, %d removed",
		len(diff.Added), len(diff.Modified), len(diff.Removed))
	for _, p := range diff.Added {
		fmt.Printf("  added:    %s\n", p)
	}
	for _, p := range diff.Modified {
		fmt.Printf("  modified: %s\n", p)
	}
	for _, p := range diff.Removed {
		fmt.Printf("  removed:  %s\n", p)
	}
	fmt.Println("\nRun 'modmap assemble' to refresh.")
	return nil
}

// SuggestCmd proposes groups and layers from the dependency structure.
type SuggestCmd struct {
	Map    string `default:"modmap.json" help:"Path to the module map document"`
	Groups bool   `help:"Propose module groups only"`
	Layers bool   `help:"Propose architecture layers only"`
}

// Run executes the suggest command.
func (c *SuggestCmd) Run(g *Globals) error {
	mm, err := loadModuleMap(g, c.Map)
	if err != nil {
		return err
	}

	both := !c.Groups && !c.Layers

	if c.Groups || both {
		proposed := graph.SuggestGroups(mm)
		if len(proposed) == 0 {
			fmt.Println("No group suggestions; dependency structure is too sparse.")
		} else {
			fmt.Printf("Suggested groups (%d):\n", len(proposed))
			for _, grp := range proposed {
				fmt.Printf("  %s: %s\n", grp.ID, strings.Join(grp.ModuleIDs, ", "))
			}
		}
	}

	if c.Layers || both {
		layers := graph.SuggestLayers(mm)
		if len(layers) == 0 {
			fmt.Println("No layer suggestions.")
		} else {
			fmt.Printf("Suggested layers (%d):\n", len(layers))
			for _, layer := range layers {
				fmt.Printf("  %s: %s\n", layer.Name, strings.Join(layer.Modules, ", "))
			}
		}
	}
	return nil
}

// SearchCmd searches the stored rules.
type SearchCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `default:"10" help:"Maximum number of results"`
}

// Run executes the search command.
func (c *SearchCmd) Run(g *Globals) error {
	ctx := context.Background()
	store, err := openStore(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	list, err := store.ListRules(ctx)
	if err != nil {
		return err
	}
	vectorizer := embeddings.NewVectorizer(list)

	results, err := storage.HybridSearch(ctx, store, c.Query, vectorizer.Embed(c.Query), c.Limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("No rules match '%s'.\n", c.Query)
		return nil
	}

	for i, r := range results {
		fmt.Printf("%2d. %s (%s, priority %d) score %.3f\n", i+1, r.Name, r.Category, r.Priority, r.Score)
		if r.Snippet != "" {
			fmt.Printf("    %s\n", r.Snippet)
		}
	}
	return nil
}

// StatusCmd shows workspace and store status.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	ctx := context.Background()

	metaBytes, err := os.ReadFile(g.workspace("meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no workspace at %s; run 'modmap assemble' first", g.Dir)
		}
		return fmt.Errorf("reading meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("parsing meta.json: %w", err)
	}

	fmt.Printf("Workspace: %s\n", g.Dir)
	if v, ok := meta["version"].(string); ok {
		fmt.Printf("  Version:      %s\n", v)
	}
	if at, ok := meta["assembled_at"].(string); ok {
		fmt.Printf("  Assembled:    %s\n", at)
	}

	store, err := openStore(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  Rules:        %d\n", stats.Rules)
	fmt.Printf("  Embeddings:   %d\n", stats.Embeddings)

	man, err := store.GetManifest(ctx)
	if err != nil {
		return err
	}
	if man != nil {
		fmt.Printf("  Modules:      %d\n", len(man.Project.Modules))
		fmt.Printf("  Tracked:      %d\n", len(man.Tracked))

		diff := driftFor(g, man)
		if diff != nil && !diff.IsClean() {
			color.Yellow("  Drift:        %d added, %d modified, %d removed",
				len(diff.Added), len(diff.Modified), len(diff.Removed))
		} else if diff != nil {
			color.Green("  Drift:        clean")
		}
	}
	return nil
}

// MCPCmd starts the MCP server on stdio.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	ctx := context.Background()
	store, err := openStore(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := mcp.NewServer(store, g.Dir)
	if err := server.Reload(ctx); err != nil {
		return err
	}

	// No stderr chatter: stdio carries JSON-RPC only.
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// ServeCmd starts the MCP server, optionally re-assembling on changes.
type ServeCmd struct {
	Watch bool `short:"w" help:"Re-assemble and reload when inputs change"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		cancel()
	}()

	store, err := openStore(g, !c.Watch)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := mcp.NewServer(store, g.Dir)
	if err := server.Reload(ctx); err != nil {
		return err
	}

	if c.Watch {
		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")
		go func() {
			err := tracker.Watch(ctx, g.Dir, func(paths []string) {
				fmt.Fprintf(os.Stderr, "Changes detected (%d files), re-assembling...\n", len(paths))
				if err := reassemble(ctx, g, store); err != nil {
					fmt.Fprintf(os.Stderr, "Re-assembly failed: %v\n", err)
					return
				}
				if err := server.Reload(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Reload failed: %v\n", err)
				}
			})
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	return server.Run(ctx, os.Stdin, os.Stdout)
}

// reassemble reruns assembly with default paths into the open store.
func reassemble(ctx context.Context, g *Globals, store *storage.BadgerStore) error {
	_, _, err := manifest.Assemble(ctx, manifest.Options{
		MapPath:   g.path("modmap.json"),
		RulesDir:  g.path("rules"),
		SkillsDir: g.path("skills"),
		AgentsDir: g.path("agents"),
		Root:      g.Dir,
		OutPath:   g.workspace("manifest.json"),
		Generator: "modmap v" + Version,
		Store:     store,
	})
	if err != nil {
		return err
	}

	list, err := store.ListRules(ctx)
	if err != nil {
		return err
	}
	for name, vector := range embeddings.EmbedRules(list) {
		if err := store.PutEmbedding(ctx, name, vector); err != nil {
			return err
		}
	}
	return writeMeta(g)
}

// SetupCmd writes MCP client configuration.
type SetupCmd struct {
	Client string `arg:"" optional:"" default:"claude" enum:"claude,cursor" help:"Client to configure (claude|cursor)"`
	Global bool   `help:"Write the user-wide configuration instead of project-local"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	configPath := getLocalConfigPath(g.Dir, c.Client)
	if c.Global {
		configPath = getGlobalConfigPath(c.Client)
	}

	if err := writeConfig(configPath, generateClientConfig()); err != nil {
		return err
	}
	color.Green("✓ Created %s MCP config at %s", c.Client, configPath)
	return nil
}

func generateClientConfig() map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"modmap": map[string]any{
				"command": "modmap",
				"args":    []string{"serve", "--watch"},
			},
		},
	}
}

func getLocalConfigPath(basePath, client string) string {
	return filepath.Join(basePath, getClientConfigDir(client), "mcp.json")
}

func getGlobalConfigPath(client string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}
	return filepath.Join(homeDir, getClientConfigDir(client), "mcp.json")
}

func getClientConfigDir(client string) string {
	switch client {
	case "cursor":
		return ".cursor"
	default:
		return ".claude"
	}
}

func writeConfig(configPath string, config map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	content, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	content = append(content, '\n')

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// CleanCmd deletes the derived workspace state.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	dir := g.workspace()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no workspace at %s; nothing to clean", g.Dir)
	}

	if !c.Force {
		fmt.Printf("Delete derived state at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	color.Green("Deleted %s", dir)
	return nil
}

// Helper functions

// osSignalChannel returns a channel receiving shutdown signals.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// openStore opens the workspace store. Read-only callers get a clear
// error when assembly has never run.
func openStore(g *Globals, readOnly bool) (*storage.BadgerStore, error) {
	dbPath := g.workspace(storeSubdir)
	if readOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no store at %s; run 'modmap assemble' first", g.Dir)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating workspace directory: %w", err)
		}
	}
	return storage.OpenBadger(dbPath, readOnly)
}

// loadModuleMap reads and validates a module map document.
func loadModuleMap(g *Globals, path string) (*graph.ModuleMap, error) {
	data, err := os.ReadFile(g.path(path))
	if err != nil {
		return nil, fmt.Errorf("reading module map: %w", err)
	}
	return schema.LoadModuleMap(data)
}

// loadRuleSet loads and compiles a rules directory, printing loader
// diagnostics as warnings.
func loadRuleSet(g *Globals, dir string) (*rules.RuleSet, error) {
	list, diags, err := rules.LoadDir(g.path(dir))
	if err != nil {
		return nil, err
	}
	set := rules.NewRuleSet(list)
	for _, d := range append(diags, set.Diagnostics()...) {
		color.Yellow("Warning: %s", d)
	}
	return set, nil
}

// loadDrift reads the stored manifest and diffs its fingerprints
// against the current disk state.
func loadDrift(g *Globals) (*tracker.DiffResult, error) {
	store, err := openStore(g, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	man, err := store.GetManifest(context.Background())
	if err != nil {
		return nil, err
	}
	if man == nil {
		return nil, fmt.Errorf("no manifest in the store; run 'modmap assemble' first")
	}

	diff := driftFor(g, man)
	if diff == nil {
		return nil, fmt.Errorf("fingerprinting inputs failed")
	}
	return diff, nil
}

// driftFor diffs a manifest's tracked fingerprints against disk. A nil
// return means the current snapshot could not be taken.
func driftFor(g *Globals, man *manifest.Manifest) *tracker.DiffResult {
	recorded := make([]tracker.Record, 0, len(man.Tracked))
	inputs := make([]string, 0, len(man.Tracked))
	for _, tf := range man.Tracked {
		recorded = append(recorded, tracker.Record{Path: tf.Path, Hash: tf.Hash, Modified: tf.Modified})
		inputs = append(inputs, filepath.Join(g.Dir, filepath.FromSlash(tf.Path)))
	}

	current, err := tracker.Snapshot(g.Dir, inputs)
	if err != nil {
		return nil
	}
	return tracker.Diff(recorded, current)
}

// writeMeta records workspace metadata next to the store.
func writeMeta(g *Globals) error {
	meta := map[string]any{
		"version":        Version,
		"schema_version": graph.SchemaVersion,
		"store":          filepath.Join(workspaceDir, storeSubdir),
		"assembled_at":   time.Now().UTC().Format(time.RFC3339),
	}
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	if err := os.WriteFile(g.workspace("meta.json"), metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}
	return nil
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Validate ValidateCmd `cmd:"" help:"Validate a module map document"`
	Resolve  ResolveCmd  `cmd:"" help:"Resolve the rules applying to a context"`
	Module   ModuleCmd   `cmd:"" help:"Show the module owning a file path"`
	Impact   ImpactCmd   `cmd:"" help:"Show the blast radius of changing a module"`
	Assemble AssembleCmd `cmd:"" help:"Build the manifest and populate the store"`
	Rules    RulesCmd    `cmd:"" help:"List loaded rules"`
	Export   ExportCmd   `cmd:"" help:"Write stored rules to their canonical tree"`
	Track    TrackCmd    `cmd:"" help:"Report drift between manifest and disk"`
	Suggest  SuggestCmd  `cmd:"" help:"Propose groups and layers from dependencies"`
	Search   SearchCmd   `cmd:"" help:"Search the stored rules"`
	Status   StatusCmd   `cmd:"" help:"Show workspace status"`
	MCP      MCPCmd      `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve    ServeCmd    `cmd:"" help:"Start MCP server with optional watch mode"`
	Setup    SetupCmd    `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
	Clean    CleanCmd    `cmd:"" help:"Delete derived workspace state"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected
// command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("modmap"),
		kong.Description("Project architecture model and guidance resolver"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	return kongCtx.Run(&c.Globals)
}
