package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/junyeong-ai/modmap/internal/frontmatter"
)

// ruleDoc is the YAML front matter of a rule document. Priority is a
// pointer so an absent key can fall back to the category default.
type ruleDoc struct {
	Name         string   `yaml:"name,omitempty"`
	Paths        []string `yaml:"paths,omitempty"`
	Triggers     []string `yaml:"triggers,omitempty"`
	Priority     *int     `yaml:"priority,omitempty"`
	Category     string   `yaml:"category,omitempty"`
	AlwaysInject bool     `yaml:"always_inject,omitempty"`
}

// defaultPriorityFor returns what an absent priority key means for the
// given category. An implicit project category is the uncategorized
// state, not a deliberate project-level placement.
func defaultPriorityFor(c Category, explicit bool) int {
	if !explicit {
		return DefaultPriority
	}
	return c.DefaultPriority()
}

// ParseRuleDoc decodes one Markdown rule document.
//
// The document may open with YAML front matter delimited by "---" lines;
// everything after it is content. A document without front matter is all
// content. fallbackName fills in when the front matter has no name,
// normally the file stem. Recoverable oddities (unknown category,
// out-of-range priority) come back as diagnostics; malformed YAML and an
// unterminated front matter block are errors.
func ParseRuleDoc(data []byte, fallbackName string) (*Rule, []Diagnostic, error) {
	raw, body, found, err := frontmatter.Split(string(data))
	if err != nil {
		return nil, nil, err
	}
	if !found {
		r := NewRule(fallbackName, contentLines(body))
		return r, nil, nil
	}

	var doc ruleDoc
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, nil, fmt.Errorf("parse front matter: %w", err)
	}

	name := doc.Name
	if name == "" {
		name = fallbackName
	}

	var diags []Diagnostic
	category := CategoryProject
	explicit := false
	if doc.Category != "" {
		if c, ok := ParseCategory(doc.Category); ok {
			category = c
			explicit = true
		} else {
			diags = append(diags, Diagnostic{
				Kind:   DiagUnknownCategory,
				Rule:   name,
				Detail: fmt.Sprintf("unknown category %q; treating as project", doc.Category),
			})
		}
	}

	priority := defaultPriorityFor(category, explicit)
	if doc.Priority != nil {
		priority = *doc.Priority
		if priority < 0 || priority > 100 {
			clamped := min(max(priority, 0), 100)
			diags = append(diags, Diagnostic{
				Kind:   DiagPriorityClamped,
				Rule:   name,
				Detail: fmt.Sprintf("priority %d outside [0, 100]; clamped to %d", priority, clamped),
			})
			priority = clamped
		}
	}

	r := &Rule{
		Name:         name,
		Paths:        doc.Paths,
		Triggers:     doc.Triggers,
		Priority:     priority,
		Category:     category,
		AlwaysInject: doc.AlwaysInject,
		Content:      contentLines(body),
	}
	return r, diags, nil
}

func contentLines(body string) []string {
	if body == "" {
		return []string{}
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// RenderRuleDoc encodes a rule as a Markdown document, writing only
// fields that differ from their parse-side defaults so that render and
// parse round-trip.
func RenderRuleDoc(r *Rule) ([]byte, error) {
	doc := ruleDoc{
		Name:         r.Name,
		Paths:        r.Paths,
		Triggers:     r.Triggers,
		AlwaysInject: r.AlwaysInject,
	}
	explicit := r.Category != CategoryProject
	if explicit {
		doc.Category = string(r.Category)
	}
	if r.Priority != defaultPriorityFor(r.Category, explicit) {
		p := r.Priority
		doc.Priority = &p
	}

	front, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("render front matter: %w", err)
	}
	return frontmatter.Render(front, strings.Join(r.Content, "\n")), nil
}

// LoadDir reads every Markdown document under root into rules.
//
// Documents are visited in sorted path order so repeated loads produce
// the same rule list. A missing root yields an empty set; unreadable or
// malformed documents are errors naming the file.
func LoadDir(root string) ([]*Rule, []Diagnostic, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil, nil
	}

	paths, err := doublestar.FilepathGlob(filepath.Join(root, "**", "*.md"))
	if err != nil {
		return nil, nil, fmt.Errorf("scan rules directory: %w", err)
	}
	sort.Strings(paths)

	var (
		loaded []*Rule
		diags  []Diagnostic
	)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read rule document: %w", err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		r, docDiags, err := ParseRuleDoc(data, stem)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		loaded = append(loaded, r)
		diags = append(diags, docDiags...)
	}
	return loaded, diags, nil
}

// WriteDir renders every rule to its canonical location under root,
// creating category subdirectories as needed.
func WriteDir(root string, ruleList []*Rule) error {
	for _, r := range ruleList {
		data, err := RenderRuleDoc(r)
		if err != nil {
			return fmt.Errorf("render rule %q: %w", r.Name, err)
		}
		target := filepath.Join(root, filepath.FromSlash(r.OutputPath()))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create rules directory: %w", err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("write rule %q: %w", r.Name, err)
		}
	}
	return nil
}
