// Package rules implements context-aware guidance resolution for modmap.
//
// A Rule is a unit of injectable guidance with matching metadata: glob
// patterns over file paths, keyword triggers, a category, and an
// injection priority. A RuleSet compiles a flat rule collection into an
// immutable snapshot that resolves the rules applying to a (path,
// triggers) context into a deterministically ordered list.
package rules

import "fmt"

// Category organizes rules hierarchically. Each category carries a fixed
// default priority and a canonical output subdirectory.
type Category string

const (
	CategoryProject   Category = "project"
	CategoryTech      Category = "tech"
	CategoryFramework Category = "framework"
	CategoryModule    Category = "module"
	CategoryGroup     Category = "group"
	CategoryDomain    Category = "domain"
)

// DefaultPriority is the priority of a rule that was never categorized,
// sitting below every categorical default.
const DefaultPriority = 50

// DefaultPriority returns the fixed priority constant of the category.
// Unknown categories fall back to the uncategorized default.
func (c Category) DefaultPriority() int {
	switch c {
	case CategoryProject:
		return 100
	case CategoryTech:
		return 90
	case CategoryFramework:
		return 85
	case CategoryModule:
		return 80
	case CategoryGroup:
		return 70
	case CategoryDomain:
		return 60
	}
	return DefaultPriority
}

// Subdirectory returns the canonical output subdirectory for the
// category. Project rules sit at the rules root.
func (c Category) Subdirectory() string {
	switch c {
	case CategoryTech:
		return "tech"
	case CategoryFramework:
		return "frameworks"
	case CategoryModule:
		return "modules"
	case CategoryGroup:
		return "groups"
	case CategoryDomain:
		return "domains"
	}
	return ""
}

// ParseCategory maps a string to a known category. The second return is
// false for anything unrecognized.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryProject, CategoryTech, CategoryFramework, CategoryModule, CategoryGroup, CategoryDomain:
		return Category(s), true
	}
	return "", false
}

// categoryBySubdirectory reverses Subdirectory for the canonical rule
// tree layout. The empty string maps to project.
func categoryBySubdirectory(dir string) (Category, bool) {
	switch dir {
	case "":
		return CategoryProject, true
	case "tech":
		return CategoryTech, true
	case "frameworks":
		return CategoryFramework, true
	case "modules":
		return CategoryModule, true
	case "groups":
		return CategoryGroup, true
	case "domains":
		return CategoryDomain, true
	}
	return "", false
}

// Rule is a unit of injectable guidance.
//
// Category and Priority are independent fields: SetCategory resets the
// priority to the category's default, and an explicit override must
// happen after categorization to survive.
type Rule struct {
	// Name uniquely identifies the rule (kebab-case by convention).
	Name string `json:"name"`

	// Paths holds glob patterns for path-based matching.
	Paths []string `json:"paths,omitempty"`

	// Triggers holds keywords for trigger-based matching.
	Triggers []string `json:"triggers,omitempty"`

	// Priority orders injection, higher first, range 0-100.
	Priority int `json:"priority"`

	// Category places the rule in the hierarchy.
	Category Category `json:"category"`

	// AlwaysInject makes the rule match every context.
	AlwaysInject bool `json:"always_inject"`

	// Content holds the guidance text as ordered Markdown lines.
	Content []string `json:"content"`
}

// NewRule returns an uncategorized rule: category project, priority 50,
// no matching metadata.
func NewRule(name string, content []string) *Rule {
	return &Rule{
		Name:     name,
		Priority: DefaultPriority,
		Category: CategoryProject,
		Content:  content,
	}
}

// ProjectRule returns a project-wide rule that always injects.
func ProjectRule(name string, content []string) *Rule {
	return &Rule{
		Name:         name,
		Paths:        []string{"**/*"},
		Priority:     CategoryProject.DefaultPriority(),
		Category:     CategoryProject,
		AlwaysInject: true,
		Content:      content,
	}
}

// TechRule returns a language rule matched by path patterns.
func TechRule(name string, paths, content []string) *Rule {
	return &Rule{
		Name:     name,
		Paths:    paths,
		Priority: CategoryTech.DefaultPriority(),
		Category: CategoryTech,
		Content:  content,
	}
}

// FrameworkRule returns a framework rule matched by paths or triggers.
func FrameworkRule(name string, paths, triggers, content []string) *Rule {
	return &Rule{
		Name:     name,
		Paths:    paths,
		Triggers: triggers,
		Priority: CategoryFramework.DefaultPriority(),
		Category: CategoryFramework,
		Content:  content,
	}
}

// ModuleRule returns a module rule matched by the module's paths.
func ModuleRule(name string, paths, content []string) *Rule {
	return &Rule{
		Name:     name,
		Paths:    paths,
		Priority: CategoryModule.DefaultPriority(),
		Category: CategoryModule,
		Content:  content,
	}
}

// GroupRule returns a group rule matched by member paths.
func GroupRule(name string, paths, content []string) *Rule {
	return &Rule{
		Name:     name,
		Paths:    paths,
		Priority: CategoryGroup.DefaultPriority(),
		Category: CategoryGroup,
		Content:  content,
	}
}

// DomainRule returns a domain rule matched by keyword triggers.
func DomainRule(name string, triggers, content []string) *Rule {
	return &Rule{
		Name:     name,
		Triggers: triggers,
		Priority: CategoryDomain.DefaultPriority(),
		Category: CategoryDomain,
		Content:  content,
	}
}

// SetCategory assigns the category and resets Priority to its default.
// Explicit priority overrides never survive a category change; set
// Priority after calling SetCategory to override.
func (r *Rule) SetCategory(c Category) *Rule {
	r.Priority = c.DefaultPriority()
	r.Category = c
	return r
}

// OutputPath returns the canonical on-disk location of the rule inside a
// rule tree: "<subdirectory>/<name>.md", or "<name>.md" for project
// rules.
func (r *Rule) OutputPath() string {
	subdir := r.Category.Subdirectory()
	if subdir == "" {
		return r.Name + ".md"
	}
	return fmt.Sprintf("%s/%s.md", subdir, r.Name)
}
