// Package plugin defines the skill and agent asset schemas: packaged
// instructions and delegate personas that ship alongside the
// architecture model. Assets live as Markdown documents with YAML front
// matter; this package holds their types, codecs, and directory
// scanners.
package plugin

import (
	"fmt"
	"strings"
)

// ContextMode selects how a skill executes.
type ContextMode string

const (
	// ContextFork runs the skill in a forked context.
	ContextFork ContextMode = "fork"

	// ContextInline runs the skill in the calling context.
	ContextInline ContextMode = "inline"
)

// ParseContextMode maps a string to a context mode, case-insensitively.
func ParseContextMode(s string) (ContextMode, error) {
	switch ContextMode(strings.ToLower(s)) {
	case ContextFork:
		return ContextFork, nil
	case ContextInline:
		return ContextInline, nil
	}
	return "", fmt.Errorf("unknown context mode: %s", s)
}

// SkillFile is an additional file bundled with a skill.
type SkillFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DefaultSkillVersion is the version of a skill that declares none.
const DefaultSkillVersion = "1.0.0"

// Skill is a packaged instruction set an agent can invoke.
type Skill struct {
	// Name uniquely identifies the skill (kebab-case).
	Name string `json:"name"`

	// Description is shown when listing skills.
	Description string `json:"description"`

	// Version is the skill's own semantic version.
	Version string `json:"version"`

	// AllowedTools restricts which tools the skill may use.
	AllowedTools []string `json:"allowed_tools,omitempty"`

	// Model overrides the model the skill runs on.
	Model string `json:"model,omitempty"`

	// Context selects the execution context; empty means fork.
	Context ContextMode `json:"context,omitempty"`

	// Agent names an agent the skill delegates to.
	Agent string `json:"agent,omitempty"`

	// UserInvocable controls slash-command invocation; nil means the
	// runtime default.
	UserInvocable *bool `json:"user_invocable,omitempty"`

	// ArgumentHint is shown next to the slash command.
	ArgumentHint string `json:"argument_hint,omitempty"`

	// DisableModelInvocation keeps the model from invoking the skill
	// on its own; nil means the runtime default.
	DisableModelInvocation *bool `json:"disable_model_invocation,omitempty"`

	// Body is the instruction Markdown.
	Body string `json:"body"`

	// AdditionalFiles are bundled next to the skill document.
	AdditionalFiles []SkillFile `json:"additional_files,omitempty"`
}

// NewSkill returns a skill at the default version with no tool
// restrictions.
func NewSkill(name, description, body string) *Skill {
	return &Skill{
		Name:        name,
		Description: description,
		Version:     DefaultSkillVersion,
		Body:        body,
	}
}

// Mode returns the effective context mode, fork when unset.
func (s *Skill) Mode() ContextMode {
	if s.Context == "" {
		return ContextFork
	}
	return s.Context
}

// DocumentPath returns the canonical location of the skill document
// relative to the asset root.
func (s *Skill) DocumentPath() string {
	return fmt.Sprintf("skills/%s/SKILL.md", s.Name)
}
