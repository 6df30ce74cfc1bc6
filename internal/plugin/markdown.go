package plugin

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/junyeong-ai/modmap/internal/frontmatter"
)

// skillDoc is the YAML front matter of a skill document.
type skillDoc struct {
	Name                   string   `yaml:"name,omitempty"`
	Description            string   `yaml:"description,omitempty"`
	Version                string   `yaml:"version,omitempty"`
	AllowedTools           []string `yaml:"allowed_tools,omitempty"`
	Model                  string   `yaml:"model,omitempty"`
	Context                string   `yaml:"context,omitempty"`
	Agent                  string   `yaml:"agent,omitempty"`
	UserInvocable          *bool    `yaml:"user_invocable,omitempty"`
	ArgumentHint           string   `yaml:"argument_hint,omitempty"`
	DisableModelInvocation *bool    `yaml:"disable_model_invocation,omitempty"`
}

// ParseSkillDoc decodes one skill document. fallbackName fills in when
// the front matter has no name, normally the skill directory name.
func ParseSkillDoc(data []byte, fallbackName string) (*Skill, error) {
	raw, body, found, err := frontmatter.Split(string(data))
	if err != nil {
		return nil, err
	}

	var doc skillDoc
	if found {
		if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("parse front matter: %w", err)
		}
	}

	s := &Skill{
		Name:                   doc.Name,
		Description:            doc.Description,
		Version:                doc.Version,
		AllowedTools:           doc.AllowedTools,
		Agent:                  doc.Agent,
		Model:                  doc.Model,
		UserInvocable:          doc.UserInvocable,
		ArgumentHint:           doc.ArgumentHint,
		DisableModelInvocation: doc.DisableModelInvocation,
		Body:                   strings.TrimRight(body, "\r\n"),
	}
	if s.Name == "" {
		s.Name = fallbackName
	}
	if s.Version == "" {
		s.Version = DefaultSkillVersion
	}
	if doc.Context != "" {
		mode, err := ParseContextMode(doc.Context)
		if err != nil {
			return nil, err
		}
		s.Context = mode
	}
	return s, nil
}

// RenderSkillDoc encodes a skill as a SKILL.md document. Additional
// files are not part of the document; WriteSkills places them next to
// it.
func RenderSkillDoc(s *Skill) ([]byte, error) {
	doc := skillDoc{
		Name:                   s.Name,
		Description:            s.Description,
		Version:                s.Version,
		AllowedTools:           s.AllowedTools,
		Model:                  s.Model,
		Context:                string(s.Context),
		Agent:                  s.Agent,
		UserInvocable:          s.UserInvocable,
		ArgumentHint:           s.ArgumentHint,
		DisableModelInvocation: s.DisableModelInvocation,
	}
	front, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("render front matter: %w", err)
	}
	return frontmatter.Render(front, s.Body), nil
}

// consensusDoc mirrors ConsensusRole with an optional threshold so an
// absent key falls back to the default.
type consensusDoc struct {
	Priority      int      `yaml:"priority"`
	CanVeto       bool     `yaml:"can_veto,omitempty"`
	VoteThreshold *float64 `yaml:"vote_threshold,omitempty"`
}

type exampleDoc struct {
	Context    string `yaml:"context"`
	User       string `yaml:"user"`
	Assistant  string `yaml:"assistant"`
	Commentary string `yaml:"commentary,omitempty"`
}

// agentDoc is the YAML front matter of an agent document.
type agentDoc struct {
	Name            string        `yaml:"name,omitempty"`
	Description     string        `yaml:"description,omitempty"`
	Color           string        `yaml:"color,omitempty"`
	Tools           []string      `yaml:"tools,omitempty"`
	DisallowedTools []string      `yaml:"disallowed_tools,omitempty"`
	Model           string        `yaml:"model,omitempty"`
	PermissionMode  string        `yaml:"permission_mode,omitempty"`
	Skills          []string      `yaml:"skills,omitempty"`
	Consensus       *consensusDoc `yaml:"consensus,omitempty"`
	Examples        []exampleDoc  `yaml:"examples,omitempty"`
}

// ParseAgentDoc decodes one agent document. Unknown color, model, and
// permission strings fall back to their defaults rather than failing;
// agent documents are edited by hand more than any other asset.
func ParseAgentDoc(data []byte, fallbackName string) (*Agent, error) {
	raw, body, found, err := frontmatter.Split(string(data))
	if err != nil {
		return nil, err
	}

	var doc agentDoc
	if found {
		if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("parse front matter: %w", err)
		}
	}

	a := &Agent{
		Name:            doc.Name,
		Description:     doc.Description,
		Tools:           doc.Tools,
		DisallowedTools: doc.DisallowedTools,
		Skills:          doc.Skills,
		Prompt:          strings.TrimRight(body, "\r\n"),
	}
	if a.Name == "" {
		a.Name = fallbackName
	}
	if doc.Color != "" {
		a.Color = ParseAgentColor(doc.Color)
	}
	if doc.Model != "" {
		a.Model = ParseAgentModel(doc.Model)
	}
	if doc.PermissionMode != "" {
		a.PermissionMode = ParsePermissionMode(doc.PermissionMode)
	}
	if doc.Consensus != nil {
		role := NewConsensusRole(doc.Consensus.Priority)
		role.CanVeto = doc.Consensus.CanVeto
		if doc.Consensus.VoteThreshold != nil {
			role.VoteThreshold = *doc.Consensus.VoteThreshold
		}
		a.Consensus = role
	}
	for _, ex := range doc.Examples {
		a.Examples = append(a.Examples, AgentExample(ex))
	}
	return a, nil
}

// RenderAgentDoc encodes an agent as a Markdown document, writing only
// fields that differ from their parse-side defaults.
func RenderAgentDoc(a *Agent) ([]byte, error) {
	doc := agentDoc{
		Name:            a.Name,
		Description:     a.Description,
		Color:           string(a.Color),
		Tools:           a.Tools,
		DisallowedTools: a.DisallowedTools,
		Model:           string(a.Model),
		PermissionMode:  string(a.PermissionMode),
		Skills:          a.Skills,
	}
	if a.Consensus != nil {
		c := &consensusDoc{
			Priority: a.Consensus.Priority,
			CanVeto:  a.Consensus.CanVeto,
		}
		if a.Consensus.VoteThreshold != DefaultVoteThreshold {
			threshold := a.Consensus.VoteThreshold
			c.VoteThreshold = &threshold
		}
		doc.Consensus = c
	}
	for _, ex := range a.Examples {
		doc.Examples = append(doc.Examples, exampleDoc(ex))
	}

	front, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("render front matter: %w", err)
	}
	return frontmatter.Render(front, a.Prompt), nil
}

// LoadSkills scans a skills root for <name>/SKILL.md documents. Sibling
// files in a skill directory load as additional files. Directories
// without a SKILL.md are skipped; a missing root yields an empty
// inventory.
func LoadSkills(root string) ([]*Skill, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan skills directory: %w", err)
	}

	var skills []*Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		data, err := os.ReadFile(filepath.Join(dir, "SKILL.md"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read skill document: %w", err)
		}

		s, err := ParseSkillDoc(data, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("skill %s: %w", entry.Name(), err)
		}
		if err := loadAdditionalFiles(dir, s); err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, nil
}

func loadAdditionalFiles(dir string, s *Skill) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "SKILL.md" {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read skill file %s: %w", rel, err)
		}
		s.AdditionalFiles = append(s.AdditionalFiles, SkillFile{Name: rel, Content: string(content)})
		return nil
	})
}

// WriteSkills renders every skill into its directory under root,
// including additional files.
func WriteSkills(root string, skills []*Skill) error {
	for _, s := range skills {
		dir := filepath.Join(root, s.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create skill directory: %w", err)
		}

		doc, err := RenderSkillDoc(s)
		if err != nil {
			return fmt.Errorf("render skill %q: %w", s.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), doc, 0o644); err != nil {
			return fmt.Errorf("write skill %q: %w", s.Name, err)
		}

		for _, f := range s.AdditionalFiles {
			target := filepath.Join(dir, filepath.FromSlash(f.Name))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create skill directory: %w", err)
			}
			if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
				return fmt.Errorf("write skill file %q: %w", f.Name, err)
			}
		}
	}
	return nil
}

// LoadAgents scans an agents root for <name>.md documents. A missing
// root yields an empty inventory.
func LoadAgents(root string) ([]*Agent, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agents directory: %w", err)
	}

	var agents []*Agent
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read agent document: %w", err)
		}

		stem := strings.TrimSuffix(entry.Name(), ".md")
		a, err := ParseAgentDoc(data, stem)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", stem, err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// WriteAgents renders every agent to <name>.md under root.
func WriteAgents(root string, agents []*Agent) error {
	if len(agents) == 0 {
		return nil
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create agents directory: %w", err)
	}
	for _, a := range agents {
		doc, err := RenderAgentDoc(a)
		if err != nil {
			return fmt.Errorf("render agent %q: %w", a.Name, err)
		}
		if err := os.WriteFile(filepath.Join(root, a.Name+".md"), doc, 0o644); err != nil {
			return fmt.Errorf("write agent %q: %w", a.Name, err)
		}
	}
	return nil
}
