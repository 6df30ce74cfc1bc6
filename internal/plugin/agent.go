package plugin

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AgentColor is the UI accent color of an agent.
type AgentColor string

const (
	ColorBlue   AgentColor = "blue"
	ColorGreen  AgentColor = "green"
	ColorPurple AgentColor = "purple"
	ColorOrange AgentColor = "orange"
	ColorRed    AgentColor = "red"
)

// ParseAgentColor maps a string to a color, case-insensitively. Unknown
// strings fall back to blue.
func ParseAgentColor(s string) AgentColor {
	switch AgentColor(strings.ToLower(s)) {
	case ColorGreen:
		return ColorGreen
	case ColorPurple:
		return ColorPurple
	case ColorOrange:
		return ColorOrange
	case ColorRed:
		return ColorRed
	}
	return ColorBlue
}

// AgentModel selects the model an agent runs on.
type AgentModel string

const (
	ModelSonnet  AgentModel = "sonnet"
	ModelOpus    AgentModel = "opus"
	ModelHaiku   AgentModel = "haiku"
	ModelInherit AgentModel = "inherit"
)

// ParseAgentModel maps a string to a model, case-insensitively. Unknown
// strings fall back to inherit.
func ParseAgentModel(s string) AgentModel {
	switch AgentModel(strings.ToLower(s)) {
	case ModelSonnet:
		return ModelSonnet
	case ModelOpus:
		return ModelOpus
	case ModelHaiku:
		return ModelHaiku
	}
	return ModelInherit
}

// PermissionMode controls how agent tool calls are approved.
type PermissionMode string

const (
	PermissionDefault           PermissionMode = "default"
	PermissionAcceptEdits       PermissionMode = "acceptEdits"
	PermissionDontAsk           PermissionMode = "dontAsk"
	PermissionBypassPermissions PermissionMode = "bypassPermissions"
	PermissionPlan              PermissionMode = "plan"
)

// ParsePermissionMode maps a string to a permission mode, tolerating
// case and snake_case variants. Unknown strings fall back to default.
func ParsePermissionMode(s string) PermissionMode {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "") {
	case "acceptedits":
		return PermissionAcceptEdits
	case "dontask":
		return PermissionDontAsk
	case "bypasspermissions":
		return PermissionBypassPermissions
	case "plan":
		return PermissionPlan
	}
	return PermissionDefault
}

// DefaultVoteThreshold is the approval threshold of a consensus role
// that declares none.
const DefaultVoteThreshold = 0.67

// ConsensusRole configures an agent's weight in multi-agent consensus.
type ConsensusRole struct {
	// Priority is the agent's weight, higher counts for more.
	Priority int `json:"priority"`

	// CanVeto lets the agent block a decision outright.
	CanVeto bool `json:"can_veto"`

	// VoteThreshold is the approval share required, in [0, 1].
	VoteThreshold float64 `json:"vote_threshold"`
}

// NewConsensusRole returns a role at the default vote threshold with no
// veto power.
func NewConsensusRole(priority int) *ConsensusRole {
	return &ConsensusRole{
		Priority:      priority,
		VoteThreshold: DefaultVoteThreshold,
	}
}

// UnmarshalJSON applies the default vote threshold when the document
// omits the key.
func (c *ConsensusRole) UnmarshalJSON(data []byte) error {
	type plain ConsensusRole
	tmp := plain{VoteThreshold: DefaultVoteThreshold}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*c = ConsensusRole(tmp)
	return nil
}

// AgentExample is one worked interaction in an agent definition.
type AgentExample struct {
	Context    string `json:"context"`
	User       string `json:"user"`
	Assistant  string `json:"assistant"`
	Commentary string `json:"commentary,omitempty"`
}

// Agent is a delegate persona with its own prompt, tool surface, and
// optional consensus role.
type Agent struct {
	// Name uniquely identifies the agent (kebab-case).
	Name string `json:"name"`

	// Description is shown when listing agents.
	Description string `json:"description"`

	// Color accents the agent in UIs; empty means blue.
	Color AgentColor `json:"color,omitempty"`

	// Tools the agent may use.
	Tools []string `json:"tools,omitempty"`

	// DisallowedTools the agent must not use.
	DisallowedTools []string `json:"disallowed_tools,omitempty"`

	// Model overrides the model; empty means inherit.
	Model AgentModel `json:"model,omitempty"`

	// PermissionMode controls tool-call approval.
	PermissionMode PermissionMode `json:"permission_mode,omitempty"`

	// Skills the agent can invoke.
	Skills []string `json:"skills,omitempty"`

	// Consensus is the agent's role in multi-agent coordination.
	Consensus *ConsensusRole `json:"consensus,omitempty"`

	// Prompt is the system prompt Markdown.
	Prompt string `json:"prompt"`

	// Examples are worked interactions illustrating the persona.
	Examples []AgentExample `json:"examples,omitempty"`
}

// NewAgent returns an agent with inherited model and default
// permissions.
func NewAgent(name, description, prompt string) *Agent {
	return &Agent{
		Name:        name,
		Description: description,
		Prompt:      prompt,
	}
}

// EffectiveColor returns the color, blue when unset.
func (a *Agent) EffectiveColor() AgentColor {
	if a.Color == "" {
		return ColorBlue
	}
	return a.Color
}

// EffectiveModel returns the model, inherit when unset.
func (a *Agent) EffectiveModel() AgentModel {
	if a.Model == "" {
		return ModelInherit
	}
	return a.Model
}

// DocumentPath returns the canonical location of the agent document
// relative to the asset root.
func (a *Agent) DocumentPath() string {
	return fmt.Sprintf("agents/%s.md", a.Name)
}
