package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSkillDoc(t *testing.T) {
	t.Parallel()

	t.Run("FullFrontMatter", func(t *testing.T) {
		t.Parallel()

		doc := `---
name: code-review
description: Review code for issues
version: 2.1.0
allowed_tools:
  - Read
  - Grep
context: inline
user_invocable: true
---

# Code Review

Look for correctness first.
`
		s, err := ParseSkillDoc([]byte(doc), "fallback")
		require.NoError(t, err)

		assert.Equal(t, "code-review", s.Name)
		assert.Equal(t, "Review code for issues", s.Description)
		assert.Equal(t, "2.1.0", s.Version)
		assert.Equal(t, []string{"Read", "Grep"}, s.AllowedTools)
		assert.Equal(t, ContextInline, s.Context)
		require.NotNil(t, s.UserInvocable)
		assert.True(t, *s.UserInvocable)
		assert.Equal(t, "# Code Review\n\nLook for correctness first.", s.Body)
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		t.Parallel()

		s, err := ParseSkillDoc([]byte("---\ndescription: d\n---\nbody\n"), "implement")
		require.NoError(t, err)

		assert.Equal(t, "implement", s.Name)
		assert.Equal(t, DefaultSkillVersion, s.Version)
		assert.Equal(t, ContextFork, s.Mode())
		assert.Nil(t, s.UserInvocable)
	})

	t.Run("UnknownContextMode", func(t *testing.T) {
		t.Parallel()

		_, err := ParseSkillDoc([]byte("---\nname: x\ncontext: parallel\n---\nbody\n"), "x")
		require.Error(t, err)
	})
}

func TestRenderSkillDoc_RoundTrip(t *testing.T) {
	t.Parallel()

	invocable := false
	orig := NewSkill("implement", "Implements features", "# Implement\n\nWork bottom-up.")
	orig.AllowedTools = []string{"Read", "Edit", "Bash"}
	orig.Context = ContextInline
	orig.UserInvocable = &invocable
	orig.ArgumentHint = "<feature>"

	data, err := RenderSkillDoc(orig)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 1.0.0")

	back, err := ParseSkillDoc(data, "implement")
	require.NoError(t, err)
	assert.Equal(t, orig, back)
}

func TestParseAgentDoc(t *testing.T) {
	t.Parallel()

	t.Run("FullFrontMatter", func(t *testing.T) {
		t.Parallel()

		doc := `---
name: reviewer
description: Reviews changes
color: green
tools:
  - Read
  - Grep
model: sonnet
permission_mode: accept_edits
skills:
  - code-review
consensus:
  priority: 80
  can_veto: true
examples:
  - context: after a change
    user: review this
    assistant: starting review
---

You review code with care.
`
		a, err := ParseAgentDoc([]byte(doc), "fallback")
		require.NoError(t, err)

		assert.Equal(t, "reviewer", a.Name)
		assert.Equal(t, ColorGreen, a.Color)
		assert.Equal(t, ModelSonnet, a.Model)
		assert.Equal(t, PermissionAcceptEdits, a.PermissionMode)
		assert.Equal(t, []string{"code-review"}, a.Skills)
		require.NotNil(t, a.Consensus)
		assert.Equal(t, 80, a.Consensus.Priority)
		assert.True(t, a.Consensus.CanVeto)
		assert.InDelta(t, 0.67, a.Consensus.VoteThreshold, 1e-9)
		require.Len(t, a.Examples, 1)
		assert.Equal(t, "review this", a.Examples[0].User)
		assert.Equal(t, "You review code with care.", a.Prompt)
	})

	t.Run("UnknownEnumsFallBack", func(t *testing.T) {
		t.Parallel()

		doc := "---\nname: odd\ncolor: teal\nmodel: gpt\npermission_mode: yolo\n---\nprompt\n"
		a, err := ParseAgentDoc([]byte(doc), "odd")
		require.NoError(t, err)

		assert.Equal(t, ColorBlue, a.Color)
		assert.Equal(t, ModelInherit, a.Model)
		assert.Equal(t, PermissionDefault, a.PermissionMode)
	})

	t.Run("NameFallsBackToStem", func(t *testing.T) {
		t.Parallel()

		a, err := ParseAgentDoc([]byte("Just a prompt.\n"), "minimal")
		require.NoError(t, err)
		assert.Equal(t, "minimal", a.Name)
		assert.Equal(t, "Just a prompt.", a.Prompt)
	})
}

func TestRenderAgentDoc_RoundTrip(t *testing.T) {
	t.Parallel()

	orig := NewAgent("planner", "Plans work", "Break tasks into steps.")
	orig.Color = ColorPurple
	orig.Model = ModelOpus
	orig.PermissionMode = PermissionPlan
	orig.Tools = []string{"Read"}
	orig.Consensus = NewConsensusRole(60)
	orig.Consensus.VoteThreshold = 0.75
	orig.Examples = []AgentExample{{Context: "c", User: "u", Assistant: "a"}}

	data, err := RenderAgentDoc(orig)
	require.NoError(t, err)

	back, err := ParseAgentDoc(data, "planner")
	require.NoError(t, err)
	assert.Equal(t, orig, back)
}

func TestLoadSkills(t *testing.T) {
	t.Parallel()

	t.Run("ScansDirectories", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeAssetFile(t, root, "code-review/SKILL.md", "---\ndescription: reviews\n---\n# Review\n")
		writeAssetFile(t, root, "code-review/reference.md", "# Checklist\n")
		writeAssetFile(t, root, "implement/SKILL.md", "---\nname: implement\n---\n# Implement\n")
		writeAssetFile(t, root, "not-a-skill/notes.txt", "skip me")
		writeAssetFile(t, root, "stray.md", "not inside a skill directory")

		skills, err := LoadSkills(root)
		require.NoError(t, err)
		require.Len(t, skills, 2)

		assert.Equal(t, "code-review", skills[0].Name)
		require.Len(t, skills[0].AdditionalFiles, 1)
		assert.Equal(t, "reference.md", skills[0].AdditionalFiles[0].Name)
		assert.Equal(t, "# Checklist\n", skills[0].AdditionalFiles[0].Content)

		assert.Equal(t, "implement", skills[1].Name)
		assert.Empty(t, skills[1].AdditionalFiles)
	})

	t.Run("MissingRootIsEmpty", func(t *testing.T) {
		t.Parallel()

		skills, err := LoadSkills(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, skills)
	})
}

func TestWriteSkills_RoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewSkill("code-review", "Reviews code", "# Review")
	s.AdditionalFiles = []SkillFile{{Name: "checklist.md", Content: "- correctness\n"}}

	require.NoError(t, WriteSkills(root, []*Skill{s}))
	assert.FileExists(t, filepath.Join(root, "code-review", "SKILL.md"))
	assert.FileExists(t, filepath.Join(root, "code-review", "checklist.md"))

	back, err := LoadSkills(root)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, s, back[0])
}

func TestLoadAgents(t *testing.T) {
	t.Parallel()

	t.Run("ScansDocuments", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeAssetFile(t, root, "planner.md", "---\ndescription: plans\n---\nPlan.\n")
		writeAssetFile(t, root, "reviewer.md", "---\nname: reviewer\ncolor: red\n---\nReview.\n")
		writeAssetFile(t, root, "notes.txt", "skip me")

		agents, err := LoadAgents(root)
		require.NoError(t, err)
		require.Len(t, agents, 2)

		assert.Equal(t, "planner", agents[0].Name)
		assert.Equal(t, "reviewer", agents[1].Name)
		assert.Equal(t, ColorRed, agents[1].Color)
	})

	t.Run("MissingRootIsEmpty", func(t *testing.T) {
		t.Parallel()

		agents, err := LoadAgents(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, agents)
	})
}

func TestWriteAgents_RoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := NewAgent("reviewer", "Reviews changes", "Review carefully.")
	a.Color = ColorGreen

	require.NoError(t, WriteAgents(root, []*Agent{a}))
	assert.FileExists(t, filepath.Join(root, "reviewer.md"))

	back, err := LoadAgents(root)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, a, back[0])
}

func writeAssetFile(t *testing.T, root, rel, content string) {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}
