package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleCmd_Run(t *testing.T) {
	t.Parallel()

	dir := writeFixtureProject(t)

	t.Run("OwnedPath", func(t *testing.T) {
		cmd := &ModuleCmd{Path: "src/auth/session.go", Map: "modmap.json"}
		assert.NoError(t, cmd.Run(&Globals{Dir: dir}))
	})

	t.Run("UnownedPath", func(t *testing.T) {
		cmd := &ModuleCmd{Path: "docs/readme.md", Map: "modmap.json"}
		assert.Error(t, cmd.Run(&Globals{Dir: dir}))
	})

	t.Run("MissingMap", func(t *testing.T) {
		cmd := &ModuleCmd{Path: "src/auth/session.go", Map: "modmap.json"}
		assert.Error(t, cmd.Run(&Globals{Dir: t.TempDir()}))
	})
}

func TestImpactCmd_Run(t *testing.T) {
	t.Parallel()

	dir := writeFixtureProject(t)

	t.Run("WithDependents", func(t *testing.T) {
		cmd := &ImpactCmd{Module: "db", Depth: 3, Map: "modmap.json"}
		assert.NoError(t, cmd.Run(&Globals{Dir: dir}))
	})

	t.Run("LeafModule", func(t *testing.T) {
		cmd := &ImpactCmd{Module: "billing", Depth: 3, Map: "modmap.json"}
		assert.NoError(t, cmd.Run(&Globals{Dir: dir}))
	})

	t.Run("UnknownModule", func(t *testing.T) {
		cmd := &ImpactCmd{Module: "ghost", Depth: 3, Map: "modmap.json"}
		assert.Error(t, cmd.Run(&Globals{Dir: dir}))
	})
}

func TestSuggestCmd_Run(t *testing.T) {
	t.Parallel()

	dir := writeFixtureProject(t)

	t.Run("Both", func(t *testing.T) {
		cmd := &SuggestCmd{Map: "modmap.json"}
		assert.NoError(t, cmd.Run(&Globals{Dir: dir}))
	})

	t.Run("GroupsOnly", func(t *testing.T) {
		cmd := &SuggestCmd{Map: "modmap.json", Groups: true}
		assert.NoError(t, cmd.Run(&Globals{Dir: dir}))
	})

	t.Run("LayersOnly", func(t *testing.T) {
		cmd := &SuggestCmd{Map: "modmap.json", Layers: true}
		assert.NoError(t, cmd.Run(&Globals{Dir: dir}))
	})
}
