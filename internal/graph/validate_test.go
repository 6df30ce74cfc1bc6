package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMap() *ModuleMap {
	m := New(GeneratorInfo{Name: "modmap", Version: "0.3.0"}, testProject(),
		[]Module{
			{ID: "auth", Paths: []string{"src/auth"}, Dependencies: []ModuleDependency{RuntimeDep("db")}},
			{ID: "db", Paths: []string{"src/db"}},
		},
		[]ModuleGroup{
			{ID: "core", ModuleIDs: []string{"auth", "db"}, LeaderModule: "auth", DomainID: "platform"},
			{ID: "core-auth", ModuleIDs: []string{"auth"}, ParentGroupID: "core", Depth: 1},
		},
	)
	m.Domains = []Domain{{ID: "platform", GroupIDs: []string{"core"}}}
	m.DependencyGraph = &DependencyGraph{
		Edges:  []DependencyEdge{{From: "auth", To: "db"}},
		Layers: []ArchitectureLayer{{Name: "foundation", Modules: []string{"db"}}},
	}
	return m
}

func integrityViolations(t *testing.T, err error) []error {
	t.Helper()
	var agg *IntegrityError
	require.ErrorAs(t, err, &agg)
	require.NotEmpty(t, agg.Violations)
	return agg.Violations
}

func TestModuleMap_Validate_Clean(t *testing.T) {
	t.Parallel()

	require.NoError(t, validMap().Validate())
}

func TestModuleMap_Validate_DanglingModuleFromGroup(t *testing.T) {
	t.Parallel()

	m := validMap()
	m.Groups[0].ModuleIDs = append(m.Groups[0].ModuleIDs, "ghost")

	err := m.Validate()
	violations := integrityViolations(t, err)
	require.Len(t, violations, 1)

	var dangling *DanglingModuleReference
	require.ErrorAs(t, violations[0], &dangling)
	assert.Equal(t, "ghost", dangling.MissingID)
	assert.Equal(t, "group core", dangling.From)
}

func TestModuleMap_Validate_DanglingModuleFromDependency(t *testing.T) {
	t.Parallel()

	m := validMap()
	m.Modules[0].Dependencies = append(m.Modules[0].Dependencies, RuntimeDep("ghost"))

	var dangling *DanglingModuleReference
	require.ErrorAs(t, m.Validate(), &dangling)
	assert.Equal(t, "module auth", dangling.From)
	assert.Equal(t, "ghost", dangling.MissingID)
}

func TestModuleMap_Validate_DanglingLeaderAndEdges(t *testing.T) {
	t.Parallel()

	m := validMap()
	m.Groups[0].LeaderModule = "ghost"
	m.DependencyGraph.Edges = append(m.DependencyGraph.Edges, DependencyEdge{From: "auth", To: "phantom"})
	m.DependencyGraph.Layers[0].Modules = append(m.DependencyGraph.Layers[0].Modules, "specter")

	violations := integrityViolations(t, m.Validate())
	missing := map[string]bool{}
	for _, v := range violations {
		var dangling *DanglingModuleReference
		require.ErrorAs(t, v, &dangling)
		missing[dangling.MissingID] = true
	}
	assert.Equal(t, map[string]bool{"ghost": true, "phantom": true, "specter": true}, missing)
}

func TestModuleMap_Validate_DanglingGroupAndDomain(t *testing.T) {
	t.Parallel()

	m := validMap()
	m.Domains[0].GroupIDs = append(m.Domains[0].GroupIDs, "ghost-group")
	m.Groups[0].DomainID = "ghost-domain"

	violations := integrityViolations(t, m.Validate())
	require.Len(t, violations, 2)

	var group *DanglingGroupReference
	var domain *DanglingDomainReference
	assert.True(t, errors.As(violations[1], &group) || errors.As(violations[0], &group))
	assert.True(t, errors.As(violations[0], &domain) || errors.As(violations[1], &domain))
	assert.Equal(t, "ghost-group", group.MissingID)
	assert.Equal(t, "ghost-domain", domain.MissingID)
}

func TestModuleMap_Validate_DuplicateModuleID(t *testing.T) {
	t.Parallel()

	m := validMap()
	m.Modules = append(m.Modules, Module{ID: "auth", Paths: []string{"other"}})

	var dup *DuplicateModuleID
	require.ErrorAs(t, m.Validate(), &dup)
	assert.Equal(t, "auth", dup.ID)
}

func TestModuleMap_Validate_DepthMismatch(t *testing.T) {
	t.Parallel()

	t.Run("RootWithNonzeroDepth", func(t *testing.T) {
		t.Parallel()
		m := validMap()
		m.Groups[0].Depth = 2

		violations := integrityViolations(t, m.Validate())
		var mismatch *GroupDepthMismatch
		found := false
		for _, v := range violations {
			if errors.As(v, &mismatch) && mismatch.GroupID == "core" {
				found = true
				break
			}
		}
		require.True(t, found)
		assert.Equal(t, 2, mismatch.Depth)
		assert.Empty(t, mismatch.ParentID)
	})

	t.Run("ChildDepthOff", func(t *testing.T) {
		t.Parallel()
		m := validMap()
		m.Groups[1].Depth = 3

		var mismatch *GroupDepthMismatch
		require.ErrorAs(t, m.Validate(), &mismatch)
		assert.Equal(t, "core-auth", mismatch.GroupID)
		assert.Equal(t, 3, mismatch.Depth)
		assert.Equal(t, "core", mismatch.ParentID)
		assert.Equal(t, 0, mismatch.ParentDepth)
	})

	t.Run("DanglingParent", func(t *testing.T) {
		t.Parallel()
		m := validMap()
		m.Groups[1].ParentGroupID = "ghost"

		violations := integrityViolations(t, m.Validate())
		require.Len(t, violations, 1, "no depth noise on top of the dangling parent")
		var dangling *DanglingGroupReference
		require.ErrorAs(t, violations[0], &dangling)
		assert.Equal(t, "ghost", dangling.MissingID)
	})
}

func TestModuleMap_Validate_CyclicGroupNesting(t *testing.T) {
	t.Parallel()

	m := New(GeneratorInfo{Name: "modmap", Version: "0.3.0"}, testProject(),
		[]Module{{ID: "a", Paths: []string{"a"}}},
		[]ModuleGroup{
			{ID: "g1", ModuleIDs: []string{"a"}, ParentGroupID: "g2", Depth: 1},
			{ID: "g2", ModuleIDs: []string{"a"}, ParentGroupID: "g1", Depth: 1},
		},
	)

	violations := integrityViolations(t, m.Validate())
	var cycle *CyclicGroupNesting
	found := false
	for _, v := range violations {
		if errors.As(v, &cycle) {
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, []string{"g1", "g2"}, cycle.Chain)
}

func TestModuleMap_Validate_DependencyCycle(t *testing.T) {
	t.Parallel()

	triangle := func(depType DependencyType) *ModuleMap {
		dep := func(id string) ModuleDependency {
			return ModuleDependency{ModuleID: id, Type: depType}
		}
		return New(GeneratorInfo{Name: "modmap", Version: "0.3.0"}, testProject(),
			[]Module{
				{ID: "a", Paths: []string{"a"}, Dependencies: []ModuleDependency{dep("b")}},
				{ID: "b", Paths: []string{"b"}, Dependencies: []ModuleDependency{dep("c")}},
				{ID: "c", Paths: []string{"c"}, Dependencies: []ModuleDependency{dep("a")}},
			}, nil)
	}

	t.Run("RuntimeTriangleFails", func(t *testing.T) {
		t.Parallel()
		var cycle *DependencyCycle
		require.ErrorAs(t, triangle(DependencyRuntime).Validate(), &cycle)
		assert.Equal(t, []string{"a", "b", "c"}, cycle.Chain)
	})

	t.Run("TestTriangleValidates", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, triangle(DependencyTest).Validate())
	})

	t.Run("EdgeSetCycleFails", func(t *testing.T) {
		t.Parallel()
		m := New(GeneratorInfo{Name: "modmap", Version: "0.3.0"}, testProject(),
			[]Module{
				{ID: "a", Paths: []string{"a"}},
				{ID: "b", Paths: []string{"b"}},
			}, nil)
		m.DependencyGraph = &DependencyGraph{Edges: []DependencyEdge{
			{From: "a", To: "b"},
			{From: "b", To: "a"},
		}}

		var cycle *DependencyCycle
		require.ErrorAs(t, m.Validate(), &cycle)
		assert.Equal(t, []string{"a", "b"}, cycle.Chain)
	})
}

func TestModuleMap_Validate_AggregatesEverything(t *testing.T) {
	t.Parallel()

	m := validMap()
	m.Groups[0].ModuleIDs = append(m.Groups[0].ModuleIDs, "ghost")
	m.Groups[0].DomainID = "ghost-domain"
	m.Modules = append(m.Modules, Module{ID: "db", Paths: []string{"dup"}})
	m.Modules[0].Dependencies = append(m.Modules[0].Dependencies, RuntimeDep("phantom"))

	violations := integrityViolations(t, m.Validate())
	assert.Len(t, violations, 4, "every violation reported in one pass")

	msg := m.Validate().Error()
	assert.Contains(t, msg, "4 violation(s)")
	assert.Contains(t, msg, `"ghost"`)
	assert.Contains(t, msg, `"ghost-domain"`)
	assert.Contains(t, msg, `"db" declared more than once`)
	assert.Contains(t, msg, `"phantom"`)
}
