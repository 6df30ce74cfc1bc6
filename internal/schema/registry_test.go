package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junyeong-ai/modmap/internal/graph"
)

func sampleMap(t *testing.T) *graph.ModuleMap {
	t.Helper()

	return graph.New(
		graph.GeneratorInfo{Name: "modmap", Version: "0.1.0"},
		graph.ProjectMetadata{
			Name: "sample",
			Type: "service",
			TechStack: graph.TechStack{
				PrimaryLanguage: "go",
			},
		},
		[]graph.Module{
			{ID: "auth", Name: "Auth", Paths: []string{"internal/auth"}},
			{ID: "db", Name: "DB", Paths: []string{"internal/db"}},
		},
		nil,
	)
}

func sampleMapJSON(t *testing.T, version string) []byte {
	t.Helper()

	m := sampleMap(t)
	m.SchemaVersion = version
	data, err := m.ToJSON()
	require.NoError(t, err)
	return data
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.Equal(t, uint64(1), r.Version().Major())
}

func TestRegistry_ValidateVersion(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	t.Run("CurrentVersion", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, r.ValidateVersion(graph.SchemaVersion))
	})

	t.Run("NewerMinorAccepted", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, r.ValidateVersion("1.5.0"))
	})

	t.Run("PatchDriftAccepted", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, r.ValidateVersion("1.0.9"))
	})

	t.Run("NewerMajorRejected", func(t *testing.T) {
		t.Parallel()

		err := r.ValidateVersion("2.0.0")
		var incompatible *IncompatibleVersionError
		require.ErrorAs(t, err, &incompatible)
		assert.Equal(t, "2.0.0", incompatible.Found)
		assert.Equal(t, uint64(1), incompatible.RequiredMajor)
		assert.Contains(t, err.Error(), "found 2.0.0, required major version 1")
	})

	t.Run("OlderMajorRejected", func(t *testing.T) {
		t.Parallel()

		var incompatible *IncompatibleVersionError
		require.ErrorAs(t, r.ValidateVersion("0.9.0"), &incompatible)
	})

	t.Run("EmptyTag", func(t *testing.T) {
		t.Parallel()

		var missing *MissingVersionError
		require.ErrorAs(t, r.ValidateVersion(""), &missing)
	})

	t.Run("UnparsableTag", func(t *testing.T) {
		t.Parallel()

		err := r.ValidateVersion("latest")
		var parse *VersionParseError
		require.ErrorAs(t, err, &parse)
		assert.Equal(t, "latest", parse.Value)
	})
}

func TestRegistry_LoadModuleMap(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	t.Run("ValidDocument", func(t *testing.T) {
		t.Parallel()

		m, err := r.LoadModuleMap(sampleMapJSON(t, graph.SchemaVersion))
		require.NoError(t, err)
		assert.Equal(t, "sample", m.Project.Name)
		assert.Len(t, m.Modules, 2)
	})

	t.Run("CompatibleMinorVersion", func(t *testing.T) {
		t.Parallel()

		_, err := r.LoadModuleMap(sampleMapJSON(t, "1.5.0"))
		require.NoError(t, err)
	})

	t.Run("IncompatibleMajorVersion", func(t *testing.T) {
		t.Parallel()

		_, err := r.LoadModuleMap(sampleMapJSON(t, "2.0.0"))
		var incompatible *IncompatibleVersionError
		require.ErrorAs(t, err, &incompatible)
	})

	t.Run("GateFiresBeforeStructuralDecode", func(t *testing.T) {
		t.Parallel()

		// The modules field is structurally broken; the version gate
		// still decides first.
		doc := []byte(`{"schema_version": "2.0.0", "modules": "not-an-array"}`)
		_, err := r.LoadModuleMap(doc)
		var incompatible *IncompatibleVersionError
		require.ErrorAs(t, err, &incompatible)
	})

	t.Run("MissingVersionTag", func(t *testing.T) {
		t.Parallel()

		_, err := r.LoadModuleMap([]byte(`{"modules": []}`))
		var missing *MissingVersionError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		t.Parallel()

		_, err := r.LoadModuleMap([]byte(`{"schema_version":`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse module map")
	})

	t.Run("OmittedCollectionsDecodeNonNil", func(t *testing.T) {
		t.Parallel()

		// A document may legally omit required collections; after load
		// they must re-encode as arrays, never null.
		doc := []byte(`{"schema_version": "1.0.0", "generator": {"name": "x", "version": "1"},
			"project": {"name": "bare"}, "generated_at": "2026-08-30T00:00:00Z"}`)
		m, err := r.LoadModuleMap(doc)
		require.NoError(t, err)
		require.NotNil(t, m.Modules)
		require.NotNil(t, m.Project.Languages)

		data, err := m.ToJSON()
		require.NoError(t, err)
		assert.Contains(t, string(data), `"modules": []`)
		assert.NotContains(t, string(data), "null")
	})

	t.Run("IntegrityFailureRefused", func(t *testing.T) {
		t.Parallel()

		m := sampleMap(t)
		m.Modules[0].Dependencies = []graph.ModuleDependency{graph.RuntimeDep("ghost")}
		data, err := m.ToJSON()
		require.NoError(t, err)

		_, err = r.LoadModuleMap(data)
		var integrity *graph.IntegrityError
		require.ErrorAs(t, err, &integrity)
		assert.Contains(t, err.Error(), "module map rejected")
	})
}

func TestPackageLevelHelpers(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateVersion("1.2.3"))
	assert.Error(t, ValidateVersion("3.0.0"))

	m, err := LoadModuleMap(sampleMapJSON(t, graph.SchemaVersion))
	require.NoError(t, err)
	assert.NotNil(t, m)

	var missing *MissingVersionError
	assert.True(t, errors.As(ValidateVersion(""), &missing))
}
