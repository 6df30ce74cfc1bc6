package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junyeong-ai/modmap/internal/graph"
	"github.com/junyeong-ai/modmap/internal/manifest"
	"github.com/junyeong-ai/modmap/internal/rules"
)

func testManifest() *manifest.Manifest {
	mm := graph.New(
		graph.GeneratorInfo{Name: "modmap", Version: "0.1.0"},
		graph.ProjectMetadata{Name: "shop", Type: graph.ProjectService},
		[]graph.Module{
			{ID: "auth", Name: "Auth", Paths: []string{"src/auth"}},
			{ID: "billing", Name: "Billing", Paths: []string{"src/billing"}},
		},
		nil,
	)
	return manifest.New(mm, "modmap v0.1.0")
}

func testRules() []*rules.Rule {
	return []*rules.Rule{
		rules.TechRule("go-errors", []string{"**/*.go"},
			[]string{"Wrap errors with context.", "Return errors, do not panic."}),
		rules.TechRule("go-concurrency", []string{"**/*.go"},
			[]string{"Guard shared state with a mutex.", "Pass context to blocking calls."}),
		rules.DomainRule("payments", []string{"billing", "invoice"},
			[]string{"Money is stored in minor units.", "Never use floats for amounts."}),
	}
}

func seedStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.PutManifest(ctx, testManifest()))
	for _, r := range testRules() {
		require.NoError(t, s.PutRule(ctx, r))
	}
}

func TestMemoryStore_ManifestRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	defer s.Close()

	got, err := s.GetManifest(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "empty store has no manifest")

	require.NoError(t, s.PutManifest(ctx, testManifest()))
	got, err = s.GetManifest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "shop", got.Project.Project.Name)
}

func TestMemoryStore_Rules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	defer s.Close()
	seedStore(t, s)

	r, err := s.GetRule(ctx, "go-errors")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, rules.CategoryTech, r.Category)

	r, err = s.GetRule(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, r)

	list, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "go-concurrency", list[0].Name, "sorted by name")

	require.NoError(t, s.DeleteRule(ctx, "go-errors"))
	list, err = s.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryStore_SearchAllTermsWin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	defer s.Close()
	seedStore(t, s)

	// Both terms appear only in go-errors; AND semantics keep it alone.
	results, err := s.SearchRules(ctx, "wrap errors", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "go-errors", results[0].Name)
	assert.Equal(t, "tech", results[0].Category)
	assert.Equal(t, "tech/go-errors.md", results[0].Path)
	assert.NotEmpty(t, results[0].Snippet)
}

func TestMemoryStore_SearchFallsBackToAnyTerm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	defer s.Close()
	seedStore(t, s)

	// No rule mentions both; matches on either term survive.
	results, err := s.SearchRules(ctx, "mutex invoice", 10)
	require.NoError(t, err)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"go-concurrency", "payments"}, names)
}

func TestMemoryStore_SearchDeterministic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	defer s.Close()
	seedStore(t, s)

	first, err := s.SearchRules(ctx, "go", 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.SearchRules(ctx, "go", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMemoryStore_Embeddings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	defer s.Close()
	seedStore(t, s)

	require.NoError(t, s.IndexVectors(ctx))

	v, err := s.GetEmbedding(ctx, "payments")
	require.NoError(t, err)
	assert.Len(t, v, 100)

	all, err := s.AllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStore_Stats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	defer s.Close()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.HasManifest)
	assert.Zero(t, stats.Rules)

	seedStore(t, s)
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.HasManifest)
	assert.Equal(t, 3, stats.Rules)
}
