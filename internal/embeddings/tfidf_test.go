package embeddings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junyeong-ai/modmap/internal/rules"
)

func testCorpus() []*rules.Rule {
	return []*rules.Rule{
		rules.TechRule("postgres-tx", []string{"internal/db/**"},
			[]string{"Wrap writes in a database transaction.", "Commit or rollback explicitly; isolation matters."}),
		rules.TechRule("mysql-tx", []string{"internal/db/**"},
			[]string{"Use a database transaction per request.", "Commit late, rollback on error, watch for deadlock."}),
		rules.TechRule("gin-routes", []string{"internal/api/**"},
			[]string{"Register http routing handlers in one place.", "Keep middleware before endpoint handlers."}),
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestVectorizerDimension(t *testing.T) {
	t.Parallel()

	v := NewVectorizer(testCorpus())
	vec := v.Embed("database transaction")
	assert.Len(t, vec, Dimension)
	assert.LessOrEqual(t, v.VocabularySize(), Dimension)
}

func TestVectorizerDeterministic(t *testing.T) {
	t.Parallel()

	corpus := testCorpus()
	a := NewVectorizer(corpus)
	b := NewVectorizer(corpus)

	for _, r := range corpus {
		assert.Equal(t, a.EmbedRule(r), b.EmbedRule(r), "rule %s", r.Name)
	}
	assert.Equal(t, a.Embed("rollback deadlock"), b.Embed("rollback deadlock"))
}

func TestVectorizerNormalized(t *testing.T) {
	t.Parallel()

	v := NewVectorizer(testCorpus())
	vec := v.Embed("database transaction commit")

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestVectorizerUnknownTerms(t *testing.T) {
	t.Parallel()

	v := NewVectorizer(testCorpus())
	vec := v.Embed("zzzzz qqqqq")
	for _, x := range vec {
		assert.Zero(t, x)
	}
}

func TestVectorizerSimilarity(t *testing.T) {
	t.Parallel()

	corpus := testCorpus()
	v := NewVectorizer(corpus)

	pg := v.EmbedRule(corpus[0])
	my := v.EmbedRule(corpus[1])
	gin := v.EmbedRule(corpus[2])

	assert.Greater(t, cosine(pg, my), cosine(pg, gin),
		"transaction rules should sit closer to each other than to routing")
}

func TestVectorizerEmptyCorpus(t *testing.T) {
	t.Parallel()

	v := NewVectorizer(nil)
	assert.Zero(t, v.VocabularySize())
	assert.Len(t, v.Embed("anything"), Dimension)
}

func TestEmbedRules(t *testing.T) {
	t.Parallel()

	corpus := testCorpus()
	vectors := EmbedRules(corpus)

	require.Len(t, vectors, len(corpus))
	for _, r := range corpus {
		assert.Contains(t, vectors, r.Name)
		assert.Len(t, vectors[r.Name], Dimension)
	}
}
