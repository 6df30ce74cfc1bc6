package storage

import (
	"context"
	"math"
	"sort"

	"github.com/junyeong-ai/modmap/internal/rules"
)

// rrfK is the Reciprocal Rank Fusion constant. Standard value; flattens
// the weight difference between nearby ranks.
const rrfK = 60

// Searcher is the subset of Store hybrid search reads from.
type Searcher interface {
	SearchRules(ctx context.Context, query string, limit int) ([]SearchResult, error)
	AllEmbeddings(ctx context.Context) (map[string][]float32, error)
	GetRule(ctx context.Context, name string) (*rules.Rule, error)
}

// VectorSearch ranks stored rules by cosine similarity against the
// query vector. Rules with no positive similarity are dropped. Ties
// break on name, so repeated queries rank identically.
func VectorSearch(ctx context.Context, s Searcher, queryVector []float32, limit int) ([]SearchResult, error) {
	vectors, err := s.AllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		name  string
		score float64
	}
	var ranked []scored
	for name, vector := range vectors {
		if sim := CosineSimilarity(queryVector, vector); sim > 0 {
			ranked = append(ranked, scored{name: name, score: sim})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, sc := range ranked {
		r, err := s.GetRule(ctx, sc.name)
		if err != nil || r == nil {
			continue
		}
		results = append(results, resultFor(r, sc.score))
	}
	return results, nil
}

// HybridSearch fuses full-text and vector ranks with Reciprocal Rank
// Fusion. A failing or empty leg degrades to the other; an empty query
// vector skips the vector leg entirely.
func HybridSearch(ctx context.Context, s Searcher, query string, queryVector []float32, limit int) ([]HybridResult, error) {
	ftsResults, err := s.SearchRules(ctx, query, limit*2)
	if err != nil {
		ftsResults = []SearchResult{}
	}

	var vectorResults []SearchResult
	if len(queryVector) > 0 {
		vectorResults, err = VectorSearch(ctx, s, queryVector, limit*2)
		if err != nil {
			vectorResults = []SearchResult{}
		}
	}

	rrfScores := make(map[string]float64)
	metadata := make(map[string]SearchResult)

	for i, result := range ftsResults {
		rrfScores[result.Name] += 1.0 / float64(rrfK+i)
		if _, exists := metadata[result.Name]; !exists {
			metadata[result.Name] = result
		}
	}
	for i, result := range vectorResults {
		rrfScores[result.Name] += 1.0 / float64(rrfK+i)
		if _, exists := metadata[result.Name]; !exists {
			metadata[result.Name] = result
		}
	}

	results := make([]HybridResult, 0, len(rrfScores))
	for name, score := range rrfScores {
		meta := metadata[name]
		results = append(results, HybridResult{
			Name:     name,
			Score:    score,
			Category: meta.Category,
			Priority: meta.Priority,
			Path:     meta.Path,
			Snippet:  meta.Snippet,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or a zero vector yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
