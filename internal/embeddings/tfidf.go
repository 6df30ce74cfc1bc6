package embeddings

import (
	"math"
	"sort"

	"github.com/junyeong-ai/modmap/internal/rules"
)

// Dimension is the length of every generated vector.
const Dimension = 100

// Vectorizer turns rule text into fixed-size TF-IDF vectors. It is
// built once from a rule corpus and immutable afterwards: the same
// corpus always yields the same vocabulary, and the same text always
// yields the same vector.
type Vectorizer struct {
	vocab map[string]int // term -> vector index
	idf   []float64      // per vocabulary slot
}

// NewVectorizer builds a vectorizer from the given corpus. The
// vocabulary holds the Dimension terms with the highest document
// frequency, ties broken lexicographically. Nil rules are skipped.
func NewVectorizer(corpus []*rules.Rule) *Vectorizer {
	df := make(map[string]int)
	docs := 0
	for _, r := range corpus {
		if r == nil {
			continue
		}
		docs++
		seen := make(map[string]bool)
		for _, term := range Tokenize(RuleText(r)) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > Dimension {
		terms = terms[:Dimension]
	}

	v := &Vectorizer{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log(float64(docs) / float64(df[term]))
	}
	return v
}

// VocabularySize returns the number of terms the vectorizer knows,
// at most Dimension.
func (v *Vectorizer) VocabularySize() int {
	return len(v.vocab)
}

// Embed converts text into a vector of length Dimension. Terms outside
// the vocabulary are ignored. The result is L2 normalized; text with no
// known terms yields the zero vector.
func (v *Vectorizer) Embed(text string) []float32 {
	vector := make([]float32, Dimension)

	terms := Tokenize(text)
	if len(terms) == 0 || len(v.vocab) == 0 {
		return vector
	}

	tf := make(map[string]int, len(terms))
	for _, term := range terms {
		tf[term]++
	}

	for term, count := range tf {
		i, ok := v.vocab[term]
		if !ok {
			continue
		}
		weight := float64(count) / float64(len(terms)) * v.idf[i]
		// A term present in every document has IDF 0. Keep a small
		// floor so text mentioning it still differs from text that
		// never does.
		if v.idf[i] == 0 {
			weight = float64(count) / float64(len(terms)) * 0.1
		}
		vector[i] = float32(weight)
	}

	var norm float64
	for _, x := range vector {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

// EmbedRule converts a rule into a vector over its rendered text.
func (v *Vectorizer) EmbedRule(r *rules.Rule) []float32 {
	return v.Embed(RuleText(r))
}

// EmbedRules builds a vectorizer over the corpus and embeds every rule
// in it, keyed by rule name.
func EmbedRules(corpus []*rules.Rule) map[string][]float32 {
	v := NewVectorizer(corpus)
	vectors := make(map[string][]float32, len(corpus))
	for _, r := range corpus {
		if r == nil {
			continue
		}
		vectors[r.Name] = v.EmbedRule(r)
	}
	return vectors
}
