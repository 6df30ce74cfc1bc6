package storage

import (
	"sort"
	"strings"

	"github.com/junyeong-ai/modmap/internal/embeddings"
	"github.com/junyeong-ai/modmap/internal/rules"
)

// ruleSearchText returns the text a rule is indexed under. It is the
// same surface the vectorizer embeds, so full-text terms and vector
// vocabulary agree on what a rule says.
func ruleSearchText(r *rules.Rule) string {
	return embeddings.RuleText(r)
}

// queryTerms tokenizes a search query with the shared tokenizer,
// deduplicated in first-seen order.
func queryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range embeddings.Tokenize(query) {
		if seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

// termFrequencies counts tokens in one rule's search text, plus the
// total token count used for length normalization.
func termFrequencies(r *rules.Rule) (map[string]int, int) {
	tokens := embeddings.Tokenize(ruleSearchText(r))
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq, len(tokens)
}

// scoreHits fuses per-term posting hits into per-rule scores. Each hit
// contributes term frequency normalized by the rule's token count, so
// long rules do not outrank short ones on raw repetition. Rules
// carrying every query term win; when no rule has all terms, any-term
// matches are kept instead.
func scoreHits(terms []string, hits map[string]map[string]int, docLen map[string]int) map[string]float64 {
	matched := make(map[string]int)
	scores := make(map[string]float64)
	for _, term := range terms {
		for name, freq := range hits[term] {
			length := docLen[name]
			if length <= 0 {
				length = 1
			}
			matched[name]++
			scores[name] += float64(freq) / float64(length)
		}
	}

	all := make(map[string]float64)
	for name, count := range matched {
		if count == len(terms) {
			all[name] = scores[name]
		}
	}
	if len(all) > 0 {
		return all
	}
	return scores
}

// sortResults orders results by score descending, name ascending, and
// truncates to limit when positive.
func sortResults(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// resultFor builds a SearchResult carrying the rule's metadata.
func resultFor(r *rules.Rule, score float64) SearchResult {
	return SearchResult{
		Name:     r.Name,
		Score:    score,
		Category: string(r.Category),
		Priority: r.Priority,
		Path:     r.OutputPath(),
		Snippet:  snippetFor(r),
	}
}

// snippetFor returns the first non-empty content line, truncated to
// 200 runes.
func snippetFor(r *rules.Rule) string {
	for _, line := range r.Content {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		runes := []rune(trimmed)
		if len(runes) > 200 {
			return string(runes[:200])
		}
		return trimmed
	}
	return ""
}
