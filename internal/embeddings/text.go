// Package embeddings generates deterministic TF-IDF vectors for rules.
// No external model: the vocabulary is derived from the rule corpus
// itself, so identical rule sets always produce identical vectors.
package embeddings

import (
	"strings"
	"unicode"

	"github.com/junyeong-ai/modmap/internal/rules"
)

// RuleText renders the text a rule is embedded from: name, category,
// triggers, and content. Path globs are excluded; their syntax is not
// language.
func RuleText(r *rules.Rule) string {
	if r == nil {
		return ""
	}

	parts := []string{r.Name, string(r.Category)}
	if len(r.Triggers) > 0 {
		parts = append(parts, strings.Join(r.Triggers, " "))
	}
	if len(r.Content) > 0 {
		parts = append(parts, strings.Join(r.Content, "\n"))
	}
	return strings.Join(parts, "\n")
}

// Tokenize splits text into lowercase index terms. Terms split on
// non-alphanumeric runes, camelCase transitions, and letter/digit
// boundaries; single-rune terms are dropped. The full-text index uses
// the same tokenizer so query terms and vector vocabulary agree.
func Tokenize(text string) []string {
	runes := []rune(text)
	var terms []string
	var cur []rune

	flush := func() {
		if len(cur) >= 2 {
			terms = append(terms, strings.ToLower(string(cur)))
		}
		cur = cur[:0]
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(r):
				flush()
			case unicode.IsLetter(prev) != unicode.IsLetter(r):
				flush()
			case unicode.IsUpper(prev) && unicode.IsUpper(r) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return terms
}
