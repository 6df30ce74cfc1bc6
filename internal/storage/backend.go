// Package storage persists the assembled manifest, its rule set, a
// full-text index over rule text, and rule embeddings in an embedded
// key-value store under the workspace directory.
//
// It defines the Store protocol both backends satisfy, along with the
// result types shared across search paths.
package storage

import (
	"context"

	"github.com/junyeong-ai/modmap/internal/manifest"
	"github.com/junyeong-ai/modmap/internal/rules"
)

// SearchResult is one full-text or vector match over the stored rules.
type SearchResult struct {
	// Name is the matching rule's name.
	Name string

	// Score is the relevance score (higher is better).
	Score float64

	// Category is the rule's category.
	Category string

	// Priority is the rule's injection priority.
	Priority int

	// Path is the rule's canonical output path.
	Path string

	// Snippet is a short excerpt of the rule's content.
	Snippet string
}

// HybridResult is one fused match combining full-text and vector ranks.
type HybridResult struct {
	// Name is the matching rule's name.
	Name string

	// Score is the RRF fused score (higher is better).
	Score float64

	// Category is the rule's category.
	Category string

	// Priority is the rule's injection priority.
	Priority int

	// Path is the rule's canonical output path.
	Path string

	// Snippet is a short excerpt of the rule's content.
	Snippet string
}

// Stats summarizes store contents.
type Stats struct {
	// HasManifest reports whether a manifest has been persisted.
	HasManifest bool

	// Rules is the number of stored rules.
	Rules int

	// Embeddings is the number of stored rule embeddings.
	Embeddings int
}

// Store defines the interface for storage implementations.
//
// Lookups distinguish absence from failure: a missing manifest, rule,
// or embedding returns nil with a nil error. Implementations must be
// safe for concurrent use.
type Store interface {
	// PutManifest replaces the persisted manifest.
	PutManifest(ctx context.Context, m *manifest.Manifest) error

	// GetManifest returns the persisted manifest, or nil if absent.
	GetManifest(ctx context.Context) (*manifest.Manifest, error)

	// PutRule upserts a rule and refreshes its full-text index entries.
	PutRule(ctx context.Context, r *rules.Rule) error

	// GetRule returns a rule by name, or nil if absent.
	GetRule(ctx context.Context, name string) (*rules.Rule, error)

	// ListRules returns every stored rule, sorted by name.
	ListRules(ctx context.Context) ([]*rules.Rule, error)

	// DeleteRule removes a rule, its index entries, and its embedding.
	DeleteRule(ctx context.Context, name string) error

	// SearchRules performs full-text search over the indexed rules.
	SearchRules(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// PutEmbedding persists a rule's vector.
	PutEmbedding(ctx context.Context, name string, vector []float32) error

	// GetEmbedding returns a rule's vector, or nil if absent.
	GetEmbedding(ctx context.Context, name string) ([]float32, error)

	// AllEmbeddings returns every stored vector keyed by rule name.
	AllEmbeddings(ctx context.Context) (map[string][]float32, error)

	// Stats summarizes store contents.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases all resources held by the store.
	Close() error
}
