package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/junyeong-ai/modmap/internal/embeddings"
	"github.com/junyeong-ai/modmap/internal/manifest"
	"github.com/junyeong-ai/modmap/internal/rules"
)

// MemoryStore is an in-memory Store implementation for testing. Search
// scoring matches the Badger backend, so search tests do not need a
// database on disk.
type MemoryStore struct {
	mu       sync.RWMutex
	manifest *manifest.Manifest
	rules    map[string]*rules.Rule
	vectors  map[string][]float32
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:   make(map[string]*rules.Rule),
		vectors: make(map[string][]float32),
	}
}

// PutManifest implements Store.
func (s *MemoryStore) PutManifest(ctx context.Context, m *manifest.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = m
	return nil
}

// GetManifest implements Store.
func (s *MemoryStore) GetManifest(ctx context.Context) (*manifest.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest, nil
}

// PutRule implements Store.
func (s *MemoryStore) PutRule(ctx context.Context, r *rules.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.Name] = r
	return nil
}

// GetRule implements Store.
func (s *MemoryStore) GetRule(ctx context.Context, name string) (*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules[name], nil
}

// ListRules implements Store.
func (s *MemoryStore) ListRules(ctx context.Context) ([]*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*rules.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// DeleteRule implements Store.
func (s *MemoryStore) DeleteRule(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, name)
	delete(s.vectors, name)
	return nil
}

// SearchRules implements Store. The index is rebuilt per query; rule
// counts in tests are small enough that this does not matter.
func (s *MemoryStore) SearchRules(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := queryTerms(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	hits := make(map[string]map[string]int, len(terms))
	docLen := make(map[string]int, len(s.rules))
	for name, r := range s.rules {
		freq, total := termFrequencies(r)
		docLen[name] = total
		for _, term := range terms {
			if count, ok := freq[term]; ok {
				if hits[term] == nil {
					hits[term] = make(map[string]int)
				}
				hits[term][name] = count
			}
		}
	}

	scores := scoreHits(terms, hits, docLen)
	results := make([]SearchResult, 0, len(scores))
	for name, score := range scores {
		results = append(results, resultFor(s.rules[name], score))
	}
	return sortResults(results, limit), nil
}

// PutEmbedding implements Store.
func (s *MemoryStore) PutEmbedding(ctx context.Context, name string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[name] = vector
	return nil
}

// GetEmbedding implements Store.
func (s *MemoryStore) GetEmbedding(ctx context.Context, name string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectors[name], nil
}

// AllEmbeddings implements Store.
func (s *MemoryStore) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vectors := make(map[string][]float32, len(s.vectors))
	for name, v := range s.vectors {
		vectors[name] = v
	}
	return vectors, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Stats{
		HasManifest: s.manifest != nil,
		Rules:       len(s.rules),
		Embeddings:  len(s.vectors),
	}, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = nil
	s.rules = nil
	s.vectors = nil
	return nil
}

// IndexVectors embeds and stores every rule currently held, using a
// vectorizer built from the same rules. Test convenience.
func (s *MemoryStore) IndexVectors(ctx context.Context) error {
	list, err := s.ListRules(ctx)
	if err != nil {
		return err
	}
	vz := embeddings.NewVectorizer(list)
	for _, r := range list {
		if err := s.PutEmbedding(ctx, r.Name, vz.EmbedRule(r)); err != nil {
			return err
		}
	}
	return nil
}
