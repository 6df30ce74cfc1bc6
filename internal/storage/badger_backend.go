package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/junyeong-ai/modmap/internal/manifest"
	"github.com/junyeong-ai/modmap/internal/rules"
)

// Key layout for the store.
const (
	keyManifest    = "m:manifest" // the single persisted manifest
	prefixRule     = "r:"         // r:<name> -> rule JSON
	prefixFTSToken = "fts:t:"     // fts:t:<token>:<name> -> term frequency
	prefixFTSDoc   = "fts:n:"     // fts:n:<name> -> total token count
	prefixEmbed    = "e:"         // e:<name> -> vector JSON
)

// BadgerStore is a BadgerDB-backed Store implementation.
type BadgerStore struct {
	db *badger.DB
	mu sync.RWMutex
}

// OpenBadger opens or creates the store at the given path. Read-only
// mode fails when the database does not exist yet.
func OpenBadger(path string, readOnly bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR)

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// PutManifest replaces the persisted manifest.
func (s *BadgerStore) PutManifest(ctx context.Context, m *manifest.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Set([]byte(keyManifest), data); err != nil {
		return fmt.Errorf("setting manifest: %w", err)
	}
	return txn.Commit()
}

// GetManifest returns the persisted manifest, or nil if absent.
func (s *BadgerStore) GetManifest(ctx context.Context) (*manifest.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get([]byte(keyManifest))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting manifest: %w", err)
	}

	var m manifest.Manifest
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling manifest: %w", err)
	}
	return &m, nil
}

// PutRule upserts a rule and refreshes its full-text index entries.
func (s *BadgerStore) PutRule(ctx context.Context, r *rules.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling rule: %w", err)
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Set(ruleKey(r.Name), data); err != nil {
		return fmt.Errorf("setting rule: %w", err)
	}
	if err := deleteRuleTokens(txn, r.Name); err != nil {
		return err
	}
	if err := indexRule(txn, r); err != nil {
		return err
	}
	return txn.Commit()
}

// indexRule writes per-term frequency entries and the rule's token
// count.
func indexRule(txn *badger.Txn, r *rules.Rule) error {
	freq, total := termFrequencies(r)
	for token, count := range freq {
		key := fmt.Sprintf("%s%s:%s", prefixFTSToken, token, r.Name)
		if err := txn.Set([]byte(key), []byte(strconv.Itoa(count))); err != nil {
			return fmt.Errorf("setting token index: %w", err)
		}
	}
	docKey := prefixFTSDoc + r.Name
	if err := txn.Set([]byte(docKey), []byte(strconv.Itoa(total))); err != nil {
		return fmt.Errorf("setting token count: %w", err)
	}
	return nil
}

// deleteRuleTokens removes every token index entry for a rule.
func deleteRuleTokens(txn *badger.Txn, name string) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixFTSToken)
	it := txn.NewIterator(opts)
	defer it.Close()

	suffix := ":" + name
	var stale [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		if strings.HasSuffix(string(key), suffix) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("deleting token index: %w", err)
		}
	}
	return nil
}

// GetRule returns a rule by name, or nil if absent.
func (s *BadgerStore) GetRule(ctx context.Context, name string) (*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	return getRule(txn, name)
}

// getRule reads one rule inside an open transaction.
func getRule(txn *badger.Txn, name string) (*rules.Rule, error) {
	item, err := txn.Get(ruleKey(name))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting rule: %w", err)
	}

	var r rules.Rule
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling rule: %w", err)
	}
	return &r, nil
}

// ListRules returns every stored rule, sorted by name.
func (s *BadgerStore) ListRules(ctx context.Context) ([]*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixRule)
	it := txn.NewIterator(opts)
	defer it.Close()

	var list []*rules.Rule
	for it.Rewind(); it.Valid(); it.Next() {
		var r rules.Rule
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling rule: %w", err)
		}
		list = append(list, &r)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// DeleteRule removes a rule, its index entries, and its embedding.
func (s *BadgerStore) DeleteRule(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Delete(ruleKey(name)); err != nil && err != badger.ErrKeyNotFound {
		return fmt.Errorf("deleting rule: %w", err)
	}
	if err := deleteRuleTokens(txn, name); err != nil {
		return err
	}
	if err := txn.Delete([]byte(prefixFTSDoc + name)); err != nil && err != badger.ErrKeyNotFound {
		return fmt.Errorf("deleting token count: %w", err)
	}
	if err := txn.Delete([]byte(prefixEmbed + name)); err != nil && err != badger.ErrKeyNotFound {
		return fmt.Errorf("deleting embedding: %w", err)
	}
	return txn.Commit()
}

// SearchRules performs full-text search over the indexed rules.
func (s *BadgerStore) SearchRules(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := queryTerms(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	hits := make(map[string]map[string]int, len(terms))
	docLen := make(map[string]int)

	for _, term := range terms {
		prefix := fmt.Sprintf("%s%s:", prefixFTSToken, term)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), prefix)

			var freq int
			_ = item.Value(func(val []byte) error {
				freq, _ = strconv.Atoi(string(val))
				return nil
			})
			if hits[term] == nil {
				hits[term] = make(map[string]int)
			}
			hits[term][name] = freq

			if _, ok := docLen[name]; !ok {
				if item, err := txn.Get([]byte(prefixFTSDoc + name)); err == nil {
					_ = item.Value(func(val []byte) error {
						docLen[name], _ = strconv.Atoi(string(val))
						return nil
					})
				}
			}
		}
		it.Close()
	}

	scores := scoreHits(terms, hits, docLen)
	results := make([]SearchResult, 0, len(scores))
	for name, score := range scores {
		r, err := getRule(txn, name)
		if err != nil || r == nil {
			continue
		}
		results = append(results, resultFor(r, score))
	}
	return sortResults(results, limit), nil
}

// PutEmbedding persists a rule's vector.
func (s *BadgerStore) PutEmbedding(ctx context.Context, name string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshaling embedding: %w", err)
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Set([]byte(prefixEmbed+name), data); err != nil {
		return fmt.Errorf("setting embedding: %w", err)
	}
	return txn.Commit()
}

// GetEmbedding returns a rule's vector, or nil if absent.
func (s *BadgerStore) GetEmbedding(ctx context.Context, name string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get([]byte(prefixEmbed + name))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting embedding: %w", err)
	}

	var vector []float32
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &vector)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling embedding: %w", err)
	}
	return vector, nil
}

// AllEmbeddings returns every stored vector keyed by rule name.
func (s *BadgerStore) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixEmbed)
	it := txn.NewIterator(opts)
	defer it.Close()

	vectors := make(map[string][]float32)
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		name := strings.TrimPrefix(string(item.Key()), prefixEmbed)

		var vector []float32
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &vector)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling embedding: %w", err)
		}
		vectors[name] = vector
	}
	return vectors, nil
}

// Stats summarizes store contents.
func (s *BadgerStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	stats := &Stats{}
	if _, err := txn.Get([]byte(keyManifest)); err == nil {
		stats.HasManifest = true
	}
	stats.Rules = countPrefix(txn, prefixRule)
	stats.Embeddings = countPrefix(txn, prefixEmbed)
	return stats, nil
}

// countPrefix counts keys under a prefix inside an open transaction.
func countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	count := 0
	for it.Rewind(); it.Valid(); it.Next() {
		count++
	}
	return count
}

// ruleKey returns the store key for a rule.
func ruleKey(name string) []byte {
	return []byte(prefixRule + name)
}
