package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// MemoryStore is an in-process VectorStore using brute-force cosine
// similarity. It backs tests and qdrant-less deployments; namespaces are
// plain map partitions guarded by one RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	dimension  int
	namespaces map[string]map[string]Entry
}

// NewMemoryStore creates an in-memory store with the given vector dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension:  dimension,
		namespaces: make(map[string]map[string]Entry),
	}
}

// EnsureNamespace prepares a namespace for upserts. Idempotent.
func (s *MemoryStore) EnsureNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.namespaces[namespace]; !ok {
		s.namespaces[namespace] = make(map[string]Entry)
	}
	return nil
}

// Upsert inserts or overwrites entries by chunk ID within a namespace.
func (s *MemoryStore) Upsert(_ context.Context, namespace string, entries []Entry) error {
	for _, entry := range entries {
		if len(entry.Vector) != s.dimension {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(entry.Vector), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]Entry)
		s.namespaces[namespace] = ns
	}
	for _, entry := range entries {
		ns[entry.ChunkID] = entry
	}
	return nil
}

// Query performs a brute-force similarity search within one namespace.
func (s *MemoryStore) Query(_ context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be a positive integer, got %d", ErrInvalidArgument, k)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(namespace, vector, k), nil
}

// QueryAll performs a federated search across every project namespace.
// Cost is O(namespaces x entries); acceptable for an in-process index.
func (s *MemoryStore) QueryAll(_ context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be a positive integer, got %d", ErrInvalidArgument, k)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Match
	for namespace := range s.namespaces {
		if !IsProjectNamespace(namespace) {
			continue
		}
		all = append(all, s.queryLocked(namespace, vector, k)...)
	}

	SortMatches(all)
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// DeleteDocument removes the given chunk IDs from a namespace.
func (s *MemoryStore) DeleteDocument(_ context.Context, namespace string, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil
	}
	for _, id := range chunkIDs {
		delete(ns, id)
	}
	return nil
}

// DeleteNamespace removes a namespace and every vector stored in it.
func (s *MemoryStore) DeleteNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// Ping reports readiness; the in-memory store is always reachable.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// queryLocked scores every entry of a namespace against the query vector.
// Callers must hold at least a read lock.
func (s *MemoryStore) queryLocked(namespace string, vector []float32, k int) []Match {
	ns := s.namespaces[namespace]
	matches := make([]Match, 0, len(ns))
	for _, entry := range ns {
		matches = append(matches, newMatch(entry.ChunkID, NormalizeScore(cosine(entry.Vector, vector)), entry.Meta))
	}
	SortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// cosine computes raw cosine similarity in [-1,1]. Zero vectors score 0.
func cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
