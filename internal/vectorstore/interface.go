package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks studybuddy/internal/vectorstore VectorStore

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the index dimension. A programmer/data error, never coerced.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrArityMismatch is returned when chunk ID, vector and metadata
	// counts differ while building entries.
	ErrArityMismatch = errors.New("chunk/vector arity mismatch")

	// ErrInvalidArgument is returned for out-of-range query arguments,
	// such as a non-positive k.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NamespacePrefix marks namespaces that belong to a project. Federated
// queries only visit namespaces carrying this prefix.
const NamespacePrefix = "project_"

// NamespaceFor returns the index namespace for a project.
func NamespaceFor(projectID string) string {
	return NamespacePrefix + projectID
}

// IsProjectNamespace reports whether a namespace follows the project
// naming convention.
func IsProjectNamespace(namespace string) bool {
	return strings.HasPrefix(namespace, NamespacePrefix)
}

// Entry is a vector point to be stored: a chunk ID, its embedding, and
// metadata describing the chunk.
type Entry struct {
	ChunkID string
	Vector  []float32
	Meta    map[string]any
}

// Match is a single query result. Score is cosine similarity normalized to
// [0,1] where 1 means identical direction; higher is more relevant.
// Ordinal is the chunk's position within its document, used for
// deterministic tie-breaking. Matches are ephemeral, never persisted.
type Match struct {
	ChunkID string
	Score   float32
	Ordinal int
	Meta    map[string]any
	Text    string
}

// VectorStore is a per-project-namespaced similarity index.
//
// All implementations share one fixed dimension D: mismatched vectors are a
// hard error. Scores are normalized identically so results are comparable
// across namespaces during federated queries.
type VectorStore interface {
	// EnsureNamespace prepares a namespace for upserts. Idempotent.
	EnsureNamespace(ctx context.Context, namespace string) error

	// Upsert inserts or overwrites entries by chunk ID within a namespace.
	// Re-upserting the same chunk ID replaces the previous entry, making
	// document reprocessing idempotent. Fails with ErrDimensionMismatch if
	// any vector length differs from the index dimension.
	Upsert(ctx context.Context, namespace string, entries []Entry) error

	// Query performs a similarity search scoped to one namespace and
	// returns at most k matches sorted by score descending. Fails with
	// ErrInvalidArgument when k <= 0. A namespace never sees another
	// namespace's entries.
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error)

	// QueryAll performs a federated search: it queries every known
	// project namespace, merges the matches, re-sorts globally by score
	// and truncates to k. Cost is O(namespaces x per-namespace query);
	// per-namespace failures contribute no matches rather than aborting
	// the whole search.
	QueryAll(ctx context.Context, vector []float32, k int) ([]Match, error)

	// DeleteDocument removes the given chunk IDs from a namespace. The
	// caller must supply every chunk ID belonging to the document; the
	// index has no native delete-by-document filter.
	DeleteDocument(ctx context.Context, namespace string, chunkIDs []string) error

	// DeleteNamespace tears down a whole project namespace and all of its
	// vectors.
	DeleteNamespace(ctx context.Context, namespace string) error
}

// NewEntries pairs chunk IDs, vectors and metadata into entries, failing
// with ErrArityMismatch if the slices disagree in length.
func NewEntries(chunkIDs []string, vectors [][]float32, metas []map[string]any) ([]Entry, error) {
	if len(chunkIDs) != len(vectors) || len(chunkIDs) != len(metas) {
		return nil, ErrArityMismatch
	}
	entries := make([]Entry, len(chunkIDs))
	for i := range chunkIDs {
		entries[i] = Entry{
			ChunkID: chunkIDs[i],
			Vector:  vectors[i],
			Meta:    metas[i],
		}
	}
	return entries, nil
}

// SortMatches orders matches by score descending; ties break by earliest
// ordinal, then lexicographic chunk ID, so equal-score results are
// deterministic across runs.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Ordinal != matches[j].Ordinal {
			return matches[i].Ordinal < matches[j].Ordinal
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
}

// NormalizeScore maps a raw cosine similarity in [-1,1] to [0,1] via
// (cos+1)/2. Applied once, identically, in every implementation.
func NormalizeScore(cosine float32) float32 {
	return (cosine + 1) / 2
}

// newMatch builds a Match from stored metadata. Ordinal round-trips as a
// different numeric type depending on the backing store.
func newMatch(chunkID string, score float32, meta map[string]any) Match {
	ordinal := 0
	switch v := meta["ordinal"].(type) {
	case int:
		ordinal = v
	case int64:
		ordinal = int(v)
	case float64:
		ordinal = int(v)
	}
	text, _ := meta["text"].(string)
	return Match{
		ChunkID: chunkID,
		Score:   score,
		Ordinal: ordinal,
		Meta:    meta,
		Text:    text,
	}
}
