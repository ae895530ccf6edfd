package rag

// RetrievedChunk is one ranked result from a retrieval query. Preview is
// a shortened form of the chunk text for API responses; Text carries the
// full content for prompt assembly.
type RetrievedChunk struct {
	ChunkID    string
	DocumentID string
	Filename   string
	Ordinal    int
	Score      float32
	Preview    string
	Text       string
}

// RetrievalResult is the outcome of one retrieval query.
type RetrievalResult struct {
	Query     string
	ProjectID string // empty for cross-project searches
	Chunks    []RetrievedChunk
}

// Answer is a generated response grounded in retrieved chunks. Sources
// lists the chunks the prompt was assembled from; it is empty when the
// model answered from general knowledge.
type Answer struct {
	Answer  string
	Sources []RetrievedChunk
}
