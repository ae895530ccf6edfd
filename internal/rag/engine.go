package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks studybuddy/internal/rag Embedder
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks studybuddy/internal/rag Generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studybuddy/internal/contextutil"
	"studybuddy/internal/service"
	"studybuddy/internal/vectorstore"
)

// ErrEmbeddingUnavailable is returned when the query cannot be embedded.
// Without a query vector there is nothing to search, so retrieval fails
// outright instead of degrading.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

const (
	// DefaultTopK is used when the caller does not ask for a specific
	// number of results.
	DefaultTopK = 5
	// MaxTopK caps how many results one query may request.
	MaxTopK = 20

	// previewRunes bounds the chunk preview returned in API responses.
	previewRunes = 200
)

// Embedder generates a query-mode embedding for retrieval.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine orchestrates retrieval and grounded generation over the vector
// index.
type Engine struct {
	embedder    Embedder
	generator   Generator
	vectorStore vectorstore.VectorStore
}

// NewEngine creates a new retrieval engine.
func NewEngine(embedder Embedder, generator Generator, vectorStore vectorstore.VectorStore) *Engine {
	return &Engine{
		embedder:    embedder,
		generator:   generator,
		vectorStore: vectorStore,
	}
}

// Retrieve embeds the query and searches the index. A non-empty
// projectID scopes the search to that project's namespace; an empty one
// searches across all projects. An index failure after a successful
// embedding degrades to an empty result with a warning, so callers can
// still answer from general knowledge.
func (e *Engine) Retrieve(ctx context.Context, query, projectID string, k int) (*RetrievalResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(query) == "" {
		return nil, &service.ValidationError{Field: "query", Message: "query cannot be empty"}
	}
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	result := &RetrievalResult{Query: query, ProjectID: projectID}

	var matches []vectorstore.Match
	if projectID != "" {
		matches, err = e.vectorStore.Query(ctx, vectorstore.NamespaceFor(projectID), vector, k)
	} else {
		matches, err = e.vectorStore.QueryAll(ctx, vector, k)
	}
	if err != nil {
		logger.WarnContext(ctx, "retrieval degraded to empty result", "project_id", projectID, "error", err)
		return result, nil
	}

	result.Chunks = make([]RetrievedChunk, 0, len(matches))
	for _, match := range matches {
		result.Chunks = append(result.Chunks, toChunk(match))
	}
	return result, nil
}

// Ask answers a question grounded in the project's documents: retrieve,
// assemble the prompt, generate. A generation failure is reported inside
// the answer text rather than as an error, so the turn still completes
// and can be recorded in chat history.
func (e *Engine) Ask(ctx context.Context, question, projectID string, k int) (*Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	result, err := e.Retrieve(ctx, question, projectID, k)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(question, result.Chunks)
	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "generation failed", "project_id", projectID, "error", err)
		answer = fmt.Sprintf("Error generating response: %v", err)
	}

	return &Answer{Answer: answer, Sources: result.Chunks}, nil
}

// Summarize generates a project overview from its metadata and document
// filenames. Generation failures degrade the same way Ask does.
func (e *Engine) Summarize(ctx context.Context, projectName, description string, filenames []string) string {
	logger := contextutil.LoggerFromContext(ctx)

	prompt := BuildSummaryPrompt(projectName, description, filenames)
	summary, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "summary generation failed", "project", projectName, "error", err)
		summary = fmt.Sprintf("Error generating response: %v", err)
	}
	return summary
}

// toChunk converts an index match into an API-facing retrieved chunk.
func toChunk(match vectorstore.Match) RetrievedChunk {
	chunk := RetrievedChunk{
		ChunkID: match.ChunkID,
		Ordinal: match.Ordinal,
		Score:   match.Score,
		Text:    match.Text,
		Preview: preview(match.Text),
	}
	if documentID, ok := match.Meta["document_id"].(string); ok {
		chunk.DocumentID = documentID
	}
	if filename, ok := match.Meta["filename"].(string); ok {
		chunk.Filename = filename
	}
	return chunk
}

// preview shortens text to previewRunes runes, marking truncation.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
