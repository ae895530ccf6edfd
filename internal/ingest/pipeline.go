package ingest

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks studybuddy/internal/ingest Embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"studybuddy/internal/chunker"
	"studybuddy/internal/contextutil"
	"studybuddy/internal/extract"
	"studybuddy/internal/storage"
	"studybuddy/internal/vectorstore"
)

// ErrNoText is returned when a document yields no extractable text, for
// example a scanned image-only PDF. The document is rejected rather than
// indexed empty.
var ErrNoText = errors.New("no extractable text")

// embedBatchSize caps how many chunk texts go into one embeddings
// request. Batches are embedded concurrently up to the pipeline's
// concurrency limit.
const embedBatchSize = 16

// Embedder generates document-mode embeddings, one per input text.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline orchestrates document processing: extract text, chunk it,
// embed the chunks and store them in the vector index plus the chunk
// bookkeeping table.
type Pipeline struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	chunkRepo   storage.ChunkStore
	splitter    *chunker.Splitter
	concurrency int
}

// NewPipeline creates a new document processing pipeline. concurrency
// bounds how many embedding requests run in parallel.
func NewPipeline(
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	chunkRepo storage.ChunkStore,
	splitter *chunker.Splitter,
	concurrency int,
) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		chunkRepo:   chunkRepo,
		splitter:    splitter,
		concurrency: concurrency,
	}
}

// ChunkID derives the vector store point ID for a chunk from its
// document and position. The derivation is deterministic, so
// reprocessing a document overwrites its old points instead of
// duplicating them.
func ChunkID(documentID string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", documentID, ordinal))).String()
}

// ProcessDocument runs the full ingestion for one document and returns
// the number of chunks indexed. Returns ErrNoText when nothing could be
// extracted; callers should treat that as a rejected upload.
func (p *Pipeline) ProcessDocument(ctx context.Context, projectID, documentID, filename string, content []byte) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	text, err := extract.Extract(content, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: %s", ErrNoText, filename)
	}

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoText, filename)
	}

	embeddings, err := p.embedAll(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	chunkIDs := make([]string, len(chunks))
	metas := make([]map[string]any, len(chunks))
	records := make([]*storage.ChunkRecord, len(chunks))
	for i, chunkText := range chunks {
		chunkIDs[i] = ChunkID(documentID, i)
		metas[i] = map[string]any{
			"project_id":  projectID,
			"document_id": documentID,
			"filename":    filename,
			"ordinal":     i,
			"text":        chunkText,
		}
		records[i] = &storage.ChunkRecord{
			ChunkID:    chunkIDs[i],
			DocumentID: documentID,
			Ordinal:    i,
		}
	}

	entries, err := vectorstore.NewEntries(chunkIDs, embeddings, metas)
	if err != nil {
		return 0, err
	}

	namespace := vectorstore.NamespaceFor(projectID)
	if err := p.vectorStore.EnsureNamespace(ctx, namespace); err != nil {
		return 0, fmt.Errorf("failed to prepare namespace: %w", err)
	}
	if err := p.vectorStore.Upsert(ctx, namespace, entries); err != nil {
		return 0, fmt.Errorf("failed to store vectors: %w", err)
	}

	if err := p.chunkRepo.ReplaceForDocument(ctx, documentID, records); err != nil {
		return 0, fmt.Errorf("failed to record chunks: %w", err)
	}

	logger.InfoContext(ctx, "processed document",
		"document_id", documentID, "filename", filename, "chunks", len(chunks))
	return len(chunks), nil
}

// embedAll embeds chunk texts in fixed-size batches, at most
// p.concurrency requests in flight, and fans the vectors back in at
// their chunk positions.
func (p *Pipeline) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	embeddings := make([][]float32, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			vectors, err := p.embedder.EmbedDocuments(ctx, chunks[start:end])
			if err != nil {
				return err
			}
			if len(vectors) != end-start {
				return fmt.Errorf("embedding count mismatch: expected %d, got %d", end-start, len(vectors))
			}
			copy(embeddings[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// DeleteDocument removes a document's vectors and chunk records. The
// point IDs come from the bookkeeping table, so only this document's
// vectors are touched.
func (p *Pipeline) DeleteDocument(ctx context.Context, projectID, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	chunkIDs, err := p.chunkRepo.ListIDsByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list chunk IDs: %w", err)
	}

	if len(chunkIDs) > 0 {
		namespace := vectorstore.NamespaceFor(projectID)
		if err := p.vectorStore.DeleteDocument(ctx, namespace, chunkIDs); err != nil {
			return fmt.Errorf("failed to delete vectors: %w", err)
		}
	}

	if err := p.chunkRepo.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete chunk records: %w", err)
	}

	logger.InfoContext(ctx, "deleted document vectors", "document_id", documentID, "chunks", len(chunkIDs))
	return nil
}

// DeleteProject tears down a project's whole vector namespace. Metadata
// rows cascade in SQLite when the project row is deleted.
func (p *Pipeline) DeleteProject(ctx context.Context, projectID string) error {
	namespace := vectorstore.NamespaceFor(projectID)
	if err := p.vectorStore.DeleteNamespace(ctx, namespace); err != nil {
		return fmt.Errorf("failed to delete namespace: %w", err)
	}
	return nil
}
