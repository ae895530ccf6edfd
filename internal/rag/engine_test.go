package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"studybuddy/internal/rag/mocks"
	"studybuddy/internal/service"
	"studybuddy/internal/vectorstore"
	vectorstore_mocks "studybuddy/internal/vectorstore/mocks"
)

func seedStore(t *testing.T, store *vectorstore.MemoryStore, projectID string, texts ...string) {
	t.Helper()
	entries := make([]vectorstore.Entry, len(texts))
	for i, text := range texts {
		entries[i] = vectorstore.Entry{
			ChunkID: projectID + "-chunk-" + string(rune('a'+i)),
			Vector:  []float32{1, float32(i) * 0.1, 0},
			Meta: map[string]any{
				"project_id":  projectID,
				"document_id": projectID + "-doc",
				"filename":    "notes.txt",
				"ordinal":     i,
				"text":        text,
			},
		}
	}
	if err := store.Upsert(context.Background(), vectorstore.NamespaceFor(projectID), entries); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func TestRetrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := vectorstore.NewMemoryStore(3)
	seedStore(t, store, "proj-1", "mitosis has four phases", "meiosis produces gametes")

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "what is mitosis?").Return([]float32{1, 0, 0}, nil)

	engine := NewEngine(embedder, mocks.NewMockGenerator(ctrl), store)
	result, err := engine.Retrieve(ctx, "what is mitosis?", "proj-1", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(result.Chunks))
	}
	best := result.Chunks[0]
	if best.Text != "mitosis has four phases" {
		t.Errorf("unexpected best chunk: %q", best.Text)
	}
	if best.DocumentID != "proj-1-doc" || best.Filename != "notes.txt" {
		t.Errorf("unexpected chunk metadata: %+v", best)
	}
	if best.Score < result.Chunks[1].Score {
		t.Error("expected descending score order")
	}
}

func TestRetrieveBlankQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewEngine(mocks.NewMockEmbedder(ctrl), mocks.NewMockGenerator(ctrl), vectorstore.NewMemoryStore(3))

	_, err := engine.Retrieve(context.Background(), "   ", "proj-1", 5)
	var validationErr *service.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("expected wrapped ErrInvalidInput, got %v", err)
	}
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "question").Return(nil, errors.New("provider down"))

	engine := NewEngine(embedder, mocks.NewMockGenerator(ctrl), vectorstore.NewMemoryStore(3))
	_, err := engine.Retrieve(ctx, "question", "proj-1", 5)
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestRetrieveStoreFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "question").Return([]float32{1, 0, 0}, nil)

	// Wrong dimension triggers a store error after a good embedding.
	engine := NewEngine(embedder, mocks.NewMockGenerator(ctrl), vectorstore.NewMemoryStore(4))
	result, err := engine.Retrieve(ctx, "question", "proj-1", 5)
	if err != nil {
		t.Fatalf("expected degraded result, got error %v", err)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("expected empty result, got %d chunks", len(result.Chunks))
	}
}

func TestRetrieveBackendErrorDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "question").Return([]float32{1, 0, 0}, nil).Times(2)

	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	store.EXPECT().
		Query(ctx, vectorstore.NamespaceFor("proj-1"), gomock.Any(), 5).
		Return(nil, errors.New("connection reset"))
	store.EXPECT().
		QueryAll(ctx, gomock.Any(), 5).
		Return(nil, errors.New("connection reset"))

	engine := NewEngine(embedder, mocks.NewMockGenerator(ctrl), store)

	result, err := engine.Retrieve(ctx, "question", "proj-1", 5)
	if err != nil {
		t.Fatalf("expected degraded scoped result, got error %v", err)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("expected empty scoped result, got %d chunks", len(result.Chunks))
	}

	result, err = engine.Retrieve(ctx, "question", "", 5)
	if err != nil {
		t.Fatalf("expected degraded federated result, got error %v", err)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("expected empty federated result, got %d chunks", len(result.Chunks))
	}
}

func TestRetrieveCrossProject(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := vectorstore.NewMemoryStore(3)
	seedStore(t, store, "proj-1", "one chunk")
	seedStore(t, store, "proj-2", "another chunk")

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "question").Return([]float32{1, 0, 0}, nil)

	engine := NewEngine(embedder, mocks.NewMockGenerator(ctrl), store)
	result, err := engine.Retrieve(ctx, "question", "", 10)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Chunks) != 2 {
		t.Errorf("expected chunks from both projects, got %d", len(result.Chunks))
	}
}

func TestRetrieveClampsK(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := vectorstore.NewMemoryStore(3)
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = "chunk"
	}
	seedStore(t, store, "proj-1", texts...)

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "question").Return([]float32{1, 0, 0}, nil).Times(2)

	engine := NewEngine(embedder, mocks.NewMockGenerator(ctrl), store)

	result, err := engine.Retrieve(ctx, "question", "proj-1", 100)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Chunks) != MaxTopK {
		t.Errorf("expected k clamped to %d, got %d", MaxTopK, len(result.Chunks))
	}

	result, err = engine.Retrieve(ctx, "question", "proj-1", 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Chunks) != DefaultTopK {
		t.Errorf("expected default k %d, got %d", DefaultTopK, len(result.Chunks))
	}
}

func TestRetrievePreviewTruncation(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := vectorstore.NewMemoryStore(3)
	long := strings.Repeat("x", 500)
	seedStore(t, store, "proj-1", long)

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "question").Return([]float32{1, 0, 0}, nil)

	engine := NewEngine(embedder, mocks.NewMockGenerator(ctrl), store)
	result, err := engine.Retrieve(ctx, "question", "proj-1", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	chunk := result.Chunks[0]
	if len([]rune(chunk.Preview)) != previewRunes+3 || !strings.HasSuffix(chunk.Preview, "...") {
		t.Errorf("unexpected preview length %d", len([]rune(chunk.Preview)))
	}
	if chunk.Text != long {
		t.Error("expected full text preserved alongside preview")
	}
}

func TestAsk(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := vectorstore.NewMemoryStore(3)
	seedStore(t, store, "proj-1", "the krebs cycle happens in mitochondria")

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "where does the krebs cycle happen?").Return([]float32{1, 0, 0}, nil)

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string) (string, error) {
			if !strings.Contains(prompt, "Document 1:") {
				t.Errorf("expected labelled context in prompt, got %q", prompt)
			}
			if !strings.Contains(prompt, "krebs cycle happens in mitochondria") {
				t.Errorf("expected chunk text in prompt")
			}
			return "In the mitochondria.", nil
		})

	engine := NewEngine(embedder, generator, store)
	answer, err := engine.Ask(ctx, "where does the krebs cycle happen?", "proj-1", 5)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Answer != "In the mitochondria." {
		t.Errorf("unexpected answer %q", answer.Answer)
	}
	if len(answer.Sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(answer.Sources))
	}
}

func TestAskGenerationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := vectorstore.NewMemoryStore(3)
	seedStore(t, store, "proj-1", "some content")

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedQuery(ctx, "question").Return([]float32{1, 0, 0}, nil)

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().Generate(ctx, gomock.Any()).Return("", errors.New("model overloaded"))

	engine := NewEngine(embedder, generator, store)
	answer, err := engine.Ask(ctx, "question", "proj-1", 5)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.Contains(answer.Answer, "Error generating response") {
		t.Errorf("expected degraded answer text, got %q", answer.Answer)
	}
}

func TestSummarize(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string) (string, error) {
			if !strings.Contains(prompt, `"Biology"`) {
				t.Errorf("expected project name in prompt, got %q", prompt)
			}
			if !strings.Contains(prompt, "notes.txt, slides.pdf") {
				t.Errorf("expected document names in prompt, got %q", prompt)
			}
			if !strings.Contains(prompt, "cell biology course") {
				t.Errorf("expected description in prompt, got %q", prompt)
			}
			return "Covers cell biology.", nil
		})

	engine := NewEngine(mocks.NewMockEmbedder(ctrl), generator, vectorstore.NewMemoryStore(3))
	summary := engine.Summarize(ctx, "Biology", "cell biology course", []string{"notes.txt", "slides.pdf"})
	if summary != "Covers cell biology." {
		t.Errorf("unexpected summary %q", summary)
	}
}

func TestSummarizeGenerationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().Generate(ctx, gomock.Any()).Return("", errors.New("model overloaded"))

	engine := NewEngine(mocks.NewMockEmbedder(ctrl), generator, vectorstore.NewMemoryStore(3))
	summary := engine.Summarize(ctx, "Biology", "", []string{"notes.txt"})
	if !strings.Contains(summary, "Error generating response") {
		t.Errorf("expected degraded summary text, got %q", summary)
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := BuildSummaryPrompt("Biology", "", []string{"a.txt", "b.pdf"})
	if !strings.Contains(prompt, "contains 2 documents") {
		t.Errorf("missing document count:\n%s", prompt)
	}
	if !strings.Contains(prompt, "a.txt, b.pdf") {
		t.Errorf("missing document names:\n%s", prompt)
	}
	if !strings.Contains(prompt, "No description provided") {
		t.Errorf("missing description fallback:\n%s", prompt)
	}
}

func TestBuildPrompt(t *testing.T) {
	withChunks := BuildPrompt("what is osmosis?", []RetrievedChunk{
		{Text: "osmosis is diffusion of water"},
		{Text: "across a semipermeable membrane"},
	})
	if !strings.Contains(withChunks, "Document 1:\nosmosis is diffusion of water") {
		t.Errorf("missing first excerpt label:\n%s", withChunks)
	}
	if !strings.Contains(withChunks, "Document 2:\nacross a semipermeable membrane") {
		t.Errorf("missing second excerpt label:\n%s", withChunks)
	}
	if !strings.Contains(withChunks, "If the answer cannot be found in the documents") {
		t.Error("missing grounding instruction")
	}

	withoutChunks := BuildPrompt("what is osmosis?", nil)
	if strings.Contains(withoutChunks, "Document 1:") {
		t.Error("general-knowledge prompt should not label excerpts")
	}
	if !strings.Contains(withoutChunks, "based on the question asked") {
		t.Error("missing general-knowledge instruction")
	}
}
