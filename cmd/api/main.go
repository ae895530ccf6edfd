package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"studybuddy/internal/chunker"
	"studybuddy/internal/config"
	"studybuddy/internal/handlers"
	"studybuddy/internal/http"
	"studybuddy/internal/ingest"
	"studybuddy/internal/llm"
	"studybuddy/internal/rag"
	"studybuddy/internal/storage"
	"studybuddy/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	projectRepo := storage.NewProjectRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	chatRepo := storage.NewChatRepo(db)

	ctx := context.Background()

	// Initialize vector store
	var (
		vectorStore vectorstore.VectorStore
		pinger      handlers.Pinger
	)
	switch cfg.VectorStore {
	case "memory":
		memStore := vectorstore.NewMemoryStore(cfg.VectorDimension)
		vectorStore = memStore
		pinger = memStore
		slog.Info("Using in-memory vector store", "dimension", cfg.VectorDimension)
	default:
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.VectorDimension, cfg.ProviderTimeout)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		vectorStore = qdrantStore
		pinger = qdrantStore
		slog.Info("Using Qdrant vector store", "url", cfg.QdrantURL, "dimension", cfg.VectorDimension)
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorDimension, cfg.ProviderTimeout)
	testVector, err := embedder.EmbedQuery(ctx, "test")
	if err != nil {
		slog.Warn("Embedding client probe failed, continuing startup", "error", err)
	} else if len(testVector) != cfg.VectorDimension {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.VectorDimension, len(testVector))
	} else {
		slog.Info("Embedding client validated", "vector_size", cfg.VectorDimension)
	}

	// Create ingestion pipeline
	pipeline := ingest.NewPipeline(
		embedder,
		vectorStore,
		chunkRepo,
		chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg.EmbedConcurrency,
	)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.ProviderTimeout)

	// Create RAG engine
	engine := rag.NewEngine(embedder, llmClient, vectorStore)
	slog.Info("RAG engine initialized")

	// Create router with dependencies
	deps := &http.Deps{
		DB:          db,
		Projects:    projectRepo,
		Documents:   documentRepo,
		Chats:       chatRepo,
		Pipeline:    pipeline,
		Engine:      engine,
		VectorStore: pinger,
		MaxFileSize: cfg.MaxFileSize,
		MaxFiles:    cfg.MaxFilesPerProject,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
