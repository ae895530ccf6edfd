package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort string

	DBPath string

	VectorStore     string // "qdrant" or "memory"
	QdrantURL       string
	VectorDimension int

	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	ProviderTimeout    time.Duration

	ChunkSize    int
	ChunkOverlap int

	MaxFileSize        int64 // bytes
	MaxFilesPerProject int
	EmbedConcurrency   int

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded automatically; environment variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env at the project root (where go.mod lives).
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "9000"),
		DBPath:             getEnv("DB_PATH", "./data/studybuddy.db"),
		VectorStore:        getEnv("VECTOR_STORE", "qdrant"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "gemini-2.5-pro"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	var err error

	// The dimension must match the output size of the embedding model
	// (text-embedding-004 produces 768). Every vector in the index shares
	// this dimension; changing it requires re-ingesting all documents.
	if cfg.VectorDimension, err = getEnvInt("VECTOR_DIMENSION", 768); err != nil {
		return nil, err
	}
	if cfg.VectorDimension <= 0 {
		return nil, fmt.Errorf("VECTOR_DIMENSION must be greater than 0")
	}

	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}

	maxFileSizeMB, err := getEnvInt("MAX_FILE_SIZE_MB", 50)
	if err != nil {
		return nil, err
	}
	if maxFileSizeMB <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE_MB must be greater than 0")
	}
	cfg.MaxFileSize = int64(maxFileSizeMB) * 1024 * 1024

	if cfg.MaxFilesPerProject, err = getEnvInt("MAX_FILES_PER_PROJECT", 20); err != nil {
		return nil, err
	}
	if cfg.MaxFilesPerProject <= 0 {
		return nil, fmt.Errorf("MAX_FILES_PER_PROJECT must be greater than 0")
	}

	if cfg.EmbedConcurrency, err = getEnvInt("EMBED_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.EmbedConcurrency <= 0 {
		return nil, fmt.Errorf("EMBED_CONCURRENCY must be greater than 0")
	}

	timeoutSeconds, err := getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	if timeoutSeconds <= 0 {
		return nil, fmt.Errorf("PROVIDER_TIMEOUT_SECONDS must be greater than 0")
	}
	cfg.ProviderTimeout = time.Duration(timeoutSeconds) * time.Second

	switch cfg.VectorStore {
	case "qdrant", "memory":
	default:
		return nil, fmt.Errorf("VECTOR_STORE must be \"qdrant\" or \"memory\", got %q", cfg.VectorStore)
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	// Create the data directory if it doesn't exist (for the sqlite file).
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

// parseLogLevel converts a log level string to slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL: %q", level)
	}
}
