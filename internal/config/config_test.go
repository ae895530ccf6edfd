package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

var configEnvVars = []string{
	"API_PORT", "DB_PATH", "VECTOR_STORE", "QDRANT_URL", "VECTOR_DIMENSION",
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL",
	"CHUNK_SIZE", "CHUNK_OVERLAP", "MAX_FILE_SIZE_MB", "MAX_FILES_PER_PROJECT",
	"EMBED_CONCURRENCY", "PROVIDER_TIMEOUT_SECONDS", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets all config env vars and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		original, present := os.LookupEnv(key)
		_ = os.Unsetenv(key)
		if present {
			t.Cleanup(func() { _ = os.Setenv(key, original) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", t.TempDir()+"/test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIPort != "9000" {
		t.Errorf("APIPort = %q, want 9000", cfg.APIPort)
	}
	if cfg.VectorStore != "qdrant" {
		t.Errorf("VectorStore = %q, want qdrant", cfg.VectorStore)
	}
	if cfg.VectorDimension != 768 {
		t.Errorf("VectorDimension = %d, want 768", cfg.VectorDimension)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("chunking = %d/%d, want 1000/200", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.MaxFileSize != 50*1024*1024 {
		t.Errorf("MaxFileSize = %d, want 50MB", cfg.MaxFileSize)
	}
	if cfg.MaxFilesPerProject != 20 {
		t.Errorf("MaxFilesPerProject = %d, want 20", cfg.MaxFilesPerProject)
	}
	if cfg.EmbedConcurrency != 4 {
		t.Errorf("EmbedConcurrency = %d, want 4", cfg.EmbedConcurrency)
	}
	if cfg.ProviderTimeout != 60*time.Second {
		t.Errorf("ProviderTimeout = %v, want 60s", cfg.ProviderTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", t.TempDir()+"/test.db")
	t.Setenv("API_PORT", "8123")
	t.Setenv("VECTOR_STORE", "memory")
	t.Setenv("VECTOR_DIMENSION", "3")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "8123" || cfg.VectorStore != "memory" || cfg.VectorDimension != 3 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("chunking = %d/%d, want 500/50", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-integer dimension", "VECTOR_DIMENSION", "abc"},
		{"zero dimension", "VECTOR_DIMENSION", "0"},
		{"zero chunk size", "CHUNK_SIZE", "0"},
		{"overlap >= chunk size", "CHUNK_OVERLAP", "1000"},
		{"negative overlap", "CHUNK_OVERLAP", "-1"},
		{"unknown vector store", "VECTOR_STORE", "pinecone"},
		{"zero file size", "MAX_FILE_SIZE_MB", "0"},
		{"zero file cap", "MAX_FILES_PER_PROJECT", "0"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"zero timeout", "PROVIDER_TIMEOUT_SECONDS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DB_PATH", t.TempDir()+"/test.db")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s: expected error", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
